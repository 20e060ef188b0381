package api_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/api"
	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/database"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/mautops/maintcontrol/internal/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fixedNow 测试使用的固定时间: 2024-06-10
var fixedNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

// testServer 基于内存数据库的完整路由
type testServer struct {
	router *gin.Engine
	events repository.EventRepository
}

// envelope 通用响应结构
type envelope struct {
	Code       int                `json:"code"`
	Kind       string             `json:"kind"`
	Message    string             `json:"message"`
	Detail     string             `json:"detail"`
	Data       json.RawMessage    `json:"data"`
	Pagination api.PaginationInfo `json:"pagination"`
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := quietLogger()
	api.SetLogger(logger)

	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	eventRepo := repository.NewEventRepository(db)
	handler := integration.NewEventHandler(eventRepo, integration.EventHandlerOptions{Logger: logger})
	t.Cleanup(handler.Stop)

	opts := service.Options{
		Events:       handler,
		Logger:       logger,
		Now:          func() time.Time { return fixedNow },
		Location:     time.UTC,
		StrictStatus: true,
	}
	history := service.NewHistoryService(db, opts)
	machines := service.NewMachineService(db, history, opts)
	transfer := service.NewTransferService(db, machines, opts)

	cfg := config.Default()
	cfg.Env = "development"
	cfg.RateLimit.Enabled = false

	router := api.SetupRoutesWithConfig(&api.RouterDeps{
		Config:      cfg,
		DB:          db,
		Hub:         websocket.NewHub(),
		Logger:      logger,
		Machines:    machines,
		Maintenance: service.NewMaintenanceService(db, history, opts),
		History:     history,
		Query:       service.NewQueryService(db, opts),
		Statistics:  service.NewStatisticsService(db, 30, opts),
		Transfer:    transfer,
		Backups:     service.NewBackupService(transfer, t.TempDir(), opts),
		Events:      eventRepo,
		Today:       opts.Today,
	})
	return &testServer{router: router, events: eventRepo}
}

// do 发送请求,headers 为 key/value 交替
func (s *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decode 解析响应,data 不为 nil 时解析 data 字段
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) *envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return &env
}

// createMachine 通过 API 登记机器
func (s *testServer) createMachine(t *testing.T, id, name string) {
	t.Helper()
	w := s.do("POST", "/api/v1/machines", `{"id":"`+id+`","name":"`+name+`"}`)
	require.Equal(t, 201, w.Code, w.Body.String())
}
