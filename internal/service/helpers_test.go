package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/database"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fixedNow 测试使用的固定时间: 2024-06-10
var fixedNow = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

// recordingHandler 记录发布的事件
type recordingHandler struct {
	mu     sync.Mutex
	events []*integration.Event
}

func (h *recordingHandler) Handle(_ context.Context, evt *integration.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, evt)
	return nil
}

func (h *recordingHandler) ReplayPending(context.Context, int) (int, error) { return 0, nil }

func (h *recordingHandler) Stop() {}

func (h *recordingHandler) types() []integration.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	types := make([]integration.EventType, 0, len(h.events))
	for _, e := range h.events {
		types = append(types, e.Type)
	}
	return types
}

// testEnv 一组共享数据库的服务
type testEnv struct {
	db          *gorm.DB
	events      *recordingHandler
	opts        service.Options
	history     service.HistoryService
	machines    service.MachineService
	maintenance service.MaintenanceService
	query       service.QueryService
	statistics  service.StatisticsService
	transfer    service.TransferService
}

// setupTestDB 创建迁移好的内存数据库
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })
	return db
}

func newTestEnv(t *testing.T, strict bool) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	env := &testEnv{db: db, events: &recordingHandler{}}
	env.opts = service.Options{
		Events:       env.events,
		Logger:       logger,
		Now:          func() time.Time { return fixedNow },
		Location:     time.UTC,
		StrictStatus: strict,
	}
	env.history = service.NewHistoryService(db, env.opts)
	env.machines = service.NewMachineService(db, env.history, env.opts)
	env.maintenance = service.NewMaintenanceService(db, env.history, env.opts)
	env.query = service.NewQueryService(db, env.opts)
	env.statistics = service.NewStatisticsService(db, 30, env.opts)
	env.transfer = service.NewTransferService(db, env.machines, env.opts)
	return env
}

// createMachine 登记一台机器
func (e *testEnv) createMachine(t *testing.T, id, name string) *service.MachineView {
	t.Helper()
	view, err := e.machines.Create(context.Background(), &service.CreateMachineRequest{ID: id, Name: name})
	require.NoError(t, err)
	return view
}

// historyTexts 返回机器台账文本
func (e *testEnv) historyTexts(t *testing.T, id string) []string {
	t.Helper()
	entries, err := e.history.List(context.Background(), id)
	require.NoError(t, err)
	texts := make([]string, 0, len(entries))
	for _, h := range entries {
		texts = append(texts, h.Text)
	}
	return texts
}

func strPtr(s string) *string {
	return &s
}
