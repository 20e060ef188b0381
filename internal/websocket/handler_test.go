package websocket_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWebSocketHandler_StreamsEvents 测试订阅后收到事件
func TestWebSocketHandler_StreamsEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := runHub(t)

	router := gin.New()
	router.GET("/ws/events", websocket.WebSocketHandler(hub, logrus.New()))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events?machine=PRS-001"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Send(context.Background(), integration.NewEvent(integration.EventMaintenanceStep, "LTH-01", nil)))
	want := integration.NewEvent(integration.EventMaintenanceStep, "PRS-001", map[string]interface{}{"description": "Replaced seal"})
	require.NoError(t, hub.Send(context.Background(), want))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var got integration.Event
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, want.ID, got.ID, "events for other machines are filtered out")
	assert.Equal(t, "Replaced seal", got.Data["description"])

	conn.Close()
	require.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

// TestWebSocketHandler_RejectsPlainHTTP 测试非 WebSocket 请求
func TestWebSocketHandler_RejectsPlainHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := runHub(t)

	router := gin.New()
	router.GET("/ws/events", websocket.WebSocketHandler(hub, nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ws/events", nil))
	assert.Equal(t, 400, w.Code)
	assert.Zero(t, hub.GetClientCount())
}

// TestWebSocketHandler_HubStopped 测试 Hub 停止后新连接被关闭而不是挂起
func TestWebSocketHandler_HubStopped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := websocket.NewHub()
	hub.Stop()

	router := gin.New()
	router.GET("/ws/events", websocket.WebSocketHandler(hub, logrus.New()))
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, gorillaWS.IsCloseError(err, gorillaWS.CloseGoingAway), "unexpected error: %v", err)
	assert.Zero(t, hub.GetClientCount())
}
