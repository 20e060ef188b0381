package integration_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestWebhookSink_Send 测试 Webhook 请求内容
func TestWebhookSink_Send(t *testing.T) {
	var (
		gotHeader http.Header
		gotEvent  integration.Event
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotEvent)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sink := integration.NewWebhookSink(server.URL, time.Second)
	assert.Equal(t, "webhook", sink.Name())

	evt := integration.NewEvent(integration.EventScheduleSet, "PRS-001", map[string]interface{}{"date": "2024-07-01"})
	require.NoError(t, sink.Send(context.Background(), evt))

	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "schedule.set", gotHeader.Get("X-Event-Type"))
	assert.Equal(t, evt.ID, gotHeader.Get("X-Event-ID"))
	assert.Equal(t, "PRS-001", gotEvent.MachineID)
	assert.Equal(t, "2024-07-01", gotEvent.Data["date"])
}

// TestWebhookSink_ErrorStatus 测试非 2xx 响应
func TestWebhookSink_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := integration.NewWebhookSink(server.URL, time.Second)
	err := sink.Send(context.Background(), integration.NewEvent(integration.EventMachineCreated, "A", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

// TestWebhookSink_Unreachable 测试连接失败
func TestWebhookSink_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	sink := integration.NewWebhookSink(url, 200*time.Millisecond)
	assert.Error(t, sink.Send(context.Background(), integration.NewEvent(integration.EventMachineCreated, "A", nil)))
}

// TestNATSSink_NotConnected 测试未连接时的错误
func TestNATSSink_NotConnected(t *testing.T) {
	_, err := integration.NewNATSSink("nats://127.0.0.1:1", "plant", quietLogger())
	assert.Error(t, err)

	var sink integration.NATSSink
	assert.Equal(t, "nats", sink.Name())
	assert.Error(t, sink.Send(context.Background(), integration.NewEvent(integration.EventMachineCreated, "A", nil)))
}
