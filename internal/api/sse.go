package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mautops/maintcontrol/internal/websocket"
	"github.com/sirupsen/logrus"
)

// sseHeartbeatInterval 心跳间隔
const sseHeartbeatInterval = 30 * time.Second

// SSEHandler 以 Server-Sent Events 推送生命周期事件
// 与 /ws/events 共用同一个 Hub,?machine=<id> 只订阅单台机器
func SSEHandler(hub *websocket.Hub, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			Error(c, http.StatusInternalServerError, "streaming not supported", "")
			return
		}

		machineID := c.Query("machine")
		client := websocket.NewClient(uuid.New().String(), machineID, hub, nil, logger)
		ctx := c.Request.Context()

		select {
		case hub.Register <- client:
		case <-hub.Done():
			Error(c, http.StatusServiceUnavailable, "event stream is shutting down", "")
			return
		case <-ctx.Done():
			return
		}
		defer func() {
			select {
			case hub.Unregister <- client:
			case <-hub.Done():
			}
		}()

		// 长连接不受 server.write_timeout 限制,不支持时忽略
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no") // 禁用 Nginx 缓冲
		c.Status(http.StatusOK)

		connected, _ := json.Marshal(map[string]interface{}{
			"client_id": client.ID,
			"machine":   machineID,
			"time":      time.Now().Unix(),
		})
		if err := writeSSE(c.Writer, "connected", connected); err != nil {
			return
		}
		flusher.Flush()

		ticker := time.NewTicker(sseHeartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-client.Send:
				if !ok {
					// Hub 停止或客户端过慢被断开
					return
				}
				if err := writeSSE(c.Writer, "", message); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				heartbeat, _ := json.Marshal(map[string]int64{"time": time.Now().Unix()})
				if err := writeSSE(c.Writer, "heartbeat", heartbeat); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

// writeSSE 写一条 SSE 消息,event 为空时使用默认的 message 事件
func writeSSE(w io.Writer, event string, data []byte) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
