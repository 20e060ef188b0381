package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler 生命周期事件订阅处理器
// ?machine=<id> 只订阅单台机器的事件
func WebSocketHandler(hub *Hub, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 失败时已写回 HTTP 错误
			return
		}

		client := NewClient(
			uuid.New().String(),
			c.Query("machine"),
			hub,
			conn,
			logger,
		)

		select {
		case hub.Register <- client:
		case <-hub.Done():
			// Hub 已停止,告知客户端服务正在关闭
			msg := gorillaWS.FormatCloseMessage(gorillaWS.CloseGoingAway, "server shutting down")
			conn.WriteControl(gorillaWS.CloseMessage, msg, time.Now().Add(writeWait))
			conn.Close()
			return
		}

		go client.ReadPump()
		go client.WritePump()
	}
}
