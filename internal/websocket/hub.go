package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mautops/maintcontrol/internal/integration"
)

// Hub 管理所有 WebSocket 连接,并作为生命周期事件的投递目标
type Hub struct {
	// 已注册的客户端
	clients map[*Client]bool

	// 注册新客户端
	Register chan *Client

	// 注销客户端
	Unregister chan *Client

	stop     chan struct{}
	stopOnce sync.Once

	// 互斥锁，保护 clients map
	mu sync.RWMutex
}

// NewHub 创建新的 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		stop:       make(chan struct{}),
	}
}

// Run 运行 Hub,直到 Stop 被调用
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-h.stop:
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop 停止 Hub 并关闭全部客户端
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
}

// Done 在 Hub 停止后关闭
func (h *Hub) Done() <-chan struct{} {
	return h.stop
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// Name 投递目标名称
func (h *Hub) Name() string {
	return "websocket"
}

// Send 把事件推送给订阅了该机器(或未设置过滤)的客户端
func (h *Hub) Send(ctx context.Context, evt *integration.Event) error {
	message, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	h.BroadcastToMachine(evt.MachineID, message)
	return nil
}

// BroadcastToMachine 向关注指定机器的客户端广播消息
// 发送缓冲已满的客户端会被断开
func (h *Hub) BroadcastToMachine(machineID string, message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.Accepts(machineID) {
			continue
		}
		select {
		case client.Send <- message:
		default:
			h.remove(client)
		}
	}
}

// HasClient 检查客户端是否存在
func (h *Hub) HasClient(clientID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return true
		}
	}
	return false
}

// GetClientCount 获取客户端数量
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
