package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// NATSSink 把事件发布到 NATS,主题为 <prefix>.<event type>
type NATSSink struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSSink 连接 NATS 并创建投递目标
func NewNATSSink(url string, prefix string, logger logrus.FieldLogger) (*NATSSink, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts := []nats.Option{
		nats.Name("maintcontrol"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.WithField("url", nc.ConnectedUrl()).Info("nats reconnected")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "maintcontrol"
	}
	return &NATSSink{nc: nc, prefix: prefix}, nil
}

// Name 投递目标名称
func (s *NATSSink) Name() string {
	return "nats"
}

// Subject 事件对应的主题
func (s *NATSSink) Subject(evt *Event) string {
	return s.prefix + "." + string(evt.Type)
}

// Send 发布事件
func (s *NATSSink) Send(ctx context.Context, evt *Event) error {
	if s.nc == nil || s.nc.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return s.nc.Publish(s.Subject(evt), payload)
}

// Close 关闭连接
func (s *NATSSink) Close() {
	if s.nc != nil {
		_ = s.nc.Drain()
		s.nc.Close()
	}
}
