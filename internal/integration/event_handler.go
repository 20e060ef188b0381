package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/sirupsen/logrus"
)

// Sink 事件投递目标
type Sink interface {
	Name() string
	Send(ctx context.Context, evt *Event) error
}

// EventHandler 事件处理器
type EventHandler interface {
	Handle(ctx context.Context, evt *Event) error
	// ReplayPending 重新投递仍为 pending 的事件,返回入队数量
	ReplayPending(ctx context.Context, limit int) (int, error)
	Stop()
}

// EventHandlerOptions 事件处理器参数
type EventHandlerOptions struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	Backoff    time.Duration // 首次重试等待时间,之后指数增长
	Logger     logrus.FieldLogger
}

// dbEventHandler 基于数据库的事件处理器
// 事件先落库为 pending,再由 worker 异步投递到各个 Sink
type dbEventHandler struct {
	eventRepo  repository.EventRepository
	sinks      []Sink
	queue      chan *Event
	maxRetries int
	backoff    time.Duration
	logger     logrus.FieldLogger
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewEventHandler 创建事件处理器并启动 worker
func NewEventHandler(eventRepo repository.EventRepository, opts EventHandlerOptions, sinks ...Sink) EventHandler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1000
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	handler := &dbEventHandler{
		eventRepo:  eventRepo,
		sinks:      sinks,
		queue:      make(chan *Event, opts.QueueSize),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		logger:     opts.Logger.WithField("component", "events"),
		stop:       make(chan struct{}),
	}

	// 启动 worker goroutines
	for i := 0; i < opts.Workers; i++ {
		handler.wg.Add(1)
		go handler.worker()
	}

	return handler
}

// Handle 持久化事件并入队
func (h *dbEventHandler) Handle(ctx context.Context, evt *Event) error {
	eventData, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now()
	eventModel := &model.EventModel{
		ID:         evt.ID,
		MachineTag: evt.MachineID,
		Type:       string(evt.Type),
		Data:       eventData,
		Status:     model.EventStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if eventModel.MachineTag == "" {
		eventModel.MachineTag = "-"
	}
	if err := eventModel.Validate(); err != nil {
		return err
	}

	if err := h.eventRepo.Save(ctx, eventModel); err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}

	select {
	case h.queue <- evt:
	default:
		// 队列满时保持 pending,不阻塞调用方
		h.logger.WithFields(logrus.Fields{
			"event_id": evt.ID,
			"type":     evt.Type,
		}).Warn("event queue full, event left pending")
	}

	return nil
}

// ReplayPending 重新投递上次未完成的事件
// 进程重启或队列溢出后,pending 事件只存在于数据库中
func (h *dbEventHandler) ReplayPending(ctx context.Context, limit int) (int, error) {
	pending, err := h.eventRepo.FindPending(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load pending events: %w", err)
	}

	queued := 0
	for _, em := range pending {
		var evt Event
		if err := json.Unmarshal(em.Data, &evt); err != nil {
			h.logger.WithError(err).WithField("event_id", em.ID).Warn("dropping undecodable event")
			h.updateStatus(ctx, em.ID, model.EventStatusFailed, em.RetryCount)
			continue
		}
		select {
		case h.queue <- &evt:
			queued++
		default:
			return queued, nil
		}
	}
	return queued, nil
}

// worker 事件处理 worker
func (h *dbEventHandler) worker() {
	defer h.wg.Done()
	for {
		select {
		case evt := <-h.queue:
			h.deliver(evt)
		case <-h.stop:
			return
		}
	}
}

// deliver 投递到全部 Sink,失败的 Sink 按指数退避重试
func (h *dbEventHandler) deliver(evt *Event) {
	ctx := context.Background()
	log := h.logger.WithFields(logrus.Fields{"event_id": evt.ID, "type": evt.Type})

	if len(h.sinks) == 0 {
		h.updateStatus(ctx, evt.ID, model.EventStatusSuccess, 0)
		return
	}

	pending := make([]Sink, len(h.sinks))
	copy(pending, h.sinks)
	backoff := h.backoff
	retries := 0

	for attempt := 0; attempt < h.maxRetries; attempt++ {
		var failed []Sink
		for _, sink := range pending {
			err := sink.Send(ctx, evt)
			metrics.RecordEventDelivery(sink.Name(), err)
			if err != nil {
				log.WithError(err).WithField("sink", sink.Name()).Warn("event delivery failed")
				failed = append(failed, sink)
			}
		}

		if len(failed) == 0 {
			h.updateStatus(ctx, evt.ID, model.EventStatusSuccess, retries)
			return
		}

		pending = failed
		retries++
		h.updateStatus(ctx, evt.ID, model.EventStatusPending, retries)

		if attempt < h.maxRetries-1 {
			select {
			case <-time.After(backoff):
			case <-h.stop:
				return
			}
			backoff *= 2 // 指数退避
		}
	}

	log.WithField("retries", retries).Error("event delivery gave up")
	h.updateStatus(ctx, evt.ID, model.EventStatusFailed, retries)
}

func (h *dbEventHandler) updateStatus(ctx context.Context, id string, status string, retries int) {
	if err := h.eventRepo.UpdateStatus(ctx, id, status, retries); err != nil {
		h.logger.WithError(err).WithField("event_id", id).Error("failed to update event status")
	}
}

// Stop 停止事件处理器,等待 worker 退出
func (h *dbEventHandler) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
	})
	h.wg.Wait()
}

// nopEventHandler 丢弃全部事件
type nopEventHandler struct{}

// NewNopEventHandler 创建不做任何处理的事件处理器
func NewNopEventHandler() EventHandler {
	return nopEventHandler{}
}

func (nopEventHandler) Handle(context.Context, *Event) error            { return nil }
func (nopEventHandler) ReplayPending(context.Context, int) (int, error) { return 0, nil }
func (nopEventHandler) Stop()                                           {}
