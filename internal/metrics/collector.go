package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Snapshot 一次采集得到的业务指标
type Snapshot struct {
	MachinesByStatus map[string]int64
	OpenEpisodes     int64
	AlertsByLevel    map[string]int64
}

// SnapshotFunc 采集业务指标
type SnapshotFunc func(ctx context.Context) (*Snapshot, error)

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB
	snapshot SnapshotFunc
	interval time.Duration
	logger   logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewCollector 创建指标收集器,snapshot 可以为空
func NewCollector(db *gorm.DB, snapshot SnapshotFunc, interval time.Duration, logger logrus.FieldLogger) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:       db,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce(c.ctx)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce(c.ctx)
		}
	}
}

// CollectOnce 立即采集一次
func (c *Collector) CollectOnce(ctx context.Context) {
	_ = UpdateDatabaseConnections(c.db)

	if c.snapshot == nil {
		return
	}
	snap, err := c.snapshot(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("failed to collect business metrics")
		return
	}
	for status, count := range snap.MachinesByStatus {
		UpdateMachinesByStatus(status, float64(count))
	}
	UpdateOpenEpisodes(float64(snap.OpenEpisodes))
	for level, count := range snap.AlertsByLevel {
		UpdateScheduleAlerts(level, float64(count))
	}
}
