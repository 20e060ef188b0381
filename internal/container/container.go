package container

import (
	"context"
	"fmt"
	"time"

	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/database"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/mautops/maintcontrol/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// webhookTimeout 单次 webhook 投递超时
const webhookTimeout = 10 * time.Second

// Container 依赖注入容器
// 管理数据库、事件投递、业务服务和后台任务
type Container struct {
	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
	opts   service.Options

	hub          *websocket.Hub
	natsSink     *integration.NATSSink
	eventRepo    repository.EventRepository
	eventHandler integration.EventHandler

	historySvc     service.HistoryService
	machineSvc     service.MachineService
	maintenanceSvc service.MaintenanceService
	querySvc       service.QueryService
	statisticsSvc  service.StatisticsService
	transferSvc    service.TransferService
	backupSvc      *service.BackupService

	collector       *metrics.Collector
	backupScheduler *service.BackupScheduler
	cancel          context.CancelFunc
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件,后台任务由 StartBackground 启动
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	location, err := loadLocation(cfg.Lifecycle.Timezone)
	if err != nil {
		return nil, err
	}

	// 1. 初始化数据库(带重试机制,指数退避)
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	c := &Container{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		hub:       websocket.NewHub(),
		eventRepo: repository.NewEventRepository(db),
	}

	// 2. 事件投递: WebSocket 订阅者、webhook、NATS
	sinks := []integration.Sink{c.hub}
	for _, url := range cfg.Events.Webhooks {
		sinks = append(sinks, integration.NewWebhookSink(url, webhookTimeout))
	}
	if cfg.Events.NATSURL != "" {
		natsSink, err := integration.NewNATSSink(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, logger)
		if err != nil {
			database.Close(db)
			return nil, fmt.Errorf("failed to connect nats: %w", err)
		}
		c.natsSink = natsSink
		sinks = append(sinks, natsSink)
	}
	c.eventHandler = integration.NewEventHandler(c.eventRepo, integration.EventHandlerOptions{
		Workers:    cfg.Events.Workers,
		QueueSize:  cfg.Events.QueueSize,
		MaxRetries: cfg.Events.MaxRetries,
		Logger:     logger,
	}, sinks...)

	// 3. 业务服务
	c.opts = service.Options{
		Events:       c.eventHandler,
		Logger:       logger,
		Now:          time.Now,
		Location:     location,
		StrictStatus: cfg.Lifecycle.StrictStatus,
	}
	c.historySvc = service.NewHistoryService(db, c.opts)
	c.machineSvc = service.NewMachineService(db, c.historySvc, c.opts)
	c.maintenanceSvc = service.NewMaintenanceService(db, c.historySvc, c.opts)
	c.querySvc = service.NewQueryService(db, c.opts)
	c.statisticsSvc = service.NewStatisticsService(db, cfg.Lifecycle.UpcomingWindowDays, c.opts)
	c.transferSvc = service.NewTransferService(db, c.machineSvc, c.opts)
	c.backupSvc = service.NewBackupService(c.transferSvc, cfg.Backup.Dir, c.opts)

	return c, nil
}

// loadLocation 解析时区, "Local" 或空表示系统时区
func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid lifecycle.timezone %q: %w", name, err)
	}
	return location, nil
}

// StartBackground 启动后台任务: WebSocket hub、事件补投、指标采集、定时备份
func (c *Container) StartBackground(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.hub.Run()

	if n, err := c.eventHandler.ReplayPending(ctx, c.cfg.Events.QueueSize); err != nil {
		c.logger.WithError(err).Warn("failed to replay pending events")
	} else if n > 0 {
		c.logger.WithField("count", n).Info("replaying pending events")
	}

	c.collector = metrics.NewCollector(c.db, c.statisticsSvc.Snapshot,
		time.Duration(c.cfg.Metrics.CollectInterval)*time.Second, c.logger)
	c.collector.Start()

	if c.cfg.Backup.Enabled {
		c.backupScheduler = service.NewBackupScheduler(c.backupSvc, &service.BackupScheduleConfig{
			Interval:      time.Duration(c.cfg.Backup.Interval) * time.Second,
			RetentionDays: c.cfg.Backup.RetentionDays,
		}, c.logger)
		c.backupScheduler.Start(ctx)
	}
}

// ApplyConfig 应用热加载的配置,目前只支持日志级别
func (c *Container) ApplyConfig(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		c.logger.WithError(err).Warn("ignoring invalid log level")
		return
	}
	if level != c.logger.GetLevel() {
		c.logger.SetLevel(level)
		c.logger.WithField("level", level.String()).Info("log level changed")
	}
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Config 获取配置
func (c *Container) Config() *config.Config {
	return c.cfg
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Today 配置时区下的当天日期
func (c *Container) Today() string {
	return c.opts.Today()
}

// Hub 获取 WebSocket hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// EventRepository 获取事件仓储
func (c *Container) EventRepository() repository.EventRepository {
	return c.eventRepo
}

// HistoryService 获取履历服务
func (c *Container) HistoryService() service.HistoryService {
	return c.historySvc
}

// MachineService 获取机器登记服务
func (c *Container) MachineService() service.MachineService {
	return c.machineSvc
}

// MaintenanceService 获取维护生命周期服务
func (c *Container) MaintenanceService() service.MaintenanceService {
	return c.maintenanceSvc
}

// QueryService 获取查询服务
func (c *Container) QueryService() service.QueryService {
	return c.querySvc
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsSvc
}

// TransferService 获取导入导出服务
func (c *Container) TransferService() service.TransferService {
	return c.transferSvc
}

// BackupService 获取备份服务
func (c *Container) BackupService() *service.BackupService {
	return c.backupSvc
}

// Close 关闭容器,按依赖逆序释放资源
func (c *Container) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.backupScheduler != nil {
		c.backupScheduler.Stop()
	}
	if c.collector != nil {
		c.collector.Stop()
	}
	// 事件处理器先于 hub 和 NATS 停止,worker 不再向它们投递
	c.eventHandler.Stop()
	c.hub.Stop()
	if c.natsSink != nil {
		c.natsSink.Close()
	}
	database.Close(c.db)
	return nil
}
