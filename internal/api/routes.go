package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mautops/maintcontrol/internal/config"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/service"
	"github.com/mautops/maintcontrol/internal/websocket"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config      *config.Config
	DB          *gorm.DB
	Hub         *websocket.Hub
	Logger      logrus.FieldLogger
	Machines    service.MachineService
	Maintenance service.MaintenanceService
	History     service.HistoryService
	Query       service.QueryService
	Statistics  service.StatisticsService
	Transfer    service.TransferService
	Backups     *service.BackupService
	Events      repository.EventRepository
	Today       func() string
}

// SetupRoutesWithConfig 配置中间件和全部路由
func SetupRoutesWithConfig(deps *RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing.ServiceName))
	}
	router.Use(RequestLogMiddleware())
	if cfg.Server.ForceHTTPS {
		router.Use(HTTPSRedirectMiddleware())
	}
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(&cfg.CORS))
	router.Use(I18nMiddleware())
	router.Use(VersionMiddleware())
	router.Use(ErrorHandlerMiddleware())
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	// 健康检查和指标
	healthController := NewHealthController(deps.DB, deps.Hub)
	router.GET("/health", healthController.Check)
	router.GET("/metrics", MetricsHandler)

	// 生命周期事件推送
	if deps.Hub != nil {
		logger := deps.Logger
		if logger == nil {
			logger = GetLogger()
		}
		router.GET("/ws/events", websocket.WebSocketHandler(deps.Hub, logger))
		router.GET("/events/stream", SSEHandler(deps.Hub, logger))
	}

	machineController := NewMachineController(deps.Machines, deps.Query, deps.History)
	maintenanceController := NewMaintenanceController(deps.Maintenance)
	statisticsController := NewStatisticsController(deps.Statistics)
	transferController := NewTransferController(deps.Transfer, deps.Today)

	v1 := router.Group("/api/v1")
	{
		machines := v1.Group("/machines")
		{
			machines.GET("", machineController.List)
			machines.GET("/all", machineController.All)
			machines.POST("", machineController.Create)

			machines.GET("/:id", machineController.Get)
			machines.PATCH("/:id", machineController.UpdateField)
			machines.DELETE("/:id", machineController.Delete)
			machines.POST("/:id/quantity", machineController.AdjustQuantity)
			machines.GET("/:id/history", machineController.History)
			machines.POST("/:id/history", machineController.AppendHistory)

			// 维护生命周期
			machines.GET("/:id/maintenance", maintenanceController.List)
			machines.POST("/:id/maintenance", maintenanceController.Start)
			machines.GET("/:id/maintenance/active", maintenanceController.Active)
			machines.POST("/:id/maintenance/:episodeId/steps", maintenanceController.AddStep)
			machines.POST("/:id/maintenance/:episodeId/end", maintenanceController.End)

			// 计划维护
			machines.PUT("/:id/schedule", maintenanceController.Schedule)
			machines.DELETE("/:id/schedule", maintenanceController.ClearSchedule)
			machines.POST("/:id/schedule/start", maintenanceController.StartFromSchedule)
		}

		v1.GET("/dashboard", statisticsController.Dashboard)
		v1.GET("/export", transferController.Export)
		v1.POST("/import", transferController.Import)

		if deps.Events != nil {
			eventController := NewEventController(deps.Events)
			machines.GET("/:id/events", eventController.ListByMachine)
			v1.GET("/events/stats", eventController.Stats)
		}

		if deps.Backups != nil {
			backupController := NewBackupController(deps.Backups)
			backups := v1.Group("/backups")
			{
				backups.POST("", backupController.CreateBackup)
				backups.GET("", backupController.ListBackups)
				backups.POST("/:filename/restore", backupController.RestoreBackup)
				backups.DELETE("/:filename", backupController.DeleteBackup)
			}
		}
	}

	// 未匹配的路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, T(c, "error.route_not_found"), c.Request.URL.Path)
	})

	return router
}
