package metrics

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 生命周期操作数
	lifecycleOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lifecycle_operations_total",
			Help: "Total number of machine lifecycle operations",
		},
		[]string{"operation", "result"}, // result: ok, error
	)

	// 事件投递数
	eventDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_deliveries_total",
			Help: "Total number of lifecycle event deliveries",
		},
		[]string{"sink", "result"},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 机器状态分布
	machinesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "machines_by_status",
			Help: "Number of machines by status",
		},
		[]string{"status"},
	)

	// 进行中的维护数
	maintenanceOpenEpisodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "maintenance_open_episodes",
			Help: "Number of maintenance episodes currently open",
		},
	)

	// 维护计划告警数
	scheduleAlerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "schedule_alerts",
			Help: "Number of machines by schedule alert level",
		},
		[]string{"level"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(lifecycleOperationsTotal)
	prometheus.MustRegister(eventDeliveriesTotal)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(machinesByStatus)
	prometheus.MustRegister(maintenanceOpenEpisodes)
	prometheus.MustRegister(scheduleAlerts)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = fmt.Sprintf("%d", status)
	}
	apiRequestsTotal.WithLabelValues(method, path, statusText).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordOperation 记录生命周期操作结果
func RecordOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	lifecycleOperationsTotal.WithLabelValues(operation, result).Inc()
}

// RecordEventDelivery 记录事件投递结果
func RecordEventDelivery(sink string, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	eventDeliveriesTotal.WithLabelValues(sink, result).Inc()
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.OpenConnections - stats.Idle))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateMachinesByStatus 更新机器状态分布指标
func UpdateMachinesByStatus(status string, count float64) {
	machinesByStatus.WithLabelValues(status).Set(count)
}

// UpdateOpenEpisodes 更新进行中维护数
func UpdateOpenEpisodes(count float64) {
	maintenanceOpenEpisodes.Set(count)
}

// UpdateScheduleAlerts 更新计划告警分布
func UpdateScheduleAlerts(level string, count float64) {
	scheduleAlerts.WithLabelValues(level).Set(count)
}
