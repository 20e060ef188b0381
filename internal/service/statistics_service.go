package service

import (
	"context"
	"time"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	Snapshot(ctx context.Context) (*metrics.Snapshot, error)
}

// Dashboard 看板统计
type Dashboard struct {
	TotalMachines  int64                         `json:"total_machines"`
	TotalQuantity  int64                         `json:"total_quantity"`
	ByStatus       map[model.MachineStatus]int64 `json:"by_status"`
	InOperation    int64                         `json:"in_operation"`
	InMaintenance  int64                         `json:"in_maintenance"`
	Inoperative    int64                         `json:"inoperative"`
	OpenEpisodes   int64                         `json:"open_episodes"`
	Overdue        int64                         `json:"overdue"`
	DueToday       int64                         `json:"due_today"`
	UpcomingWindow int                           `json:"upcoming_window_days"`
	Upcoming       []*UpcomingMaintenance        `json:"upcoming"`
}

// UpcomingMaintenance 即将到期的维护计划
type UpcomingMaintenance struct {
	MachineID   string     `json:"machine_id"`
	MachineName string     `json:"machine_name"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Alert       AlertLevel `json:"alert"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db           *gorm.DB
	machineRepo  repository.MachineRepository
	maintRepo    repository.MaintenanceRepository
	scheduleRepo repository.ScheduleRepository
	windowDays   int
	opts         Options
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB, windowDays int, opts Options) StatisticsService {
	if windowDays < 0 {
		windowDays = 0
	}
	return &statisticsService{
		db:           db,
		machineRepo:  repository.NewMachineRepository(db),
		maintRepo:    repository.NewMaintenanceRepository(db),
		scheduleRepo: repository.NewScheduleRepository(db),
		windowDays:   windowDays,
		opts:         opts.withDefaults(),
	}
}

// Dashboard 计算看板统计
func (s *statisticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	var results []struct {
		Status   string
		Count    int64
		Quantity int64
	}
	err := s.db.WithContext(ctx).Model(&model.MachineModel{}).
		Select("status, COUNT(*) as count, COALESCE(SUM(quantity), 0) as quantity").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, apperr.Storage(err, "failed to get machine statistics by status")
	}

	dash := &Dashboard{
		ByStatus:       make(map[model.MachineStatus]int64, len(model.AllStatuses)),
		UpcomingWindow: s.windowDays,
		Upcoming:       []*UpcomingMaintenance{},
	}
	for _, st := range model.AllStatuses {
		dash.ByStatus[st] = 0
	}
	for _, r := range results {
		dash.ByStatus[model.MachineStatus(r.Status)] = r.Count
		dash.TotalMachines += r.Count
		dash.TotalQuantity += r.Quantity
	}
	dash.InOperation = dash.ByStatus[model.StatusInOperation]
	dash.InMaintenance = dash.ByStatus[model.StatusInMaintenance]
	dash.Inoperative = dash.ByStatus[model.StatusInoperative]

	if dash.OpenEpisodes, err = s.maintRepo.CountOpen(ctx); err != nil {
		return nil, apperr.Storage(err, "failed to count open episodes")
	}

	schedules, err := s.scheduleRepo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load schedules")
	}
	machines, err := s.machineRepo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load machines")
	}
	byID := make(map[uint]*model.MachineModel, len(machines))
	for _, m := range machines {
		byID[m.ID] = m
	}

	today := s.opts.Today()
	todayDate, _ := time.Parse(utils.DateLayout, today)
	// 窗口包含今天
	windowEnd := todayDate.AddDate(0, 0, s.windowDays).Format(utils.DateLayout)

	for _, sch := range schedules {
		alert := ClassifyAlert(today, sch.Date)
		switch alert {
		case AlertOverdue:
			dash.Overdue++
		case AlertDueToday:
			dash.DueToday++
		}
		if sch.Date < today || sch.Date > windowEnd {
			continue
		}
		machine := byID[sch.MachineID]
		if machine == nil {
			continue
		}
		dash.Upcoming = append(dash.Upcoming, &UpcomingMaintenance{
			MachineID:   machine.Tag,
			MachineName: machine.Name,
			Date:        sch.Date,
			Description: sch.Description,
			Alert:       alert,
		})
	}

	return dash, nil
}

// Snapshot 为指标收集器提供业务指标
func (s *statisticsService) Snapshot(ctx context.Context) (*metrics.Snapshot, error) {
	dash, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	snap := &metrics.Snapshot{
		MachinesByStatus: make(map[string]int64, len(dash.ByStatus)),
		OpenEpisodes:     dash.OpenEpisodes,
		AlertsByLevel: map[string]int64{
			string(AlertOverdue):  dash.Overdue,
			string(AlertDueToday): dash.DueToday,
		},
	}
	for status, count := range dash.ByStatus {
		snap.MachinesByStatus[string(status)] = count
	}
	return snap, nil
}
