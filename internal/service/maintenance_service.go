package service

import (
	"context"
	"errors"
	"strings"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultScheduledDescription 计划没有描述时启动维护使用的描述
const DefaultScheduledDescription = "Scheduled maintenance"

// MaintenanceService 维护生命周期服务接口
// 每台机器只有两种状态: 无进行中维护 / 有一条进行中维护
type MaintenanceService interface {
	Start(ctx context.Context, machineID string, req *StartMaintenanceRequest) (*EpisodeView, error)
	AddStep(ctx context.Context, machineID string, episodeID uint, description string) (*StepView, error)
	End(ctx context.Context, machineID string, episodeID uint, endDate string) (*EpisodeView, error)
	Schedule(ctx context.Context, machineID string, date string, description string) (*ScheduleView, error)
	ClearSchedule(ctx context.Context, machineID string) (bool, error)
	StartFromSchedule(ctx context.Context, machineID string) (*EpisodeView, error)
	ActiveEpisode(ctx context.Context, machineID string) (*EpisodeView, error)
	ListEpisodes(ctx context.Context, machineID string) ([]*EpisodeView, error)
}

// StartMaintenanceRequest 开始维护请求
type StartMaintenanceRequest struct {
	Type        string `json:"type" example:"CORRECTIVE"`       // PREVENTIVE / CORRECTIVE
	Description string `json:"description" example:"Oil leak"`  // 维护原因
	StartDate   string `json:"start_date" example:"2024-01-01"` // YYYY-MM-DD
}

// maintenanceService 维护生命周期服务实现
type maintenanceService struct {
	db          *gorm.DB
	machineRepo repository.MachineRepository
	maintRepo   repository.MaintenanceRepository
	schedRepo   repository.ScheduleRepository
	history     HistoryService
	opts        Options
}

// NewMaintenanceService 创建维护生命周期服务
func NewMaintenanceService(db *gorm.DB, history HistoryService, opts Options) MaintenanceService {
	return &maintenanceService{
		db:          db,
		machineRepo: repository.NewMachineRepository(db),
		maintRepo:   repository.NewMaintenanceRepository(db),
		schedRepo:   repository.NewScheduleRepository(db),
		history:     history,
		opts:        opts.withDefaults(),
	}
}

// Start 开始一次维护: 新建维护记录,状态置为 IN_MAINTENANCE,写台账
func (s *maintenanceService) Start(ctx context.Context, machineID string, req *StartMaintenanceRequest) (*EpisodeView, error) {
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}
	typ, err := model.ParseMaintenanceType(req.Type)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	description := utils.CleanText(req.Description)
	if description == "" {
		return nil, apperr.Validation("maintenance description is required")
	}
	startDate, err := utils.ValidateDate(req.StartDate)
	if err != nil {
		return nil, apperr.Validation("invalid start date: %s", err.Error())
	}

	var (
		machine *model.MachineModel
		episode *model.MaintenanceEpisodeModel
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		episode, err = s.startTx(ctx, tx, machine, typ, description, startDate)
		return err
	})
	err = txError(err, "failed to start maintenance")
	metrics.RecordOperation("maintenance_start", err)
	if err != nil {
		return nil, err
	}

	s.logger(machine.Tag, episode.ID).WithField("type", typ).Info("maintenance started")
	s.opts.emit(ctx, integration.EventMaintenanceStarted, machine.Tag, map[string]interface{}{
		"episode_id":  episode.ID,
		"type":        episode.Type,
		"description": episode.Description,
		"start_date":  episode.StartDate,
	})
	return toEpisodeView(episode), nil
}

// startTx 在事务中开始维护,已有进行中维护时返回冲突
func (s *maintenanceService) startTx(ctx context.Context, tx *gorm.DB, machine *model.MachineModel, typ model.MaintenanceType, description, startDate string) (*model.MaintenanceEpisodeModel, error) {
	maintRepo := s.maintRepo.WithTx(tx)
	if _, err := maintRepo.FindOpenEpisode(ctx, machine.ID); err == nil {
		return nil, apperr.Conflict("an episode is already active")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	episode := &model.MaintenanceEpisodeModel{
		MachineID:   machine.ID,
		Type:        typ,
		Description: description,
		StartDate:   startDate,
	}
	if err := episode.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	// 唯一部分索引兜底并发 start
	if err := maintRepo.CreateEpisode(ctx, episode); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("an episode is already active")
		}
		return nil, err
	}
	episode.Steps = []model.MaintenanceStepModel{}

	if err := s.machineRepo.WithTx(tx).UpdateColumn(ctx, machine.ID, "status", model.StatusInMaintenance); err != nil {
		return nil, err
	}
	machine.Status = model.StatusInMaintenance

	if _, err := s.history.AppendTx(ctx, tx, machine, ledgerMaintenanceStarted(typ, description)); err != nil {
		return nil, err
	}
	return episode, nil
}

// AddStep 向进行中的维护追加步骤
func (s *maintenanceService) AddStep(ctx context.Context, machineID string, episodeID uint, description string) (*StepView, error) {
	description = utils.CleanText(description)
	if description == "" {
		return nil, apperr.Validation("step description is required")
	}

	var (
		machine *model.MachineModel
		step    *model.MaintenanceStepModel
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		maintRepo := s.maintRepo.WithTx(tx)
		episode, err := maintRepo.FindEpisode(ctx, machine.ID, episodeID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("maintenance episode %d not found for machine %q", episodeID, machineID)
		}
		if err != nil {
			return err
		}
		if !episode.IsOpen() {
			return apperr.Conflict("maintenance episode %d is already finished", episodeID)
		}

		step = &model.MaintenanceStepModel{
			EpisodeID:   episode.ID,
			Timestamp:   s.opts.Now().UTC(),
			Description: description,
		}
		if err := maintRepo.AddStep(ctx, step); err != nil {
			return err
		}
		_, err = s.history.AppendTx(ctx, tx, machine, ledgerStepRecorded(description))
		return err
	})
	err = txError(err, "failed to add maintenance step")
	metrics.RecordOperation("maintenance_step", err)
	if err != nil {
		return nil, err
	}

	s.logger(machine.Tag, episodeID).Debug("maintenance step recorded")
	s.opts.emit(ctx, integration.EventMaintenanceStep, machine.Tag, map[string]interface{}{
		"episode_id":  episodeID,
		"description": step.Description,
	})
	return toStepView(step), nil
}

// End 结束进行中的维护,状态恢复为 OK
// endDate 为空时使用今天
func (s *maintenanceService) End(ctx context.Context, machineID string, episodeID uint, endDate string) (*EpisodeView, error) {
	if strings.TrimSpace(endDate) == "" {
		endDate = s.opts.Today()
	}
	endDate, err := utils.ValidateDate(endDate)
	if err != nil {
		return nil, apperr.Validation("invalid end date: %s", err.Error())
	}

	var (
		machine *model.MachineModel
		episode *model.MaintenanceEpisodeModel
		steps   int64
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		maintRepo := s.maintRepo.WithTx(tx)
		episode, err = maintRepo.FindEpisode(ctx, machine.ID, episodeID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Conflict("no active episode with that id")
		}
		if err != nil {
			return err
		}
		if !episode.IsOpen() {
			return apperr.Conflict("no active episode with that id")
		}
		if endDate < episode.StartDate {
			return apperr.Validation("end date %s is before start date %s", endDate, episode.StartDate)
		}

		closed, err := maintRepo.CloseEpisode(ctx, machine.ID, episode.ID, endDate)
		if err != nil {
			return err
		}
		if !closed {
			return apperr.Conflict("no active episode with that id")
		}
		episode.EndDate = &endDate
		if steps, err = maintRepo.CountSteps(ctx, episode.ID); err != nil {
			return err
		}

		if err := s.machineRepo.WithTx(tx).UpdateColumn(ctx, machine.ID, "status", model.StatusOK); err != nil {
			return err
		}
		machine.Status = model.StatusOK

		_, err = s.history.AppendTx(ctx, tx, machine, ledgerMaintenanceFinished(episode.Type, steps))
		return err
	})
	err = txError(err, "failed to end maintenance")
	metrics.RecordOperation("maintenance_end", err)
	if err != nil {
		return nil, err
	}

	s.logger(machine.Tag, episode.ID).WithField("steps", steps).Info("maintenance finished")
	s.opts.emit(ctx, integration.EventMaintenanceEnded, machine.Tag, map[string]interface{}{
		"episode_id": episode.ID,
		"end_date":   endDate,
		"steps":      steps,
	})
	return toEpisodeView(episode), nil
}

// Schedule 设置下次维护计划,覆盖已有计划
func (s *maintenanceService) Schedule(ctx context.Context, machineID string, date string, description string) (*ScheduleView, error) {
	date, err := utils.ValidateDate(date)
	if err != nil {
		return nil, apperr.Validation("invalid schedule date: %s", err.Error())
	}
	description = utils.CleanText(description)

	var (
		machine  *model.MachineModel
		schedule *model.ScheduleModel
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		schedule = &model.ScheduleModel{
			MachineID:   machine.ID,
			Date:        date,
			Description: description,
			CreatedAt:   s.opts.Now().UTC(),
		}
		if err := s.schedRepo.WithTx(tx).Upsert(ctx, schedule); err != nil {
			return err
		}
		_, err = s.history.AppendTx(ctx, tx, machine, ledgerScheduled(date))
		return err
	})
	err = txError(err, "failed to schedule maintenance")
	metrics.RecordOperation("schedule_set", err)
	if err != nil {
		return nil, err
	}

	s.opts.Logger.WithFields(logrus.Fields{"machine": machine.Tag, "date": date}).Info("maintenance scheduled")
	s.opts.emit(ctx, integration.EventScheduleSet, machine.Tag, map[string]interface{}{
		"date":        date,
		"description": description,
	})
	return toScheduleView(schedule), nil
}

// ClearSchedule 取消维护计划;没有计划时为空操作,不写台账
func (s *maintenanceService) ClearSchedule(ctx context.Context, machineID string) (bool, error) {
	var cleared bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		cleared, err = s.clearScheduleTx(ctx, tx, machine)
		return err
	})
	err = txError(err, "failed to clear schedule")
	metrics.RecordOperation("schedule_clear", err)
	if err != nil {
		return false, err
	}

	if cleared {
		s.opts.Logger.WithField("machine", machineID).Info("maintenance schedule cancelled")
		s.opts.emit(ctx, integration.EventScheduleCleared, machineID, nil)
	}
	return cleared, nil
}

func (s *maintenanceService) clearScheduleTx(ctx context.Context, tx *gorm.DB, machine *model.MachineModel) (bool, error) {
	deleted, err := s.schedRepo.WithTx(tx).DeleteByMachine(ctx, machine.ID)
	if err != nil || !deleted {
		return false, err
	}
	if _, err := s.history.AppendTx(ctx, tx, machine, ledgerScheduleCancelled); err != nil {
		return false, err
	}
	return true, nil
}

// StartFromSchedule 按计划开始预防性维护,随后清除计划
func (s *maintenanceService) StartFromSchedule(ctx context.Context, machineID string) (*EpisodeView, error) {
	var (
		machine *model.MachineModel
		episode *model.MaintenanceEpisodeModel
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), machineID)
		if err != nil {
			return err
		}
		schedule, err := s.schedRepo.WithTx(tx).FindByMachine(ctx, machine.ID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Conflict("machine %q has no scheduled maintenance", machineID)
		}
		if err != nil {
			return err
		}

		description := schedule.Description
		if strings.TrimSpace(description) == "" {
			description = DefaultScheduledDescription
		}
		episode, err = s.startTx(ctx, tx, machine, model.MaintenancePreventive, description, s.opts.Today())
		if err != nil {
			return err
		}
		_, err = s.clearScheduleTx(ctx, tx, machine)
		return err
	})
	err = txError(err, "failed to start scheduled maintenance")
	metrics.RecordOperation("maintenance_start_scheduled", err)
	if err != nil {
		return nil, err
	}

	s.logger(machine.Tag, episode.ID).Info("scheduled maintenance started")
	s.opts.emit(ctx, integration.EventMaintenanceStarted, machine.Tag, map[string]interface{}{
		"episode_id":  episode.ID,
		"type":        episode.Type,
		"description": episode.Description,
		"start_date":  episode.StartDate,
		"scheduled":   true,
	})
	s.opts.emit(ctx, integration.EventScheduleCleared, machine.Tag, nil)
	return toEpisodeView(episode), nil
}

// ActiveEpisode 返回进行中的维护,没有时返回 nil
func (s *maintenanceService) ActiveEpisode(ctx context.Context, machineID string) (*EpisodeView, error) {
	machine, err := findMachine(ctx, s.machineRepo, machineID)
	if err != nil {
		return nil, err
	}
	episode, err := s.maintRepo.FindOpenEpisode(ctx, machine.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Storage(err, "failed to load active episode")
	}
	return toEpisodeView(episode), nil
}

// ListEpisodes 按开始日期返回机器的全部维护记录
func (s *maintenanceService) ListEpisodes(ctx context.Context, machineID string) ([]*EpisodeView, error) {
	machine, err := findMachine(ctx, s.machineRepo, machineID)
	if err != nil {
		return nil, err
	}
	episodes, err := s.maintRepo.FindByMachine(ctx, machine.ID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list maintenance episodes")
	}
	views := make([]*EpisodeView, 0, len(episodes))
	for _, e := range episodes {
		views = append(views, toEpisodeView(e))
	}
	return views, nil
}

func (s *maintenanceService) logger(machine string, episode uint) logrus.FieldLogger {
	return s.opts.Logger.WithFields(logrus.Fields{"machine": machine, "episode": episode})
}
