package service

import (
	"context"
	"errors"
	"strconv"
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

// MachineService 机器登记服务接口
type MachineService interface {
	Create(ctx context.Context, req *CreateMachineRequest) (*MachineView, error)
	UpdateField(ctx context.Context, id string, field string, value string) (*MachineView, error)
	AdjustQuantity(ctx context.Context, id string, delta int) (*MachineView, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*MachineView, error)
	GetAll(ctx context.Context) ([]*MachineView, error)
}

// CreateMachineRequest 创建机器请求
type CreateMachineRequest struct {
	ID           string  `json:"id" example:"PRS-001"`           // 外部 ID
	Name         string  `json:"name" example:"Hydraulic press"` // 名称
	Capacity     *string `json:"capacity" example:"200t"`        // 容量
	Manufacturer *string `json:"manufacturer" example:"Schuler"` // 制造商
	Quantity     int     `json:"quantity" example:"1"`           // 数量,小于 1 时按 1 处理
	Status       string  `json:"status" example:"OK"`            // 初始状态,默认 OK
}

// UpdatableFields 允许通过通用更新接口修改的字段
var UpdatableFields = []string{"name", "capacity", "manufacturer", "quantity", "status"}

// machineService 机器登记服务实现
type machineService struct {
	db          *gorm.DB
	machineRepo repository.MachineRepository
	maintRepo   repository.MaintenanceRepository
	schedRepo   repository.ScheduleRepository
	historyRepo repository.HistoryRepository
	history     HistoryService
	views       *viewLoader
	opts        Options
}

// NewMachineService 创建机器登记服务
func NewMachineService(db *gorm.DB, history HistoryService, opts Options) MachineService {
	opts = opts.withDefaults()
	s := &machineService{
		db:          db,
		machineRepo: repository.NewMachineRepository(db),
		maintRepo:   repository.NewMaintenanceRepository(db),
		schedRepo:   repository.NewScheduleRepository(db),
		historyRepo: repository.NewHistoryRepository(db),
		history:     history,
		opts:        opts,
	}
	s.views = &viewLoader{
		maintRepo:    s.maintRepo,
		scheduleRepo: s.schedRepo,
		historyRepo:  s.historyRepo,
		opts:         opts,
	}
	return s
}

// Create 登记新机器
func (s *machineService) Create(ctx context.Context, req *CreateMachineRequest) (*MachineView, error) {
	if req == nil {
		return nil, apperr.Validation("request body is required")
	}
	tag := strings.TrimSpace(req.ID)
	if err := utils.ValidateMachineTag(tag); err != nil {
		return nil, apperr.Validation("invalid machine id: %s", err.Error())
	}
	name := utils.CleanText(req.Name)
	if err := utils.ValidateName(name); err != nil {
		return nil, apperr.Validation("invalid machine name: %s", err.Error())
	}
	status := model.StatusOK
	if strings.TrimSpace(req.Status) != "" {
		parsed, err := model.ParseMachineStatus(req.Status)
		if err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
		status = parsed
	}
	// 新机器没有进行中的维护
	if s.opts.StrictStatus && status == model.StatusInMaintenance {
		return nil, apperr.Conflict("status %s requires an active maintenance episode", status)
	}

	machine := &model.MachineModel{
		Tag:          tag,
		Name:         name,
		Capacity:     optionalText(req.Capacity),
		Manufacturer: optionalText(req.Manufacturer),
		Quantity:     model.ClampQuantity(req.Quantity),
		Status:       status,
	}
	if err := machine.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.machineRepo.WithTx(tx)
		exists, err := repo.ExistsByTag(ctx, tag)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Conflict("machine %q already exists", tag)
		}
		if err := repo.Create(ctx, machine); err != nil {
			return err
		}
		_, err = s.history.AppendTx(ctx, tx, machine, ledgerMachineRegistered)
		return err
	})
	err = txError(err, "failed to create machine")
	metrics.RecordOperation("machine_create", err)
	if err != nil {
		return nil, err
	}

	s.opts.Logger.WithField("machine", tag).Info("machine registered")
	s.opts.emit(ctx, integration.EventMachineCreated, tag, map[string]interface{}{
		"name":     machine.Name,
		"quantity": machine.Quantity,
		"status":   machine.Status,
	})
	return s.views.loadOne(ctx, machine)
}

// UpdateField 通过白名单更新单个字段,值未变化时不写台账
func (s *machineService) UpdateField(ctx context.Context, id string, field string, value string) (*MachineView, error) {
	field = strings.ToLower(strings.TrimSpace(field))
	if !isUpdatableField(field) {
		return nil, apperr.InvalidField(field)
	}

	var (
		machine *model.MachineModel
		changed bool
		from    interface{}
		to      interface{}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), id)
		if err != nil {
			return err
		}

		var (
			column string
			newVal interface{}
			text   string
		)
		switch field {
		case "name":
			name := utils.CleanText(value)
			if err := utils.ValidateName(name); err != nil {
				return apperr.Validation("invalid machine name: %s", err.Error())
			}
			if name == machine.Name {
				return nil
			}
			column, newVal = "name", name
			from, to = machine.Name, name
			text = ledgerFieldChanged("name", machine.Name, name)
			machine.Name = name
		case "capacity", "manufacturer":
			current := &machine.Capacity
			if field == "manufacturer" {
				current = &machine.Manufacturer
			}
			next := optionalText(&value)
			if derefText(*current) == derefText(next) {
				return nil
			}
			column, newVal = field, next
			from, to = derefText(*current), derefText(next)
			text = ledgerFieldChanged(field, derefText(*current), derefText(next))
			*current = next
		case "quantity":
			parsed, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return apperr.Validation("quantity must be an integer")
			}
			quantity := model.ClampQuantity(parsed)
			if quantity == machine.Quantity {
				return nil
			}
			column, newVal = "quantity", quantity
			from, to = machine.Quantity, quantity
			text = ledgerQuantityChanged(machine.Quantity, quantity)
			machine.Quantity = quantity
		case "status":
			status, err := model.ParseMachineStatus(value)
			if err != nil {
				return apperr.Validation("%s", err.Error())
			}
			if status == machine.Status {
				return nil
			}
			if s.opts.StrictStatus {
				if err := s.checkStatusCoupling(ctx, tx, machine, status); err != nil {
					return err
				}
			}
			column, newVal = "status", status
			from, to = machine.Status, status
			text = ledgerStatusChanged(machine.Status, status)
			machine.Status = status
		}

		if err := s.machineRepo.WithTx(tx).UpdateColumn(ctx, machine.ID, column, newVal); err != nil {
			return err
		}
		if _, err := s.history.AppendTx(ctx, tx, machine, text); err != nil {
			return err
		}
		changed = true
		return nil
	})
	err = txError(err, "failed to update machine")
	metrics.RecordOperation("machine_update", err)
	if err != nil {
		return nil, err
	}

	if changed {
		s.opts.Logger.WithFields(logrus.Fields{"machine": machine.Tag, "field": field}).Info("machine updated")
		s.opts.emit(ctx, integration.EventMachineUpdated, machine.Tag, map[string]interface{}{
			"field": field,
			"from":  from,
			"to":    to,
		})
	}
	return s.views.loadOne(ctx, machine)
}

// checkStatusCoupling 直接修改状态时与进行中的维护保持一致
func (s *machineService) checkStatusCoupling(ctx context.Context, tx *gorm.DB, machine *model.MachineModel, status model.MachineStatus) error {
	_, err := s.maintRepo.WithTx(tx).FindOpenEpisode(ctx, machine.ID)
	open := err == nil
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if status == model.StatusInMaintenance && !open {
		return apperr.Conflict("status %s requires an active maintenance episode", status)
	}
	if status != model.StatusInMaintenance && open {
		return apperr.Conflict("machine %q has an active maintenance episode; end it before changing status", machine.Tag)
	}
	return nil
}

// AdjustQuantity 按增量调整数量,结果最小为 1
func (s *machineService) AdjustQuantity(ctx context.Context, id string, delta int) (*MachineView, error) {
	var (
		machine *model.MachineModel
		from    int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		machine, err = findMachine(ctx, s.machineRepo.WithTx(tx), id)
		if err != nil {
			return err
		}
		from = machine.Quantity
		quantity := model.ClampQuantity(machine.Quantity + delta)
		if quantity == machine.Quantity {
			return nil
		}
		if err := s.machineRepo.WithTx(tx).UpdateColumn(ctx, machine.ID, "quantity", quantity); err != nil {
			return err
		}
		machine.Quantity = quantity
		_, err = s.history.AppendTx(ctx, tx, machine, ledgerQuantityChanged(from, quantity))
		return err
	})
	err = txError(err, "failed to adjust quantity")
	metrics.RecordOperation("machine_adjust_quantity", err)
	if err != nil {
		return nil, err
	}

	if machine.Quantity != from {
		s.opts.emit(ctx, integration.EventMachineUpdated, machine.Tag, map[string]interface{}{
			"field": "quantity",
			"from":  from,
			"to":    machine.Quantity,
		})
	}
	return s.views.loadOne(ctx, machine)
}

// Delete 删除机器及其维护记录、计划和台账
func (s *machineService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		machine, err := findMachine(ctx, s.machineRepo.WithTx(tx), id)
		if err != nil {
			return err
		}
		if err := s.maintRepo.WithTx(tx).DeleteByMachine(ctx, machine.ID); err != nil {
			return err
		}
		if _, err := s.schedRepo.WithTx(tx).DeleteByMachine(ctx, machine.ID); err != nil {
			return err
		}
		if err := s.historyRepo.WithTx(tx).DeleteByMachine(ctx, machine.ID); err != nil {
			return err
		}
		return s.machineRepo.WithTx(tx).Delete(ctx, machine.ID)
	})
	err = txError(err, "failed to delete machine")
	metrics.RecordOperation("machine_delete", err)
	if err != nil {
		return err
	}

	s.opts.Logger.WithField("machine", id).Info("machine deleted")
	s.opts.emit(ctx, integration.EventMachineDeleted, id, nil)
	return nil
}

// Get 获取机器完整视图
func (s *machineService) Get(ctx context.Context, id string) (*MachineView, error) {
	machine, err := findMachine(ctx, s.machineRepo, id)
	if err != nil {
		return nil, err
	}
	return s.views.loadOne(ctx, machine)
}

// GetAll 获取全部机器完整视图
func (s *machineService) GetAll(ctx context.Context) ([]*MachineView, error) {
	machines, err := s.machineRepo.FindAll(ctx)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list machines")
	}
	return s.views.load(ctx, machines)
}

func isUpdatableField(field string) bool {
	for _, f := range UpdatableFields {
		if f == field {
			return true
		}
	}
	return false
}

// optionalText 空白文本视为未设置
func optionalText(s *string) *string {
	if s == nil {
		return nil
	}
	cleaned := utils.CleanText(*s)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

func derefText(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
