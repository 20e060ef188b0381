package repository

import (
	"context"
	"errors"

	"github.com/mautops/maintcontrol/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScheduleRepository 维护计划仓储接口
type ScheduleRepository interface {
	WithTx(tx *gorm.DB) ScheduleRepository
	Upsert(ctx context.Context, schedule *model.ScheduleModel) error
	FindByMachine(ctx context.Context, machineID uint) (*model.ScheduleModel, error)
	FindByMachines(ctx context.Context, machineIDs []uint) (map[uint]*model.ScheduleModel, error)
	FindAll(ctx context.Context) ([]*model.ScheduleModel, error)
	DeleteByMachine(ctx context.Context, machineID uint) (bool, error)
	DeleteAll(ctx context.Context) error
}

// scheduleRepository 维护计划仓储实现
type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository 创建维护计划仓储
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *scheduleRepository) WithTx(tx *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: tx}
}

// Upsert 设置机器的维护计划,已有计划时覆盖
func (r *scheduleRepository) Upsert(ctx context.Context, schedule *model.ScheduleModel) error {
	return r.db.WithContext(ctx).Omit("Machine").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "machine_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "description", "created_at"}),
	}).Create(schedule).Error
}

// FindByMachine 查找机器的维护计划
func (r *scheduleRepository) FindByMachine(ctx context.Context, machineID uint) (*model.ScheduleModel, error) {
	var schedule model.ScheduleModel
	err := r.db.WithContext(ctx).Where("machine_id = ?", machineID).First(&schedule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByMachines 批量查找维护计划,按机器 ID 索引
func (r *scheduleRepository) FindByMachines(ctx context.Context, machineIDs []uint) (map[uint]*model.ScheduleModel, error) {
	result := make(map[uint]*model.ScheduleModel, len(machineIDs))
	if len(machineIDs) == 0 {
		return result, nil
	}
	var schedules []*model.ScheduleModel
	if err := r.db.WithContext(ctx).Where("machine_id IN ?", machineIDs).Find(&schedules).Error; err != nil {
		return nil, err
	}
	for _, s := range schedules {
		result[s.MachineID] = s
	}
	return result, nil
}

// FindAll 查找全部维护计划,按日期排序
func (r *scheduleRepository) FindAll(ctx context.Context) ([]*model.ScheduleModel, error) {
	var schedules []*model.ScheduleModel
	err := r.db.WithContext(ctx).Order("date ASC").Find(&schedules).Error
	return schedules, err
}

// DeleteByMachine 删除机器的维护计划,返回是否存在计划
func (r *scheduleRepository) DeleteByMachine(ctx context.Context, machineID uint) (bool, error) {
	result := r.db.WithContext(ctx).Where("machine_id = ?", machineID).Delete(&model.ScheduleModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll 删除全部维护计划
func (r *scheduleRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.ScheduleModel{}).Error
}
