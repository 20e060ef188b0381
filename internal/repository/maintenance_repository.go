package repository

import (
	"context"
	"errors"

	"github.com/mautops/maintcontrol/internal/model"
	"gorm.io/gorm"
)

// MaintenanceRepository 维护记录仓储接口
type MaintenanceRepository interface {
	WithTx(tx *gorm.DB) MaintenanceRepository
	CreateEpisode(ctx context.Context, episode *model.MaintenanceEpisodeModel) error
	FindEpisode(ctx context.Context, machineID uint, episodeID uint) (*model.MaintenanceEpisodeModel, error)
	FindOpenEpisode(ctx context.Context, machineID uint) (*model.MaintenanceEpisodeModel, error)
	FindByMachine(ctx context.Context, machineID uint) ([]*model.MaintenanceEpisodeModel, error)
	FindByMachines(ctx context.Context, machineIDs []uint) ([]*model.MaintenanceEpisodeModel, error)
	CloseEpisode(ctx context.Context, machineID uint, episodeID uint, endDate string) (bool, error)
	AddStep(ctx context.Context, step *model.MaintenanceStepModel) error
	CountSteps(ctx context.Context, episodeID uint) (int64, error)
	CountOpen(ctx context.Context) (int64, error)
	DeleteByMachine(ctx context.Context, machineID uint) error
	DeleteAll(ctx context.Context) error
}

// maintenanceRepository 维护记录仓储实现
type maintenanceRepository struct {
	db *gorm.DB
}

// NewMaintenanceRepository 创建维护记录仓储
func NewMaintenanceRepository(db *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *maintenanceRepository) WithTx(tx *gorm.DB) MaintenanceRepository {
	return &maintenanceRepository{db: tx}
}

// CreateEpisode 保存维护记录,ID 由数据库分配
func (r *maintenanceRepository) CreateEpisode(ctx context.Context, episode *model.MaintenanceEpisodeModel) error {
	return r.db.WithContext(ctx).Omit("Machine", "Steps").Create(episode).Error
}

// FindEpisode 查找属于指定机器的维护记录
func (r *maintenanceRepository) FindEpisode(ctx context.Context, machineID uint, episodeID uint) (*model.MaintenanceEpisodeModel, error) {
	var episode model.MaintenanceEpisodeModel
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("id = ? AND machine_id = ?", episodeID, machineID).
		First(&episode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &episode, nil
}

// FindOpenEpisode 查找进行中的维护,没有时返回 ErrNotFound
func (r *maintenanceRepository) FindOpenEpisode(ctx context.Context, machineID uint) (*model.MaintenanceEpisodeModel, error) {
	var episode model.MaintenanceEpisodeModel
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("machine_id = ? AND end_date IS NULL", machineID).
		First(&episode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &episode, nil
}

// FindByMachine 查找机器的全部维护记录(按开始日期排序)
func (r *maintenanceRepository) FindByMachine(ctx context.Context, machineID uint) ([]*model.MaintenanceEpisodeModel, error) {
	return r.FindByMachines(ctx, []uint{machineID})
}

// FindByMachines 批量查找维护记录,含步骤
func (r *maintenanceRepository) FindByMachines(ctx context.Context, machineIDs []uint) ([]*model.MaintenanceEpisodeModel, error) {
	var episodes []*model.MaintenanceEpisodeModel
	if len(machineIDs) == 0 {
		return episodes, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("machine_id IN ?", machineIDs).
		Order("start_date ASC").Order("id ASC").
		Find(&episodes).Error
	return episodes, err
}

// CloseEpisode 条件更新结束日期,仅当维护属于该机器且仍在进行中
func (r *maintenanceRepository) CloseEpisode(ctx context.Context, machineID uint, episodeID uint, endDate string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.MaintenanceEpisodeModel{}).
		Where("id = ? AND machine_id = ? AND end_date IS NULL", episodeID, machineID).
		Update("end_date", endDate)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AddStep 追加维护步骤
func (r *maintenanceRepository) AddStep(ctx context.Context, step *model.MaintenanceStepModel) error {
	return r.db.WithContext(ctx).Omit("Episode").Create(step).Error
}

// CountSteps 统计维护步骤数
func (r *maintenanceRepository) CountSteps(ctx context.Context, episodeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MaintenanceStepModel{}).Where("episode_id = ?", episodeID).Count(&count).Error
	return count, err
}

// CountOpen 统计全部进行中的维护
func (r *maintenanceRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MaintenanceEpisodeModel{}).Where("end_date IS NULL").Count(&count).Error
	return count, err
}

// DeleteByMachine 删除机器的维护记录及步骤
func (r *maintenanceRepository) DeleteByMachine(ctx context.Context, machineID uint) error {
	db := r.db.WithContext(ctx)
	sub := db.Model(&model.MaintenanceEpisodeModel{}).Select("id").Where("machine_id = ?", machineID)
	if err := db.Where("episode_id IN (?)", sub).Delete(&model.MaintenanceStepModel{}).Error; err != nil {
		return err
	}
	return db.Where("machine_id = ?", machineID).Delete(&model.MaintenanceEpisodeModel{}).Error
}

// DeleteAll 删除全部维护记录及步骤
func (r *maintenanceRepository) DeleteAll(ctx context.Context) error {
	db := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := db.Delete(&model.MaintenanceStepModel{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.MaintenanceEpisodeModel{}).Error
}
