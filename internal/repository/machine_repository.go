package repository

import (
	"context"
	"errors"

	"github.com/mautops/maintcontrol/internal/model"
	"gorm.io/gorm"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// MachineRepository 机器仓储接口
type MachineRepository interface {
	WithTx(tx *gorm.DB) MachineRepository
	Create(ctx context.Context, machine *model.MachineModel) error
	FindByTag(ctx context.Context, tag string) (*model.MachineModel, error)
	ExistsByTag(ctx context.Context, tag string) (bool, error)
	FindAll(ctx context.Context) ([]*model.MachineModel, error)
	UpdateColumn(ctx context.Context, id uint, column string, value interface{}) error
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) error
}

// machineRepository 机器仓储实现
type machineRepository struct {
	db *gorm.DB
}

// NewMachineRepository 创建机器仓储
func NewMachineRepository(db *gorm.DB) MachineRepository {
	return &machineRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *machineRepository) WithTx(tx *gorm.DB) MachineRepository {
	return &machineRepository{db: tx}
}

// Create 保存机器
func (r *machineRepository) Create(ctx context.Context, machine *model.MachineModel) error {
	return r.db.WithContext(ctx).Create(machine).Error
}

// FindByTag 根据外部 ID 查找机器
func (r *machineRepository) FindByTag(ctx context.Context, tag string) (*model.MachineModel, error) {
	var machine model.MachineModel
	err := r.db.WithContext(ctx).Where("tag = ?", tag).First(&machine).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &machine, nil
}

// ExistsByTag 检查外部 ID 是否已存在
func (r *machineRepository) ExistsByTag(ctx context.Context, tag string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.MachineModel{}).Where("tag = ?", tag).Count(&count).Error
	return count > 0, err
}

// FindAll 查找全部机器
func (r *machineRepository) FindAll(ctx context.Context) ([]*model.MachineModel, error) {
	var machines []*model.MachineModel
	err := r.db.WithContext(ctx).Order("tag ASC").Find(&machines).Error
	return machines, err
}

// UpdateColumn 更新单个字段,列名由调用方从白名单中取得
func (r *machineRepository) UpdateColumn(ctx context.Context, id uint, column string, value interface{}) error {
	result := r.db.WithContext(ctx).Model(&model.MachineModel{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除机器
func (r *machineRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.MachineModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll 删除全部机器(导入时使用)
func (r *machineRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.MachineModel{}).Error
}
