package repository

import (
	"context"

	"github.com/mautops/maintcontrol/internal/model"
	"gorm.io/gorm"
)

// HistoryRepository 历史台账仓储接口
type HistoryRepository interface {
	WithTx(tx *gorm.DB) HistoryRepository
	Append(ctx context.Context, entry *model.HistoryEntryModel) error
	FindByMachine(ctx context.Context, machineID uint) ([]*model.HistoryEntryModel, error)
	FindByMachines(ctx context.Context, machineIDs []uint) ([]*model.HistoryEntryModel, error)
	DeleteByMachine(ctx context.Context, machineID uint) error
	DeleteAll(ctx context.Context) error
}

// historyRepository 历史台账仓储实现
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建历史台账仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// WithTx 返回绑定到事务的仓储
func (r *historyRepository) WithTx(tx *gorm.DB) HistoryRepository {
	return &historyRepository{db: tx}
}

// Append 追加台账条目
func (r *historyRepository) Append(ctx context.Context, entry *model.HistoryEntryModel) error {
	return r.db.WithContext(ctx).Omit("Machine").Create(entry).Error
}

// FindByMachine 按插入顺序返回机器台账
func (r *historyRepository) FindByMachine(ctx context.Context, machineID uint) ([]*model.HistoryEntryModel, error) {
	var entries []*model.HistoryEntryModel
	err := r.db.WithContext(ctx).Where("machine_id = ?", machineID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// FindByMachines 批量返回台账,按插入顺序
func (r *historyRepository) FindByMachines(ctx context.Context, machineIDs []uint) ([]*model.HistoryEntryModel, error) {
	var entries []*model.HistoryEntryModel
	if len(machineIDs) == 0 {
		return entries, nil
	}
	err := r.db.WithContext(ctx).Where("machine_id IN ?", machineIDs).Order("id ASC").Find(&entries).Error
	return entries, err
}

// DeleteByMachine 删除机器台账
func (r *historyRepository) DeleteByMachine(ctx context.Context, machineID uint) error {
	return r.db.WithContext(ctx).Where("machine_id = ?", machineID).Delete(&model.HistoryEntryModel{}).Error
}

// DeleteAll 删除全部台账
func (r *historyRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.HistoryEntryModel{}).Error
}
