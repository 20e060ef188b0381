package repository

import (
	"context"

	"github.com/mautops/maintcontrol/internal/model"
	"gorm.io/gorm"
)

// EventRepository 事件仓储接口
type EventRepository interface {
	Save(ctx context.Context, event *model.EventModel) error
	UpdateStatus(ctx context.Context, id string, status string, retryCount int) error
	FindByMachineTag(ctx context.Context, tag string) ([]*model.EventModel, error)
	FindPending(ctx context.Context, limit int) ([]*model.EventModel, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// eventRepository 事件仓储实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件仓储
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Save 保存事件
func (r *eventRepository) Save(ctx context.Context, event *model.EventModel) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// UpdateStatus 更新投递状态
func (r *eventRepository) UpdateStatus(ctx context.Context, id string, status string, retryCount int) error {
	return r.db.WithContext(ctx).Model(&model.EventModel{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "retry_count": retryCount}).Error
}

// FindByMachineTag 根据机器外部 ID 查找事件
func (r *eventRepository) FindByMachineTag(ctx context.Context, tag string) ([]*model.EventModel, error) {
	var events []*model.EventModel
	err := r.db.WithContext(ctx).Where("machine_tag = ?", tag).Order("created_at ASC").Find(&events).Error
	return events, err
}

// FindPending 查找待处理的事件
func (r *eventRepository) FindPending(ctx context.Context, limit int) ([]*model.EventModel, error) {
	var events []*model.EventModel
	query := r.db.WithContext(ctx).Where("status = ?", model.EventStatusPending).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}

// CountByStatus 按投递状态统计事件数
func (r *eventRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.EventModel{}).
		Select("status, count(*) as count").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
