package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"gorm.io/gorm"
)

// 分页默认值
const (
	DefaultPageSize = 8
	MaxPageSize     = 100
)

// sortColumns 允许排序的字段
var sortColumns = map[string]string{
	"id":           "tag",
	"name":         "name",
	"capacity":     "capacity",
	"manufacturer": "manufacturer",
	"quantity":     "quantity",
	"status":       "status",
}

// QueryService 查询服务接口
type QueryService interface {
	ListMachines(ctx context.Context, filter *ListMachinesFilter) (*MachinePage, error)
}

// ListMachinesFilter 机器列表查询过滤器
type ListMachinesFilter struct {
	Search   string
	Status   *model.MachineStatus
	SortBy   string
	Order    string
	Page     int
	PageSize int
}

// MachinePage 一页机器
type MachinePage struct {
	Items    []*MachineView `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Pages    int            `json:"pages"`
}

// queryService 查询服务实现
type queryService struct {
	db    *gorm.DB
	views *viewLoader
}

// NewQueryService 创建查询服务
func NewQueryService(db *gorm.DB, opts Options) QueryService {
	return &queryService{
		db: db,
		views: &viewLoader{
			maintRepo:    repository.NewMaintenanceRepository(db),
			scheduleRepo: repository.NewScheduleRepository(db),
			historyRepo:  repository.NewHistoryRepository(db),
			opts:         opts.withDefaults(),
		},
	}
}

// ListMachines 分页列出机器
func (s *queryService) ListMachines(ctx context.Context, filter *ListMachinesFilter) (*MachinePage, error) {
	if filter == nil {
		filter = &ListMachinesFilter{}
	}

	query := s.db.WithContext(ctx).Model(&model.MachineModel{})

	// 搜索 ID / 名称 / 制造商,大小写不敏感
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + utils.EscapeLike(strings.ToLower(search)) + "%"
		query = query.Where(
			`LOWER(tag) LIKE ? ESCAPE '\' OR LOWER(name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(manufacturer, '')) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern,
		)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	// 获取总数
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Storage(err, "failed to count machines")
	}

	// 排序字段只接受白名单,防止 SQL 注入
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "id"
	}
	column, err := utils.ValidateSortField(sortBy, sortColumns)
	if err != nil {
		return nil, apperr.Validation("invalid sort field: %s", err.Error())
	}
	order := filter.Order
	if order == "" {
		order = "asc"
	}
	if err := utils.ValidateSortOrder(order); err != nil {
		return nil, apperr.Validation("invalid sort order: %s", err.Error())
	}
	query = query.Order(fmt.Sprintf("%s %s", column, utils.SanitizeSortOrder(order)))
	if column != "tag" {
		query = query.Order("tag ASC")
	}

	// 应用分页
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	var machines []*model.MachineModel
	if err := query.Find(&machines).Error; err != nil {
		return nil, apperr.Storage(err, "failed to query machines")
	}

	items, err := s.views.load(ctx, machines)
	if err != nil {
		return nil, err
	}

	pages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &MachinePage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}
