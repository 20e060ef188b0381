package service

import (
	"context"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/integration"
	"github.com/mautops/maintcontrol/internal/metrics"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
	"github.com/mautops/maintcontrol/internal/utils"
	"gorm.io/gorm"
)

// MaxHistoryTextLength 自由文本台账的最大长度
const MaxHistoryTextLength = 4096

// HistoryService 历史台账服务
type HistoryService interface {
	Append(ctx context.Context, machineID string, text string) (*HistoryView, error)
	AppendTx(ctx context.Context, tx *gorm.DB, machine *model.MachineModel, text string) (*model.HistoryEntryModel, error)
	List(ctx context.Context, machineID string) ([]*HistoryView, error)
}

// historyService 历史台账服务实现
type historyService struct {
	db          *gorm.DB
	machineRepo repository.MachineRepository
	historyRepo repository.HistoryRepository
	opts        Options
}

// NewHistoryService 创建历史台账服务
func NewHistoryService(db *gorm.DB, opts Options) HistoryService {
	return &historyService{
		db:          db,
		machineRepo: repository.NewMachineRepository(db),
		historyRepo: repository.NewHistoryRepository(db),
		opts:        opts.withDefaults(),
	}
}

// Append 追加一条自由文本台账
func (s *historyService) Append(ctx context.Context, machineID string, text string) (*HistoryView, error) {
	text, err := utils.TrimAndValidate(text, MaxHistoryTextLength)
	if err != nil {
		return nil, apperr.Validation("invalid history text: %s", err.Error())
	}

	machine, err := findMachine(ctx, s.machineRepo, machineID)
	if err != nil {
		return nil, err
	}

	entry, err := s.AppendTx(ctx, s.db, machine, text)
	metrics.RecordOperation("history_append", err)
	if err != nil {
		return nil, err
	}

	s.opts.emit(ctx, integration.EventHistoryAppended, machine.Tag, map[string]interface{}{
		"text": entry.Text,
	})
	return toHistoryView(entry), nil
}

// AppendTx 在调用方事务中追加台账,时间戳取调用时刻
func (s *historyService) AppendTx(ctx context.Context, tx *gorm.DB, machine *model.MachineModel, text string) (*model.HistoryEntryModel, error) {
	entry := &model.HistoryEntryModel{
		MachineID: machine.ID,
		Timestamp: s.opts.Now().UTC(),
		Text:      text,
	}
	if err := entry.Validate(); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if err := s.historyRepo.WithTx(tx).Append(ctx, entry); err != nil {
		return nil, apperr.Storage(err, "failed to append history")
	}
	return entry, nil
}

// List 按插入顺序返回机器台账
func (s *historyService) List(ctx context.Context, machineID string) ([]*HistoryView, error) {
	machine, err := findMachine(ctx, s.machineRepo, machineID)
	if err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.FindByMachine(ctx, machine.ID)
	if err != nil {
		return nil, apperr.Storage(err, "failed to list history")
	}

	views := make([]*HistoryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, toHistoryView(e))
	}
	return views, nil
}
