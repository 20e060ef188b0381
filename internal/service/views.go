package service

import (
	"context"
	"time"

	"github.com/mautops/maintcontrol/internal/apperr"
	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/repository"
)

// MachineView 机器完整视图: 机器 + 维护记录 + 台账 + 计划
type MachineView struct {
	ID              string              `json:"id" yaml:"id"`
	Name            string              `json:"name" yaml:"name"`
	Capacity        *string             `json:"capacity" yaml:"capacity"`
	Manufacturer    *string             `json:"manufacturer" yaml:"manufacturer"`
	Quantity        int                 `json:"quantity" yaml:"quantity"`
	Status          model.MachineStatus `json:"status" yaml:"status"`
	Maintenances    []*EpisodeView      `json:"maintenances" yaml:"maintenances"`
	History         []*HistoryView      `json:"history" yaml:"history"`
	NextMaintenance *ScheduleView       `json:"next_maintenance,omitempty" yaml:"next_maintenance,omitempty"`
	Alert           AlertLevel          `json:"alert,omitempty" yaml:"alert,omitempty"`
}

// EpisodeView 维护记录视图
type EpisodeView struct {
	ID          uint                  `json:"id,omitempty" yaml:"id,omitempty"`
	Type        model.MaintenanceType `json:"type" yaml:"type"`
	Description string                `json:"description" yaml:"description"`
	StartDate   string                `json:"start_date" yaml:"start_date"`
	EndDate     *string               `json:"end_date" yaml:"end_date"`
	Steps       []*StepView           `json:"steps" yaml:"steps"`
}

// Active 维护是否进行中
func (e *EpisodeView) Active() bool {
	return e.EndDate == nil
}

// StepView 维护步骤视图
type StepView struct {
	ID          uint      `json:"id,omitempty" yaml:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Description string    `json:"description" yaml:"description"`
}

// ScheduleView 维护计划视图
type ScheduleView struct {
	Date        string `json:"date" yaml:"date"`
	Description string `json:"description" yaml:"description"`
}

// HistoryView 台账条目视图
type HistoryView struct {
	ID        uint      `json:"id,omitempty" yaml:"id,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Text      string    `json:"text" yaml:"text"`
}

func toEpisodeView(m *model.MaintenanceEpisodeModel) *EpisodeView {
	view := &EpisodeView{
		ID:          m.ID,
		Type:        m.Type,
		Description: m.Description,
		StartDate:   m.StartDate,
		EndDate:     m.EndDate,
		Steps:       make([]*StepView, 0, len(m.Steps)),
	}
	for i := range m.Steps {
		view.Steps = append(view.Steps, toStepView(&m.Steps[i]))
	}
	return view
}

func toStepView(m *model.MaintenanceStepModel) *StepView {
	return &StepView{ID: m.ID, Timestamp: m.Timestamp, Description: m.Description}
}

func toHistoryView(m *model.HistoryEntryModel) *HistoryView {
	return &HistoryView{ID: m.ID, Timestamp: m.Timestamp, Text: m.Text}
}

func toScheduleView(m *model.ScheduleModel) *ScheduleView {
	if m == nil {
		return nil
	}
	return &ScheduleView{Date: m.Date, Description: m.Description}
}

// viewLoader 批量组装机器视图,每类子记录一次查询
type viewLoader struct {
	maintRepo    repository.MaintenanceRepository
	scheduleRepo repository.ScheduleRepository
	historyRepo  repository.HistoryRepository
	opts         Options
}

func (l *viewLoader) load(ctx context.Context, machines []*model.MachineModel) ([]*MachineView, error) {
	ids := make([]uint, 0, len(machines))
	for _, m := range machines {
		ids = append(ids, m.ID)
	}

	episodes, err := l.maintRepo.FindByMachines(ctx, ids)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load maintenance episodes")
	}
	schedules, err := l.scheduleRepo.FindByMachines(ctx, ids)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load schedules")
	}
	entries, err := l.historyRepo.FindByMachines(ctx, ids)
	if err != nil {
		return nil, apperr.Storage(err, "failed to load history")
	}

	episodesByMachine := make(map[uint][]*EpisodeView, len(machines))
	for _, e := range episodes {
		episodesByMachine[e.MachineID] = append(episodesByMachine[e.MachineID], toEpisodeView(e))
	}
	historyByMachine := make(map[uint][]*HistoryView, len(machines))
	for _, h := range entries {
		historyByMachine[h.MachineID] = append(historyByMachine[h.MachineID], toHistoryView(h))
	}

	today := l.opts.Today()
	views := make([]*MachineView, 0, len(machines))
	for _, m := range machines {
		view := &MachineView{
			ID:              m.Tag,
			Name:            m.Name,
			Capacity:        m.Capacity,
			Manufacturer:    m.Manufacturer,
			Quantity:        m.Quantity,
			Status:          m.Status,
			Maintenances:    episodesByMachine[m.ID],
			History:         historyByMachine[m.ID],
			NextMaintenance: toScheduleView(schedules[m.ID]),
			Alert:           AlertNone,
		}
		if view.Maintenances == nil {
			view.Maintenances = []*EpisodeView{}
		}
		if view.History == nil {
			view.History = []*HistoryView{}
		}
		if view.NextMaintenance != nil {
			view.Alert = ClassifyAlert(today, view.NextMaintenance.Date)
		}
		views = append(views, view)
	}
	return views, nil
}

func (l *viewLoader) loadOne(ctx context.Context, machine *model.MachineModel) (*MachineView, error) {
	views, err := l.load(ctx, []*model.MachineModel{machine})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
