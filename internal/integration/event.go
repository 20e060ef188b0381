package integration

import (
	"time"

	"github.com/google/uuid"
)

// EventType 生命周期事件类型
type EventType string

const (
	EventMachineCreated     EventType = "machine.created"
	EventMachineUpdated     EventType = "machine.updated"
	EventMachineDeleted     EventType = "machine.deleted"
	EventHistoryAppended    EventType = "history.appended"
	EventMaintenanceStarted EventType = "maintenance.started"
	EventMaintenanceStep    EventType = "maintenance.step_added"
	EventMaintenanceEnded   EventType = "maintenance.ended"
	EventScheduleSet        EventType = "schedule.set"
	EventScheduleCleared    EventType = "schedule.cleared"
	EventDataImported       EventType = "data.imported"
)

// Event 生命周期事件
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	MachineID string                 `json:"machine_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent 创建事件
func NewEvent(typ EventType, machineID string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      typ,
		MachineID: machineID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}
