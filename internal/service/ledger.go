package service

import (
	"fmt"
	"time"

	"github.com/mautops/maintcontrol/internal/model"
	"github.com/mautops/maintcontrol/internal/utils"
)

// 台账文本
const (
	ledgerMachineRegistered = "Machine registered in the system."
	ledgerScheduleCancelled = "Next maintenance schedule cancelled."
)

func ledgerFieldChanged(field, from, to string) string {
	return fmt.Sprintf("Field %q changed from %q to %q.", field, from, to)
}

func ledgerQuantityChanged(from, to int) string {
	return fmt.Sprintf("Quantity changed from %d to %d.", from, to)
}

func ledgerStatusChanged(from, to model.MachineStatus) string {
	return fmt.Sprintf("Status changed from %q to %q.", string(from), string(to))
}

func ledgerMaintenanceStarted(typ model.MaintenanceType, description string) string {
	return fmt.Sprintf("Maintenance (%s) STARTED. Reason: %s", typ, description)
}

func ledgerStepRecorded(description string) string {
	return "Maintenance step recorded: " + description
}

func ledgerMaintenanceFinished(typ model.MaintenanceType, steps int64) string {
	return fmt.Sprintf("Maintenance (%s) FINISHED. It had %d steps.", typ, steps)
}

// ledgerScheduled 日期以 DD/MM/YYYY 展示
func ledgerScheduled(date string) string {
	display := date
	if t, err := time.Parse(utils.DateLayout, date); err == nil {
		display = t.Format("02/01/2006")
	}
	return "Next maintenance scheduled for: " + display
}
