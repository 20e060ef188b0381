package service

import (
	"github.com/mautops/maintcontrol/internal/utils"
)

// AlertLevel 维护计划告警级别
type AlertLevel string

const (
	AlertNone     AlertLevel = "NONE"
	AlertDueToday AlertLevel = "DUE_TODAY"
	AlertOverdue  AlertLevel = "OVERDUE"
)

// ClassifyAlert 根据今天日期和计划日期计算告警级别
// 两个参数均为 YYYY-MM-DD;计划为空或无法解析时返回 NONE
func ClassifyAlert(today, scheduleDate string) AlertLevel {
	if scheduleDate == "" {
		return AlertNone
	}
	scheduled, err := utils.ParseDate(scheduleDate)
	if err != nil {
		return AlertNone
	}
	now, err := utils.ParseDate(today)
	if err != nil {
		return AlertNone
	}
	switch {
	case scheduled.Before(now):
		return AlertOverdue
	case scheduled.Equal(now):
		return AlertDueToday
	default:
		return AlertNone
	}
}
