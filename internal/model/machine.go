package model

import (
	"errors"
	"strings"
	"time"
)

// MachineStatus 机器状态
type MachineStatus string

const (
	StatusOK            MachineStatus = "OK"
	StatusInOperation   MachineStatus = "IN_OPERATION"
	StatusInMaintenance MachineStatus = "IN_MAINTENANCE"
	StatusInoperative   MachineStatus = "INOPERATIVE"
	StatusAwaitingParts MachineStatus = "AWAITING_PARTS"
	StatusHoursExceeded MachineStatus = "HOURS_EXCEEDED"
)

// AllStatuses 所有机器状态(展示顺序)
var AllStatuses = []MachineStatus{
	StatusOK,
	StatusInOperation,
	StatusInMaintenance,
	StatusInoperative,
	StatusAwaitingParts,
	StatusHoursExceeded,
}

// 旧版看板使用的葡萄牙语标签
var statusAliases = map[string]MachineStatus{
	"EM OPERAÇÃO":      StatusInOperation,
	"EM OPERACAO":      StatusInOperation,
	"EM MANUTENÇÃO":    StatusInMaintenance,
	"EM MANUTENCAO":    StatusInMaintenance,
	"INOPERANTE":       StatusInoperative,
	"ESPERANDO PEÇAS":  StatusAwaitingParts,
	"ESPERANDO PECAS":  StatusAwaitingParts,
	"HORAS EXCEDENTES": StatusHoursExceeded,
}

// ParseMachineStatus 解析机器状态,大小写不敏感,兼容旧标签
func ParseMachineStatus(s string) (MachineStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return "", errors.New("status cannot be empty")
	}
	for _, st := range AllStatuses {
		if string(st) == normalized {
			return st, nil
		}
	}
	if st, ok := statusAliases[normalized]; ok {
		return st, nil
	}
	// 允许 "in operation" 这类以空格分隔的写法
	if st, ok := statusFromWords(normalized); ok {
		return st, nil
	}
	return "", errors.New("unknown machine status: " + s)
}

func statusFromWords(s string) (MachineStatus, bool) {
	candidate := MachineStatus(strings.ReplaceAll(s, " ", "_"))
	for _, st := range AllStatuses {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// MachineModel 机器数据模型
// Tag 是外部分配的机器标识,其它实体都通过它关联;ID 仅为存储层行键
type MachineModel struct {
	ID           uint          `gorm:"primaryKey;autoIncrement"`
	Tag          string        `gorm:"type:varchar(64);not null;uniqueIndex:idx_machines_tag"`
	Name         string        `gorm:"type:varchar(255);not null;index"`
	Capacity     *string       `gorm:"type:varchar(255)"`
	Manufacturer *string       `gorm:"type:varchar(255);index"`
	Quantity     int           `gorm:"type:int;not null;default:1"`
	Status       MachineStatus `gorm:"type:varchar(32);not null;index"`
	CreatedAt    time.Time     `gorm:"not null"`
	UpdatedAt    time.Time     `gorm:"not null"`
}

// TableName 指定表名
func (MachineModel) TableName() string {
	return "machines"
}

// Validate 验证机器模型
func (m *MachineModel) Validate() error {
	if strings.TrimSpace(m.Tag) == "" {
		return errors.New("machine ID is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("machine name is required")
	}
	if m.Status == "" {
		m.Status = StatusOK
	}
	m.Quantity = ClampQuantity(m.Quantity)
	return nil
}

// ClampQuantity 数量最小为 1
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	return q
}
