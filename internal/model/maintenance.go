package model

import (
	"errors"
	"strings"
	"time"
)

// MaintenanceType 维护类型
type MaintenanceType string

const (
	MaintenancePreventive MaintenanceType = "PREVENTIVE" // 预防性维护
	MaintenanceCorrective MaintenanceType = "CORRECTIVE" // 纠正性维护
)

// ParseMaintenanceType 解析维护类型,兼容 "Preventiva"/"Corretiva"
func ParseMaintenanceType(s string) (MaintenanceType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PREVENTIVE", "PREVENTIVA":
		return MaintenancePreventive, nil
	case "CORRECTIVE", "CORRETIVA":
		return MaintenanceCorrective, nil
	case "":
		return "", errors.New("maintenance type is required")
	default:
		return "", errors.New("unknown maintenance type: " + s)
	}
}

// MaintenanceEpisodeModel 维护记录数据模型
// EndDate 为空表示维护进行中,每台机器最多一条
type MaintenanceEpisodeModel struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"`
	MachineID   uint            `gorm:"not null;index"`
	Type        MaintenanceType `gorm:"type:varchar(16);not null"`
	Description string          `gorm:"type:text;not null"`
	StartDate   string          `gorm:"type:varchar(10);not null;index"` // YYYY-MM-DD
	EndDate     *string         `gorm:"type:varchar(10)"`                // YYYY-MM-DD
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`

	Machine *MachineModel          `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE"`
	Steps   []MaintenanceStepModel `gorm:"foreignKey:EpisodeID"`
}

// TableName 指定表名
func (MaintenanceEpisodeModel) TableName() string {
	return "maintenance_episodes"
}

// IsOpen 维护是否进行中
func (e *MaintenanceEpisodeModel) IsOpen() bool {
	return e.EndDate == nil
}

// Validate 验证维护记录模型
func (e *MaintenanceEpisodeModel) Validate() error {
	if e.MachineID == 0 {
		return errors.New("machine ID is required")
	}
	if e.Type == "" {
		return errors.New("maintenance type is required")
	}
	if strings.TrimSpace(e.Description) == "" {
		return errors.New("maintenance description is required")
	}
	if e.StartDate == "" {
		return errors.New("start date is required")
	}
	return nil
}

// MaintenanceStepModel 维护步骤数据模型,只追加
type MaintenanceStepModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	EpisodeID   uint      `gorm:"not null;index"`
	Timestamp   time.Time `gorm:"not null"`
	Description string    `gorm:"type:text;not null"`

	Episode *MaintenanceEpisodeModel `gorm:"foreignKey:EpisodeID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (MaintenanceStepModel) TableName() string {
	return "maintenance_steps"
}

// ScheduleModel 下次维护计划,每台机器至多一条
type ScheduleModel struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	MachineID   uint      `gorm:"not null;uniqueIndex:idx_schedules_machine"`
	Date        string    `gorm:"type:varchar(10);not null;index"` // YYYY-MM-DD
	Description string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"not null"`

	Machine *MachineModel `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (ScheduleModel) TableName() string {
	return "schedules"
}
