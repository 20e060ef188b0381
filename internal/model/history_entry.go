package model

import (
	"errors"
	"strings"
	"time"
)

// HistoryEntryModel 机器历史台账数据模型
// 只追加,按自增 ID 保持插入顺序,仅随机器级联删除
type HistoryEntryModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	MachineID uint      `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null;index"`
	Text      string    `gorm:"type:text;not null"`

	Machine *MachineModel `gorm:"foreignKey:MachineID;constraint:OnDelete:CASCADE"`
}

// TableName 指定表名
func (HistoryEntryModel) TableName() string {
	return "history_entries"
}

// Validate 验证台账条目
func (h *HistoryEntryModel) Validate() error {
	if h.MachineID == 0 {
		return errors.New("machine ID is required")
	}
	if strings.TrimSpace(h.Text) == "" {
		return errors.New("history text is required")
	}
	return nil
}
