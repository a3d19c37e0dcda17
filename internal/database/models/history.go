// Package models 活动状态变更审计模型
package models

import (
	"time"
)

// RaffleHistory 活动状态变更记录表（只追加，不修改不删除）
type RaffleHistory struct {
	ID             uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID       uint         `gorm:"column:raffle_id;index" json:"raffle_id"`
	PreviousStatus RaffleStatus `gorm:"column:previous_status;size:20" json:"previous_status"`
	NewStatus      RaffleStatus `gorm:"column:new_status;size:20" json:"new_status"`
	PreviousState  RaffleState  `gorm:"column:previous_state;size:20" json:"previous_state"`
	NewState       RaffleState  `gorm:"column:new_state;size:20" json:"new_state"`
	Reason         string       `gorm:"column:reason;size:255" json:"reason"`
	ChangedBy      string       `gorm:"column:changed_by;size:64" json:"changed_by"`
	CreatedAt      time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (RaffleHistory) TableName() string {
	return "raffle_histories"
}
