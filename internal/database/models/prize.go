// Package models 奖池数据模型
package models

import (
	"time"
)

// PrizePool 奖池表
// 活动激活前必须先锁定奖池；DrawWinCount 为开奖型奖品实例数，决定开奖总次数
type PrizePool struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"column:name;size:255" json:"name"`
	Locked       bool      `gorm:"column:locked;default:false" json:"locked"`
	DrawWinCount int       `gorm:"column:draw_win_count" json:"draw_win_count"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (PrizePool) TableName() string {
	return "prize_pools"
}

// PrizeInstance 奖品实例表
type PrizeInstance struct {
	ID               uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	PrizePoolID      uint       `gorm:"column:prize_pool_id;uniqueIndex:uk_pool_sequence" json:"prize_pool_id"`
	Sequence         int        `gorm:"column:sequence;uniqueIndex:uk_pool_sequence" json:"sequence"`
	Name             string     `gorm:"column:name;size:255" json:"name"`
	Value            int        `gorm:"column:value" json:"value"` // 价值（分）
	Assigned         bool       `gorm:"column:assigned;default:false;index" json:"assigned"`
	AssignedTicketID *uint      `gorm:"column:assigned_ticket_id" json:"assigned_ticket_id,omitempty"`
	AssignedAt       *time.Time `gorm:"column:assigned_at" json:"assigned_at,omitempty"`
	CreatedAt        time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (PrizeInstance) TableName() string {
	return "prize_instances"
}
