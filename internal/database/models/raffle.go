// Package models 抽奖活动数据模型
package models

import (
	"time"
)

// RaffleStatus 管理状态（运营人员控制）
type RaffleStatus string

const (
	RaffleStatusInactive  RaffleStatus = "inactive"
	RaffleStatusActive    RaffleStatus = "active"
	RaffleStatusCancelled RaffleStatus = "cancelled"
)

// RaffleState 运行阶段（由管理状态与时间窗口推导）
type RaffleState string

const (
	RaffleStateDraft      RaffleState = "draft"
	RaffleStateComingSoon RaffleState = "coming_soon"
	RaffleStateOpen       RaffleState = "open"
	RaffleStatePaused     RaffleState = "paused"
	RaffleStateEnded      RaffleState = "ended"
)

// Raffle 抽奖活动表
type Raffle struct {
	ID           uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string       `gorm:"column:title;size:255" json:"title"`
	Status       RaffleStatus `gorm:"column:status;size:20;default:'inactive';index" json:"status"`
	State        RaffleState  `gorm:"column:state;size:20;default:'draft';index" json:"state"`
	StartTime    time.Time    `gorm:"column:start_time" json:"start_time"`
	EndTime      time.Time    `gorm:"column:end_time" json:"end_time"`
	TotalTickets int          `gorm:"column:total_tickets" json:"total_tickets"`
	TicketPrice  int          `gorm:"column:ticket_price" json:"ticket_price"` // 单价（分）
	PrizePoolID  *uint        `gorm:"column:prize_pool_id" json:"prize_pool_id,omitempty"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Raffle) TableName() string {
	return "raffles"
}

// RaffleLifecycle 管理状态 × 运行阶段的组合值对象
// 阶段只能通过状态机接口变更，禁止直接写字段
type RaffleLifecycle struct {
	Status RaffleStatus
	State  RaffleState
}

// Lifecycle 返回当前生命周期值对象
func (r *Raffle) Lifecycle() RaffleLifecycle {
	return RaffleLifecycle{Status: r.Status, State: r.State}
}

// DeriveState 根据管理状态与时间窗口推导运行阶段（纯函数，无副作用）
// 边界约定：now == start_time 时判定为 open 而非 coming_soon
func (r *Raffle) DeriveState(now time.Time) RaffleState {
	if r.Status == RaffleStatusCancelled || !now.Before(r.EndTime) {
		return RaffleStateEnded
	}

	if r.Status == RaffleStatusInactive {
		if now.Before(r.StartTime) {
			return RaffleStateDraft
		}
		return RaffleStatePaused
	}

	// status == active
	if now.Before(r.StartTime) {
		return RaffleStateComingSoon
	}
	return RaffleStateOpen
}

// IsEnded 活动是否已结束
func (r *Raffle) IsEnded(now time.Time) bool {
	return r.DeriveState(now) == RaffleStateEnded
}

// IsOpenForSale 活动是否可售票
func (r *Raffle) IsOpenForSale(now time.Time) bool {
	return r.Status == RaffleStatusActive && r.DeriveState(now) == RaffleStateOpen
}
