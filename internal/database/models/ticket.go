// Package models 票券数据模型
package models

import (
	"time"
)

// TicketStatus 票券状态
type TicketStatus string

const (
	TicketStatusAvailable TicketStatus = "available"
	TicketStatusReserved  TicketStatus = "reserved"
	TicketStatusSold      TicketStatus = "sold"
	TicketStatusRevealed  TicketStatus = "revealed"
	TicketStatusExpired   TicketStatus = "expired"
	TicketStatusVoid      TicketStatus = "void"
)

// Ticket 票券表
// 状态流转: available -> reserved -> sold -> revealed
// reserved 超时或取消后回到 available；sold 之后不再回到 available
type Ticket struct {
	ID                 uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID           uint         `gorm:"column:raffle_id;uniqueIndex:uk_raffle_number;index:idx_raffle_status" json:"raffle_id"`
	TicketNumber       int          `gorm:"column:ticket_number;uniqueIndex:uk_raffle_number" json:"ticket_number"`
	Status             TicketStatus `gorm:"column:status;size:20;default:'available';index:idx_raffle_status" json:"status"`
	UserID             *int64       `gorm:"column:user_id;index" json:"user_id,omitempty"`
	InstantWinEligible bool         `gorm:"column:instant_win_eligible;default:false" json:"instant_win_eligible"`
	ReservedAt         *time.Time   `gorm:"column:reserved_at" json:"reserved_at,omitempty"`
	SoldAt             *time.Time   `gorm:"column:sold_at" json:"sold_at,omitempty"`
	RevealedAt         *time.Time   `gorm:"column:revealed_at" json:"revealed_at,omitempty"`
	CreatedAt          time.Time    `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time    `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (Ticket) TableName() string {
	return "tickets"
}

// IsOwned 票券是否已有归属
func (t *Ticket) IsOwned() bool {
	return t.UserID != nil
}
