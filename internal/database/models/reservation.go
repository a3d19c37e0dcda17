// Package models 票券预订数据模型
package models

import (
	"encoding/json"
	"time"
)

// ReservationStatus 预订状态
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusExpired   ReservationStatus = "expired"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// TicketReservation 票券预订表
// 对一组票券的限时持有，票券本身的 reserved 状态保证同一张票同时只被一个预订持有
type TicketReservation struct {
	ID            uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID          string            `gorm:"column:uuid;size:36;uniqueIndex" json:"uuid"`
	UserID        int64             `gorm:"column:user_id;index" json:"user_id"`
	RaffleID      uint              `gorm:"column:raffle_id;index" json:"raffle_id"`
	TicketIDs     string            `gorm:"column:ticket_ids;size:2000" json:"ticket_ids"` // JSON 数组，创建时固定
	Quantity      int               `gorm:"column:quantity" json:"quantity"`
	TotalAmount   int               `gorm:"column:total_amount" json:"total_amount"` // 总价（分）
	Status        ReservationStatus `gorm:"column:status;size:20;default:'pending';index:idx_status_expires" json:"status"`
	ExpiresAt     time.Time         `gorm:"column:expires_at;index:idx_status_expires" json:"expires_at"`
	TransactionID *string           `gorm:"column:transaction_id;size:64" json:"transaction_id,omitempty"`
	PurchaseTime  *time.Time        `gorm:"column:purchase_time" json:"purchase_time,omitempty"`
	CreatedAt     time.Time         `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"column:updated_at" json:"updated_at"`
}

// TableName 表名
func (TicketReservation) TableName() string {
	return "ticket_reservations"
}

// IsExpired 预订是否已过保留时限
func (r *TicketReservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// SetTicketIDs 序列化票券 ID 列表
func (r *TicketReservation) SetTicketIDs(ids []uint) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	r.TicketIDs = string(data)
	r.Quantity = len(ids)
	return nil
}

// TicketIDList 反序列化票券 ID 列表
func (r *TicketReservation) TicketIDList() ([]uint, error) {
	var ids []uint
	if err := json.Unmarshal([]byte(r.TicketIDs), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
