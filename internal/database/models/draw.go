// Package models 开奖数据模型
package models

import (
	"time"
)

// DrawResult 单次开奖结果
type DrawResult string

const (
	DrawResultWinner   DrawResult = "winner"
	DrawResultNoWinner DrawResult = "no_winner"
)

// RaffleDraw 开奖记录表
// 同一活动内 draw_sequence 从 1 开始连续递增，一张票券最多出现在一条记录中
type RaffleDraw struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	RaffleID        uint       `gorm:"column:raffle_id;uniqueIndex:uk_raffle_sequence;index" json:"raffle_id"`
	TicketID        uint       `gorm:"column:ticket_id;uniqueIndex:uk_draw_ticket" json:"ticket_id"`
	DrawSequence    int        `gorm:"column:draw_sequence;uniqueIndex:uk_raffle_sequence" json:"draw_sequence"`
	PrizeInstanceID *uint      `gorm:"column:prize_instance_id" json:"prize_instance_id,omitempty"`
	Result          DrawResult `gorm:"column:result;size:20" json:"result"`
	RequestedBy     string     `gorm:"column:requested_by;size:64" json:"requested_by"`
	DrawnAt         time.Time  `gorm:"column:drawn_at" json:"drawn_at"`
	ProcessedAt     *time.Time `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt       time.Time  `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名
func (RaffleDraw) TableName() string {
	return "raffle_draws"
}

// IsWinner 是否中奖
func (d *RaffleDraw) IsWinner() bool {
	return d.Result == DrawResultWinner
}
