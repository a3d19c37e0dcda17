// Package repository 开奖数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
)

// DrawRepository 开奖记录仓库
type DrawRepository struct {
	db *gorm.DB
}

// NewDrawRepository 创建开奖记录仓库
func NewDrawRepository(db *gorm.DB) *DrawRepository {
	return &DrawRepository{db: db}
}

// WithTx 绑定到事务
func (r *DrawRepository) WithTx(tx *gorm.DB) *DrawRepository {
	return &DrawRepository{db: tx}
}

// Create 创建开奖记录
func (r *DrawRepository) Create(draw *models.RaffleDraw) error {
	return r.db.Create(draw).Error
}

// GetByID 根据 ID 获取开奖记录
func (r *DrawRepository) GetByID(id uint) (*models.RaffleDraw, error) {
	var draw models.RaffleDraw
	if err := r.db.First(&draw, id).Error; err != nil {
		return nil, err
	}
	return &draw, nil
}

// CountByRaffle 统计活动已开奖次数
func (r *DrawRepository) CountByRaffle(raffleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.RaffleDraw{}).
		Where("raffle_id = ?", raffleID).Count(&count).Error
	return count, err
}

// ListByRaffle 按开奖顺序获取活动全部开奖记录
func (r *DrawRepository) ListByRaffle(raffleID uint) ([]models.RaffleDraw, error) {
	var draws []models.RaffleDraw
	err := r.db.Where("raffle_id = ?", raffleID).
		Order("draw_sequence ASC").Find(&draws).Error
	return draws, err
}

// MarkProcessed 回填奖品实例并记录处理完成时间
func (r *DrawRepository) MarkProcessed(id uint, prizeInstanceID uint, now time.Time) error {
	return r.db.Model(&models.RaffleDraw{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"prize_instance_id": prizeInstanceID,
			"processed_at":      now,
		}).Error
}

// WinnerRow 中奖记录投影（连表查询结果）
type WinnerRow struct {
	DrawID       uint              `json:"draw_id"`
	RaffleID     uint              `json:"raffle_id"`
	DrawSequence int               `json:"draw_sequence"`
	TicketID     uint              `json:"ticket_id"`
	TicketNumber int               `json:"ticket_number"`
	UserID       *int64            `json:"user_id,omitempty"`
	Result       models.DrawResult `json:"result"`
	PrizeName    string            `json:"prize_name"`
	PrizeValue   int               `json:"prize_value"`
	DrawnAt      time.Time         `json:"drawn_at"`
}

// ListWinnersByRaffle 获取活动的中奖记录（含票号与奖品）
func (r *DrawRepository) ListWinnersByRaffle(raffleID uint) ([]WinnerRow, error) {
	var rows []WinnerRow
	err := r.db.Model(&models.RaffleDraw{}).
		Select(`raffle_draws.id AS draw_id, raffle_draws.raffle_id, raffle_draws.draw_sequence,
			raffle_draws.ticket_id, tickets.ticket_number, tickets.user_id, raffle_draws.result,
			prize_instances.name AS prize_name, prize_instances.value AS prize_value, raffle_draws.drawn_at`).
		Joins("JOIN tickets ON tickets.id = raffle_draws.ticket_id").
		Joins("LEFT JOIN prize_instances ON prize_instances.id = raffle_draws.prize_instance_id").
		Where("raffle_draws.raffle_id = ? AND raffle_draws.result = ?", raffleID, models.DrawResultWinner).
		Order("raffle_draws.draw_sequence ASC").
		Scan(&rows).Error
	return rows, err
}

// ListResultsByRaffle 获取活动的全部开奖记录，轮空也包含在内
func (r *DrawRepository) ListResultsByRaffle(raffleID uint) ([]WinnerRow, error) {
	var rows []WinnerRow
	err := r.db.Model(&models.RaffleDraw{}).
		Select(`raffle_draws.id AS draw_id, raffle_draws.raffle_id, raffle_draws.draw_sequence,
			raffle_draws.ticket_id, tickets.ticket_number, tickets.user_id, raffle_draws.result,
			prize_instances.name AS prize_name, prize_instances.value AS prize_value, raffle_draws.drawn_at`).
		Joins("JOIN tickets ON tickets.id = raffle_draws.ticket_id").
		Joins("LEFT JOIN prize_instances ON prize_instances.id = raffle_draws.prize_instance_id").
		Where("raffle_draws.raffle_id = ?", raffleID).
		Order("raffle_draws.draw_sequence ASC").
		Scan(&rows).Error
	return rows, err
}

// ListWinsByUser 获取用户的全部中奖记录
func (r *DrawRepository) ListWinsByUser(userID int64) ([]WinnerRow, error) {
	var rows []WinnerRow
	err := r.db.Model(&models.RaffleDraw{}).
		Select(`raffle_draws.id AS draw_id, raffle_draws.raffle_id, raffle_draws.draw_sequence,
			raffle_draws.ticket_id, tickets.ticket_number, tickets.user_id, raffle_draws.result,
			prize_instances.name AS prize_name, prize_instances.value AS prize_value, raffle_draws.drawn_at`).
		Joins("JOIN tickets ON tickets.id = raffle_draws.ticket_id").
		Joins("LEFT JOIN prize_instances ON prize_instances.id = raffle_draws.prize_instance_id").
		Where("tickets.user_id = ? AND raffle_draws.result = ?", userID, models.DrawResultWinner).
		Order("raffle_draws.drawn_at DESC").
		Scan(&rows).Error
	return rows, err
}
