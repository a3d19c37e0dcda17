// Package repository 票券数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TicketRepository 票券仓库
type TicketRepository struct {
	db *gorm.DB
}

// NewTicketRepository 创建票券仓库
func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

// WithTx 绑定到事务
func (r *TicketRepository) WithTx(tx *gorm.DB) *TicketRepository {
	return &TicketRepository{db: tx}
}

// BulkCreate 批量创建票券（活动创建时调用）
func (r *TicketRepository) BulkCreate(tickets []models.Ticket) error {
	return r.db.CreateInBatches(tickets, 500).Error
}

// GetByID 根据 ID 获取票券
func (r *TicketRepository) GetByID(id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.First(&ticket, id).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// GetByIDs 根据 ID 列表获取票券
func (r *TicketRepository) GetByIDs(ids []uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("id IN ?", ids).Find(&tickets).Error
	return tickets, err
}

// ListByRaffle 获取活动的全部票券
func (r *TicketRepository) ListByRaffle(raffleID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.Where("raffle_id = ?", raffleID).Order("ticket_number ASC").Find(&tickets).Error
	return tickets, err
}

// AvailableIDsForUpdate 获取活动当前可售票券 ID 并加行锁（事务内使用）
func (r *TicketRepository) AvailableIDsForUpdate(raffleID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.Ticket{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("raffle_id = ? AND status = ?", raffleID, models.TicketStatusAvailable).
		Pluck("id", &ids).Error
	return ids, err
}

// CountAvailable 统计活动可售票券数
func (r *TicketRepository) CountAvailable(raffleID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Ticket{}).
		Where("raffle_id = ? AND status = ?", raffleID, models.TicketStatusAvailable).
		Count(&count).Error
	return count, err
}

// Reserve 将一组可售票券标记为已预订（条件更新，返回实际生效行数）
func (r *TicketRepository) Reserve(ids []uint, userID int64, now time.Time) (int64, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id IN ? AND status = ?", ids, models.TicketStatusAvailable).
		Updates(map[string]interface{}{
			"status":      models.TicketStatusReserved,
			"user_id":     userID,
			"reserved_at": now,
		})
	return result.RowsAffected, result.Error
}

// MarkSold 将一组已预订票券标记为已售出
func (r *TicketRepository) MarkSold(ids []uint, userID int64, now time.Time) (int64, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id IN ? AND status = ? AND user_id = ?", ids, models.TicketStatusReserved, userID).
		Updates(map[string]interface{}{
			"status":  models.TicketStatusSold,
			"sold_at": now,
		})
	return result.RowsAffected, result.Error
}

// Release 释放一组已预订票券回可售池，清除归属
func (r *TicketRepository) Release(ids []uint) (int64, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id IN ? AND status = ?", ids, models.TicketStatusReserved).
		Updates(map[string]interface{}{
			"status":      models.TicketStatusAvailable,
			"user_id":     nil,
			"reserved_at": nil,
		})
	return result.RowsAffected, result.Error
}

// Reveal 持有者翻开已售票券
func (r *TicketRepository) Reveal(id uint, userID int64, now time.Time) (int64, error) {
	result := r.db.Model(&models.Ticket{}).
		Where("id = ? AND status = ? AND user_id = ?", id, models.TicketStatusSold, userID).
		Updates(map[string]interface{}{
			"status":      models.TicketStatusRevealed,
			"revealed_at": now,
		})
	return result.RowsAffected, result.Error
}
