// Package repository 活动状态变更审计仓库
package repository

import (
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
)

// HistoryRepository 状态变更记录仓库（只追加）
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建状态变更记录仓库
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// WithTx 绑定到事务
func (r *HistoryRepository) WithTx(tx *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: tx}
}

// Create 追加变更记录
func (r *HistoryRepository) Create(history *models.RaffleHistory) error {
	return r.db.Create(history).Error
}

// ListByRaffle 按时间顺序获取活动的变更记录
func (r *HistoryRepository) ListByRaffle(raffleID uint) ([]models.RaffleHistory, error) {
	var histories []models.RaffleHistory
	err := r.db.Where("raffle_id = ?", raffleID).
		Order("created_at ASC").Find(&histories).Error
	return histories, err
}
