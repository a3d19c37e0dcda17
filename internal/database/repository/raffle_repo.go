// Package repository 抽奖活动数据仓库
package repository

import (
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RaffleRepository 抽奖活动仓库
type RaffleRepository struct {
	db *gorm.DB
}

// NewRaffleRepository 创建抽奖活动仓库
func NewRaffleRepository(db *gorm.DB) *RaffleRepository {
	return &RaffleRepository{db: db}
}

// WithTx 绑定到事务
func (r *RaffleRepository) WithTx(tx *gorm.DB) *RaffleRepository {
	return &RaffleRepository{db: tx}
}

// Create 创建活动
func (r *RaffleRepository) Create(raffle *models.Raffle) error {
	return r.db.Create(raffle).Error
}

// GetByID 根据 ID 获取活动
func (r *RaffleRepository) GetByID(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	if err := r.db.First(&raffle, id).Error; err != nil {
		return nil, err
	}
	return &raffle, nil
}

// GetByIDForUpdate 根据 ID 获取活动并加行锁（事务内使用）
func (r *RaffleRepository) GetByIDForUpdate(id uint) (*models.Raffle, error) {
	var raffle models.Raffle
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&raffle, id).Error
	if err != nil {
		return nil, err
	}
	return &raffle, nil
}

// Update 保存活动
func (r *RaffleRepository) Update(raffle *models.Raffle) error {
	return r.db.Save(raffle).Error
}

// UpdateLifecycle 更新管理状态与运行阶段
func (r *RaffleRepository) UpdateLifecycle(id uint, status models.RaffleStatus, state models.RaffleState) error {
	return r.db.Model(&models.Raffle{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": status,
			"state":  state,
		}).Error
}

// List 按创建时间倒序列出活动
func (r *RaffleRepository) List(limit int) ([]models.Raffle, error) {
	var raffles []models.Raffle
	err := r.db.Order("created_at DESC").Limit(limit).Find(&raffles).Error
	return raffles, err
}
