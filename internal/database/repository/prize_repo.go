// Package repository 奖池数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PrizeRepository 奖池仓库
type PrizeRepository struct {
	db *gorm.DB
}

// NewPrizeRepository 创建奖池仓库
func NewPrizeRepository(db *gorm.DB) *PrizeRepository {
	return &PrizeRepository{db: db}
}

// WithTx 绑定到事务
func (r *PrizeRepository) WithTx(tx *gorm.DB) *PrizeRepository {
	return &PrizeRepository{db: tx}
}

// CreatePool 创建奖池
func (r *PrizeRepository) CreatePool(pool *models.PrizePool) error {
	return r.db.Create(pool).Error
}

// GetPool 根据 ID 获取奖池
func (r *PrizeRepository) GetPool(id uint) (*models.PrizePool, error) {
	var pool models.PrizePool
	if err := r.db.First(&pool, id).Error; err != nil {
		return nil, err
	}
	return &pool, nil
}

// CreateInstances 批量创建奖品实例
func (r *PrizeRepository) CreateInstances(instances []models.PrizeInstance) error {
	return r.db.CreateInBatches(instances, 200).Error
}

// NextUnassignedForUpdate 按顺序取下一个未分配的奖品实例并加行锁（事务内使用）
func (r *PrizeRepository) NextUnassignedForUpdate(poolID uint) (*models.PrizeInstance, error) {
	var instance models.PrizeInstance
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("prize_pool_id = ? AND assigned = ?", poolID, false).
		Order("sequence ASC").First(&instance).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// AssignInstance 将奖品实例分配给票券（条件更新，防止重复分配）
func (r *PrizeRepository) AssignInstance(instanceID, ticketID uint, now time.Time) (int64, error) {
	result := r.db.Model(&models.PrizeInstance{}).
		Where("id = ? AND assigned = ?", instanceID, false).
		Updates(map[string]interface{}{
			"assigned":           true,
			"assigned_ticket_id": ticketID,
			"assigned_at":        now,
		})
	return result.RowsAffected, result.Error
}

// SetLocked 锁定/解锁奖池
func (r *PrizeRepository) SetLocked(poolID uint, locked bool) error {
	return r.db.Model(&models.PrizePool{}).
		Where("id = ?", poolID).Update("locked", locked).Error
}
