// Package repository 票券预订数据仓库
package repository

import (
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReservationRepository 票券预订仓库
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建票券预订仓库
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// WithTx 绑定到事务
func (r *ReservationRepository) WithTx(tx *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: tx}
}

// Create 创建预订
func (r *ReservationRepository) Create(reservation *models.TicketReservation) error {
	return r.db.Create(reservation).Error
}

// GetByUUID 根据 UUID 获取预订
func (r *ReservationRepository) GetByUUID(uuid string) (*models.TicketReservation, error) {
	var reservation models.TicketReservation
	if err := r.db.Where("uuid = ?", uuid).First(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

// GetByUUIDForUpdate 根据 UUID 获取预订并加行锁（事务内使用）
func (r *ReservationRepository) GetByUUIDForUpdate(uuid string) (*models.TicketReservation, error) {
	var reservation models.TicketReservation
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("uuid = ?", uuid).First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// Complete 将待支付预订置为已完成（条件更新，幂等保护）
func (r *ReservationRepository) Complete(uuid, transactionID string, now time.Time) (int64, error) {
	result := r.db.Model(&models.TicketReservation{}).
		Where("uuid = ? AND status = ?", uuid, models.ReservationStatusPending).
		Updates(map[string]interface{}{
			"status":         models.ReservationStatusCompleted,
			"transaction_id": transactionID,
			"purchase_time":  now,
		})
	return result.RowsAffected, result.Error
}

// SetStatus 条件变更预订状态（仅当当前状态匹配时生效）
func (r *ReservationRepository) SetStatus(uuid string, from, to models.ReservationStatus) (int64, error) {
	result := r.db.Model(&models.TicketReservation{}).
		Where("uuid = ? AND status = ?", uuid, from).
		Update("status", to)
	return result.RowsAffected, result.Error
}

// ListExpiredPending 获取已过保留时限的待支付预订
func (r *ReservationRepository) ListExpiredPending(now time.Time) ([]models.TicketReservation, error) {
	var reservations []models.TicketReservation
	err := r.db.Where("status = ? AND expires_at <= ?", models.ReservationStatusPending, now).
		Find(&reservations).Error
	return reservations, err
}

// ListByUser 获取用户的预订记录
func (r *ReservationRepository) ListByUser(userID int64, limit int) ([]models.TicketReservation, error) {
	var reservations []models.TicketReservation
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&reservations).Error
	return reservations, err
}
