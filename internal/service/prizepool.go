// Package service 奖池服务
package service

import (
	"fmt"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
	"gorm.io/gorm"
)

// 编译期检查 PrizePoolService 实现了分配契约
var _ PrizePoolAllocator = (*PrizePoolService)(nil)

// PrizePoolService 奖池服务
// 只负责实例的锁定与顺序分配，奖品配置与概率计算不在本服务范围内
type PrizePoolService struct {
	prizeRepo *repository.PrizeRepository
}

// NewPrizePoolService 创建奖池服务
func NewPrizePoolService(db *gorm.DB) *PrizePoolService {
	return &PrizePoolService{
		prizeRepo: repository.NewPrizeRepository(db),
	}
}

// CreatePoolRequest 创建奖池请求
type CreatePoolRequest struct {
	Name   string
	Prizes []PrizeSpec
}

// PrizeSpec 单个奖品说明
type PrizeSpec struct {
	Name  string
	Value int
}

// CreatePool 创建奖池及其奖品实例
func (s *PrizePoolService) CreatePool(req *CreatePoolRequest) (*models.PrizePool, error) {
	if len(req.Prizes) == 0 {
		return nil, fmt.Errorf("%w: 奖池至少需要一个奖品", ErrInvalidQuantity)
	}

	pool := &models.PrizePool{
		Name:         req.Name,
		DrawWinCount: len(req.Prizes),
	}
	if err := s.prizeRepo.CreatePool(pool); err != nil {
		return nil, translateDBError(err)
	}

	instances := make([]models.PrizeInstance, 0, len(req.Prizes))
	for i, p := range req.Prizes {
		instances = append(instances, models.PrizeInstance{
			PrizePoolID: pool.ID,
			Sequence:    i + 1,
			Name:        p.Name,
			Value:       p.Value,
		})
	}
	if err := s.prizeRepo.CreateInstances(instances); err != nil {
		return nil, translateDBError(err)
	}

	logger.Info().Uint("pool_id", pool.ID).Int("prizes", len(instances)).Msg("奖池创建成功")
	return pool, nil
}

// Lock 锁定奖池；活动激活前必须锁定
func (s *PrizePoolService) Lock(poolID uint) error {
	if _, err := s.prizeRepo.GetPool(poolID); err != nil {
		return translateDBError(err)
	}
	if err := s.prizeRepo.SetLocked(poolID, true); err != nil {
		return translateDBError(err)
	}
	logger.Info().Uint("pool_id", poolID).Msg("奖池已锁定")
	return nil
}

// IsLocked 查询奖池是否已锁定
func (s *PrizePoolService) IsLocked(poolID uint) (bool, error) {
	pool, err := s.prizeRepo.GetPool(poolID)
	if err != nil {
		return false, translateDBError(err)
	}
	return pool.Locked, nil
}

// DrawInstanceCount 查询奖池的开奖型奖品实例数
func (s *PrizePoolService) DrawInstanceCount(poolID uint) (int, error) {
	pool, err := s.prizeRepo.GetPool(poolID)
	if err != nil {
		return 0, translateDBError(err)
	}
	return pool.DrawWinCount, nil
}

// NextDrawInstance 取下一个未分配的奖品实例（开奖事务内调用）
func (s *PrizePoolService) NextDrawInstance(tx *gorm.DB, poolID uint) (*models.PrizeInstance, error) {
	instance, err := s.prizeRepo.WithTx(tx).NextUnassignedForUpdate(poolID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return instance, nil
}

// AssignInstance 将奖品实例分配给票券（开奖事务内调用）
func (s *PrizePoolService) AssignInstance(tx *gorm.DB, instanceID, ticketID uint, at time.Time) error {
	rows, err := s.prizeRepo.WithTx(tx).AssignInstance(instanceID, ticketID, at)
	if err != nil {
		return translateDBError(err)
	}
	if rows == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}
