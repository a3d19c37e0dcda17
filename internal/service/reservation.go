// Package service 票券预订服务
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
	"github.com/smysle/sakura-raffle-go/pkg/utils"
	"gorm.io/gorm"
)

// createAttempts 预订创建在并发冲突下的最大重试次数
const createAttempts = 3

// ReservationService 票券预订服务
// 在结算期间对随机选出的一组票券做限时持有
type ReservationService struct {
	db         *gorm.DB
	raffleRepo *repository.RaffleRepository
	ticketRepo *repository.TicketRepository
	resvRepo   *repository.ReservationRepository
	cfg        *config.Config
	picker     utils.Picker
	nowFn      func() time.Time
}

// NewReservationService 创建票券预订服务
func NewReservationService(db *gorm.DB, cfg *config.Config) *ReservationService {
	return &ReservationService{
		db:         db,
		raffleRepo: repository.NewRaffleRepository(db),
		ticketRepo: repository.NewTicketRepository(db),
		resvRepo:   repository.NewReservationRepository(db),
		cfg:        cfg,
		picker:     utils.NewPicker(),
		nowFn:      time.Now,
	}
}

// SetClock 注入时钟（用于测试）
func (s *ReservationService) SetClock(fn func() time.Time) {
	s.nowFn = fn
}

// SetPicker 注入随机源（用于测试）
func (s *ReservationService) SetPicker(p utils.Picker) {
	s.picker = p
}

// timeout 预订保留时长
func (s *ReservationService) timeout() time.Duration {
	return time.Duration(s.cfg.Reservation.TimeoutMinutes) * time.Minute
}

// Create 创建预订：随机抽取若干可售票券并原子标记为已预订
func (s *ReservationService) Create(userID int64, raffleID uint, quantity int) (*models.TicketReservation, error) {
	if quantity <= 0 || quantity > s.cfg.Reservation.MaxQuantity {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}

	var reservation *models.TicketReservation
	for attempt := 0; attempt < createAttempts; attempt++ {
		res, err := s.tryCreate(userID, raffleID, quantity)
		if err == nil {
			reservation = res
			break
		}
		if errors.Is(err, ErrConcurrencyConflict) {
			logger.Warn().
				Uint("raffle_id", raffleID).
				Int64("user_id", userID).
				Int("attempt", attempt+1).
				Msg("预订创建遇到并发冲突，重试")
			continue
		}
		return nil, err
	}
	if reservation == nil {
		return nil, ErrConcurrencyConflict
	}

	logger.Info().
		Str("uuid", reservation.UUID).
		Int64("user_id", userID).
		Uint("raffle_id", raffleID).
		Int("quantity", quantity).
		Int("total_amount", reservation.TotalAmount).
		Msg("预订创建成功")
	return reservation, nil
}

// tryCreate 单次预订创建事务
func (s *ReservationService) tryCreate(userID int64, raffleID uint, quantity int) (*models.TicketReservation, error) {
	now := s.nowFn()
	var reservation *models.TicketReservation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 活动行锁串行化同一活动上的并发预订
		raffle, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		if !raffle.IsOpenForSale(now) {
			return fmt.Errorf("%w: 当前阶段为 %s", ErrRaffleNotOpen, raffle.DeriveState(now))
		}

		availableIDs, err := s.ticketRepo.WithTx(tx).AvailableIDsForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		if len(availableIDs) < quantity {
			return fmt.Errorf("%w: 剩余 %d 张，请求 %d 张", ErrInsufficientInventory, len(availableIDs), quantity)
		}

		picked := make([]uint, 0, quantity)
		for _, idx := range utils.SampleIndexes(s.picker, len(availableIDs), quantity) {
			picked = append(picked, availableIDs[idx])
		}

		rows, err := s.ticketRepo.WithTx(tx).Reserve(picked, userID, now)
		if err != nil {
			return translateDBError(err)
		}
		if rows != int64(quantity) {
			return ErrConcurrencyConflict
		}

		res := &models.TicketReservation{
			UUID:        uuid.New().String(),
			UserID:      userID,
			RaffleID:    raffleID,
			TotalAmount: quantity * raffle.TicketPrice,
			Status:      models.ReservationStatusPending,
			ExpiresAt:   now.Add(s.timeout()),
		}
		if err := res.SetTicketIDs(picked); err != nil {
			return fmt.Errorf("序列化票券列表失败: %w", err)
		}
		if err := s.resvRepo.WithTx(tx).Create(res); err != nil {
			return translateDBError(err)
		}
		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// Get 获取预订；读取到已超时的待支付预订时同步做过期处理
func (s *ReservationService) Get(uuidStr string, userID int64) (*models.TicketReservation, error) {
	res, err := s.resvRepo.GetByUUID(uuidStr)
	if err != nil {
		return nil, translateDBError(err)
	}
	if res.UserID != userID {
		return nil, ErrNotFound
	}

	if res.Status == models.ReservationStatusPending && res.IsExpired(s.nowFn()) {
		if err := s.expireOne(res); err != nil {
			logger.Warn().Err(err).Str("uuid", res.UUID).Msg("读取时过期处理失败")
		}
		return nil, ErrReservationExpired
	}
	return res, nil
}

// completionStep 按预订当前状态判定完成动作（纯函数）
// 已完成的预订直接视为成功，重复完成与完成一次结果一致
func completionStep(status models.ReservationStatus) (alreadyDone bool, err error) {
	switch status {
	case models.ReservationStatusCompleted:
		return true, nil
	case models.ReservationStatusExpired:
		return false, ErrReservationExpired
	case models.ReservationStatusCancelled:
		return false, fmt.Errorf("%w: 预订已取消", ErrInvalidTransition)
	}
	return false, nil
}

// Complete 支付完成后兑现预订：票券 reserved -> sold
// 幂等：重复完成同一预订直接返回成功
func (s *ReservationService) Complete(uuidStr, transactionID string) (*models.TicketReservation, error) {
	now := s.nowFn()
	var reservation *models.TicketReservation

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res, err := s.resvRepo.WithTx(tx).GetByUUIDForUpdate(uuidStr)
		if err != nil {
			return translateDBError(err)
		}

		done, err := completionStep(res.Status)
		if err != nil {
			return err
		}
		if done {
			reservation = res
			return nil
		}

		ids, err := res.TicketIDList()
		if err != nil {
			return fmt.Errorf("解析票券列表失败: %w", err)
		}

		rows, err := s.ticketRepo.WithTx(tx).MarkSold(ids, res.UserID, now)
		if err != nil {
			return translateDBError(err)
		}
		if rows != int64(len(ids)) {
			return fmt.Errorf("%w: 预期售出 %d 张，实际 %d 张", ErrConcurrencyConflict, len(ids), rows)
		}

		if _, err := s.resvRepo.WithTx(tx).Complete(res.UUID, transactionID, now); err != nil {
			return translateDBError(err)
		}

		res.Status = models.ReservationStatusCompleted
		res.TransactionID = &transactionID
		res.PurchaseTime = &now
		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("uuid", reservation.UUID).
		Str("transaction_id", transactionID).
		Msg("预订完成，票券已售出")
	return reservation, nil
}

// Cancel 用户主动取消待支付预订，票券释放回可售池
func (s *ReservationService) Cancel(uuidStr string, userID int64) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res, err := s.resvRepo.WithTx(tx).GetByUUIDForUpdate(uuidStr)
		if err != nil {
			return translateDBError(err)
		}
		if res.UserID != userID {
			return ErrNotFound
		}
		if res.Status != models.ReservationStatusPending {
			return fmt.Errorf("%w: 预订当前状态为 %s", ErrInvalidTransition, res.Status)
		}

		return s.releaseTicketsGuarded(tx, res, models.ReservationStatusCancelled)
	})
	if err != nil {
		return err
	}

	logger.Info().Str("uuid", uuidStr).Int64("user_id", userID).Msg("预订已取消")
	return nil
}

// SweepResult 过期清理结果
type SweepResult struct {
	Checked         int // 检查的预订数
	Expired         int // 置为过期的预订数
	TicketsReleased int // 释放回可售池的票券数
}

// Sweep 过期清理：释放所有超时的待支付预订
func (s *ReservationService) Sweep() (*SweepResult, error) {
	now := s.nowFn()
	expired, err := s.resvRepo.ListExpiredPending(now)
	if err != nil {
		return nil, translateDBError(err)
	}

	result := &SweepResult{Checked: len(expired)}
	for i := range expired {
		res := &expired[i]
		if err := s.expireOne(res); err != nil {
			logger.Warn().Err(err).Str("uuid", res.UUID).Msg("预订过期处理失败")
			continue
		}
		result.Expired++
		result.TicketsReleased += res.Quantity
	}

	if result.Expired > 0 {
		logger.Info().
			Int("expired", result.Expired).
			Int("tickets_released", result.TicketsReleased).
			Msg("过期预订清理完成")
	}
	return result, nil
}

// expireOne 将单个预订置为过期并释放票券
func (s *ReservationService) expireOne(res *models.TicketReservation) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.releaseTicketsGuarded(tx, res, models.ReservationStatusExpired)
	})
}

// releaseTicketsGuarded 条件变更预订状态后释放票券；状态已被他处变更时跳过
func (s *ReservationService) releaseTicketsGuarded(tx *gorm.DB, res *models.TicketReservation, to models.ReservationStatus) error {
	rows, err := s.resvRepo.WithTx(tx).SetStatus(res.UUID, models.ReservationStatusPending, to)
	if err != nil {
		return translateDBError(err)
	}
	if rows == 0 {
		// 已被完成/取消/过期，无需释放
		return nil
	}

	ids, err := res.TicketIDList()
	if err != nil {
		return fmt.Errorf("解析票券列表失败: %w", err)
	}
	if _, err := s.ticketRepo.WithTx(tx).Release(ids); err != nil {
		return translateDBError(err)
	}
	return nil
}

// Reveal 持有者翻开已售票券
func (s *ReservationService) Reveal(ticketID uint, userID int64) error {
	rows, err := s.ticketRepo.Reveal(ticketID, userID, s.nowFn())
	if err != nil {
		return translateDBError(err)
	}
	if rows == 0 {
		if _, err := s.ticketRepo.GetByID(ticketID); err != nil {
			return translateDBError(err)
		}
		return fmt.Errorf("%w: 票券不可翻开", ErrInvalidTransition)
	}
	return nil
}

// ListByUser 获取用户的预订记录
func (s *ReservationService) ListByUser(userID int64, limit int) ([]models.TicketReservation, error) {
	if limit <= 0 {
		limit = 20
	}
	list, err := s.resvRepo.ListByUser(userID, limit)
	if err != nil {
		return nil, translateDBError(err)
	}
	return list, nil
}
