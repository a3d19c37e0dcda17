// Package service 活动生命周期状态机
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
	"gorm.io/gorm"
)

// ReasonAutoUpdate 自动状态更新的审计原因
const ReasonAutoUpdate = "automatic update"

// stateTransitions 运营人员可发起的阶段变更表，表外变更一律拒绝
var stateTransitions = map[models.RaffleState][]models.RaffleState{
	models.RaffleStateComingSoon: {models.RaffleStateOpen, models.RaffleStateEnded},
	models.RaffleStateOpen:       {models.RaffleStatePaused, models.RaffleStateEnded},
	models.RaffleStatePaused:     {models.RaffleStateOpen, models.RaffleStateEnded},
}

// validateStateTransition 校验运营发起的阶段变更是否在变更表内
func validateStateTransition(from, to models.RaffleState) error {
	for _, allowed := range stateTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// validateActivation 校验活动能否激活
func validateActivation(r *models.Raffle, poolLocked bool, now time.Time) error {
	if r.Status == models.RaffleStatusCancelled {
		return fmt.Errorf("%w: 活动已取消", ErrInvalidTransition)
	}
	if r.PrizePoolID == nil {
		return fmt.Errorf("%w: 活动未绑定奖池", ErrInvalidTransition)
	}
	if !now.Before(r.EndTime) {
		return fmt.Errorf("%w: 活动已超过结束时间", ErrInvalidTransition)
	}
	if !poolLocked {
		return fmt.Errorf("%w: 奖池未锁定", ErrInvalidTransition)
	}
	return nil
}

// LifecycleService 活动生命周期状态机
// Raffle 的状态与阶段只允许通过本服务变更，每次变更都追加审计记录
type LifecycleService struct {
	db          *gorm.DB
	raffleRepo  *repository.RaffleRepository
	ticketRepo  *repository.TicketRepository
	historyRepo *repository.HistoryRepository
	pools       PrizePoolAllocator
	sched       TaskScheduler
	notifier    Notifier
	nowFn       func() time.Time
}

// NewLifecycleService 创建生命周期状态机
func NewLifecycleService(db *gorm.DB, pools PrizePoolAllocator, sched TaskScheduler, notifier Notifier) *LifecycleService {
	return &LifecycleService{
		db:          db,
		raffleRepo:  repository.NewRaffleRepository(db),
		ticketRepo:  repository.NewTicketRepository(db),
		historyRepo: repository.NewHistoryRepository(db),
		pools:       pools,
		sched:       sched,
		notifier:    notifier,
		nowFn:       time.Now,
	}
}

// SetClock 注入时钟（用于测试）
func (s *LifecycleService) SetClock(fn func() time.Time) {
	s.nowFn = fn
}

// CreateRaffleRequest 创建活动请求
type CreateRaffleRequest struct {
	Title             string
	StartTime         time.Time
	EndTime           time.Time
	TotalTickets      int
	TicketPrice       int
	PrizePoolID       *uint
	InstantWinNumbers []int // 可即时开奖的票号，可为空
}

// CreateRaffle 创建活动并批量生成可售票券
func (s *LifecycleService) CreateRaffle(req *CreateRaffleRequest) (*models.Raffle, error) {
	if !req.StartTime.Before(req.EndTime) {
		return nil, fmt.Errorf("%w: 开始时间必须早于结束时间", ErrInvalidTransition)
	}
	if req.TotalTickets <= 0 {
		return nil, fmt.Errorf("%w: 票券总数必须为正", ErrInvalidQuantity)
	}

	instantWin := make(map[int]bool, len(req.InstantWinNumbers))
	for _, n := range req.InstantWinNumbers {
		instantWin[n] = true
	}

	now := s.nowFn()
	raffle := &models.Raffle{
		Title:        req.Title,
		Status:       models.RaffleStatusInactive,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		TotalTickets: req.TotalTickets,
		TicketPrice:  req.TicketPrice,
		PrizePoolID:  req.PrizePoolID,
	}
	raffle.State = raffle.DeriveState(now)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.raffleRepo.WithTx(tx).Create(raffle); err != nil {
			return translateDBError(err)
		}

		tickets := make([]models.Ticket, 0, req.TotalTickets)
		for i := 1; i <= req.TotalTickets; i++ {
			tickets = append(tickets, models.Ticket{
				RaffleID:           raffle.ID,
				TicketNumber:       i,
				Status:             models.TicketStatusAvailable,
				InstantWinEligible: instantWin[i],
			})
		}
		if err := s.ticketRepo.WithTx(tx).BulkCreate(tickets); err != nil {
			return translateDBError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("raffle_id", raffle.ID).
		Int("tickets", req.TotalTickets).
		Msg("活动创建成功")
	return raffle, nil
}

// GetRaffle 获取活动；读取时顺带纠正滞后的运行阶段
func (s *LifecycleService) GetRaffle(raffleID uint) (*models.Raffle, error) {
	return s.UpdateState(raffleID)
}

// AvailableTickets 活动当前可售票数
func (s *LifecycleService) AvailableTickets(raffleID uint) (int64, error) {
	count, err := s.ticketRepo.CountAvailable(raffleID)
	if err != nil {
		return 0, translateDBError(err)
	}
	return count, nil
}

// ListRaffles 按创建时间倒序列出活动
func (s *LifecycleService) ListRaffles(limit int) ([]models.Raffle, error) {
	raffles, err := s.raffleRepo.List(limit)
	if err != nil {
		return nil, translateDBError(err)
	}
	return raffles, nil
}

// History 获取活动的状态变更审计记录
func (s *LifecycleService) History(raffleID uint) ([]models.RaffleHistory, error) {
	histories, err := s.historyRepo.ListByRaffle(raffleID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return histories, nil
}

// UpdateState 重新推导运行阶段；发生变化时落库并追加审计记录
func (s *LifecycleService) UpdateState(raffleID uint) (*models.Raffle, error) {
	now := s.nowFn()
	var raffle *models.Raffle
	var previous models.RaffleState
	changed := false

	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}

		newState := r.DeriveState(now)
		if newState == r.State {
			raffle = r
			return nil
		}

		prev := r.Lifecycle()
		previous = prev.State
		if err := s.appendHistory(tx, r, prev, newState, ReasonAutoUpdate, "system"); err != nil {
			return err
		}
		r.State = newState
		if err := s.raffleRepo.WithTx(tx).UpdateLifecycle(r.ID, r.Status, r.State); err != nil {
			return translateDBError(err)
		}
		raffle = r
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logger.Info().
			Uint("raffle_id", raffle.ID).
			Str("from", string(previous)).
			Str("to", string(raffle.State)).
			Msg("活动阶段自动更新")
		s.notifier.RaffleStateChanged(raffle, previous, ReasonAutoUpdate)
	}
	return raffle, nil
}

// Activate 激活活动并调度未来的阶段流转任务
func (s *LifecycleService) Activate(raffleID uint, changedBy string) (*models.Raffle, error) {
	now := s.nowFn()
	var raffle *models.Raffle
	var previous models.RaffleState

	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}

		poolLocked := false
		if r.PrizePoolID != nil {
			locked, err := s.pools.IsLocked(*r.PrizePoolID)
			if err != nil {
				return fmt.Errorf("%w: 查询奖池失败: %v", ErrDependencyFailure, err)
			}
			poolLocked = locked
		}
		if err := validateActivation(r, poolLocked, now); err != nil {
			return err
		}

		prev := r.Lifecycle()
		previous = prev.State
		r.Status = models.RaffleStatusActive
		newState := r.DeriveState(now)
		if err := s.appendHistory(tx, r, prev, newState, "activated", changedBy); err != nil {
			return err
		}
		r.State = newState
		if err := s.raffleRepo.WithTx(tx).UpdateLifecycle(r.ID, r.Status, r.State); err != nil {
			return translateDBError(err)
		}
		raffle = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 调度阶段流转任务；处理器执行时会基于最新数据重新推导，滞后任务自然落空
	if raffle.State == models.RaffleStateComingSoon {
		if _, err := s.sched.Schedule(models.TaskStateTransition, raffle.ID, raffle.StartTime, ""); err != nil {
			logger.Warn().Err(err).Uint("raffle_id", raffle.ID).Msg("调度开售流转任务失败")
		}
	}
	if _, err := s.sched.Schedule(models.TaskStateTransition, raffle.ID, raffle.EndTime, ""); err != nil {
		logger.Warn().Err(err).Uint("raffle_id", raffle.ID).Msg("调度结束流转任务失败")
	}

	logger.Info().
		Uint("raffle_id", raffle.ID).
		Str("state", string(raffle.State)).
		Str("changed_by", changedBy).
		Msg("活动已激活")
	s.notifier.RaffleStateChanged(raffle, previous, "activated")
	return raffle, nil
}

// Deactivate 停用活动
// 已调度的未来任务不取消，处理器会在执行时重新校验
func (s *LifecycleService) Deactivate(raffleID uint, changedBy string) (*models.Raffle, error) {
	now := s.nowFn()
	var raffle *models.Raffle
	var previous models.RaffleState

	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		if r.Status == models.RaffleStatusInactive || r.Status == models.RaffleStatusCancelled {
			return fmt.Errorf("%w: 活动当前状态为 %s", ErrInvalidTransition, r.Status)
		}

		prev := r.Lifecycle()
		previous = prev.State
		r.Status = models.RaffleStatusInactive
		newState := r.DeriveState(now)
		if err := s.appendHistory(tx, r, prev, newState, "deactivated", changedBy); err != nil {
			return err
		}
		r.State = newState
		if err := s.raffleRepo.WithTx(tx).UpdateLifecycle(r.ID, r.Status, r.State); err != nil {
			return translateDBError(err)
		}
		raffle = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("raffle_id", raffle.ID).
		Str("changed_by", changedBy).
		Msg("活动已停用")
	s.notifier.RaffleStateChanged(raffle, previous, "deactivated")
	return raffle, nil
}

// Cancel 取消活动；仅允许从 inactive 状态取消，取消后阶段强制为 ended
func (s *LifecycleService) Cancel(raffleID uint, changedBy string) (*models.Raffle, error) {
	var raffle *models.Raffle
	var previous models.RaffleState

	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		if r.Status != models.RaffleStatusInactive {
			return fmt.Errorf("%w: 只有未激活的活动可以取消，当前状态为 %s", ErrInvalidTransition, r.Status)
		}

		prev := r.Lifecycle()
		previous = prev.State
		r.Status = models.RaffleStatusCancelled
		if err := s.appendHistory(tx, r, prev, models.RaffleStateEnded, "cancelled", changedBy); err != nil {
			return err
		}
		r.State = models.RaffleStateEnded
		if err := s.raffleRepo.WithTx(tx).UpdateLifecycle(r.ID, r.Status, r.State); err != nil {
			return translateDBError(err)
		}
		raffle = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("raffle_id", raffle.ID).
		Str("changed_by", changedBy).
		Msg("活动已取消")
	s.notifier.RaffleStateChanged(raffle, previous, "cancelled")
	return raffle, nil
}

// AdminUpdateState 运营人员显式变更运行阶段，按变更表校验
// 阶段始终从状态与时间窗口推导，因此落地方式是调整推导的输入：
// paused 置 status=inactive，open 置 status=active，ended 将结束时间提前到当前时刻
func (s *LifecycleService) AdminUpdateState(raffleID uint, newState models.RaffleState, reason, changedBy string) (*models.Raffle, error) {
	now := s.nowFn()
	var raffle *models.Raffle
	var previous models.RaffleState

	err := s.db.Transaction(func(tx *gorm.DB) error {
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}

		current := r.DeriveState(now)
		if err := validateStateTransition(current, newState); err != nil {
			return err
		}

		// 历史记录里的前置阶段使用推导值，持久化字段可能滞后
		prev := r.Lifecycle()
		prev.State = current
		previous = current
		switch newState {
		case models.RaffleStatePaused:
			r.Status = models.RaffleStatusInactive
		case models.RaffleStateOpen:
			r.Status = models.RaffleStatusActive
		case models.RaffleStateEnded:
			r.EndTime = now
		}

		derived := r.DeriveState(now)
		if derived != newState {
			return fmt.Errorf("%w: 当前时间窗口无法达到阶段 %s", ErrInvalidTransition, newState)
		}

		if err := s.appendHistory(tx, r, prev, newState, reason, changedBy); err != nil {
			return err
		}
		r.State = newState
		if err := s.raffleRepo.WithTx(tx).Update(r); err != nil {
			return translateDBError(err)
		}
		raffle = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Uint("raffle_id", raffle.ID).
		Str("from", string(previous)).
		Str("to", string(raffle.State)).
		Str("reason", reason).
		Str("changed_by", changedBy).
		Msg("运营变更活动阶段")
	s.notifier.RaffleStateChanged(raffle, previous, reason)
	return raffle, nil
}

// appendHistory 追加一条状态变更审计记录
func (s *LifecycleService) appendHistory(tx *gorm.DB, r *models.Raffle, prev models.RaffleLifecycle, newState models.RaffleState, reason, changedBy string) error {
	history := &models.RaffleHistory{
		RaffleID:       r.ID,
		PreviousStatus: prev.Status,
		NewStatus:      r.Status,
		PreviousState:  prev.State,
		NewState:       newState,
		Reason:         reason,
		ChangedBy:      changedBy,
	}
	if err := s.historyRepo.WithTx(tx).Create(history); err != nil {
		return translateDBError(err)
	}
	return nil
}

// IsNotFound 判断错误是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
