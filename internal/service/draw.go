// Package service 开奖服务
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
	"github.com/smysle/sakura-raffle-go/pkg/utils"
	"gorm.io/gorm"
)

// DrawService 开奖服务
// 每次开奖从未被抽中的票券中等概率抽取一张，消耗一个奖品实例
type DrawService struct {
	db         *gorm.DB
	raffleRepo *repository.RaffleRepository
	ticketRepo *repository.TicketRepository
	drawRepo   *repository.DrawRepository
	pools      PrizePoolAllocator
	notifier   Notifier
	picker     utils.Picker
	nowFn      func() time.Time
}

// NewDrawService 创建开奖服务
func NewDrawService(db *gorm.DB, pools PrizePoolAllocator, notifier Notifier) *DrawService {
	return &DrawService{
		db:         db,
		raffleRepo: repository.NewRaffleRepository(db),
		ticketRepo: repository.NewTicketRepository(db),
		drawRepo:   repository.NewDrawRepository(db),
		pools:      pools,
		notifier:   notifier,
		picker:     utils.NewPicker(),
		nowFn:      time.Now,
	}
}

// SetClock 注入时钟（用于测试）
func (s *DrawService) SetClock(fn func() time.Time) {
	s.nowFn = fn
}

// SetPicker 注入随机源（用于测试）
func (s *DrawService) SetPicker(p utils.Picker) {
	s.picker = p
}

// eligibleFilter 从全部票券中剔除已被开奖记录引用的票券（纯函数）
// 只有已抽中的票券被排除，未中奖票券继续参与后续开奖
func eligibleFilter(tickets []models.Ticket, drawnIDs map[uint]bool) []models.Ticket {
	eligible := make([]models.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if !drawnIDs[t.ID] {
			eligible = append(eligible, t)
		}
	}
	return eligible
}

// drawResult 根据票券归属判定开奖结果（纯函数）
// 抽到未售出票券时结果为 no_winner，不重抽
func drawResult(ticket *models.Ticket) models.DrawResult {
	if ticket.IsOwned() {
		return models.DrawResultWinner
	}
	return models.DrawResultNoWinner
}

// ExecuteDraw 执行一次开奖，整个过程在一个事务内
func (s *DrawService) ExecuteDraw(raffleID uint, requestedBy string) (*models.RaffleDraw, error) {
	now := s.nowFn()
	var draw *models.RaffleDraw
	var raffle *models.Raffle

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 活动行锁串行化同一活动上的并发开奖，保证序号连续
		r, err := s.raffleRepo.WithTx(tx).GetByIDForUpdate(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		if !r.IsEnded(now) {
			return fmt.Errorf("%w: 活动尚未结束，当前阶段为 %s", ErrInvalidTransition, r.DeriveState(now))
		}
		if r.PrizePoolID == nil {
			return fmt.Errorf("%w: 活动未绑定奖池", ErrInvalidTransition)
		}

		previous, err := s.drawRepo.WithTx(tx).ListByRaffle(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		limit, err := s.pools.DrawInstanceCount(*r.PrizePoolID)
		if err != nil {
			return fmt.Errorf("%w: 查询奖池失败: %v", ErrDependencyFailure, err)
		}
		if len(previous) >= limit {
			return ErrAllDrawsComplete
		}

		tickets, err := s.ticketRepo.WithTx(tx).ListByRaffle(raffleID)
		if err != nil {
			return translateDBError(err)
		}
		drawnIDs := make(map[uint]bool, len(previous))
		for _, d := range previous {
			drawnIDs[d.TicketID] = true
		}
		eligible := eligibleFilter(tickets, drawnIDs)
		if len(eligible) == 0 {
			return ErrNoEligibleTickets
		}

		picked := eligible[utils.PickIndex(s.picker, len(eligible))]

		d := &models.RaffleDraw{
			RaffleID:     raffleID,
			TicketID:     picked.ID,
			DrawSequence: len(previous) + 1,
			Result:       drawResult(&picked),
			RequestedBy:  requestedBy,
			DrawnAt:      now,
		}
		if err := s.drawRepo.WithTx(tx).Create(d); err != nil {
			return translateDBError(err)
		}

		// 绑定下一个奖品实例并回填处理时间
		instance, err := s.pools.NextDrawInstance(tx, *r.PrizePoolID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrNotFound) {
				return ErrAllDrawsComplete
			}
			return fmt.Errorf("%w: 获取奖品实例失败: %v", ErrDependencyFailure, err)
		}
		if err := s.pools.AssignInstance(tx, instance.ID, picked.ID, now); err != nil {
			return fmt.Errorf("%w: 分配奖品实例失败: %v", ErrDependencyFailure, err)
		}
		if err := s.drawRepo.WithTx(tx).MarkProcessed(d.ID, instance.ID, now); err != nil {
			return translateDBError(err)
		}

		d.PrizeInstanceID = &instance.ID
		d.ProcessedAt = &now
		draw = d
		raffle = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.CacheDelete(utils.WinnersCacheKey(raffleID))

	logger.Info().
		Uint("raffle_id", raffleID).
		Int("sequence", draw.DrawSequence).
		Uint("ticket_id", draw.TicketID).
		Str("result", string(draw.Result)).
		Str("requested_by", requestedBy).
		Msg("开奖完成")
	s.notifier.DrawCompleted(raffle, draw)
	return draw, nil
}

// ExecuteMultipleDraws 连续执行多次开奖；达到开奖上限时提前停止，不视为错误
func (s *DrawService) ExecuteMultipleDraws(raffleID uint, count int, requestedBy string) ([]models.RaffleDraw, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQuantity, count)
	}

	draws := make([]models.RaffleDraw, 0, count)
	for i := 0; i < count; i++ {
		draw, err := s.ExecuteDraw(raffleID, requestedBy)
		if err != nil {
			if errors.Is(err, ErrAllDrawsComplete) {
				break
			}
			return draws, err
		}
		draws = append(draws, *draw)
	}
	return draws, nil
}

// CompletedDraws 活动已完成的开奖次数
func (s *DrawService) CompletedDraws(raffleID uint) (int64, error) {
	count, err := s.drawRepo.CountByRaffle(raffleID)
	if err != nil {
		return 0, translateDBError(err)
	}
	return count, nil
}

// GetRaffleWinners 获取活动的中奖名单（短缓存）
func (s *DrawService) GetRaffleWinners(raffleID uint) ([]repository.WinnerRow, error) {
	val, err := utils.CacheGetOrSet(utils.WinnersCacheKey(raffleID), 30*time.Second, func() (interface{}, error) {
		rows, err := s.drawRepo.ListWinnersByRaffle(raffleID)
		if err != nil {
			return nil, translateDBError(err)
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return val.([]repository.WinnerRow), nil
}

// GetRaffleResults 获取活动的全部开奖记录，轮空记录一并返回
func (s *DrawService) GetRaffleResults(raffleID uint) ([]repository.WinnerRow, error) {
	rows, err := s.drawRepo.ListResultsByRaffle(raffleID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return rows, nil
}

// GetUserWins 获取用户的全部中奖记录
func (s *DrawService) GetUserWins(userID int64) ([]repository.WinnerRow, error) {
	rows, err := s.drawRepo.ListWinsByUser(userID)
	if err != nil {
		return nil, translateDBError(err)
	}
	return rows, nil
}

// DrawVerification 开奖一致性核验结果
type DrawVerification struct {
	DrawID   uint     `json:"draw_id"`
	RaffleID uint     `json:"raffle_id"`
	OK       bool     `json:"ok"`
	Problems []string `json:"problems,omitempty"`
}

// verifyDraws 核验一组开奖记录（纯函数）：
// 序号从 1 连续、票券不重复、结果与票券归属一致
func verifyDraws(draws []models.RaffleDraw, owned map[uint]bool) []string {
	var problems []string

	seenSequence := make(map[int]bool, len(draws))
	seenTicket := make(map[uint]bool, len(draws))
	for _, d := range draws {
		if seenSequence[d.DrawSequence] {
			problems = append(problems, fmt.Sprintf("序号 %d 重复", d.DrawSequence))
		}
		seenSequence[d.DrawSequence] = true

		if seenTicket[d.TicketID] {
			problems = append(problems, fmt.Sprintf("票券 %d 出现在多条开奖记录中", d.TicketID))
		}
		seenTicket[d.TicketID] = true

		expected := models.DrawResultNoWinner
		if owned[d.TicketID] {
			expected = models.DrawResultWinner
		}
		if d.Result != expected {
			problems = append(problems, fmt.Sprintf("序号 %d 结果 %s 与票券归属不符", d.DrawSequence, d.Result))
		}
	}

	for i := 1; i <= len(draws); i++ {
		if !seenSequence[i] {
			problems = append(problems, fmt.Sprintf("序号缺失: %d", i))
		}
	}
	return problems
}

// VerifyDrawResult 核验单次开奖及其所属活动的全部开奖记录，用于审计
func (s *DrawService) VerifyDrawResult(drawID uint) (*DrawVerification, error) {
	draw, err := s.drawRepo.GetByID(drawID)
	if err != nil {
		return nil, translateDBError(err)
	}

	draws, err := s.drawRepo.ListByRaffle(draw.RaffleID)
	if err != nil {
		return nil, translateDBError(err)
	}

	ticketIDs := make([]uint, 0, len(draws))
	for _, d := range draws {
		ticketIDs = append(ticketIDs, d.TicketID)
	}
	tickets, err := s.ticketRepo.GetByIDs(ticketIDs)
	if err != nil {
		return nil, translateDBError(err)
	}
	owned := make(map[uint]bool, len(tickets))
	for _, t := range tickets {
		owned[t.ID] = t.IsOwned()
	}

	problems := verifyDraws(draws, owned)
	return &DrawVerification{
		DrawID:   drawID,
		RaffleID: draw.RaffleID,
		OK:       len(problems) == 0,
		Problems: problems,
	}, nil
}
