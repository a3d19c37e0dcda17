package web

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/database/repository"
	"github.com/smysle/sakura-raffle-go/internal/service"
	"github.com/smysle/sakura-raffle-go/pkg/imggen"
	pkglogger "github.com/smysle/sakura-raffle-go/pkg/logger"
)

// currentUser 从请求头解析用户身份
func currentUser(c *fiber.Ctx) (int64, error) {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return 0, fmt.Errorf("缺少 X-User-ID")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// paramID 解析路径中的数字 ID
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := c.ParamsInt(name)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的 %s", name)
	}
	return uint(id), nil
}

// ---- 活动 ----

// CreateRaffleRequest 创建活动请求
type CreateRaffleRequest struct {
	Title             string    `json:"title"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	TotalTickets      int       `json:"total_tickets"`
	TicketPrice       int       `json:"ticket_price"`
	PrizePoolID       *uint     `json:"prize_pool_id,omitempty"`
	InstantWinNumbers []int     `json:"instant_win_numbers,omitempty"`
}

// createRaffle 创建活动
func (s *Server) createRaffle(c *fiber.Ctx) error {
	var req CreateRaffleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的请求体",
		})
	}

	raffle, err := s.lifecycle.CreateRaffle(&service.CreateRaffleRequest{
		Title:             req.Title,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		TotalTickets:      req.TotalTickets,
		TicketPrice:       req.TicketPrice,
		PrizePoolID:       req.PrizePoolID,
		InstantWinNumbers: req.InstantWinNumbers,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(raffle)
}

// listRaffles 列出活动
func (s *Server) listRaffles(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	raffles, err := s.lifecycle.ListRaffles(limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"raffles": raffles})
}

// getRaffle 获取活动详情
func (s *Server) getRaffle(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	raffle, err := s.lifecycle.GetRaffle(id)
	if err != nil {
		return errorResponse(c, err)
	}

	available, err := s.lifecycle.AvailableTickets(id)
	if err != nil {
		return errorResponse(c, err)
	}
	drawsDone, err := s.drawSvc.CompletedDraws(id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(fiber.Map{
		"raffle":            raffle,
		"available_tickets": available,
		"draws_completed":   drawsDone,
	})
}

// getHistory 获取活动审计记录
func (s *Server) getHistory(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	histories, err := s.lifecycle.History(id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"history": histories})
}

// activateRaffle 激活活动
func (s *Server) activateRaffle(c *fiber.Ctx) error {
	return s.lifecycleAction(c, s.lifecycle.Activate)
}

// deactivateRaffle 停用活动
func (s *Server) deactivateRaffle(c *fiber.Ctx) error {
	return s.lifecycleAction(c, s.lifecycle.Deactivate)
}

// cancelRaffle 取消活动
func (s *Server) cancelRaffle(c *fiber.Ctx) error {
	return s.lifecycleAction(c, s.lifecycle.Cancel)
}

// lifecycleAction 激活/停用/取消的公共处理
func (s *Server) lifecycleAction(c *fiber.Ctx, action func(uint, string) (*models.Raffle, error)) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userID, _ := currentUser(c)
	raffle, err := action(id, fmt.Sprintf("admin:%d", userID))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(raffle)
}

// UpdateStateRequest 管理员状态变更请求
type UpdateStateRequest struct {
	State  models.RaffleState `json:"state"`
	Reason string             `json:"reason"`
}

// adminUpdateState 管理员直接变更运行阶段
func (s *Server) adminUpdateState(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var req UpdateStateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的请求体",
		})
	}

	userID, _ := currentUser(c)
	raffle, err := s.lifecycle.AdminUpdateState(id, req.State, req.Reason, fmt.Sprintf("admin:%d", userID))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(raffle)
}

// ---- 开奖 ----

// ExecuteDrawsRequest 开奖请求
type ExecuteDrawsRequest struct {
	Count int `json:"count"`
}

// executeDraws 手动开奖
func (s *Server) executeDraws(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	req := ExecuteDrawsRequest{Count: 1}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "无效的请求体",
			})
		}
	}

	userID, _ := currentUser(c)
	draws, err := s.drawSvc.ExecuteMultipleDraws(id, req.Count, fmt.Sprintf("admin:%d", userID))
	if err != nil && len(draws) == 0 {
		return errorResponse(c, err)
	}

	resp := fiber.Map{"draws": draws}
	if err != nil {
		// 部分成功：返回已完成的开奖与中止原因
		resp["stopped"] = err.Error()
	}
	return c.JSON(resp)
}

// getWinners 获取中奖名单
func (s *Server) getWinners(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	winners, err := s.drawSvc.GetRaffleWinners(id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"winners": winners})
}

// winnersBoardItems 将开奖记录转换为名单图片条目（纯函数）
// 中奖与轮空都保留，轮空条目以 IsWinner=false 标记
func winnersBoardItems(rows []repository.WinnerRow) []imggen.WinnerItem {
	items := make([]imggen.WinnerItem, 0, len(rows))
	for _, w := range rows {
		item := imggen.WinnerItem{
			Sequence:     w.DrawSequence,
			TicketNumber: w.TicketNumber,
			PrizeName:    w.PrizeName,
			IsWinner:     w.Result == models.DrawResultWinner,
		}
		if w.UserID != nil {
			item.Username = fmt.Sprintf("用户 %d", *w.UserID)
		}
		items = append(items, item)
	}
	return items
}

// getWinnersImage 生成中奖名单图片
func (s *Server) getWinnersImage(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	raffle, err := s.lifecycle.GetRaffle(id)
	if err != nil {
		return errorResponse(c, err)
	}
	// 图片展示完整名单，轮空记录也要出现
	results, err := s.drawSvc.GetRaffleResults(id)
	if err != nil {
		return errorResponse(c, err)
	}

	data, err := imggen.GenerateWinnersBoard(imggen.WinnersBoardConfig{
		Title:       raffle.Title,
		Subtitle:    "开奖名单",
		Items:       winnersBoardItems(results),
		FontPath:    s.cfg.Draw.FontPath,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		pkglogger.Error().Err(err).Uint("raffle_id", id).Msg("生成中奖名单图片失败")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "生成图片失败",
		})
	}

	c.Set("Content-Type", "image/png")
	return c.Send(data)
}

// verifyDraw 校验单次开奖记录
func (s *Server) verifyDraw(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	verification, err := s.drawSvc.VerifyDrawResult(id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(verification)
}

// ---- 奖池 ----

// CreatePoolRequest 创建奖池请求
type CreatePoolRequest struct {
	Name   string `json:"name"`
	Prizes []struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	} `json:"prizes"`
}

// createPool 创建奖池
func (s *Server) createPool(c *fiber.Ctx) error {
	var req CreatePoolRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的请求体",
		})
	}

	prizes := make([]service.PrizeSpec, 0, len(req.Prizes))
	for _, p := range req.Prizes {
		prizes = append(prizes, service.PrizeSpec{Name: p.Name, Value: p.Value})
	}

	pool, err := s.pools.CreatePool(&service.CreatePoolRequest{
		Name:   req.Name,
		Prizes: prizes,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(pool)
}

// lockPool 锁定奖池
func (s *Server) lockPool(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.pools.Lock(id); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// ---- 预订 ----

// CreateReservationRequest 创建预订请求
type CreateReservationRequest struct {
	RaffleID uint `json:"raffle_id"`
	Quantity int  `json:"quantity"`
}

// createReservation 创建预订
func (s *Server) createReservation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	var req CreateReservationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "无效的请求体",
		})
	}

	reservation, err := s.reservations.Create(userID, req.RaffleID, req.Quantity)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reservation)
}

// getReservation 获取预订详情
func (s *Server) getReservation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	reservation, err := s.reservations.Get(c.Params("uuid"), userID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(reservation)
}

// completeReservation 完成购买：先扣款再落实票券归属
func (s *Server) completeReservation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	uuid := c.Params("uuid")
	reservation, err := s.reservations.Get(uuid, userID)
	if err != nil {
		return errorResponse(c, err)
	}

	// 已完成的预订直接返回，避免重复扣款
	if reservation.Status == models.ReservationStatusCompleted {
		return c.JSON(reservation)
	}

	transactionID := ""
	if s.payment.Enabled() {
		transactionID, err = s.payment.Debit(
			userID,
			reservation.TotalAmount,
			uuid,
			fmt.Sprintf("购买活动 %d 的 %d 张票券", reservation.RaffleID, reservation.Quantity),
		)
		if err != nil {
			return errorResponse(c, err)
		}
	}

	reservation, err = s.reservations.Complete(uuid, transactionID)
	if err != nil {
		// 扣款成功但落实失败：退款并返回错误
		if transactionID != "" {
			if refundErr := s.payment.Refund(transactionID, "预订完成失败"); refundErr != nil {
				pkglogger.Error().
					Err(refundErr).
					Str("transaction_id", transactionID).
					Msg("自动退款失败，需人工处理")
			}
		}
		return errorResponse(c, err)
	}
	return c.JSON(reservation)
}

// cancelReservation 取消预订并释放票券
func (s *Server) cancelReservation(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.reservations.Cancel(c.Params("uuid"), userID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// listUserReservations 列出用户的预订
func (s *Server) listUserReservations(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "无效的用户ID"})
	}

	reservations, err := s.reservations.ListByUser(id, 50)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"reservations": reservations})
}

// ---- 票券与用户 ----

// revealTicket 揭示即时开奖票券
func (s *Server) revealTicket(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.reservations.Reveal(id, userID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

// getUserWins 获取用户的中奖记录
func (s *Server) getUserWins(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "无效的用户ID"})
	}

	wins, err := s.drawSvc.GetUserWins(id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"wins": wins})
}

// ---- 延时任务 ----

// listTasks 按状态列出延时任务
func (s *Server) listTasks(c *fiber.Ctx) error {
	status := models.TaskStatus(c.Query("status", string(models.TaskStatusPending)))

	tasks, err := s.engine.ListTasks(status, 100)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{"tasks": tasks})
}

// cancelTask 取消待执行任务
func (s *Server) cancelTask(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	if err := s.engine.CancelTask(id); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}
