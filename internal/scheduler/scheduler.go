// Package scheduler 定时任务调度
package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/service"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
)

// Scheduler 后台任务调度器
// 托管四类周期任务：到期任务轮询、预约过期清扫、失败任务重试扫描、已完成任务清理
type Scheduler struct {
	cron   *gocron.Scheduler
	cfg    *config.Config
	engine *Engine

	lifecycle    *service.LifecycleService
	drawSvc      *service.DrawService
	reservations *service.ReservationService
}

// New 创建调度器并注册任务处理器
func New(cfg *config.Config, engine *Engine,
	lifecycle *service.LifecycleService, drawSvc *service.DrawService,
	reservations *service.ReservationService) *Scheduler {
	loc, _ := time.LoadLocation("Asia/Shanghai")
	cron := gocron.NewScheduler(loc)
	cron.SetMaxConcurrentJobs(5, gocron.RescheduleMode)

	s := &Scheduler{
		cron:         cron,
		cfg:          cfg,
		engine:       engine,
		lifecycle:    lifecycle,
		drawSvc:      drawSvc,
		reservations: reservations,
	}
	s.registerHandlers()

	return s
}

// Engine 返回底层任务执行引擎
func (s *Scheduler) Engine() *Engine {
	return s.engine
}

// Start 启动调度器
func (s *Scheduler) Start() {
	logger.Info().Msg("启动后台任务调度器")

	// 注册定时任务
	s.registerJobs()

	// 异步启动
	s.cron.StartAsync()
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	logger.Info().Msg("停止后台任务调度器")
	s.cron.Stop()
}

// registerHandlers 绑定任务类型到业务处理器
func (s *Scheduler) registerHandlers() {
	// 状态流转任务：重新推导目标活动的状态
	// 活动已取消或已被管理员改过状态时推导结果不变，任务自然空转
	s.engine.RegisterHandler(models.TaskStateTransition, func(task *models.ScheduledTask) error {
		_, err := s.lifecycle.UpdateState(task.TargetID)
		if service.IsNotFound(err) {
			logger.Warn().Uint("raffle_id", task.TargetID).Msg("状态流转目标活动不存在，任务作废")
			return nil
		}
		return err
	})

	// 开奖任务：按参数执行若干次开奖
	s.engine.RegisterHandler(models.TaskDrawExecution, func(task *models.ScheduledTask) error {
		params := task.DecodeDrawParams()
		_, err := s.drawSvc.ExecuteMultipleDraws(task.TargetID, params.Count, params.RequestedBy)
		if service.IsNotFound(err) {
			logger.Warn().Uint("raffle_id", task.TargetID).Msg("开奖目标活动不存在，任务作废")
			return nil
		}
		return err
	})
}

// registerJobs 注册所有定时任务
func (s *Scheduler) registerJobs() {
	cfg := s.cfg.Scheduler

	// 到期任务轮询
	s.cron.Every(cfg.PollSeconds).Seconds().Do(s.pollTasks)
	logger.Info().Int("seconds", cfg.PollSeconds).Msg("已注册: 到期任务轮询")

	// 预约过期清扫
	s.cron.Every(s.cfg.Reservation.SweepSeconds).Seconds().Do(s.sweepReservations)
	logger.Info().Int("seconds", s.cfg.Reservation.SweepSeconds).Msg("已注册: 预约过期清扫")

	// 失败任务重试扫描
	s.cron.Every(cfg.RetryScanMinutes).Minutes().Do(s.retryScan)
	logger.Info().Int("minutes", cfg.RetryScanMinutes).Msg("已注册: 失败任务重试扫描")

	// 已完成任务清理 - 每天凌晨
	s.cron.Every(1).Day().At(cfg.CleanupAt).Do(s.cleanupTasks)
	logger.Info().Str("at", cfg.CleanupAt).Msg("已注册: 已完成任务清理")
}

// pollTasks 执行到期任务
func (s *Scheduler) pollTasks() {
	result, err := s.engine.PollOnce()
	if err != nil {
		logger.Error().Err(err).Msg("到期任务轮询失败")
		return
	}
	if result.Due > 0 {
		logger.Info().
			Int("due", result.Due).
			Int("dispatched", result.Dispatched).
			Msg("到期任务轮询完成")
	}
}

// sweepReservations 清扫过期预约并释放票券
func (s *Scheduler) sweepReservations() {
	result, err := s.reservations.Sweep()
	if err != nil {
		logger.Error().Err(err).Msg("预约过期清扫失败")
		return
	}
	if result.Expired > 0 {
		logger.Info().
			Int("checked", result.Checked).
			Int("expired", result.Expired).
			Int("released", result.TicketsReleased).
			Msg("预约过期清扫完成")
	}
}

// retryScan 重新排队可重试的失败任务
func (s *Scheduler) retryScan() {
	if _, err := s.engine.RetryScan(); err != nil {
		logger.Error().Err(err).Msg("失败任务重试扫描失败")
	}
}

// cleanupTasks 清理过期的已完成任务
func (s *Scheduler) cleanupTasks() {
	logger.Info().Msg("执行定时任务: 已完成任务清理")

	if _, err := s.engine.Cleanup(); err != nil {
		logger.Error().Err(err).Msg("已完成任务清理失败")
	}
}

// RunNow 立即执行指定任务（用于调试）
func (s *Scheduler) RunNow(taskName string) error {
	switch taskName {
	case "poll":
		s.pollTasks()
	case "sweep":
		s.sweepReservations()
	case "retry_scan":
		s.retryScan()
	case "cleanup":
		s.cleanupTasks()
	default:
		logger.Warn().Str("task", taskName).Msg("未知任务")
	}
	return nil
}
