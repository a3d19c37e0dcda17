// Package web Web API 服务
package web

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database/models"
	"github.com/smysle/sakura-raffle-go/internal/payment"
	"github.com/smysle/sakura-raffle-go/internal/scheduler"
	"github.com/smysle/sakura-raffle-go/internal/service"
	pkglogger "github.com/smysle/sakura-raffle-go/pkg/logger"
)

// Server Web 服务器
type Server struct {
	app       *fiber.App
	cfg       *config.Config
	db        *gorm.DB
	startTime time.Time

	lifecycle    *service.LifecycleService
	reservations *service.ReservationService
	drawSvc      *service.DrawService
	pools        *service.PrizePoolService
	engine       *scheduler.Engine
	payment      *payment.Client
}

// Deps Web 服务依赖
type Deps struct {
	DB           *gorm.DB
	Lifecycle    *service.LifecycleService
	Reservations *service.ReservationService
	Draws        *service.DrawService
	Pools        *service.PrizePoolService
	Engine       *scheduler.Engine
	Payment      *payment.Client
}

// New 创建 Web 服务器
func New(cfg *config.Config, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// 中间件
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins(cfg.API.AllowOrigins),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-User-ID",
	}))

	server := &Server{
		app:          app,
		cfg:          cfg,
		db:           deps.DB,
		startTime:    time.Now(),
		lifecycle:    deps.Lifecycle,
		reservations: deps.Reservations,
		drawSvc:      deps.Draws,
		pools:        deps.Pools,
		engine:       deps.Engine,
		payment:      deps.Payment,
	}

	// 注册路由
	server.registerRoutes()

	return server
}

// allowOrigins 组装 CORS 白名单，未配置时放行所有来源
func allowOrigins(origins []string) string {
	if len(origins) == 0 {
		return "*"
	}
	return strings.Join(origins, ",")
}

// registerRoutes 注册路由
func (s *Server) registerRoutes() {
	// 健康检查
	s.app.Get("/health", s.healthCheck)
	s.app.Get("/", s.healthCheck)

	// 详细状态
	s.app.Get("/status", s.detailedStatus)

	// API v1
	v1 := s.app.Group("/api/v1")

	// 活动（公开读取）
	v1.Get("/raffles", s.listRaffles)
	v1.Get("/raffles/:id", s.getRaffle)
	v1.Get("/raffles/:id/winners", s.getWinners)
	v1.Get("/raffles/:id/winners/image", s.getWinnersImage)

	// 活动管理
	admin := v1.Group("", s.requireAdmin)
	admin.Post("/raffles", s.createRaffle)
	admin.Post("/raffles/:id/activate", s.activateRaffle)
	admin.Post("/raffles/:id/deactivate", s.deactivateRaffle)
	admin.Post("/raffles/:id/cancel", s.cancelRaffle)
	admin.Put("/raffles/:id/state", s.adminUpdateState)
	admin.Get("/raffles/:id/history", s.getHistory)
	admin.Post("/raffles/:id/draws", s.executeDraws)
	admin.Get("/draws/:id/verify", s.verifyDraw)

	// 奖池管理
	admin.Post("/pools", s.createPool)
	admin.Post("/pools/:id/lock", s.lockPool)

	// 延时任务管理
	admin.Get("/tasks", s.listTasks)
	admin.Post("/tasks/:id/cancel", s.cancelTask)

	// 预订（需要用户身份）
	v1.Post("/reservations", s.createReservation)
	v1.Get("/reservations/:uuid", s.getReservation)
	v1.Post("/reservations/:uuid/complete", s.completeReservation)
	v1.Post("/reservations/:uuid/cancel", s.cancelReservation)

	// 票券与用户
	v1.Post("/tickets/:id/reveal", s.revealTicket)
	v1.Get("/users/:id/reservations", s.listUserReservations)
	v1.Get("/users/:id/wins", s.getUserWins)
}

// Start 启动服务器
func (s *Server) Start() error {
	if !s.cfg.API.Enabled {
		pkglogger.Info().Msg("【API服务】未启用，跳过...")
		return nil
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.API.Host, s.cfg.API.Port)
	pkglogger.Info().Str("addr", addr).Msg("【API服务】启动中...")

	return s.app.Listen(addr)
}

// Stop 停止服务器
func (s *Server) Stop() error {
	return s.app.Shutdown()
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Uptime    string `json:"uptime"`
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	})
}

// StatusResponse 详细状态响应
type StatusResponse struct {
	Status   string         `json:"status"`
	Version  string         `json:"version"`
	Uptime   string         `json:"uptime"`
	System   SystemInfo     `json:"system"`
	Database DatabaseStatus `json:"database"`
	Tasks    TaskStatus     `json:"tasks"`
}

// SystemInfo 系统信息
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumCPU       int    `json:"num_cpu"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     string `json:"mem_alloc"`
}

// DatabaseStatus 数据库状态
type DatabaseStatus struct {
	Connected   bool  `json:"connected"`
	RaffleCount int64 `json:"raffle_count"`
}

// TaskStatus 任务队列状态
type TaskStatus struct {
	Pending int `json:"pending"`
	Failed  int `json:"failed"`
}

// detailedStatus 详细状态
func (s *Server) detailedStatus(c *fiber.Ctx) error {
	// 系统信息
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// 数据库状态
	dbConnected := false
	var raffleCount int64
	if sqlDB, err := s.db.DB(); err == nil && sqlDB.Ping() == nil {
		dbConnected = true
		s.db.Model(&models.Raffle{}).Count(&raffleCount)
	}

	// 任务队列状态
	pendingTasks, _ := s.engine.ListTasks(models.TaskStatusPending, 1000)
	failedTasks, _ := s.engine.ListTasks(models.TaskStatusFailed, 1000)

	return c.JSON(StatusResponse{
		Status:  "ok",
		Version: "1.0.0",
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		System: SystemInfo{
			GoVersion:    runtime.Version(),
			NumCPU:       runtime.NumCPU(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     fmt.Sprintf("%.2f MB", float64(memStats.Alloc)/1024/1024),
		},
		Database: DatabaseStatus{
			Connected:   dbConnected,
			RaffleCount: raffleCount,
		},
		Tasks: TaskStatus{
			Pending: len(pendingTasks),
			Failed:  len(failedTasks),
		},
	})
}

// requireAdmin 管理接口鉴权
func (s *Server) requireAdmin(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "缺少用户身份",
		})
	}
	if !s.cfg.IsAdmin(userID) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "需要管理员权限",
		})
	}
	return c.Next()
}

// errorResponse 将业务错误映射为 HTTP 响应
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrRaffleNotOpen),
		errors.Is(err, service.ErrReservationExpired),
		errors.Is(err, service.ErrAllDrawsComplete),
		errors.Is(err, service.ErrNoEligibleTickets):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidQuantity):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientInventory),
		errors.Is(err, service.ErrConcurrencyConflict):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, payment.ErrInsufficientFunds):
		status = fiber.StatusPaymentRequired
	case errors.Is(err, payment.ErrPaymentUnavailable):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
