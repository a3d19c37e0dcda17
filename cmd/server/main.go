// Sakura Raffle - Go Version
// 抽奖活动生命周期管理服务
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/smysle/sakura-raffle-go/internal/config"
	"github.com/smysle/sakura-raffle-go/internal/database"
	"github.com/smysle/sakura-raffle-go/internal/notify"
	"github.com/smysle/sakura-raffle-go/internal/payment"
	"github.com/smysle/sakura-raffle-go/internal/scheduler"
	"github.com/smysle/sakura-raffle-go/internal/service"
	"github.com/smysle/sakura-raffle-go/internal/web"
	"github.com/smysle/sakura-raffle-go/pkg/logger"
)

var (
	configPath = flag.String("config", "config.json", "配置文件路径")
	debug      = flag.Bool("debug", false, "调试模式")
)

func main() {
	flag.Parse()

	// 初始化日志
	logger.Init(*debug)
	logger.Info().Msg("🌸 Sakura Raffle 启动中...")

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}
	logger.Info().Msg("✅ 配置加载完成")

	// 初始化数据库
	db, err := database.Init(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化数据库失败")
	}
	defer database.Close(db)
	logger.Info().Msg("✅ 数据库连接成功")

	// 组装服务
	notifier := notify.Build(&cfg.Notify)
	pools := service.NewPrizePoolService(db)
	engine := scheduler.NewEngine(db, &cfg.Scheduler)
	lifecycle := service.NewLifecycleService(db, pools, engine, notifier)
	reservations := service.NewReservationService(db, cfg)
	draws := service.NewDrawService(db, pools, notifier)

	// 启动后台调度器
	sched := scheduler.New(cfg, engine, lifecycle, draws, reservations)
	sched.Start()
	defer sched.Stop()
	logger.Info().Msg("✅ 后台任务调度器启动")

	// 启动 Web API 服务
	webServer := web.New(cfg, web.Deps{
		DB:           db,
		Lifecycle:    lifecycle,
		Reservations: reservations,
		Draws:        draws,
		Pools:        pools,
		Engine:       engine,
		Payment:      payment.NewClient(&cfg.Payment),
	})
	go func() {
		if err := webServer.Start(); err != nil {
			logger.Error().Err(err).Msg("Web API 服务启动失败")
		}
	}()
	defer webServer.Stop()

	// 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("🚀 Sakura Raffle 启动成功!")
	logger.Info().Msg("按 Ctrl+C 停止...")

	// 等待退出信号
	<-quit

	logger.Info().Msg("正在关闭服务...")
	logger.Info().Msg("👋 再见!")
}
