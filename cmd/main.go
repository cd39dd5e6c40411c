package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DailyPick/internal/adapter"
	_ "DailyPick/internal/adapter/fixture"
	_ "DailyPick/internal/adapter/sportsdata"
	"DailyPick/internal/api"
	"DailyPick/internal/config"
	"DailyPick/internal/database"
	"DailyPick/internal/engine"
	"DailyPick/internal/lock"
	"DailyPick/internal/repository"
	"DailyPick/internal/service"
	"DailyPick/internal/utils/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置文件失败: %v", err)
	}

	// 2. 初始化日志
	logrusLogger := logger.New(cfg.Log)
	if err := cfg.Validate(); err != nil {
		logrusLogger.Fatalf("配置校验失败: %v", err)
	}
	logrusLogger.Info("配置文件加载成功")

	// 3. 连接 PostgreSQL（库不存在则先创建）
	db, err := database.Open(cfg.Database, logrusLogger)
	if err != nil {
		logrusLogger.Fatal(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		logrusLogger.Fatalf("获取SQL DB失败: %v", err)
	}
	logrusLogger.Info("PostgreSQL连接成功")

	// 4. 建表与视图
	repo := repository.NewPickRepository(db, logrusLogger)
	if cfg.Database.AutoMigrate {
		if err := repo.Migrate(context.Background()); err != nil {
			logrusLogger.Fatalf("数据库表结构迁移失败: %v", err)
		}
		logrusLogger.Info("数据库表结构检查完成（不存在则已创建）")
	}

	// 5. 体育数据网关、打分器、锁
	gateway, err := adapter.NewGateway(&cfg.Gateway, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("创建网关失败: %v", err)
	}
	coef, err := engine.CoefficientsFromConfig(cfg.Scorer)
	if err != nil {
		logrusLogger.Fatalf("打分系数配置错误: %v", err)
	}
	scorer := engine.NewScorer(coef)
	locker, err := lock.New(cfg, sqlDB, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("创建锁失败: %v", err)
	}

	// 6. 生成/结算服务
	generation, err := service.NewGenerationService(repo, locker, gateway, scorer, cfg, logrusLogger)
	if err != nil {
		logrusLogger.Fatalf("创建生成服务失败: %v", err)
	}
	grading := service.NewGradingService(repo, gateway, cfg, logrusLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.Enabled {
		scheduler, err := service.NewScheduler(ctx, cfg.Schedule, generation, grading, logrusLogger)
		if err != nil {
			logrusLogger.Fatalf("创建定时任务失败: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// 7. HTTP 路由
	gin.SetMode(cfg.Server.Mode)
	r := api.NewRouter(cfg, api.Handlers{
		Picks:  api.NewPickHandler(repo, logrusLogger),
		Admin:  api.NewAdminHandler(generation, grading, repo, logrusLogger),
		Health: api.NewHealthHandler(repo, scorer),
	}, logrusLogger)
	logrusLogger.Infof("Gin运行模式: %s", cfg.Server.Mode)

	// 8. 启动服务，收到信号后优雅退出
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: r}
	go func() {
		logrusLogger.Infof("服务启动成功，端口：%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrusLogger.Fatalf("启动服务失败: %v", err)
		}
	}()

	<-ctx.Done()
	logrusLogger.Info("收到退出信号，正在关闭服务")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrusLogger.WithError(err).Warn("关闭HTTP服务超时")
	}
	_ = sqlDB.Close()
}
