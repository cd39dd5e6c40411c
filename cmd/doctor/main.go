// doctor 启动前自检：配置、数据库、体育数据网关
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"DailyPick/internal/adapter/fixture"
	"DailyPick/internal/adapter/sportsdata"
	"DailyPick/internal/config"
	"DailyPick/internal/database"
	"DailyPick/internal/utils/logger"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置文件失败: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ok := check(log, "config", func(context.Context) error { return cfg.Validate() })
	ok = check(log, "database", func(ctx context.Context) error {
		db, err := database.Open(cfg.Database, log)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()
		return sqlDB.PingContext(ctx)
	}) && ok
	ok = check(log, "gateway", func(ctx context.Context) error {
		if cfg.Gateway.Provider == fixture.Provider {
			_, err := fixture.Load(cfg.Gateway.FixturesDir)
			return err
		}
		gw, err := sportsdata.NewGateway(&cfg.Gateway, log)
		if err != nil {
			return err
		}
		return gw.Probe(ctx)
	}) && ok

	if !ok {
		log.Error("自检未通过")
		os.Exit(1)
	}
	log.Info("自检通过")
}

func check(log *logrus.Logger, name string, fn func(ctx context.Context) error) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		log.WithError(err).WithField("check", name).Error("检查失败")
		return false
	}
	log.WithFields(logrus.Fields{"check": name, "elapsed": time.Since(start).String()}).Info("检查通过")
	return true
}
