// Package lock 生成推荐用的按 key 咨询锁
package lock

import (
	"database/sql"
	"fmt"

	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendLocal    = "local"
)

// New 按 lock.backend 创建锁；postgres 需要 sqlDB，redis 需要 redis.url
func New(cfg *config.Config, sqlDB *sql.DB, logger *logrus.Logger) (interfaces.Locker, error) {
	switch cfg.Lock.Backend {
	case BackendPostgres:
		if sqlDB == nil {
			return nil, fmt.Errorf("postgres锁需要数据库连接")
		}
		return NewPostgresLocker(sqlDB, logger), nil
	case BackendRedis:
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("解析REDIS_URL失败: %w", err)
		}
		return NewRedisLocker(redis.NewClient(opts), cfg.Lock, logger), nil
	case BackendLocal:
		logger.Warn("使用进程内锁，多实例部署时无法互斥")
		return NewLocalLocker(), nil
	default:
		return nil, fmt.Errorf("未知的锁后端: %q", cfg.Lock.Backend)
	}
}
