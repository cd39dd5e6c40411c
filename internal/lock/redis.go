package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DailyPick/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// 只删除自己持有的锁
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker SET NX PX 轮询加锁，TTL 防止进程崩溃后死锁
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	poll   time.Duration
	logger *logrus.Logger
}

func NewRedisLocker(client *redis.Client, cfg config.LockConfig, logger *logrus.Logger) *RedisLocker {
	l := &RedisLocker{client: client, ttl: cfg.TTL, poll: cfg.PollInterval, logger: logger}
	if l.ttl <= 0 {
		l.ttl = 2 * time.Minute
	}
	if l.poll <= 0 {
		l.poll = 100 * time.Millisecond
	}
	return l
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("获取redis锁%s失败: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := unlockScript.Run(uctx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("key", key).Warn("释放redis锁失败，等待TTL过期")
			}
		})
	}, nil
}
