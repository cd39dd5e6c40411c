package lock

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PostgresLocker pg_advisory_lock；会话级锁，必须在同一连接上加锁和解锁
type PostgresLocker struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewPostgresLocker(db *sql.DB, logger *logrus.Logger) *PostgresLocker {
	return &PostgresLocker{db: db, logger: logger}
}

// advisoryKey key → int64（FNV-1a）
func advisoryKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

func (l *PostgresLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取锁连接失败: %w", err)
	}
	id := advisoryKey(key)
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", id); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("获取咨询锁%s失败: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// 调用方 ctx 可能已超时，解锁用独立的 ctx
			uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := conn.ExecContext(uctx, "SELECT pg_advisory_unlock($1)", id); err != nil {
				l.logger.WithError(err).WithField("key", key).Warn("释放咨询锁失败，连接关闭后由数据库回收")
			}
			_ = conn.Close()
		})
	}, nil
}
