package logger

import (
	"os"
	"strings"

	"DailyPick/internal/config"

	"github.com/sirupsen/logrus"
)

// New 按 log.level / log.format 创建 logrus 实例；非法级别回退到 info
func New(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	if err != nil && cfg.Level != "" {
		l.WithField("level", cfg.Level).Warn("未知日志级别，使用 info")
	}
	return l
}
