package api

import (
	"errors"
	"net/http"

	"DailyPick/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// writeError 错误码映射；网关/数据库原始错误只写日志，不返回给调用方
func writeError(c *gin.Context, logger *logrus.Logger, op string, err error) {
	status, msg := http.StatusInternalServerError, "internal error"
	switch {
	case errors.Is(err, model.ErrPickNotFound):
		status, msg = http.StatusNotFound, "pick not found"
	case errors.Is(err, model.ErrInvalidTransition):
		status, msg = http.StatusConflict, "invalid status transition"
	case errors.Is(err, model.ErrDeadlineExceeded):
		status, msg = http.StatusGatewayTimeout, "deadline exceeded"
	case errors.Is(err, model.ErrGatewayUnavailable):
		status, msg = http.StatusServiceUnavailable, "sports data unavailable"
	case errors.Is(err, model.ErrConfigurationMissing):
		msg = "service misconfigured"
	}
	entry := logger.WithError(err).WithField("op", op)
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	c.JSON(status, gin.H{"error": msg})
}
