package api

import (
	"DailyPick/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers 路由依赖
type Handlers struct {
	Picks  *PickHandler
	Admin  *AdminHandler
	Health *HealthHandler
}

// NewRouter 注册全部路由
func NewRouter(cfg *config.Config, h Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	if cfg.Server.Pprof {
		pprof.Register(r)
	}

	r.GET("/healthz", h.Health.Healthz)
	r.GET("/today", h.Picks.Today)
	r.GET("/performance", h.Picks.Performance)
	r.GET("/picks", h.Picks.ListPicks)

	admin := r.Group("/admin", AdminAuth(cfg.Auth))
	{
		admin.POST("/generate", h.Admin.Generate)
		admin.POST("/grade", h.Admin.Grade)
		admin.POST("/picks/:id/void", h.Admin.VoidPick)
	}
	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": c.Writer.Status(),
		}).Debug("http request")
	}
}
