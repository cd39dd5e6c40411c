package api

import (
	"context"
	"net/http"
	"time"

	"DailyPick/internal/engine"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/gin-gonic/gin"
)

// Pinger 数据库连通性
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler 健康检查
type HealthHandler struct {
	db     Pinger
	scorer interfaces.PickScorer
}

func NewHealthHandler(db Pinger, scorer interfaces.PickScorer) *HealthHandler {
	return &HealthHandler{db: db, scorer: scorer}
}

// ScorerReady 用空特征向量试打一次分
func ScorerReady(scorer interfaces.PickScorer) bool {
	if scorer == nil {
		return false
	}
	_, err := scorer.Score(&engine.FeatureVector{SchemaVersion: model.FeatureSchemaVersion})
	return err == nil
}

// Healthz 任一依赖异常返回 503
// GET /healthz
func (h *HealthHandler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{"status": "ok", "database": "ok", "scorer": "ready"}
	code := http.StatusOK
	if h.db == nil || h.db.Ping(ctx) != nil {
		body["database"] = "unreachable"
		body["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if !ScorerReady(h.scorer) {
		body["scorer"] = "unavailable"
		body["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	body["feature_schema_version"] = model.FeatureSchemaVersion
	c.JSON(code, body)
}
