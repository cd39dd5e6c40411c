package api

import (
	"net/http"
	"strconv"

	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PickHandler 前端只读接口
type PickHandler struct {
	store  interfaces.PickStore
	logger *logrus.Logger
}

// NewPickHandler 创建 PickHandler
func NewPickHandler(store interfaces.PickStore, logger *logrus.Logger) *PickHandler {
	return &PickHandler{store: store, logger: logger}
}

// Today 今日推荐；任何原因取不到都返回 {"pick": null}
// GET /today
func (h *PickHandler) Today(c *gin.Context) {
	pick, err := h.store.GetToday(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("GetToday failed")
		pick = nil
	}
	c.JSON(http.StatusOK, gin.H{"pick": pick})
}

// Performance 战绩
// GET /performance
func (h *PickHandler) Performance(c *gin.Context) {
	snap, err := h.store.Performance(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Performance", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ListPicks 历史推荐
// GET /picks?from=2024-01-01&to=2024-01-31&league=NFL&status=WON&page=1&page_size=20
func (h *PickHandler) ListPicks(c *gin.Context) {
	var f model.PickFilter
	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = model.ParseDay(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from: " + err.Error()})
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if f.To, err = model.ParseDay(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to: " + err.Error()})
			return
		}
	}
	if v := c.Query("league"); v != "" {
		if f.League, err = model.ParseLeague(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if v := c.Query("status"); v != "" {
		if f.Status, err = model.ParsePickStatus(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	f = f.Normalize()

	picks, total, err := h.store.ListPicks(c.Request.Context(), f)
	if err != nil {
		writeError(c, h.logger, "ListPicks", err)
		return
	}
	if picks == nil {
		picks = []*model.Pick{}
	}
	c.JSON(http.StatusOK, gin.H{
		"items":     picks,
		"total":     total,
		"page":      f.Page,
		"page_size": f.PageSize,
	})
}
