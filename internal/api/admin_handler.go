package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"
	"DailyPick/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PickGenerator 生成任务
type PickGenerator interface {
	Run(ctx context.Context, day model.Day) (*service.GenerationResult, error)
	RunToday(ctx context.Context) (*service.GenerationResult, error)
}

// PickGrader 结算任务
type PickGrader interface {
	Run(ctx context.Context) (*service.GradingSummary, error)
}

// AdminHandler 手动触发任务与作废推荐
type AdminHandler struct {
	generator PickGenerator
	grader    PickGrader
	store     interfaces.PickStore
	logger    *logrus.Logger
}

func NewAdminHandler(generator PickGenerator, grader PickGrader, store interfaces.PickStore, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{generator: generator, grader: grader, store: store, logger: logger}
}

// Generate 触发生成任务，date 缺省为今天
// POST /admin/generate?date=2024-01-15
func (h *AdminHandler) Generate(c *gin.Context) {
	var (
		res *service.GenerationResult
		err error
	)
	if v := c.Query("date"); v != "" {
		day, perr := model.ParseDay(v)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": perr.Error()})
			return
		}
		res, err = h.generator.Run(c.Request.Context(), day)
	} else {
		res, err = h.generator.RunToday(c.Request.Context())
	}
	if err != nil {
		writeError(c, h.logger, "Generate", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Grade 触发结算任务
// POST /admin/grade
func (h *AdminHandler) Grade(c *gin.Context) {
	summary, err := h.grader.Run(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "Grade", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type voidRequest struct {
	Reason string `json:"reason"`
}

// VoidPick 管理员作废推荐
// POST /admin/picks/:id/void  {"reason": "..."}
func (h *AdminHandler) VoidPick(c *gin.Context) {
	var req voidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pick, err := h.store.AdminVoid(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, h.logger, "VoidPick", err)
		return
	}
	c.JSON(http.StatusOK, pick)
}
