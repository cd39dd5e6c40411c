package service

import (
	"context"
	"fmt"

	"DailyPick/internal/config"
	"DailyPick/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler 定时触发生成/结算任务（带秒的 cron，规范时区）
type Scheduler struct {
	cron       *cron.Cron
	generation *GenerationService
	grading    *GradingService
	baseCtx    context.Context
	logger     *logrus.Logger
}

// NewScheduler 注册两个任务；cron 表达式非法时返回错误
func NewScheduler(baseCtx context.Context, cfg config.ScheduleConfig, generation *GenerationService, grading *GradingService, logger *logrus.Logger) (*Scheduler, error) {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	s := &Scheduler{
		cron:       cron.New(cron.WithSeconds(), cron.WithLocation(model.CanonicalLocation())),
		generation: generation,
		grading:    grading,
		baseCtx:    baseCtx,
		logger:     logger,
	}
	if _, err := s.cron.AddFunc(cfg.GenerationCron, s.runGeneration); err != nil {
		return nil, fmt.Errorf("注册生成任务失败(%s): %w", cfg.GenerationCron, err)
	}
	if _, err := s.cron.AddFunc(cfg.GradingCron, s.runGrading); err != nil {
		return nil, fmt.Errorf("注册结算任务失败(%s): %w", cfg.GradingCron, err)
	}
	return s, nil
}

func (s *Scheduler) runGeneration() {
	if _, err := s.generation.RunToday(s.baseCtx); err != nil {
		s.logger.WithError(err).Error("定时生成推荐失败")
	}
}

func (s *Scheduler) runGrading() {
	// 汇总日志已在 Run 内输出
	_, _ = s.grading.Run(s.baseCtx)
}

func (s *Scheduler) Start() {
	s.logger.Info("定时任务已启动")
	s.cron.Start()
}

// Stop 等待运行中的任务结束
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("定时任务已停止")
}
