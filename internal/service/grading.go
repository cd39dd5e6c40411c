package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/sirupsen/logrus"
)

// GradingSummary 一次结算任务的统计
type GradingSummary struct {
	Scanned int `json:"scanned"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
	Pushed  int `json:"pushed"`
	Voided  int `json:"voided"`
	Waiting int `json:"waiting"` // 未到期或比赛未结束
	Skipped int `json:"skipped"` // 已被其他任务结算
	Failed  int `json:"failed"`
}

func (s *GradingSummary) count(status model.PickStatus) {
	switch status {
	case model.StatusWon:
		s.Won++
	case model.StatusLost:
		s.Lost++
	case model.StatusPushed:
		s.Pushed++
	case model.StatusVoided:
		s.Voided++
	case model.StatusPending:
		s.Waiting++
	default:
		s.Failed++
	}
}

// GradingService 分页遍历 PENDING 推荐逐条结算
type GradingService struct {
	store    interfaces.PickStore
	grader   *Grader
	timeout  time.Duration
	pageSize int
	logger   *logrus.Logger
	now      func() time.Time
}

func NewGradingService(store interfaces.PickStore, gateway interfaces.SportsGateway, cfg *config.Config, logger *logrus.Logger) *GradingService {
	s := &GradingService{
		store:    store,
		grader:   NewGrader(gateway, cfg, logger),
		timeout:  cfg.Grading.Timeout,
		pageSize: cfg.Grading.PageSize,
		logger:   logger,
		now:      time.Now,
	}
	if s.timeout <= 0 {
		s.timeout = 300 * time.Second
	}
	if s.pageSize <= 0 {
		s.pageSize = 100
	}
	return s
}

// WithClock 测试用
func (s *GradingService) WithClock(now func() time.Time) *GradingService {
	s.now = now
	return s
}

// Run 结算所有到期的 PENDING 推荐；非法迁移记录后跳过，存储错误中止任务
func (s *GradingService) Run(ctx context.Context) (*GradingSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary := &GradingSummary{}
	err := s.run(ctx, summary)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: 结算任务: %w", model.ErrDeadlineExceeded, err)
	}
	log := s.logger.WithFields(logrus.Fields{
		"scanned": summary.Scanned,
		"won":     summary.Won,
		"lost":    summary.Lost,
		"pushed":  summary.Pushed,
		"voided":  summary.Voided,
		"waiting": summary.Waiting,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	if err != nil {
		log.WithError(err).Error("结算任务中止")
		return summary, err
	}
	log.Info("结算任务完成")
	return summary, nil
}

func (s *GradingService) run(ctx context.Context, summary *GradingSummary) error {
	var after model.Day
	for {
		picks, err := s.store.ListPending(ctx, after, s.pageSize)
		if err != nil {
			return err
		}
		for _, p := range picks {
			summary.Scanned++
			if err := s.gradeOne(ctx, p, summary); err != nil {
				return err
			}
		}
		if len(picks) < s.pageSize {
			return nil
		}
		after = picks[len(picks)-1].Date
	}
}

func (s *GradingService) gradeOne(ctx context.Context, p *model.Pick, summary *GradingSummary) error {
	log := s.logger.WithFields(logrus.Fields{"pick_id": p.ID, "date": p.Date, "game_id": p.GameID})

	verdict, err := s.grader.Grade(ctx, p, s.now())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.WithError(err).Warn("结算失败，跳过")
		summary.Failed++
		return nil
	}
	if verdict == nil {
		summary.Waiting++
		return nil
	}

	graded, err := s.store.Transition(ctx, p.ID, verdict.Status, verdict.Payload)
	if err != nil {
		if errors.Is(err, model.ErrInvalidTransition) {
			log.WithError(err).Info("推荐已被结算，跳过")
			summary.Skipped++
			return nil
		}
		return err
	}
	log.WithFields(logrus.Fields{"status": graded.Status, "reason": verdict.Payload.Reason}).Info("推荐已结算")
	summary.count(graded.Status)
	return nil
}
