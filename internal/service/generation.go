package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/engine"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// GenerationOutcome 生成任务的预期结果，均不是错误
type GenerationOutcome string

const (
	OutcomeCreated               GenerationOutcome = "created"
	OutcomeAlreadyExists         GenerationOutcome = "already_exists"
	OutcomeNoQualifyingCandidate GenerationOutcome = "no_qualifying_candidate"
)

// GenerationResult 生成任务结果；Created/AlreadyExists 时 Pick 非空
type GenerationResult struct {
	Outcome    GenerationOutcome `json:"outcome"`
	Date       model.Day         `json:"date"`
	Pick       *model.Pick       `json:"pick"`
	Candidates int               `json:"candidates"`
}

// GenerationService 每日推荐生成：加锁 → 枚举 → 特征 → 打分 → 选择 → 写库
type GenerationService struct {
	store      interfaces.PickStore
	locker     interfaces.Locker
	gateway    interfaces.SportsGateway
	enumerator *Enumerator
	builder    *engine.FeatureBuilder
	scorer     interfaces.PickScorer
	selector   *Selector
	timeout    time.Duration
	workers    int
	window     int
	logger     *logrus.Logger
	now        func() time.Time
}

// NewGenerationService 创建生成服务
func NewGenerationService(
	store interfaces.PickStore,
	locker interfaces.Locker,
	gateway interfaces.SportsGateway,
	scorer interfaces.PickScorer,
	cfg *config.Config,
	logger *logrus.Logger,
) (*GenerationService, error) {
	enumerator, err := NewEnumerator(gateway, cfg.Picks, logger)
	if err != nil {
		return nil, err
	}
	s := &GenerationService{
		store:      store,
		locker:     locker,
		gateway:    gateway,
		enumerator: enumerator,
		builder:    engine.NewFeatureBuilder(),
		scorer:     scorer,
		selector:   NewSelector(cfg.Picks),
		timeout:    cfg.Picks.GenerationTimeout,
		workers:    cfg.Gateway.Workers,
		window:     cfg.Gateway.RecentGamesWindow,
		logger:     logger,
		now:        time.Now,
	}
	if s.timeout <= 0 {
		s.timeout = 60 * time.Second
	}
	if s.workers <= 0 {
		s.workers = 4
	}
	if s.window <= 0 {
		s.window = 10
	}
	return s, nil
}

// WithClock 测试用
func (s *GenerationService) WithClock(now func() time.Time) *GenerationService {
	s.now = now
	return s
}

// RunToday 为规范时区下的今天生成推荐
func (s *GenerationService) RunToday(ctx context.Context) (*GenerationResult, error) {
	return s.Run(ctx, model.DayOf(s.now()))
}

// Run 生成指定日期的推荐。已存在/无合格候选通过 Outcome 返回；超时返回 ErrDeadlineExceeded
func (s *GenerationService) Run(ctx context.Context, day model.Day) (*GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.run(ctx, day)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: 生成%s推荐: %w", model.ErrDeadlineExceeded, day, err)
		}
		return nil, err
	}
	log := s.logger.WithFields(logrus.Fields{"date": day, "outcome": res.Outcome, "candidates": res.Candidates})
	if res.Pick != nil {
		log = log.WithFields(logrus.Fields{"pick_id": res.Pick.ID, "selection": res.Pick.Selection, "confidence": res.Pick.Confidence})
	}
	log.Info("推荐生成完成")
	return res, nil
}

func (s *GenerationService) run(ctx context.Context, day model.Day) (*GenerationResult, error) {
	unlock, err := s.locker.Lock(ctx, "pick-gen:"+string(day))
	if err != nil {
		return nil, fmt.Errorf("获取生成锁失败: %w", err)
	}
	defer unlock()

	existing, err := s.store.GetByDate(ctx, day)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &GenerationResult{Outcome: OutcomeAlreadyExists, Date: day, Pick: existing}, nil
	}

	candidates, err := s.enumerator.Enumerate(ctx, day, s.now())
	if err != nil {
		return nil, err
	}
	res := &GenerationResult{Outcome: OutcomeNoQualifyingCandidate, Date: day, Candidates: len(candidates)}
	if len(candidates) == 0 {
		return res, nil
	}

	teams, err := s.fetchTeamContexts(ctx, candidates)
	if err != nil {
		return nil, err
	}

	scored := make([]*ScoredCandidate, 0, len(candidates))
	for _, c := range candidates {
		fv := s.builder.Build(c, teams[teamKey{c.League, c.HomeTeam}], teams[teamKey{c.League, c.AwayTeam}])
		score, err := s.scorer.Score(fv)
		if err != nil {
			return nil, fmt.Errorf("打分失败 %s %s: %w", c.GameID, c.Selection, err)
		}
		scored = append(scored, &ScoredCandidate{Candidate: c, Features: fv, Score: score})
	}

	sel := s.selector.Select(scored)
	if err := sel.Err(); err != nil {
		s.logger.WithError(err).WithField("date", day).Info("没有达到阈值的候选")
		return res, nil
	}

	pick, err := s.store.InsertPick(ctx, draftPick(day, sel))
	if err != nil {
		var exists *model.AlreadyExistsError
		if errors.As(err, &exists) {
			res.Outcome = OutcomeAlreadyExists
			res.Pick = exists.Existing
			return res, nil
		}
		return nil, err
	}
	res.Outcome = OutcomeCreated
	res.Pick = pick
	return res, nil
}

func draftPick(day model.Day, sel *Selection) *model.Pick {
	w := sel.Winner
	c := w.Candidate
	return &model.Pick{
		Date:                 day,
		League:               c.League,
		GameID:               c.GameID,
		HomeTeam:             c.HomeTeam,
		AwayTeam:             c.AwayTeam,
		StartTime:            c.StartTime.UTC(),
		Market:               c.Market,
		Side:                 c.Side,
		Selection:            c.Selection,
		Line:                 c.Line,
		Odds:                 c.Odds,
		Confidence:           sel.Confidence,
		Rationale:            datatypes.NewJSONType(w.Score.Rationale),
		FeatureSchemaVersion: w.Features.SchemaVersion,
		Degraded:             w.Degraded(),
	}
}

type teamKey struct {
	league model.League
	team   string
}

// fetchTeamContexts 每支球队只请求一次；网关不可用的字段留空，由特征层记为缺失
func (s *GenerationService) fetchTeamContexts(ctx context.Context, candidates []*model.Candidate) (map[teamKey]*engine.TeamContext, error) {
	var keys []teamKey
	seen := make(map[teamKey]bool)
	for _, c := range candidates {
		for _, k := range []teamKey{{c.League, c.HomeTeam}, {c.League, c.AwayTeam}} {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}

	out := make(map[teamKey]*engine.TeamContext, len(keys))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, k := range keys {
		g.Go(func() error {
			tc, err := s.teamContext(gctx, k)
			if err != nil {
				return err
			}
			mu.Lock()
			out[k] = tc
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GenerationService) teamContext(ctx context.Context, k teamKey) (*engine.TeamContext, error) {
	tc := &engine.TeamContext{}
	log := s.logger.WithFields(logrus.Fields{"league": k.league, "team": k.team})

	stats, err := s.gateway.GetTeamStats(ctx, k.team, k.league)
	if err == nil {
		tc.Stats = stats
	} else if err = s.tolerate(ctx, err); err != nil {
		return nil, err
	}

	injuries, err := s.gateway.GetInjuryReport(ctx, k.team, k.league)
	if err == nil {
		tc.Injuries = injuries
	} else if err = s.tolerate(ctx, err); err != nil {
		return nil, err
	}

	recent, err := s.gateway.GetRecentGames(ctx, k.team, k.league, s.window)
	if err == nil {
		tc.Recent = recent
	} else if err = s.tolerate(ctx, err); err != nil {
		return nil, err
	}

	if tc.Stats == nil || tc.Injuries == nil || tc.Recent == nil {
		log.Warn("球队数据不完整，缺失部分按缺失特征处理")
	}
	return tc, nil
}

// tolerate 网关不可用视为缺失数据；ctx 错误及其他错误照常返回
func (s *GenerationService) tolerate(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, model.ErrGatewayUnavailable) {
		return nil
	}
	return err
}
