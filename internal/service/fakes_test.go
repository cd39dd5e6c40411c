package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"sync"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/engine"
	"DailyPick/internal/model"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testConfig() *config.Config {
	return &config.Config{
		Gateway: config.GatewayConfig{Workers: 4, RecentGamesWindow: 10},
		Picks: config.PicksConfig{
			MinimumConfidenceThreshold: 60,
			EnabledLeagues:             []string{"NFL"},
			EnabledMarkets:             []string{"MONEYLINE"},
			MinOdds:                    -200,
			MaxOdds:                    300,
			GenerationTimeout:          5 * time.Second,
		},
		Grading: config.GradingConfig{
			SettlementGraceHours: 6,
			StaleGradingDays:     7,
			Timeout:              5 * time.Second,
			PageSize:             2,
		},
	}
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

// fakeGateway 内存网关
type fakeGateway struct {
	mu          sync.Mutex
	games       map[model.League][]model.Game
	recent      map[string][]model.GameResult
	degraded    bool
	unavailable bool
	calls       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{games: map[model.League][]model.Game{}, recent: map[string][]model.GameResult{}}
}

func (g *fakeGateway) hit() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.unavailable {
		return fmt.Errorf("%w: fake", model.ErrGatewayUnavailable)
	}
	return nil
}

func (g *fakeGateway) GetTeamStats(_ context.Context, team string, _ model.League) (*model.TeamStats, error) {
	if err := g.hit(); err != nil {
		return nil, err
	}
	return &model.TeamStats{Team: team, Wins: 8, Losses: 8, PointsFor: 21, PointsAgainst: 21, Degraded: g.degraded}, nil
}

func (g *fakeGateway) GetInjuryReport(_ context.Context, team string, _ model.League) (*model.InjuryReport, error) {
	if err := g.hit(); err != nil {
		return nil, err
	}
	return &model.InjuryReport{Team: team, Degraded: g.degraded}, nil
}

func (g *fakeGateway) GetRecentGames(_ context.Context, team string, _ model.League, n int) (*model.RecentGames, error) {
	if err := g.hit(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	games := g.recent[team]
	if len(games) > n {
		games = games[:n]
	}
	return &model.RecentGames{Team: team, Games: append([]model.GameResult(nil), games...), Degraded: g.degraded}, nil
}

func (g *fakeGateway) GetGamesForDate(_ context.Context, day model.Day, league model.League) (*model.GameSlate, error) {
	if err := g.hit(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var games []model.Game
	for _, game := range g.games[league] {
		if day.Contains(game.StartTime) {
			game.Degraded = g.degraded
			games = append(games, game)
		}
	}
	return &model.GameSlate{League: league, Day: day, Games: games, Degraded: g.degraded}, nil
}

// oddsScorer 按候选赔率给出固定置信度，未配置的赔率给 50
type oddsScorer map[int]float64

func (s oddsScorer) Score(fv *engine.FeatureVector) (*engine.Score, error) {
	conf := 50.0
	implied := fv.Get(engine.FeatImpliedProbability)
	for odds, c := range s {
		p, err := model.ImpliedProbability(odds)
		if err == nil && math.Abs(p-implied) < 1e-9 {
			conf = c
		}
	}
	return &engine.Score{
		Confidence: conf,
		Rationale: model.Rationale{
			TopFactors: []string{"a", "b", "c"},
			Reasoning:  fmt.Sprintf("Model confidence %.1f%%.", conf),
		},
	}, nil
}

// memStore 内存版 PickStore，语义与数据库实现一致
type memStore struct {
	mu      sync.Mutex
	byID    map[string]*model.Pick
	inserts int
	now     func() time.Time
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{byID: map[string]*model.Pick{}, now: now}
}

func clonePick(p *model.Pick) *model.Pick {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (s *memStore) InsertPick(_ context.Context, draft *model.Pick) (*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Date == draft.Date {
			return clonePick(p), &model.AlreadyExistsError{Date: p.Date, Existing: clonePick(p)}
		}
	}
	p := clonePick(draft)
	p.ID = uuid.NewString()
	p.Status = model.StatusPending
	p.CreatedAt = s.now()
	s.byID[p.ID] = p
	s.inserts++
	return clonePick(p), nil
}

func (s *memStore) GetToday(ctx context.Context) (*model.Pick, error) {
	return s.GetByDate(ctx, model.DayOf(s.now()))
}

func (s *memStore) GetByDate(_ context.Context, day model.Day) (*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Date == day {
			return clonePick(p), nil
		}
	}
	return nil, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePick(s.byID[id]), nil
}

func (s *memStore) sorted() []*model.Pick {
	out := make([]*model.Pick, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *memStore) ListPicks(_ context.Context, f model.PickFilter) ([]*model.Pick, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f = f.Normalize()
	var matched []*model.Pick
	all := s.sorted()
	for i := len(all) - 1; i >= 0; i-- {
		p := all[i]
		if (f.From != "" && p.Date < f.From) || (f.To != "" && p.Date > f.To) ||
			(f.League != "" && p.League != f.League) || (f.Status != "" && p.Status != f.Status) {
			continue
		}
		matched = append(matched, clonePick(p))
	}
	total := int64(len(matched))
	start := (f.Page - 1) * f.PageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *memStore) ListPending(_ context.Context, after model.Day, limit int) ([]*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Pick
	for _, p := range s.sorted() {
		if p.Status == model.StatusPending && p.Date > after {
			out = append(out, clonePick(p))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memStore) Transition(_ context.Context, id string, status model.PickStatus, payload *model.ResultPayload) (*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, model.ErrPickNotFound
	}
	raw, err := model.EncodeResult(payload)
	if err != nil {
		return nil, err
	}
	if p.Status == model.StatusPending && status.IsTerminal() {
		now := s.now()
		p.Status = status
		p.GradedAt = &now
		p.ResultPayload = raw
		return clonePick(p), nil
	}
	if p.Status == status && sameJSON(p.ResultPayload, raw) {
		return clonePick(p), nil
	}
	return nil, &model.InvalidTransitionError{PickID: id, From: p.Status, To: status}
}

func sameJSON(a, b []byte) bool {
	var x, y interface{}
	_ = json.Unmarshal(a, &x)
	_ = json.Unmarshal(b, &y)
	return reflect.DeepEqual(x, y)
}

func (s *memStore) AdminVoid(_ context.Context, id string, reason string) (*model.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return nil, model.ErrPickNotFound
	}
	now := s.now()
	p.Status = model.StatusVoided
	p.GradedAt = &now
	p.ResultPayload, _ = model.EncodeResult(&model.ResultPayload{GameID: p.GameID, Reason: model.ReasonAdmin})
	return clonePick(p), nil
}

func (s *memStore) Performance(_ context.Context) (*model.PerformanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var picks []*model.Pick
	for _, p := range s.sorted() {
		picks = append(picks, clonePick(p))
	}
	return model.BuildPerformance(picks, s.now()), nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
