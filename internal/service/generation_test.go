package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/engine"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/lock"
	"DailyPick/internal/model"
)

func newGeneration(t *testing.T, gw interfaces.SportsGateway, scorer interfaces.PickScorer, cfg *config.Config, now time.Time) (*GenerationService, *memStore) {
	t.Helper()
	store := newMemStore(fixedClock(now))
	svc, err := NewGenerationService(store, lock.NewLocalLocker(), gw, scorer, cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return svc.WithClock(fixedClock(now)), store
}

func TestGenerationHappyPath(t *testing.T) {
	gw := newFakeGateway()
	gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
	svc, store := newGeneration(t, gw, oddsScorer{-150: 78.3, 130: 41.2}, testConfig(), morning)

	res, err := svc.RunToday(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCreated {
		t.Fatalf("outcome = %s, want created", res.Outcome)
	}
	p := res.Pick
	if p.Date != jan15 || p.Selection != "KC ML" || p.Side != model.SideHome || p.Odds != -150 {
		t.Errorf("pick = %+v", p)
	}
	if p.Confidence != 78.3 || p.Status != model.StatusPending || p.Degraded {
		t.Errorf("confidence=%v status=%s degraded=%v", p.Confidence, p.Status, p.Degraded)
	}
	if p.FeatureSchemaVersion != model.FeatureSchemaVersion {
		t.Errorf("feature_schema_version = %d", p.FeatureSchemaVersion)
	}
	if got := p.Rationale.Data().TopFactors; len(got) != 3 {
		t.Errorf("top factors = %v", got)
	}

	today, err := store.GetToday(context.Background())
	if err != nil || today == nil || today.ID != p.ID {
		t.Errorf("GetToday = %+v, %v", today, err)
	}

	again, err := svc.RunToday(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if again.Outcome != OutcomeAlreadyExists || again.Pick.ID != p.ID {
		t.Errorf("second pass = %+v", again)
	}
}

func TestGenerationNoQualifyingCandidate(t *testing.T) {
	gw := newFakeGateway()
	gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
	svc, store := newGeneration(t, gw, oddsScorer{-150: 59.9, 130: 40}, testConfig(), morning)

	res, err := svc.RunToday(context.Background())
	if err != nil {
		t.Fatalf("no qualifying candidate must not be an error: %v", err)
	}
	if res.Outcome != OutcomeNoQualifyingCandidate || res.Pick != nil || res.Candidates != 2 {
		t.Errorf("result = %+v", res)
	}
	if today, _ := store.GetToday(context.Background()); today != nil {
		t.Errorf("GetToday = %+v, want nil", today)
	}
}

func TestGenerationConcurrentPassesInsertOnce(t *testing.T) {
	feb1 := model.Day("2024-02-01")
	game := chiefsRavens()
	game.GameID = "nfl-KC-BAL-20240201"
	game.StartTime = time.Date(2024, 2, 1, 18, 0, 0, 0, time.UTC)

	gw := newFakeGateway()
	gw.games[model.LeagueNFL] = []model.Game{game}
	svc, store := newGeneration(t, gw, oddsScorer{-150: 78.3}, testConfig(), time.Date(2024, 2, 1, 14, 0, 0, 0, time.UTC))

	const passes = 50
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		exists  int
		ids     = map[string]bool{}
	)
	for i := 0; i < passes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Run(context.Background(), feb1)
			if err != nil {
				t.Errorf("Run: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			switch res.Outcome {
			case OutcomeCreated:
				created++
			case OutcomeAlreadyExists:
				exists++
			default:
				t.Errorf("unexpected outcome %s", res.Outcome)
			}
			ids[res.Pick.ID] = true
		}()
	}
	wg.Wait()

	if created != 1 || exists != passes-1 {
		t.Errorf("created=%d already_exists=%d, want 1 and %d", created, exists, passes-1)
	}
	if store.count() != 1 || len(ids) != 1 {
		t.Errorf("rows=%d distinct ids=%d, want 1", store.count(), len(ids))
	}
}

// racyStore 模拟锁失效：GetByDate 总是返回空，由唯一约束兜底
type racyStore struct{ *memStore }

func (racyStore) GetByDate(context.Context, model.Day) (*model.Pick, error) { return nil, nil }

func TestGenerationUniqueConstraintIsAuthoritative(t *testing.T) {
	gw := newFakeGateway()
	gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
	mem := newMemStore(fixedClock(morning))
	svc, err := NewGenerationService(racyStore{mem}, lock.NewLocalLocker(), gw, oddsScorer{-150: 78.3}, testConfig(), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	svc.WithClock(fixedClock(morning))

	first, err := svc.Run(context.Background(), jan15)
	if err != nil || first.Outcome != OutcomeCreated {
		t.Fatalf("first = %+v, %v", first, err)
	}
	second, err := svc.Run(context.Background(), jan15)
	if err != nil {
		t.Fatal(err)
	}
	if second.Outcome != OutcomeAlreadyExists || second.Pick.ID != first.Pick.ID {
		t.Errorf("second = %+v", second)
	}
	if mem.count() != 1 {
		t.Errorf("rows = %d, want 1", mem.count())
	}
}

func TestGenerationDegradedGateway(t *testing.T) {
	tests := []struct {
		name        string
		allowPicks  bool
		wantOutcome GenerationOutcome
	}{
		{"default config produces nothing", false, OutcomeNoQualifyingCandidate},
		{"allow_degraded_picks tags the pick", true, OutcomeCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			gw.degraded = true
			gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
			cfg := testConfig()
			cfg.Picks.AllowDegradedPicks = tt.allowPicks
			svc, _ := newGeneration(t, gw, oddsScorer{-150: 78.3}, cfg, morning)

			res, err := svc.RunToday(context.Background())
			if err != nil {
				t.Fatal(err)
			}
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %s, want %s", res.Outcome, tt.wantOutcome)
			}
			if res.Pick != nil && !res.Pick.Degraded {
				t.Error("pick from fixture data should be tagged degraded")
			}
		})
	}
}

func TestGenerationMissingTeamDataIsTolerated(t *testing.T) {
	// 比赛列表可用，球队数据不可用
	gw := &slateOnlyGateway{fakeGateway: newFakeGateway()}
	gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
	svc, _ := newGeneration(t, gw, oddsScorer{-150: 70}, testConfig(), morning)

	res, err := svc.RunToday(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Outcome != OutcomeCreated || res.Pick.Degraded {
		t.Errorf("result = %+v", res)
	}
}

type slateOnlyGateway struct{ *fakeGateway }

func (g *slateOnlyGateway) GetTeamStats(context.Context, string, model.League) (*model.TeamStats, error) {
	return nil, model.ErrGatewayUnavailable
}

func (g *slateOnlyGateway) GetInjuryReport(context.Context, string, model.League) (*model.InjuryReport, error) {
	return nil, model.ErrGatewayUnavailable
}

func (g *slateOnlyGateway) GetRecentGames(context.Context, string, model.League, int) (*model.RecentGames, error) {
	return nil, model.ErrGatewayUnavailable
}

type blockingGateway struct{ *fakeGateway }

func (blockingGateway) GetGamesForDate(ctx context.Context, _ model.Day, _ model.League) (*model.GameSlate, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestGenerationDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.Picks.GenerationTimeout = 20 * time.Millisecond
	svc, store := newGeneration(t, blockingGateway{newFakeGateway()}, oddsScorer{}, cfg, morning)

	_, err := svc.RunToday(context.Background())
	if !errors.Is(err, model.ErrDeadlineExceeded) {
		t.Fatalf("err = %v, want ErrDeadlineExceeded", err)
	}
	if store.count() != 0 {
		t.Error("no pick may be persisted after the deadline")
	}

	// 超时后锁已释放
	cfg.Picks.GenerationTimeout = time.Second
	gw := newFakeGateway()
	gw.games[model.LeagueNFL] = []model.Game{chiefsRavens()}
	svc2, _ := newGeneration(t, gw, oddsScorer{-150: 70}, cfg, morning)
	if _, err := svc2.RunToday(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestGenerationDeterministic(t *testing.T) {
	slate := func() *fakeGateway {
		gw := newFakeGateway()
		other := chiefsRavens()
		other.GameID = "nfl-PHI-TB-20240115"
		other.HomeTeam, other.AwayTeam = "TB", "PHI"
		other.Odds.HomeMoneyline, other.Odds.AwayMoneyline = intPtr(120), intPtr(-140)
		gw.games[model.LeagueNFL] = []model.Game{chiefsRavens(), other}
		return gw
	}
	cfg := testConfig()
	cfg.Picks.MinimumConfidenceThreshold = 0
	cfg.Picks.EnabledMarkets = []string{"MONEYLINE", "SPREAD", "TOTAL"}

	var picks []*model.Pick
	for i := 0; i < 2; i++ {
		svc, _ := newGeneration(t, slate(), engine.NewScorer(engine.DefaultCoefficients()), cfg, morning)
		res, err := svc.RunToday(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Outcome != OutcomeCreated {
			t.Fatalf("outcome = %s", res.Outcome)
		}
		picks = append(picks, res.Pick)
	}
	a, b := picks[0], picks[1]
	if a.GameID != b.GameID || a.Selection != b.Selection || a.Confidence != b.Confidence {
		t.Errorf("picks differ: %s %s %v vs %s %s %v", a.GameID, a.Selection, a.Confidence, b.GameID, b.Selection, b.Confidence)
	}
	if !reflect.DeepEqual(a.Rationale.Data(), b.Rationale.Data()) {
		t.Errorf("rationale differs:\n%+v\n%+v", a.Rationale.Data(), b.Rationale.Data())
	}
}
