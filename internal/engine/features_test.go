package engine

import (
	"math"
	"testing"
	"time"

	"DailyPick/internal/model"
)

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func timePtr(t time.Time) *time.Time { return &t }

var kickoff = time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)

func chiefsCtx() *TeamContext {
	return &TeamContext{
		Stats: &model.TeamStats{
			Team: "KC", Wins: 11, Losses: 6, PointsFor: 27.5, PointsAgainst: 21.2,
			RecentForm: []string{"W", "W", "L", "W", "W"},
		},
		Injuries: &model.InjuryReport{Team: "KC", Injuries: []model.Injury{{Player: "A", Status: model.InjuryQuestionable}}},
		Recent: &model.RecentGames{Team: "KC", Games: []model.GameResult{
			{GameID: "g1", Status: model.GameFinal, StartTime: kickoff.Add(-7 * 24 * time.Hour)},
		}},
	}
}

func billsCtx() *TeamContext {
	return &TeamContext{
		Stats: &model.TeamStats{
			Team: "BUF", Wins: 10, Losses: 7, PointsFor: 24.8, PointsAgainst: 23.1,
			RecentForm: []string{"L", "W", "L", "W", "L"},
		},
		Injuries: &model.InjuryReport{Team: "BUF", Injuries: []model.Injury{{Player: "B", Status: model.InjuryOut}}},
		Recent: &model.RecentGames{Team: "BUF", Games: []model.GameResult{
			{GameID: "g2", Status: model.GameFinal, StartTime: kickoff.Add(-4 * 24 * time.Hour)},
		}},
	}
}

func chiefsML() *model.Candidate {
	return &model.Candidate{
		League: model.LeagueNFL, GameID: "fx-NFL-KC-BUF-20240115", HomeTeam: "KC", AwayTeam: "BUF",
		StartTime: kickoff, Market: model.MarketMoneyline, Side: model.SideHome, Selection: "KC",
		Odds: -150, OpeningOdds: intPtr(-130),
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuildMoneylineHome(t *testing.T) {
	fv := NewFeatureBuilder().Build(chiefsML(), chiefsCtx(), billsCtx())

	if fv.SchemaVersion != model.FeatureSchemaVersion {
		t.Fatalf("schema = %d", fv.SchemaVersion)
	}
	if fv.Missing != 0 {
		t.Fatalf("unexpected missing mask %b", fv.Missing)
	}
	tests := []struct {
		idx  FeatureIndex
		want float64
	}{
		{FeatFormDelta, 0.8 - 0.4},
		{FeatMarginDelta, ((27.5 - 21.2) - (24.8 - 23.1)) / 10},
		{FeatRestDelta, 7 - 4},
		{FeatInjuryDelta, 3 - 1},
		{FeatHomeIndicator, 1},
		{FeatImpliedProbability, 0.6},
		{FeatPaceIndicator, 0},
		{FeatLineMovement, 0.6 - 130.0/230.0},
	}
	for _, tt := range tests {
		if got := fv.Get(tt.idx); !approx(got, tt.want) {
			t.Errorf("%s = %v, want %v", tt.idx, got, tt.want)
		}
	}
	if fv.Get(FeatMarketResidual) == 0 {
		t.Error("market_residual should be populated")
	}
}

func TestBuildAwayFlipsPerspective(t *testing.T) {
	c := chiefsML()
	c.Side = model.SideAway
	c.Selection = "BUF"
	c.Odds = 130
	c.OpeningOdds = nil

	fv := NewFeatureBuilder().Build(c, chiefsCtx(), billsCtx())
	if got := fv.Get(FeatFormDelta); !approx(got, 0.4-0.8) {
		t.Errorf("form_delta = %v", got)
	}
	if got := fv.Get(FeatHomeIndicator); got != -1 {
		t.Errorf("home_indicator = %v", got)
	}
	if got := fv.Get(FeatInjuryDelta); got != -2 {
		t.Errorf("injury_delta = %v", got)
	}
	if !fv.IsMissing(FeatLineMovement) || fv.Get(FeatLineMovement) != 0 {
		t.Error("line_movement should be missing without opening odds")
	}
}

func TestBuildMissingInputsAreZeroed(t *testing.T) {
	away := billsCtx()
	away.Injuries = nil
	away.Stats = nil
	away.Recent = nil

	fv := NewFeatureBuilder().Build(chiefsML(), chiefsCtx(), away)
	for _, idx := range []FeatureIndex{FeatFormDelta, FeatMarginDelta, FeatRestDelta, FeatInjuryDelta, FeatMarketResidual} {
		if !fv.IsMissing(idx) {
			t.Errorf("%s should be missing", idx)
		}
		if fv.Get(idx) != 0 {
			t.Errorf("%s = %v, want 0", idx, fv.Get(idx))
		}
	}
	if fv.IsMissing(FeatImpliedProbability) || fv.IsMissing(FeatHomeIndicator) {
		t.Error("market features should still be present")
	}
}

func TestBuildRestFallsBackToLastGameAt(t *testing.T) {
	home := chiefsCtx()
	home.Recent = nil
	home.Stats.LastGameAt = timePtr(kickoff.Add(-2 * 24 * time.Hour))
	away := billsCtx()
	away.Recent.Games[0].StartTime = kickoff.Add(-30 * 24 * time.Hour)

	fv := NewFeatureBuilder().Build(chiefsML(), home, away)
	if got := fv.Get(FeatRestDelta); got != 2-maxRestDays {
		t.Errorf("rest_delta = %v", got)
	}
}

func TestBuildTotals(t *testing.T) {
	c := &model.Candidate{
		League: model.LeagueNFL, GameID: "g", HomeTeam: "KC", AwayTeam: "BUF", StartTime: kickoff,
		Market: model.MarketTotal, Side: model.SideOver, Selection: "Over 47.5", Line: floatPtr(47.5), Odds: -110,
	}
	fb := NewFeatureBuilder()
	over := fb.Build(c, chiefsCtx(), billsCtx())

	expected := (27.5+23.1)/2 + (24.8+21.2)/2
	if got := over.Get(FeatPaceIndicator); !approx(got, (expected-47.5)/47.5) {
		t.Errorf("pace = %v", got)
	}
	for _, idx := range []FeatureIndex{FeatFormDelta, FeatMarginDelta, FeatRestDelta, FeatInjuryDelta, FeatHomeIndicator} {
		if over.IsMissing(idx) || over.Get(idx) != 0 {
			t.Errorf("%s should be zero and present for totals", idx)
		}
	}

	c.Side = model.SideUnder
	under := fb.Build(c, chiefsCtx(), billsCtx())
	if !approx(under.Get(FeatPaceIndicator), -over.Get(FeatPaceIndicator)) {
		t.Errorf("under pace should be mirrored: %v vs %v", under.Get(FeatPaceIndicator), over.Get(FeatPaceIndicator))
	}
}

func TestBuildPropagatesDegraded(t *testing.T) {
	home := chiefsCtx()
	home.Injuries.Degraded = true
	if fv := NewFeatureBuilder().Build(chiefsML(), home, billsCtx()); !fv.Degraded {
		t.Error("expected degraded vector")
	}
	c := chiefsML()
	c.Degraded = true
	if fv := NewFeatureBuilder().Build(c, chiefsCtx(), billsCtx()); !fv.Degraded {
		t.Error("expected degraded vector from candidate")
	}
}

func TestFormPct(t *testing.T) {
	tests := []struct {
		form []string
		want float64
		ok   bool
	}{
		{[]string{"W", "W", "L", "L"}, 0.5, true},
		{[]string{"W", "T"}, 0.75, true},
		{[]string{}, 0, false},
		{[]string{"?"}, 0, false},
	}
	for _, tt := range tests {
		got, ok := formPct(&TeamContext{Stats: &model.TeamStats{RecentForm: tt.form}})
		if ok != tt.ok || !approx(got, tt.want) {
			t.Errorf("formPct(%v) = %v,%v want %v,%v", tt.form, got, ok, tt.want, tt.ok)
		}
	}
}
