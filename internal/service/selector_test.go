package service

import (
	"errors"
	"testing"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/engine"
	"DailyPick/internal/model"
)

func scored(gameID string, market model.Market, selection string, odds int, conf float64, start time.Time) *ScoredCandidate {
	return &ScoredCandidate{
		Candidate: &model.Candidate{
			League:    model.LeagueNFL,
			GameID:    gameID,
			Market:    market,
			Selection: selection,
			Odds:      odds,
			StartTime: start,
		},
		Features: &engine.FeatureVector{SchemaVersion: model.FeatureSchemaVersion},
		Score:    &engine.Score{Confidence: conf},
	}
}

func TestSelectThresholdBoundary(t *testing.T) {
	tests := []struct {
		name string
		conf float64
		want SelectOutcome
	}{
		{"exactly at threshold", 60.0, Selected},
		{"one unit below", 59.0, NoQualifyingCandidate},
		{"just below rounds up", 59.96, NoQualifyingCandidate},
		{"above", 78.3, Selected},
	}
	sel := NewSelector(config.PicksConfig{MinimumConfidenceThreshold: 60})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sel.Select([]*ScoredCandidate{scored("g1", model.MarketMoneyline, "KC ML", -150, tt.conf, kcKickoff)})
			if res.Outcome != tt.want {
				t.Fatalf("outcome = %v, want %v", res.Outcome, tt.want)
			}
			if res.Outcome == Selected && res.Confidence < 60 {
				t.Errorf("stored confidence %v below threshold", res.Confidence)
			}
			if got := errors.Is(res.Err(), model.ErrNoQualifyingCandidate); got != (tt.want == NoQualifyingCandidate) {
				t.Errorf("Err() = %v", res.Err())
			}
		})
	}
}

func TestSelectOrdering(t *testing.T) {
	later := kcKickoff.Add(time.Hour)
	tests := []struct {
		name       string
		candidates []*ScoredCandidate
		want       string
	}{
		{
			"highest confidence wins",
			[]*ScoredCandidate{
				scored("g1", model.MarketMoneyline, "A ML", -150, 70, kcKickoff),
				scored("g2", model.MarketMoneyline, "B ML", -150, 72, kcKickoff),
			},
			"B ML",
		},
		{
			"implied edge breaks confidence tie",
			[]*ScoredCandidate{
				scored("g1", model.MarketMoneyline, "Fav ML", -200, 70, kcKickoff),
				scored("g2", model.MarketMoneyline, "Dog ML", 150, 70, kcKickoff),
			},
			"Dog ML",
		},
		{
			"earlier start breaks edge tie",
			[]*ScoredCandidate{
				scored("g1", model.MarketMoneyline, "Late ML", -150, 70, later),
				scored("g2", model.MarketMoneyline, "Early ML", -150, 70, kcKickoff),
			},
			"Early ML",
		},
		{
			"game id then market then selection",
			[]*ScoredCandidate{
				scored("g2", model.MarketMoneyline, "A ML", -110, 70, kcKickoff),
				scored("g1", model.MarketTotal, "Under 40", -110, 70, kcKickoff),
				scored("g1", model.MarketSpread, "Z -3", -110, 70, kcKickoff),
				scored("g1", model.MarketSpread, "Y +3", -110, 70, kcKickoff),
			},
			"Y +3",
		},
	}
	sel := NewSelector(config.PicksConfig{MinimumConfidenceThreshold: 60})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := sel.Select(tt.candidates)
			if res.Outcome != Selected {
				t.Fatalf("outcome = %v", res.Outcome)
			}
			if got := res.Winner.Candidate.Selection; got != tt.want {
				t.Errorf("winner = %q, want %q", got, tt.want)
			}
			// 输入顺序不影响结果
			reversed := make([]*ScoredCandidate, len(tt.candidates))
			for i, c := range tt.candidates {
				reversed[len(tt.candidates)-1-i] = c
			}
			if got := sel.Select(reversed).Winner.Candidate.Selection; got != tt.want {
				t.Errorf("reversed input winner = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelectDegraded(t *testing.T) {
	c := scored("g1", model.MarketMoneyline, "KC ML", -150, 80, kcKickoff)
	c.Features.Degraded = true

	if res := NewSelector(config.PicksConfig{MinimumConfidenceThreshold: 60}).Select([]*ScoredCandidate{c}); res.Outcome != NoQualifyingCandidate {
		t.Errorf("degraded candidate selected without allow_degraded_picks")
	}
	res := NewSelector(config.PicksConfig{MinimumConfidenceThreshold: 60, AllowDegradedPicks: true}).Select([]*ScoredCandidate{c})
	if res.Outcome != Selected || !res.Winner.Degraded() {
		t.Errorf("degraded candidate should be selected and tagged, got %+v", res)
	}
}

func TestRoundConfidence(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{78.3, 78.3},
		{78.25, 78.2},
		{78.35, 78.4},
		{78.349, 78.3},
		{60.05, 60.0},
	}
	for _, tt := range tests {
		if got := RoundConfidence(tt.in); got != tt.want {
			t.Errorf("RoundConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	res := NewSelector(config.PicksConfig{MinimumConfidenceThreshold: 60}).Select(nil)
	if res.Outcome != NoQualifyingCandidate || res.Winner != nil {
		t.Errorf("empty input = %+v", res)
	}
}
