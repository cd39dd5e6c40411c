package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"DailyPick/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Picks.MinimumConfidenceThreshold != 60 {
		t.Errorf("port=%d threshold=%v", cfg.Server.Port, cfg.Picks.MinimumConfidenceThreshold)
	}
	if cfg.Grading.SettlementGrace() != 6*time.Hour || cfg.Grading.StaleCutoff() != 7*24*time.Hour {
		t.Errorf("grace=%s cutoff=%s", cfg.Grading.SettlementGrace(), cfg.Grading.StaleCutoff())
	}
	if cfg.Picks.GenerationTimeout != 60*time.Second || cfg.Lock.Backend != "postgres" {
		t.Errorf("timeout=%s lock=%s", cfg.Picks.GenerationTimeout, cfg.Lock.Backend)
	}
	leagues, err := cfg.Picks.Leagues()
	if err != nil || !reflect.DeepEqual(leagues, model.AllLeagues) {
		t.Errorf("leagues = %v, %v", leagues, err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/picks")
	t.Setenv("ENABLED_LEAGUES", "NFL, nba")
	t.Setenv("MINIMUM_CONFIDENCE_THRESHOLD", "72.5")
	t.Setenv("ALLOW_DEGRADED_PICKS", "true")
	t.Setenv("SETTLEMENT_GRACE_HOURS", "3")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.DSN != "postgres://u:p@localhost:5432/picks" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Picks.MinimumConfidenceThreshold != 72.5 || cfg.Grading.SettlementGraceHours != 3 {
		t.Errorf("threshold=%v grace=%d", cfg.Picks.MinimumConfidenceThreshold, cfg.Grading.SettlementGraceHours)
	}
	if !cfg.Picks.DegradedCandidatesAllowed() {
		t.Error("allow_degraded_picks should imply degraded candidates")
	}
	leagues, err := cfg.Picks.Leagues()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(leagues, []model.League{model.LeagueNFL, model.LeagueNBA}) {
		t.Errorf("leagues = %v", leagues)
	}
}

func validConfig() *Config {
	return &Config{
		Database: DatabaseConfig{DSN: "postgres://localhost/picks"},
		Gateway:  GatewayConfig{Provider: "sportsdata", APIKey: "k"},
		Auth:     AuthConfig{ServiceKey: "s"},
		Lock:     LockConfig{Backend: "postgres"},
		Picks: PicksConfig{
			MinimumConfidenceThreshold: 60,
			EnabledLeagues:             []string{"NFL"},
			EnabledMarkets:             []string{"MONEYLINE"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		wantMissing bool
		wantErr     bool
	}{
		{"valid", func(*Config) {}, false, false},
		{"no dsn", func(c *Config) { c.Database.DSN = " " }, true, true},
		{"no api key", func(c *Config) { c.Gateway.APIKey = "" }, true, true},
		{"fixture needs no api key", func(c *Config) { c.Gateway.Provider = "fixture"; c.Gateway.APIKey = "" }, false, false},
		{"no auth", func(c *Config) { c.Auth = AuthConfig{} }, true, true},
		{"jwt only", func(c *Config) { c.Auth = AuthConfig{JWTSecret: "j"} }, false, false},
		{"redis without url", func(c *Config) { c.Lock.Backend = "redis" }, true, true},
		{"empty leagues", func(c *Config) { c.Picks.EnabledLeagues = nil }, true, true},
		{"unknown market", func(c *Config) { c.Picks.EnabledMarkets = []string{"PARLAY"} }, false, true},
		{"threshold out of range", func(c *Config) { c.Picks.MinimumConfidenceThreshold = 101 }, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, model.ErrConfigurationMissing); got != tt.wantMissing {
				t.Errorf("ErrConfigurationMissing = %v, want %v (%v)", got, tt.wantMissing, err)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"NFL", "NBA"}, []string{"NFL", "NBA"}},
		{[]string{"NFL, nba ,,MLB"}, []string{"NFL", "nba", "MLB"}},
		{[]string{"nfl", "NFL"}, []string{"nfl"}},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := splitList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitList(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
