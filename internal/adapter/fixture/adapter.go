package fixture

import (
	"context"

	"DailyPick/internal/adapter"
	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/sirupsen/logrus"
)

// Provider 网关注册名
const Provider = "fixture"

func init() {
	adapter.Register(Provider, func(cfg *config.GatewayConfig, logger *logrus.Logger) (interfaces.SportsGateway, error) {
		return NewGateway(cfg, logger)
	})
}

// Gateway 仅使用冻结快照的网关，用于本地开发与演示
type Gateway struct {
	snap   *Snapshot
	logger *logrus.Logger
}

var _ interfaces.SportsGateway = (*Gateway)(nil)

func NewGateway(cfg *config.GatewayConfig, logger *logrus.Logger) (*Gateway, error) {
	snap, err := Load(cfg.FixturesDir)
	if err != nil {
		return nil, err
	}
	logger.WithField("fixtures_dir", cfg.FixturesDir).Warn("使用冻结快照网关，所有数据均为降级数据")
	return &Gateway{snap: snap, logger: logger}, nil
}

func (g *Gateway) GetTeamStats(ctx context.Context, team string, league model.League) (*model.TeamStats, error) {
	return g.snap.TeamStats(league, team)
}

func (g *Gateway) GetInjuryReport(ctx context.Context, team string, league model.League) (*model.InjuryReport, error) {
	return g.snap.InjuryReport(league, team)
}

func (g *Gateway) GetRecentGames(ctx context.Context, team string, league model.League, n int) (*model.RecentGames, error) {
	return g.snap.RecentGames(league, team, n)
}

func (g *Gateway) GetGamesForDate(ctx context.Context, day model.Day, league model.League) (*model.GameSlate, error) {
	return g.snap.GamesForDate(day, league)
}
