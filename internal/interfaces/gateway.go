package interfaces

import (
	"context"

	"DailyPick/internal/config"
	"DailyPick/internal/model"

	"github.com/sirupsen/logrus"
)

// SportsGateway 体育数据网关：所有返回值都带 Degraded 标记，调用方必须向下游传递
type SportsGateway interface {
	// GetTeamStats 球队赛季数据
	GetTeamStats(ctx context.Context, team string, league model.League) (*model.TeamStats, error)
	// GetInjuryReport 伤病报告
	GetInjuryReport(ctx context.Context, team string, league model.League) (*model.InjuryReport, error)
	// GetRecentGames 最近 min(n, 可用场数) 场，最新在前
	GetRecentGames(ctx context.Context, team string, league model.League, n int) (*model.RecentGames, error)
	// GetGamesForDate 某日比赛（含赔率）
	GetGamesForDate(ctx context.Context, day model.Day, league model.League) (*model.GameSlate, error)
}

// Factory 网关工厂函数签名
// 入参：网关配置、日志实例
// 出参：实现 SportsGateway 接口的网关实例
type Factory func(cfg *config.GatewayConfig, logger *logrus.Logger) (SportsGateway, error)
