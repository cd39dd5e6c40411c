package sportsdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"DailyPick/internal/adapter"
	"DailyPick/internal/adapter/fixture"
	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"
	"DailyPick/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Provider 网关注册名
const Provider = "sportsdata"

// recentFormLen 赛季数据中 recent_form 的长度
const recentFormLen = 5

func init() {
	adapter.Register(Provider, func(cfg *config.GatewayConfig, logger *logrus.Logger) (interfaces.SportsGateway, error) {
		return NewGateway(cfg, logger)
	})
}

// Gateway SportsData.io 实时网关；实时调用失败时回退到冻结快照并标记 degraded
type Gateway struct {
	client   *client
	fallback *fixture.Snapshot // 为 nil 时无兜底
	logger   *logrus.Logger
	now      func() time.Time
}

var _ interfaces.SportsGateway = (*Gateway)(nil)

// NewGateway 兜底快照加载失败不影响实时网关，只是失去降级能力
func NewGateway(cfg *config.GatewayConfig, logger *logrus.Logger) (*Gateway, error) {
	return newGateway(cfg, httpclient.NewHTTPClient(cfg, logger), logger)
}

func newGateway(cfg *config.GatewayConfig, httpClient *http.Client, logger *logrus.Logger) (*Gateway, error) {
	c, err := newClient(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}
	snap, err := fixture.Load(cfg.FixturesDir)
	if err != nil {
		logger.WithError(err).WithField("fixtures_dir", cfg.FixturesDir).Warn("加载兜底快照失败，网关将无降级数据")
		snap = nil
	}
	return &Gateway{client: c, fallback: snap, logger: logger, now: time.Now}, nil
}

// getJSON 请求并解码；任何失败都归为 ErrGatewayUnavailable
func (g *Gateway) getJSON(ctx context.Context, path string, out interface{}) error {
	body, err := g.client.get(ctx, path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrGatewayUnavailable, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: 解析%s响应失败: %w", model.ErrGatewayUnavailable, path, err)
	}
	return nil
}

// degrade 实时失败后的兜底；调用方已取消时直接返回原错误
func (g *Gateway) degrade(ctx context.Context, op string, league model.League, subject string, liveErr error) bool {
	if ctx.Err() != nil || g.fallback == nil {
		return false
	}
	g.logger.WithError(fmt.Errorf("%w: %w", model.ErrGatewayDegraded, liveErr)).WithFields(logrus.Fields{
		"op":      op,
		"league":  league,
		"subject": subject,
	}).Warn("实时网关不可用，使用冻结快照")
	return true
}

func (g *Gateway) GetTeamStats(ctx context.Context, team string, league model.League) (*model.TeamStats, error) {
	stats, err := g.liveTeamStats(ctx, team, league)
	if err == nil {
		return stats, nil
	}
	if !g.degrade(ctx, "team_stats", league, team, err) {
		return nil, err
	}
	return g.fallback.TeamStats(league, team)
}

func (g *Gateway) liveTeamStats(ctx context.Context, team string, league model.League) (*model.TeamStats, error) {
	lp, err := leaguePath(league)
	if err != nil {
		return nil, err
	}
	season := seasonFor(league, g.now())
	var rows []teamSeasonDTO
	if err := g.getJSON(ctx, fmt.Sprintf("%s/scores/json/TeamSeasonStats/%d", lp, season), &rows); err != nil {
		return nil, err
	}
	var row *teamSeasonDTO
	for i := range rows {
		if strings.EqualFold(rows[i].Team, team) {
			row = &rows[i]
			break
		}
	}
	if row == nil {
		return nil, fmt.Errorf("%w: 赛季数据中无球队%s", model.ErrGatewayUnavailable, team)
	}

	pf, pa := row.perGame()
	stats := &model.TeamStats{
		Team:          row.Team,
		Wins:          row.Wins,
		Losses:        row.Losses,
		PointsFor:     pf,
		PointsAgainst: pa,
	}

	// recent_form 由赛程推出，赛程响应会被缓存，供 GetRecentGames 复用
	recent, err := g.liveRecentGames(ctx, team, league, recentFormLen)
	if err != nil {
		return nil, err
	}
	for _, r := range recent.Games {
		if r.Status != model.GameFinal {
			continue
		}
		if stats.LastGameAt == nil {
			last := r.StartTime
			stats.LastGameAt = &last
		}
		stats.RecentForm = append(stats.RecentForm, formLetter(r, team))
	}
	return stats, nil
}

func formLetter(r model.GameResult, team string) string {
	own, opp := r.HomeScore, r.AwayScore
	if strings.EqualFold(r.AwayTeam, team) {
		own, opp = opp, own
	}
	switch {
	case own > opp:
		return "W"
	case own < opp:
		return "L"
	default:
		return "T"
	}
}

func (g *Gateway) GetInjuryReport(ctx context.Context, team string, league model.League) (*model.InjuryReport, error) {
	report, err := g.liveInjuryReport(ctx, team, league)
	if err == nil {
		return report, nil
	}
	if !g.degrade(ctx, "injuries", league, team, err) {
		return nil, err
	}
	return g.fallback.InjuryReport(league, team)
}

func (g *Gateway) liveInjuryReport(ctx context.Context, team string, league model.League) (*model.InjuryReport, error) {
	lp, err := leaguePath(league)
	if err != nil {
		return nil, err
	}
	var rows []injuryDTO
	if err := g.getJSON(ctx, lp+"/projections/json/InjuredPlayers", &rows); err != nil {
		return nil, err
	}
	report := &model.InjuryReport{Team: strings.ToUpper(team), Injuries: []model.Injury{}}
	for _, r := range rows {
		if !strings.EqualFold(r.Team, team) {
			continue
		}
		status, ok := injuryStatus(r.InjuryStatus)
		if !ok {
			continue
		}
		report.Injuries = append(report.Injuries, model.Injury{Player: r.Name, Status: status, Position: r.Position})
	}
	return report, nil
}

func (g *Gateway) GetRecentGames(ctx context.Context, team string, league model.League, n int) (*model.RecentGames, error) {
	recent, err := g.liveRecentGames(ctx, team, league, n)
	if err == nil {
		return recent, nil
	}
	if !g.degrade(ctx, "recent_games", league, team, err) {
		return nil, err
	}
	return g.fallback.RecentGames(league, team, n)
}

// liveRecentGames 本赛季赛程中该队已开赛的比赛，最新在前，取 min(n, 可用)；
// 赛季初不足 n 场时补上一赛季
func (g *Gateway) liveRecentGames(ctx context.Context, team string, league model.League, n int) (*model.RecentGames, error) {
	lp, err := leaguePath(league)
	if err != nil {
		return nil, err
	}
	now := g.now()
	season := seasonFor(league, now)
	out := &model.RecentGames{Team: strings.ToUpper(team), Games: []model.GameResult{}}
	for _, s := range []int{season, season - 1} {
		if len(out.Games) >= n {
			break
		}
		var rows []gameDTO
		if err := g.getJSON(ctx, fmt.Sprintf("%s/scores/json/Games/%d", lp, s), &rows); err != nil {
			return nil, err
		}
		var games []model.GameResult
		for i := range rows {
			if !strings.EqualFold(rows[i].HomeTeam, team) && !strings.EqualFold(rows[i].AwayTeam, team) {
				continue
			}
			r, err := rows[i].toResult(league)
			if err != nil || !r.StartTime.Before(now) {
				continue
			}
			games = append(games, r)
		}
		sort.SliceStable(games, func(i, j int) bool { return games[i].StartTime.After(games[j].StartTime) })
		out.Games = append(out.Games, games...)
	}
	if n >= 0 && len(out.Games) > n {
		out.Games = out.Games[:n]
	}
	return out, nil
}

func (g *Gateway) GetGamesForDate(ctx context.Context, day model.Day, league model.League) (*model.GameSlate, error) {
	slate, err := g.liveGamesForDate(ctx, day, league)
	if err == nil {
		return slate, nil
	}
	if !g.degrade(ctx, "games_for_date", league, string(day), err) {
		return nil, err
	}
	return g.fallback.GamesForDate(day, league)
}

func (g *Gateway) liveGamesForDate(ctx context.Context, day model.Day, league model.League) (*model.GameSlate, error) {
	lp, err := leaguePath(league)
	if err != nil {
		return nil, err
	}
	var rows []gameOddsDTO
	if err := g.getJSON(ctx, fmt.Sprintf("%s/odds/json/GameOddsByDate/%s", lp, day), &rows); err != nil {
		return nil, err
	}
	slate := &model.GameSlate{League: league, Day: day, Games: []model.Game{}}
	for i := range rows {
		r, err := rows[i].toResult(league)
		if err != nil {
			g.logger.WithError(err).WithField("game_id", rows[i].id(league)).Warn("比赛开赛时间无法解析，已跳过")
			continue
		}
		slate.Games = append(slate.Games, model.Game{
			League:    league,
			GameID:    r.GameID,
			HomeTeam:  r.HomeTeam,
			AwayTeam:  r.AwayTeam,
			StartTime: r.StartTime,
			Status:    r.Status,
			Odds:      consensusOdds(rows[i].PregameOdds),
		})
	}
	return slate, nil
}

// Probe 诊断用：拉取当日 NFL 赛程，不使用兜底
func (g *Gateway) Probe(ctx context.Context) error {
	_, err := g.liveGamesForDate(ctx, model.DayOf(g.now()), model.LeagueNFL)
	return err
}
