package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Verdict 结算结论
type Verdict struct {
	Status  model.PickStatus
	Payload *model.ResultPayload
}

// maxRecentWindow 查找比赛时最多回溯的场数
const maxRecentWindow = 320

// Grader 对单条 PENDING 推荐给出结论；只读网关，不写库
type Grader struct {
	gateway interfaces.SportsGateway
	grace   time.Duration
	cutoff  time.Duration
	window  int
	logger  *logrus.Logger
}

func NewGrader(gateway interfaces.SportsGateway, cfg *config.Config, logger *logrus.Logger) *Grader {
	window := cfg.Gateway.RecentGamesWindow
	if window <= 0 {
		window = 10
	}
	return &Grader{
		gateway: gateway,
		grace:   cfg.Grading.SettlementGrace(),
		cutoff:  cfg.Grading.StaleCutoff(),
		window:  window,
		logger:  logger,
	}
}

// Due 开赛 + 宽限期之后才结算
func (g *Grader) Due(p *model.Pick, now time.Time) bool {
	return !now.Before(p.StartTime.Add(g.grace))
}

// Grade 返回 nil 表示暂不结算（未到期或比赛尚未结束且未过截止期）
func (g *Grader) Grade(ctx context.Context, p *model.Pick, now time.Time) (*Verdict, error) {
	if !g.Due(p, now) {
		return nil, nil
	}
	pastCutoff := !now.Before(p.StartTime.Add(g.cutoff))
	log := g.logger.WithFields(logrus.Fields{"pick_id": p.ID, "game_id": p.GameID})

	game, observed, err := g.findGame(ctx, p)
	if err != nil {
		return nil, err
	}

	switch {
	case !observed:
		if pastCutoff {
			log.Warn("已过截止期但未拿到实时比赛数据，继续等待")
		}
		return nil, nil
	case game == nil:
		if pastCutoff {
			log.Info("超过截止期仍未找到比赛结果，作废")
			return unresolved(p, ""), nil
		}
		return nil, nil
	case game.Status == model.GameFinal:
		return classify(p, game)
	case game.Status.IsUnplayable():
		if pastCutoff {
			log.WithField("game_status", game.Status).Info("比赛取消/延期超过截止期，作废")
			return unresolved(p, game.Status), nil
		}
		return nil, nil
	default:
		if pastCutoff {
			return unresolved(p, game.Status), nil
		}
		return nil, nil
	}
}

// findGame 在选中球队（大小分用主队）的最近比赛中查找，窗口逐步翻倍直到覆盖开赛时间。
// observed=false 表示网关不可用或只有兜底快照，此时不能据此判定比赛不存在
func (g *Grader) findGame(ctx context.Context, p *model.Pick) (game *model.GameResult, observed bool, err error) {
	team := p.HomeTeam
	if p.Side == model.SideAway {
		team = p.AwayTeam
	}
	for n := g.window; ; n *= 2 {
		recent, err := g.gateway.GetRecentGames(ctx, team, p.League, n)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			if errors.Is(err, model.ErrGatewayUnavailable) {
				g.logger.WithError(err).WithField("pick_id", p.ID).Warn("获取最近比赛失败，稍后重试")
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("GetRecentGames %s: %w", team, err)
		}
		if recent == nil || recent.Degraded {
			g.logger.WithField("pick_id", p.ID).Debug("最近比赛为兜底数据，不用于结算")
			return nil, false, nil
		}
		for i := range recent.Games {
			if recent.Games[i].GameID == p.GameID {
				return &recent.Games[i], true, nil
			}
		}
		if len(recent.Games) < n || n >= maxRecentWindow || coversStart(recent.Games, p.StartTime) {
			return nil, true, nil
		}
	}
}

// coversStart 最近比赛（最新在前）是否已回溯到开赛时间之前
func coversStart(games []model.GameResult, start time.Time) bool {
	last := games[len(games)-1].StartTime
	return !last.IsZero() && last.Before(start)
}

func unresolved(p *model.Pick, status model.GameStatus) *Verdict {
	return &Verdict{
		Status: model.StatusVoided,
		Payload: &model.ResultPayload{
			GameID:     p.GameID,
			GameStatus: status,
			HomeTeam:   p.HomeTeam,
			AwayTeam:   p.AwayTeam,
			Reason:     model.ReasonUnresolved,
		},
	}
}

func classify(p *model.Pick, game *model.GameResult) (*Verdict, error) {
	home, away := game.HomeScore, game.AwayScore
	// 网关可能主客颠倒，按队名对齐
	if game.HomeTeam == p.AwayTeam && game.AwayTeam == p.HomeTeam {
		home, away = away, home
	}
	payload := &model.ResultPayload{
		GameID:     p.GameID,
		GameStatus: game.Status,
		HomeTeam:   p.HomeTeam,
		AwayTeam:   p.AwayTeam,
		HomeScore:  &home,
		AwayScore:  &away,
	}

	var status model.PickStatus
	switch p.Market {
	case model.MarketMoneyline:
		chosen, other, err := sides(p, home, away)
		if err != nil {
			return nil, err
		}
		switch {
		case chosen > other:
			status = model.StatusWon
		case chosen < other:
			status = model.StatusLost
		default:
			status = model.StatusVoided
			payload.Reason = model.ReasonTie
		}
	case model.MarketSpread:
		if p.Line == nil {
			return nil, fmt.Errorf("让分推荐%s缺少line", p.ID)
		}
		chosen, other, err := sides(p, home, away)
		if err != nil {
			return nil, err
		}
		margin := decimal.NewFromInt(int64(chosen - other)).Add(decimal.NewFromFloat(*p.Line))
		m := margin.InexactFloat64()
		payload.Margin = &m
		status = compareZero(margin.Sign())
	case model.MarketTotal:
		if p.Line == nil {
			return nil, fmt.Errorf("大小分推荐%s缺少line", p.ID)
		}
		sum := decimal.NewFromInt(int64(home + away))
		t := sum.InexactFloat64()
		payload.Total = &t
		diff := sum.Cmp(decimal.NewFromFloat(*p.Line))
		switch p.Side {
		case model.SideOver:
			status = compareZero(diff)
		case model.SideUnder:
			status = compareZero(-diff)
		default:
			return nil, fmt.Errorf("大小分推荐%s下注方向非法: %s", p.ID, p.Side)
		}
	default:
		return nil, fmt.Errorf("未知盘口: %s", p.Market)
	}

	payload.Profit = settledProfit(status, p.Odds)
	return &Verdict{Status: status, Payload: payload}, nil
}

func sides(p *model.Pick, home, away int) (chosen, other int, err error) {
	switch p.Side {
	case model.SideHome:
		return home, away, nil
	case model.SideAway:
		return away, home, nil
	default:
		return 0, 0, fmt.Errorf("推荐%s下注方向非法: %s", p.ID, p.Side)
	}
}

func compareZero(sign int) model.PickStatus {
	switch {
	case sign > 0:
		return model.StatusWon
	case sign < 0:
		return model.StatusLost
	default:
		return model.StatusPushed
	}
}

// settledProfit 单位注额盈亏，保留三位小数
func settledProfit(status model.PickStatus, odds int) float64 {
	switch status {
	case model.StatusWon:
		return decimal.NewFromFloat(model.WinProfit(odds)).Round(3).InexactFloat64()
	case model.StatusLost:
		return -1
	case model.StatusPushed, model.StatusVoided, model.StatusPending:
		return 0
	default:
		return 0
	}
}
