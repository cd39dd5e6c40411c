package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"DailyPick/internal/config"
	"DailyPick/internal/interfaces"
	"DailyPick/internal/model"

	"github.com/sirupsen/logrus"
)

// Enumerator 把当日比赛展开为 比赛 × 盘口 × 下注方向 的候选集合
type Enumerator struct {
	gateway       interfaces.SportsGateway
	leagues       []model.League
	markets       []model.Market
	allowDegraded bool
	minOdds       int
	maxOdds       int
	logger        *logrus.Logger
}

// NewEnumerator 解析启用的联赛/盘口，配置非法时返回错误
func NewEnumerator(gateway interfaces.SportsGateway, cfg config.PicksConfig, logger *logrus.Logger) (*Enumerator, error) {
	leagues, err := cfg.Leagues()
	if err != nil {
		return nil, err
	}
	markets, err := cfg.Markets()
	if err != nil {
		return nil, err
	}
	return &Enumerator{
		gateway:       gateway,
		leagues:       leagues,
		markets:       markets,
		allowDegraded: cfg.DegradedCandidatesAllowed(),
		minOdds:       cfg.MinOdds,
		maxOdds:       cfg.MaxOdds,
		logger:        logger,
	}, nil
}

// Enumerate 返回按 (league, start_time, game_id, market, selection) 排序的候选。
// 单个联赛网关不可用时跳过该联赛；ctx 取消直接返回。
func (e *Enumerator) Enumerate(ctx context.Context, day model.Day, now time.Time) ([]*model.Candidate, error) {
	var out []*model.Candidate
	for _, league := range e.leagues {
		slate, err := e.gateway.GetGamesForDate(ctx, day, league)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, model.ErrGatewayUnavailable) {
				e.logger.WithError(err).WithFields(logrus.Fields{"league": league, "date": day}).
					Warn("获取比赛列表失败，跳过该联赛")
				continue
			}
			return nil, fmt.Errorf("GetGamesForDate %s: %w", league, err)
		}
		for i := range slate.Games {
			g := slate.Games[i]
			if g.League == "" {
				g.League = league
			}
			g.Degraded = g.Degraded || slate.Degraded
			out = append(out, e.expand(&g, now)...)
		}
	}
	sortCandidates(out)
	return out, nil
}

// expand 单场比赛的候选；任何启用盘口缺赔率则整场丢弃
func (e *Enumerator) expand(g *model.Game, now time.Time) []*model.Candidate {
	log := e.logger.WithFields(logrus.Fields{"league": g.League, "game_id": g.GameID})
	if !g.StartTime.After(now) {
		log.Debug("比赛已开始，跳过")
		return nil
	}
	if g.Status != "" && g.Status != model.GameScheduled {
		log.WithField("status", g.Status).Debug("比赛状态不可下注，跳过")
		return nil
	}
	if g.Degraded && !e.allowDegraded {
		log.WithError(model.ErrGatewayDegraded).Info("比赛数据来自兜底快照，跳过")
		return nil
	}
	for _, m := range e.markets {
		if !hasOdds(&g.Odds, m) {
			log.WithField("market", m).Debug("盘口缺少赔率，跳过整场比赛")
			return nil
		}
	}

	var out []*model.Candidate
	for _, m := range e.markets {
		for _, c := range marketCandidates(g, m) {
			if !e.acceptOdds(c.Odds) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

func (e *Enumerator) acceptOdds(o int) bool {
	if !model.ValidAmericanOdds(o) {
		return false
	}
	if e.minOdds != 0 && o < e.minOdds {
		return false
	}
	if e.maxOdds != 0 && o > e.maxOdds {
		return false
	}
	return true
}

func hasOdds(o *model.GameOdds, m model.Market) bool {
	switch m {
	case model.MarketMoneyline:
		return o.HomeMoneyline != nil && o.AwayMoneyline != nil
	case model.MarketSpread:
		return o.HomeSpread != nil && o.HomeSpreadOdds != nil && o.AwaySpreadOdds != nil
	case model.MarketTotal:
		return o.Total != nil && o.OverOdds != nil && o.UnderOdds != nil
	default:
		return false
	}
}

func marketCandidates(g *model.Game, m model.Market) []*model.Candidate {
	base := func(side model.Side, selection string, line *float64, odds int) *model.Candidate {
		return &model.Candidate{
			League:    g.League,
			GameID:    g.GameID,
			HomeTeam:  g.HomeTeam,
			AwayTeam:  g.AwayTeam,
			StartTime: g.StartTime.UTC(),
			Market:    m,
			Side:      side,
			Selection: selection,
			Line:      line,
			Odds:      odds,
			Degraded:  g.Degraded,
		}
	}

	o := g.Odds
	switch m {
	case model.MarketMoneyline:
		home := base(model.SideHome, g.HomeTeam+" ML", nil, *o.HomeMoneyline)
		home.OpeningOdds = o.OpeningHomeMoneyline
		away := base(model.SideAway, g.AwayTeam+" ML", nil, *o.AwayMoneyline)
		away.OpeningOdds = o.OpeningAwayMoneyline
		return []*model.Candidate{home, away}
	case model.MarketSpread:
		homeLine := *o.HomeSpread
		awayLine := -homeLine
		return []*model.Candidate{
			base(model.SideHome, g.HomeTeam+" "+formatSpread(homeLine), &homeLine, *o.HomeSpreadOdds),
			base(model.SideAway, g.AwayTeam+" "+formatSpread(awayLine), &awayLine, *o.AwaySpreadOdds),
		}
	case model.MarketTotal:
		over, under := *o.Total, *o.Total
		total := strconv.FormatFloat(*o.Total, 'f', -1, 64)
		return []*model.Candidate{
			base(model.SideOver, "Over "+total, &over, *o.OverOdds),
			base(model.SideUnder, "Under "+total, &under, *o.UnderOdds),
		}
	default:
		return nil
	}
}

// formatSpread -3.5 → "-3.5"，3 → "+3"，0 → "PK"
func formatSpread(line float64) string {
	if line == 0 {
		return "PK"
	}
	s := strconv.FormatFloat(line, 'f', -1, 64)
	if line > 0 {
		s = "+" + s
	}
	return s
}

func sortCandidates(cs []*model.Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		a, b := cs[i], cs[j]
		if a.League != b.League {
			return a.League < b.League
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		if a.GameID != b.GameID {
			return a.GameID < b.GameID
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.Selection < b.Selection
	})
}
