package sportsdata

import (
	"fmt"
	"strings"
	"time"

	"DailyPick/internal/model"
)

// SportsData 各联赛字段名略有差异，encoding/json 按字段名大小写不敏感匹配

// gameDTO 赛程/比分
type gameDTO struct {
	GameID        int    `json:"GameID"`
	ScoreID       int    `json:"ScoreID"` // NFL 用 ScoreID 作为比赛主键
	Status        string `json:"Status"`
	DateTime      string `json:"DateTime"`    // 美东时间，无时区
	DateTimeUTC   string `json:"DateTimeUTC"` // 部分联赛提供
	HomeTeam      string `json:"HomeTeam"`
	AwayTeam      string `json:"AwayTeam"`
	HomeTeamScore *int   `json:"HomeTeamScore"`
	AwayTeamScore *int   `json:"AwayTeamScore"`
	HomeScore     *int   `json:"HomeScore"`
	AwayScore     *int   `json:"AwayScore"`
	HomeTeamRuns  *int   `json:"HomeTeamRuns"`
	AwayTeamRuns  *int   `json:"AwayTeamRuns"`
}

// gameOddsDTO 按日期的赔率
type gameOddsDTO struct {
	gameDTO
	PregameOdds []pregameOddsDTO `json:"PregameOdds"`
}

type pregameOddsDTO struct {
	Sportsbook            string   `json:"Sportsbook"`
	HomeMoneyLine         *int     `json:"HomeMoneyLine"`
	AwayMoneyLine         *int     `json:"AwayMoneyLine"`
	HomePointSpread       *float64 `json:"HomePointSpread"`
	HomePointSpreadPayout *int     `json:"HomePointSpreadPayout"`
	AwayPointSpreadPayout *int     `json:"AwayPointSpreadPayout"`
	OverUnder             *float64 `json:"OverUnder"`
	OverPayout            *int     `json:"OverPayout"`
	UnderPayout           *int     `json:"UnderPayout"`
}

// teamSeasonDTO 球队赛季汇总
type teamSeasonDTO struct {
	Team          string  `json:"Team"`
	Wins          int     `json:"Wins"`
	Losses        int     `json:"Losses"`
	Games         int     `json:"Games"`
	Score         float64 `json:"Score"`         // 赛季总得分
	OpponentScore float64 `json:"OpponentScore"` // 赛季总失分
	Runs          float64 `json:"Runs"`
	OpponentRuns  float64 `json:"OpponentRuns"`
	Goals         float64 `json:"Goals"`
	OpponentGoals float64 `json:"OpponentGoals"`
}

// injuryDTO 伤病球员
type injuryDTO struct {
	Name         string `json:"Name"`
	Team         string `json:"Team"`
	Position     string `json:"Position"`
	InjuryStatus string `json:"InjuryStatus"`
}

func (g *gameDTO) id(league model.League) string {
	id := g.GameID
	if id == 0 {
		id = g.ScoreID
	}
	return fmt.Sprintf("sd-%s-%d", league, id)
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// startTime 优先 DateTimeUTC，否则按美东时间解析 DateTime
func (g *gameDTO) startTime() (time.Time, error) {
	const layout = "2006-01-02T15:04:05"
	if g.DateTimeUTC != "" {
		return time.ParseInLocation(layout, trimFraction(g.DateTimeUTC), time.UTC)
	}
	if g.DateTime == "" {
		return time.Time{}, fmt.Errorf("比赛缺少开赛时间")
	}
	t, err := time.ParseInLocation(layout, trimFraction(g.DateTime), model.CanonicalLocation())
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func trimFraction(s string) string {
	if i := strings.IndexByte(s, '.'); i > 0 {
		return s[:i]
	}
	return s
}

func (g *gameDTO) toResult(league model.League) (model.GameResult, error) {
	start, err := g.startTime()
	if err != nil {
		return model.GameResult{}, err
	}
	r := model.GameResult{
		GameID:    g.id(league),
		HomeTeam:  g.HomeTeam,
		AwayTeam:  g.AwayTeam,
		Status:    model.ParseGameStatus(g.Status),
		StartTime: start,
	}
	if hs := firstInt(g.HomeTeamScore, g.HomeScore, g.HomeTeamRuns); hs != nil {
		r.HomeScore = *hs
	}
	if as := firstInt(g.AwayTeamScore, g.AwayScore, g.AwayTeamRuns); as != nil {
		r.AwayScore = *as
	}
	return r, nil
}

// consensusOdds 取第一家提供独赢赔率的博彩公司（SportsData 将 Consensus 排在首位）
func consensusOdds(odds []pregameOddsDTO) model.GameOdds {
	var out model.GameOdds
	for _, o := range odds {
		if o.HomeMoneyLine == nil && o.HomePointSpread == nil && o.OverUnder == nil {
			continue
		}
		out.HomeMoneyline = o.HomeMoneyLine
		out.AwayMoneyline = o.AwayMoneyLine
		out.HomeSpread = o.HomePointSpread
		out.HomeSpreadOdds = o.HomePointSpreadPayout
		out.AwaySpreadOdds = o.AwayPointSpreadPayout
		out.Total = o.OverUnder
		out.OverOdds = o.OverPayout
		out.UnderOdds = o.UnderPayout
		break
	}
	return out
}

// perGame 赛季总分换算为场均，兼容得分/跑分/进球三种字段
func (t *teamSeasonDTO) perGame() (pf, pa float64) {
	games := t.Games
	if games <= 0 {
		games = t.Wins + t.Losses
	}
	if games <= 0 {
		return 0, 0
	}
	scored, allowed := t.Score, t.OpponentScore
	if scored == 0 && allowed == 0 {
		scored, allowed = t.Runs, t.OpponentRuns
	}
	if scored == 0 && allowed == 0 {
		scored, allowed = t.Goals, t.OpponentGoals
	}
	return scored / float64(games), allowed / float64(games)
}

// injuryStatus SportsData 文案 → 伤病枚举，无法识别的返回 false
func injuryStatus(s string) (model.InjuryStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OUT", "INJURED RESERVE", "IR":
		return model.InjuryOut, true
	case "DOUBTFUL":
		return model.InjuryDoubtful, true
	case "QUESTIONABLE", "DAY-TO-DAY", "GTD":
		return model.InjuryQuestionable, true
	case "PROBABLE":
		return model.InjuryProbable, true
	default:
		return "", false
	}
}
