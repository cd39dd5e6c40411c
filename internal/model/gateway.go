package model

import "time"

// InjuryStatus 伤病状态，严重度 OUT=3 DOUBTFUL=2 QUESTIONABLE=1 PROBABLE=0
type InjuryStatus string

const (
	InjuryOut          InjuryStatus = "OUT"
	InjuryDoubtful     InjuryStatus = "DOUBTFUL"
	InjuryQuestionable InjuryStatus = "QUESTIONABLE"
	InjuryProbable     InjuryStatus = "PROBABLE"
)

// Severity 伤病严重度分值，未知状态按 0 计
func (s InjuryStatus) Severity() int {
	switch s {
	case InjuryOut:
		return 3
	case InjuryDoubtful:
		return 2
	case InjuryQuestionable:
		return 1
	case InjuryProbable:
		return 0
	default:
		return 0
	}
}

// TeamStats 球队赛季数据
type TeamStats struct {
	Team          string     `json:"team" yaml:"team"`
	Wins          int        `json:"wins" yaml:"wins"`
	Losses        int        `json:"losses" yaml:"losses"`
	PointsFor     float64    `json:"points_for" yaml:"points_for"`         // 场均得分
	PointsAgainst float64    `json:"points_against" yaml:"points_against"` // 场均失分
	RecentForm    []string   `json:"recent_form" yaml:"recent_form"`       // 最近比赛 W/L/T，最新在前
	LastGameAt    *time.Time `json:"last_game_at,omitempty" yaml:"last_game_at,omitempty"`
	Degraded      bool       `json:"degraded" yaml:"-"`
}

// Injury 单个球员伤病
type Injury struct {
	Player   string       `json:"player" yaml:"player"`
	Status   InjuryStatus `json:"status" yaml:"status"`
	Position string       `json:"position" yaml:"position"`
}

// InjuryReport 球队伤病报告
type InjuryReport struct {
	Team     string   `json:"team"`
	Injuries []Injury `json:"injuries"`
	Degraded bool     `json:"degraded"`
}

// SeverityScore 全队伤病严重度之和
func (r *InjuryReport) SeverityScore() int {
	total := 0
	for _, inj := range r.Injuries {
		total += inj.Status.Severity()
	}
	return total
}

// GameResult 已进行/已安排比赛的结果
type GameResult struct {
	GameID    string     `json:"game_id" yaml:"game_id"`
	HomeTeam  string     `json:"home_team" yaml:"home_team"`
	AwayTeam  string     `json:"away_team" yaml:"away_team"`
	HomeScore int        `json:"home_score" yaml:"home_score"`
	AwayScore int        `json:"away_score" yaml:"away_score"`
	Status    GameStatus `json:"status" yaml:"status"`
	StartTime time.Time  `json:"start_time" yaml:"start_time"`
}

// RecentGames 最近比赛，最新在前
type RecentGames struct {
	Team     string       `json:"team"`
	Games    []GameResult `json:"games"`
	Degraded bool         `json:"degraded"`
}

// GameOdds 一场比赛的赔率，缺失的盘口为 nil
type GameOdds struct {
	HomeMoneyline  *int     `json:"home_moneyline,omitempty" yaml:"home_moneyline,omitempty"`
	AwayMoneyline  *int     `json:"away_moneyline,omitempty" yaml:"away_moneyline,omitempty"`
	HomeSpread     *float64 `json:"home_spread,omitempty" yaml:"home_spread,omitempty"` // 主队让分（客队取反）
	HomeSpreadOdds *int     `json:"home_spread_odds,omitempty" yaml:"home_spread_odds,omitempty"`
	AwaySpreadOdds *int     `json:"away_spread_odds,omitempty" yaml:"away_spread_odds,omitempty"`
	Total          *float64 `json:"total,omitempty" yaml:"total,omitempty"`
	OverOdds       *int     `json:"over_odds,omitempty" yaml:"over_odds,omitempty"`
	UnderOdds      *int     `json:"under_odds,omitempty" yaml:"under_odds,omitempty"`

	// 开盘独赢赔率，用于线路变动特征，可缺失
	OpeningHomeMoneyline *int `json:"opening_home_moneyline,omitempty" yaml:"opening_home_moneyline,omitempty"`
	OpeningAwayMoneyline *int `json:"opening_away_moneyline,omitempty" yaml:"opening_away_moneyline,omitempty"`
}

// Game 某日可下注的比赛（赔率内嵌）
type Game struct {
	League    League     `json:"league" yaml:"league"`
	GameID    string     `json:"game_id" yaml:"game_id"`
	HomeTeam  string     `json:"home_team" yaml:"home_team"`
	AwayTeam  string     `json:"away_team" yaml:"away_team"`
	StartTime time.Time  `json:"start_time" yaml:"start_time"`
	Status    GameStatus `json:"status" yaml:"status"`
	Odds      GameOdds   `json:"odds" yaml:"odds"`
	Degraded  bool       `json:"degraded" yaml:"-"`
}

// GameSlate 某联赛某日的全部比赛
type GameSlate struct {
	League   League `json:"league"`
	Day      Day    `json:"day"`
	Games    []Game `json:"games"`
	Degraded bool   `json:"degraded"`
}

// Candidate 候选注单（不落库）
type Candidate struct {
	League    League
	GameID    string
	HomeTeam  string
	AwayTeam  string
	StartTime time.Time
	Market    Market
	Side      Side
	Selection string
	Line      *float64 // 独赢为 nil
	Odds      int
	// 同方向开盘赔率（仅独赢），缺失为 nil
	OpeningOdds *int
	Degraded    bool
}

// SelectedTeam 下注球队，大小分返回空串
func (c *Candidate) SelectedTeam() string {
	switch c.Side {
	case SideHome:
		return c.HomeTeam
	case SideAway:
		return c.AwayTeam
	case SideOver, SideUnder:
		return ""
	default:
		return ""
	}
}
