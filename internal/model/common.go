package model

import (
	"fmt"
	"strings"
)

// League 联赛枚举（封闭集合，路由网关调用）
type League string

const (
	LeagueNFL League = "NFL"
	LeagueNBA League = "NBA"
	LeagueMLB League = "MLB"
	LeagueNHL League = "NHL"
)

// AllLeagues 按固定顺序列出所有联赛
var AllLeagues = []League{LeagueNFL, LeagueNBA, LeagueMLB, LeagueNHL}

// ParseLeague 大小写不敏感解析联赛，未知值返回错误
func ParseLeague(s string) (League, error) {
	switch League(strings.ToUpper(strings.TrimSpace(s))) {
	case LeagueNFL:
		return LeagueNFL, nil
	case LeagueNBA:
		return LeagueNBA, nil
	case LeagueMLB:
		return LeagueMLB, nil
	case LeagueNHL:
		return LeagueNHL, nil
	default:
		return "", fmt.Errorf("未知联赛: %q", s)
	}
}

// Market 盘口类型枚举，决定 selection/line 的解释方式
type Market string

const (
	MarketMoneyline Market = "MONEYLINE"
	MarketSpread    Market = "SPREAD"
	MarketTotal     Market = "TOTAL"
)

var AllMarkets = []Market{MarketMoneyline, MarketSpread, MarketTotal}

func ParseMarket(s string) (Market, error) {
	switch Market(strings.ToUpper(strings.TrimSpace(s))) {
	case MarketMoneyline:
		return MarketMoneyline, nil
	case MarketSpread:
		return MarketSpread, nil
	case MarketTotal:
		return MarketTotal, nil
	default:
		return "", fmt.Errorf("未知盘口: %q", s)
	}
}

// Side 下注方向：让分/独赢为主客队，大小分为 OVER/UNDER
type Side string

const (
	SideHome  Side = "HOME"
	SideAway  Side = "AWAY"
	SideOver  Side = "OVER"
	SideUnder Side = "UNDER"
)

func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideHome:
		return SideHome, nil
	case SideAway:
		return SideAway, nil
	case SideOver:
		return SideOver, nil
	case SideUnder:
		return SideUnder, nil
	default:
		return "", fmt.Errorf("未知下注方向: %q", s)
	}
}

// PickStatus 推荐状态，PENDING 只能向其余四个状态迁移一次
type PickStatus string

const (
	StatusPending PickStatus = "PENDING"
	StatusWon     PickStatus = "WON"
	StatusLost    PickStatus = "LOST"
	StatusPushed  PickStatus = "PUSHED"
	StatusVoided  PickStatus = "VOIDED"
)

func ParsePickStatus(s string) (PickStatus, error) {
	switch PickStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusWon:
		return StatusWon, nil
	case StatusLost:
		return StatusLost, nil
	case StatusPushed:
		return StatusPushed, nil
	case StatusVoided:
		return StatusVoided, nil
	default:
		return "", fmt.Errorf("未知推荐状态: %q", s)
	}
}

// IsTerminal 是否为已结算状态
func (s PickStatus) IsTerminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusPushed, StatusVoided:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

// GameStatus 网关返回的比赛状态
type GameStatus string

const (
	GameScheduled  GameStatus = "SCHEDULED"
	GameInProgress GameStatus = "IN_PROGRESS"
	GameFinal      GameStatus = "FINAL"
	GamePostponed  GameStatus = "POSTPONED"
	GameCanceled   GameStatus = "CANCELED"
	GameSuspended  GameStatus = "SUSPENDED"
)

// ParseGameStatus 兼容数据源的多种写法（Final/F/Final OT/Canceled/Cancelled 等）
func ParseGameStatus(s string) GameStatus {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case v == "F" || strings.HasPrefix(v, "FINAL") || v == "CLOSED" || v == "COMPLETED":
		return GameFinal
	case v == "POSTPONED":
		return GamePostponed
	case v == "CANCELED" || v == "CANCELLED" || v == "FORFEIT":
		return GameCanceled
	case v == "SUSPENDED" || v == "DELAYED":
		return GameSuspended
	case v == "INPROGRESS" || v == "IN_PROGRESS" || v == "LIVE":
		return GameInProgress
	default:
		return GameScheduled
	}
}

// IsUnplayable 取消/延期/暂停
func (s GameStatus) IsUnplayable() bool {
	return s == GamePostponed || s == GameCanceled || s == GameSuspended
}
