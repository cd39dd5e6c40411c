package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PerformanceStats 单个维度（全部/某联赛）的战绩
type PerformanceStats struct {
	Total         int      `json:"total"`
	Won           int      `json:"won"`
	Lost          int      `json:"lost"`
	Pushed        int      `json:"pushed"`
	Voided        int      `json:"voided"`
	WinRate       *float64 `json:"win_rate"` // won/(won+lost)，分母为 0 时为 null
	ROI           float64  `json:"roi"`      // 单位注额累计盈亏
	CurrentStreak int      `json:"current_streak"`
}

// PerformanceSnapshot 仅由已结算推荐计算的战绩视图
type PerformanceSnapshot struct {
	Overall     PerformanceStats            `json:"overall"`
	ByLeague    map[League]PerformanceStats `json:"by_league"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

type statsAccumulator struct {
	stats  PerformanceStats
	roi    decimal.Decimal
	graded []*Pick
}

func (a *statsAccumulator) add(p *Pick) {
	switch p.Status {
	case StatusWon:
		a.stats.Won++
	case StatusLost:
		a.stats.Lost++
	case StatusPushed:
		a.stats.Pushed++
	case StatusVoided:
		a.stats.Voided++
	case StatusPending:
		return
	default:
		return
	}
	a.stats.Total++
	a.roi = a.roi.Add(decimal.NewFromFloat(p.Profit()))
	a.graded = append(a.graded, p)
}

func (a *statsAccumulator) finish() PerformanceStats {
	s := a.stats
	if d := s.Won + s.Lost; d > 0 {
		rate := float64(s.Won) / float64(d)
		s.WinRate = &rate
	}
	s.ROI = a.roi.Round(4).InexactFloat64()
	s.CurrentStreak = streak(a.graded)
	return s
}

// streak 从最近结算的一条往前数：连胜为正，连败为负，走水/作废归零
func streak(graded []*Pick) int {
	if len(graded) == 0 {
		return 0
	}
	last := graded[len(graded)-1].Status
	if last != StatusWon && last != StatusLost {
		return 0
	}
	n := 0
	for i := len(graded) - 1; i >= 0; i-- {
		if graded[i].Status != last {
			break
		}
		n++
	}
	if last == StatusLost {
		return -n
	}
	return n
}

// BuildPerformance 汇总战绩，忽略未结算的推荐
func BuildPerformance(picks []*Pick, now time.Time) *PerformanceSnapshot {
	ordered := make([]*Pick, 0, len(picks))
	for _, p := range picks {
		if p != nil && p.Status.IsTerminal() && p.GradedAt != nil {
			ordered = append(ordered, p)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		gi, gj := *ordered[i].GradedAt, *ordered[j].GradedAt
		if !gi.Equal(gj) {
			return gi.Before(gj)
		}
		if ordered[i].Date != ordered[j].Date {
			return ordered[i].Date < ordered[j].Date
		}
		return ordered[i].ID < ordered[j].ID
	})

	overall := &statsAccumulator{roi: decimal.Zero}
	byLeague := make(map[League]*statsAccumulator)
	for _, p := range ordered {
		overall.add(p)
		acc, ok := byLeague[p.League]
		if !ok {
			acc = &statsAccumulator{roi: decimal.Zero}
			byLeague[p.League] = acc
		}
		acc.add(p)
	}

	snap := &PerformanceSnapshot{
		Overall:     overall.finish(),
		ByLeague:    make(map[League]PerformanceStats, len(byLeague)),
		GeneratedAt: now,
	}
	for l, acc := range byLeague {
		snap.ByLeague[l] = acc.finish()
	}
	return snap
}
