package service

import (
	"fmt"
	"sort"

	"DailyPick/internal/config"
	"DailyPick/internal/engine"
	"DailyPick/internal/model"

	"github.com/shopspring/decimal"
)

// ScoredCandidate 打分后的候选
type ScoredCandidate struct {
	Candidate *model.Candidate
	Features  *engine.FeatureVector
	Score     *engine.Score
}

// Degraded 候选或任一输入来自兜底快照
func (s *ScoredCandidate) Degraded() bool {
	return s.Candidate.Degraded || (s.Features != nil && s.Features.Degraded)
}

// ImpliedEdge confidence/100 − 赔率隐含概率
func (s *ScoredCandidate) ImpliedEdge() float64 {
	p, err := model.ImpliedProbability(s.Candidate.Odds)
	if err != nil {
		return 0
	}
	return s.Score.Confidence/100 - p
}

// SelectOutcome 选择结果标签
type SelectOutcome int

const (
	Selected SelectOutcome = iota
	NoQualifyingCandidate
)

func (o SelectOutcome) String() string {
	switch o {
	case Selected:
		return "selected"
	case NoQualifyingCandidate:
		return "no_qualifying_candidate"
	default:
		return "unknown"
	}
}

// Selection 选择结果；Outcome 为 Selected 时 Winner 非空
type Selection struct {
	Outcome    SelectOutcome
	Winner     *ScoredCandidate
	Confidence float64 // 一位小数，银行家舍入
	Considered int
	Qualified  int
}

// Selector 阈值过滤 + 全键排序
type Selector struct {
	threshold     float64
	allowDegraded bool
}

func NewSelector(cfg config.PicksConfig) *Selector {
	return &Selector{threshold: cfg.MinimumConfidenceThreshold, allowDegraded: cfg.AllowDegradedPicks}
}

// RoundConfidence 四舍六入五成双到一位小数
func RoundConfidence(c float64) float64 {
	return decimal.NewFromFloat(c).RoundBank(1).InexactFloat64()
}

// Err 无达标候选时返回 ErrNoQualifyingCandidate，否则为 nil
func (s *Selection) Err() error {
	if s.Outcome != NoQualifyingCandidate {
		return nil
	}
	return fmt.Errorf("%w: considered %d, qualified %d", model.ErrNoQualifyingCandidate, s.Considered, s.Qualified)
}

// Select 入参顺序不影响结果
func (s *Selector) Select(scored []*ScoredCandidate) *Selection {
	res := &Selection{Outcome: NoQualifyingCandidate, Considered: len(scored)}

	var kept []*ScoredCandidate
	for _, sc := range scored {
		if sc == nil || sc.Score == nil {
			continue
		}
		// 舍入后仍需不低于阈值
		if sc.Score.Confidence < s.threshold || RoundConfidence(sc.Score.Confidence) < s.threshold {
			continue
		}
		if sc.Degraded() && !s.allowDegraded {
			continue
		}
		kept = append(kept, sc)
	}
	res.Qualified = len(kept)
	if len(kept) == 0 {
		return res
	}

	sort.SliceStable(kept, func(i, j int) bool { return ranksBefore(kept[i], kept[j]) })
	res.Outcome = Selected
	res.Winner = kept[0]
	res.Confidence = RoundConfidence(kept[0].Score.Confidence)
	return res
}

func ranksBefore(a, b *ScoredCandidate) bool {
	if a.Score.Confidence != b.Score.Confidence {
		return a.Score.Confidence > b.Score.Confidence
	}
	if ea, eb := a.ImpliedEdge(), b.ImpliedEdge(); ea != eb {
		return ea > eb
	}
	ca, cb := a.Candidate, b.Candidate
	if !ca.StartTime.Equal(cb.StartTime) {
		return ca.StartTime.Before(cb.StartTime)
	}
	if ca.GameID != cb.GameID {
		return ca.GameID < cb.GameID
	}
	if ca.Market != cb.Market {
		return ca.Market < cb.Market
	}
	return ca.Selection < cb.Selection
}
