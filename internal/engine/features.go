package engine

import (
	"math"
	"time"

	"DailyPick/internal/model"
)

// NumFeatures 特征向量宽度（schema v1）
const NumFeatures = 9

// FeatureIndex 特征下标，顺序即 schema，不可调整
type FeatureIndex int

const (
	FeatFormDelta FeatureIndex = iota
	FeatMarginDelta
	FeatRestDelta
	FeatInjuryDelta
	FeatHomeIndicator
	FeatImpliedProbability
	FeatMarketResidual
	FeatPaceIndicator
	FeatLineMovement
)

// FeatureNames schema v1 的特征名
var FeatureNames = [NumFeatures]string{
	"form_delta",
	"margin_delta",
	"rest_delta",
	"injury_delta",
	"home_indicator",
	"implied_probability",
	"market_residual",
	"pace_indicator",
	"line_movement",
}

func (i FeatureIndex) String() string {
	if i < 0 || int(i) >= NumFeatures {
		return "unknown"
	}
	return FeatureNames[i]
}

// FeatureVector 定长特征向量；缺失特征取 0 并置 missing 位
type FeatureVector struct {
	SchemaVersion int
	Values        [NumFeatures]float64
	Missing       uint16
	Degraded      bool
}

func (v *FeatureVector) Get(i FeatureIndex) float64 { return v.Values[i] }

func (v *FeatureVector) IsMissing(i FeatureIndex) bool { return v.Missing&(1<<uint(i)) != 0 }

func (v *FeatureVector) set(i FeatureIndex, val float64) {
	v.Values[i] = val
	v.Missing &^= 1 << uint(i)
}

func (v *FeatureVector) markMissing(i FeatureIndex) {
	v.Values[i] = 0
	v.Missing |= 1 << uint(i)
}

// TeamContext 单支球队的网关数据，任一字段为 nil 表示该项缺失
type TeamContext struct {
	Stats    *model.TeamStats
	Injuries *model.InjuryReport
	Recent   *model.RecentGames
}

// Degraded 任一数据来自兜底快照
func (t *TeamContext) Degraded() bool {
	if t == nil {
		return false
	}
	return (t.Stats != nil && t.Stats.Degraded) ||
		(t.Injuries != nil && t.Injuries.Degraded) ||
		(t.Recent != nil && t.Recent.Degraded)
}

// 各联赛净胜分的归一化尺度
var marginScale = map[model.League]float64{
	model.LeagueNFL: 10,
	model.LeagueNBA: 12,
	model.LeagueMLB: 2,
	model.LeagueNHL: 1.5,
}

const maxRestDays = 10

// FeatureBuilder 纯函数：候选 + 主客队数据 → 特征向量
type FeatureBuilder struct{}

func NewFeatureBuilder() *FeatureBuilder { return &FeatureBuilder{} }

// Build 队伍相关特征以所选一方为正方向；大小分盘的队伍特征为 0（不算缺失）
func (b *FeatureBuilder) Build(c *model.Candidate, home, away *TeamContext) *FeatureVector {
	fv := &FeatureVector{
		SchemaVersion: model.FeatureSchemaVersion,
		Degraded:      c.Degraded || home.Degraded() || away.Degraded(),
	}

	implied, err := model.ImpliedProbability(c.Odds)
	if err != nil {
		fv.markMissing(FeatImpliedProbability)
	} else {
		fv.set(FeatImpliedProbability, implied)
	}

	if c.OpeningOdds != nil && err == nil {
		if opening, oerr := model.ImpliedProbability(*c.OpeningOdds); oerr == nil {
			fv.set(FeatLineMovement, implied-opening)
		} else {
			fv.markMissing(FeatLineMovement)
		}
	} else {
		fv.markMissing(FeatLineMovement)
	}

	switch c.Side {
	case model.SideHome:
		b.teamFeatures(fv, c, home, away, 1)
	case model.SideAway:
		b.teamFeatures(fv, c, away, home, -1)
	case model.SideOver:
		b.totalFeatures(fv, c, home, away, 1)
	case model.SideUnder:
		b.totalFeatures(fv, c, home, away, -1)
	default:
		for i := FeatureIndex(0); i < NumFeatures; i++ {
			if i != FeatImpliedProbability && i != FeatLineMovement {
				fv.markMissing(i)
			}
		}
	}
	return fv
}

func (b *FeatureBuilder) teamFeatures(fv *FeatureVector, c *model.Candidate, sel, opp *TeamContext, home float64) {
	fv.set(FeatHomeIndicator, home)
	fv.set(FeatPaceIndicator, 0)

	selForm, okSel := formPct(sel)
	oppForm, okOpp := formPct(opp)
	if okSel && okOpp {
		fv.set(FeatFormDelta, selForm-oppForm)
	} else {
		fv.markMissing(FeatFormDelta)
	}

	selMargin, okSel := netMargin(sel)
	oppMargin, okOpp := netMargin(opp)
	if okSel && okOpp {
		scale := marginScale[c.League]
		if scale == 0 {
			scale = 1
		}
		fv.set(FeatMarginDelta, (selMargin-oppMargin)/scale)
	} else {
		fv.markMissing(FeatMarginDelta)
	}

	selRest, okSel := restDays(sel, c.StartTime)
	oppRest, okOpp := restDays(opp, c.StartTime)
	if okSel && okOpp {
		fv.set(FeatRestDelta, selRest-oppRest)
	} else {
		fv.markMissing(FeatRestDelta)
	}

	if sel != nil && sel.Injuries != nil && opp != nil && opp.Injuries != nil {
		fv.set(FeatInjuryDelta, float64(opp.Injuries.SeverityScore()-sel.Injuries.SeverityScore()))
	} else {
		fv.markMissing(FeatInjuryDelta)
	}

	// 混合概率 = 0.5*模型 + 0.5*市场；核心信号全缺失时不估计
	if fv.IsMissing(FeatImpliedProbability) || (fv.IsMissing(FeatFormDelta) && fv.IsMissing(FeatMarginDelta)) {
		fv.markMissing(FeatMarketResidual)
		return
	}
	z := 1.2*fv.Get(FeatFormDelta) +
		0.8*fv.Get(FeatMarginDelta) +
		0.05*fv.Get(FeatRestDelta) +
		0.08*fv.Get(FeatInjuryDelta) +
		0.1*fv.Get(FeatHomeIndicator)
	fv.set(FeatMarketResidual, 0.5*(sigmoid(z)-fv.Get(FeatImpliedProbability)))
}

func (b *FeatureBuilder) totalFeatures(fv *FeatureVector, c *model.Candidate, home, away *TeamContext, dir float64) {
	for _, i := range []FeatureIndex{FeatFormDelta, FeatMarginDelta, FeatRestDelta, FeatInjuryDelta, FeatHomeIndicator} {
		fv.set(i, 0)
	}
	if c.Line == nil || *c.Line <= 0 || home == nil || home.Stats == nil || away == nil || away.Stats == nil {
		fv.markMissing(FeatPaceIndicator)
		fv.markMissing(FeatMarketResidual)
		return
	}
	expected := (home.Stats.PointsFor+away.Stats.PointsAgainst)/2 + (away.Stats.PointsFor+home.Stats.PointsAgainst)/2
	pace := dir * (expected - *c.Line) / *c.Line
	fv.set(FeatPaceIndicator, pace)

	if fv.IsMissing(FeatImpliedProbability) {
		fv.markMissing(FeatMarketResidual)
		return
	}
	fv.set(FeatMarketResidual, 0.5*(sigmoid(3*pace)-fv.Get(FeatImpliedProbability)))
}

// formPct 最近战绩胜率：W=1 T=0.5 L=0
func formPct(t *TeamContext) (float64, bool) {
	if t == nil || t.Stats == nil || len(t.Stats.RecentForm) == 0 {
		return 0, false
	}
	var pts float64
	n := 0
	for _, r := range t.Stats.RecentForm {
		switch r {
		case "W", "w":
			pts++
			n++
		case "T", "t", "D", "d":
			pts += 0.5
			n++
		case "L", "l":
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return pts / float64(n), true
}

// netMargin 场均净胜分
func netMargin(t *TeamContext) (float64, bool) {
	if t == nil || t.Stats == nil || t.Stats.Wins+t.Stats.Losses == 0 {
		return 0, false
	}
	return t.Stats.PointsFor - t.Stats.PointsAgainst, true
}

// restDays 距开赛的休息天数：优先最近一场已完赛比赛，其次赛季数据中的 LastGameAt
func restDays(t *TeamContext, start time.Time) (float64, bool) {
	if t == nil {
		return 0, false
	}
	var last *time.Time
	if t.Recent != nil {
		for i := range t.Recent.Games {
			g := t.Recent.Games[i]
			if g.Status == model.GameFinal && g.StartTime.Before(start) {
				last = &g.StartTime
				break
			}
		}
	}
	if last == nil && t.Stats != nil && t.Stats.LastGameAt != nil && t.Stats.LastGameAt.Before(start) {
		last = t.Stats.LastGameAt
	}
	if last == nil {
		return 0, false
	}
	days := math.Floor(start.Sub(*last).Hours() / 24)
	return math.Min(days, maxRestDays), true
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
