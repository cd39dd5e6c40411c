package engine

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"DailyPick/internal/config"
	"DailyPick/internal/model"

	"github.com/shopspring/decimal"
)

const (
	// MaxReasoningLen 说明文字上限（字符）
	MaxReasoningLen = 500
	topFactorCount  = 3
)

var errSchemaMismatch = errors.New("feature schema version mismatch")

// Coefficients 线性模型系数：z = Intercept + Σ w_i·x_i
type Coefficients struct {
	Intercept float64
	Weights   [NumFeatures]float64
}

// DefaultCoefficients 内置系数，隐含概率以 0.5 为中心
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Intercept: -2.0,
		Weights: [NumFeatures]float64{
			FeatFormDelta:          1.5,
			FeatMarginDelta:        0.6,
			FeatRestDelta:          0.05,
			FeatInjuryDelta:        0.12,
			FeatHomeIndicator:      0.15,
			FeatImpliedProbability: 4.0,
			FeatMarketResidual:     6.0,
			FeatPaceIndicator:      4.0,
			FeatLineMovement:       5.0,
		},
	}
}

// CoefficientsFromConfig 以配置覆盖默认系数，未知特征名报错
func CoefficientsFromConfig(cfg config.ScorerConfig) (Coefficients, error) {
	c := DefaultCoefficients()
	if cfg.Intercept != nil {
		c.Intercept = *cfg.Intercept
	}
	for name, w := range cfg.Weights {
		idx := -1
		for i, n := range FeatureNames {
			if strings.EqualFold(n, name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return c, fmt.Errorf("未知特征权重 %q", name)
		}
		c.Weights[idx] = w
	}
	return c, nil
}

// Score 打分结果；Confidence 未取整，由选择器统一取一位小数
type Score struct {
	Confidence    float64
	Contributions [NumFeatures]float64
	Rationale     model.Rationale
}

// Scorer 确定性线性打分器
type Scorer struct {
	coef Coefficients
}

func NewScorer(coef Coefficients) *Scorer {
	return &Scorer{coef: coef}
}

// Score 计算置信度 100·σ(z)，并按贡献度取前三个因素生成理由
func (s *Scorer) Score(fv *FeatureVector) (*Score, error) {
	if fv == nil {
		return nil, errors.New("特征向量为空")
	}
	if fv.SchemaVersion != model.FeatureSchemaVersion {
		return nil, fmt.Errorf("%w: got %d want %d", errSchemaMismatch, fv.SchemaVersion, model.FeatureSchemaVersion)
	}

	z := s.coef.Intercept
	for i := 0; i < NumFeatures; i++ {
		z += s.coef.Weights[i] * fv.Values[i]
	}
	confidence := 100 * sigmoid(z)

	out := &Score{Confidence: confidence}
	for i := 0; i < NumFeatures; i++ {
		term := s.coef.Weights[i] * fv.Values[i]
		out.Contributions[i] = math.Abs(confidence - 100*sigmoid(z-term))
	}

	order := make([]int, NumFeatures)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := out.Contributions[order[a]], out.Contributions[order[b]]
		if ca != cb {
			return ca > cb
		}
		return order[a] < order[b]
	})

	factors := make([]string, 0, topFactorCount)
	confFactors := make(map[string]float64, topFactorCount)
	for _, idx := range order[:topFactorCount] {
		factors = append(factors, renderFactor(FeatureIndex(idx), fv))
		confFactors[FeatureNames[idx]] = decimal.NewFromFloat(out.Contributions[idx]).Round(2).InexactFloat64()
	}

	out.Rationale = model.Rationale{
		TopFactors:        factors,
		Reasoning:         buildReasoning(confidence, factors),
		RiskAssessment:    assessRisk(confidence, fv),
		ConfidenceFactors: confFactors,
	}
	return out, nil
}

// 每个特征一个模板
var factorTemplates = [NumFeatures]func(v float64) string{
	FeatFormDelta: func(v float64) string {
		return fmt.Sprintf("Recent form edge of %+.0f%% win rate", v*100)
	},
	FeatMarginDelta: func(v float64) string {
		return fmt.Sprintf("Scoring margin differential of %+.2f (league-scaled)", v)
	},
	FeatRestDelta: func(v float64) string {
		return fmt.Sprintf("Rest advantage of %+.0f days", v)
	},
	FeatInjuryDelta: func(v float64) string {
		return fmt.Sprintf("Injury severity differential of %+.0f", v)
	},
	FeatHomeIndicator: func(v float64) string {
		switch {
		case v > 0:
			return "Home field advantage"
		case v < 0:
			return "Playing on the road"
		default:
			return "Neutral venue factor"
		}
	},
	FeatImpliedProbability: func(v float64) string {
		return fmt.Sprintf("Market implies %.1f%% win probability", v*100)
	},
	FeatMarketResidual: func(v float64) string {
		return fmt.Sprintf("Model edge of %+.1f%% over the market", v*100)
	},
	FeatPaceIndicator: func(v float64) string {
		return fmt.Sprintf("Projected scoring pace %+.1f%% against the posted total", v*100)
	},
	FeatLineMovement: func(v float64) string {
		return fmt.Sprintf("Line moved %+.1f%% toward this selection since open", v*100)
	},
}

func renderFactor(i FeatureIndex, fv *FeatureVector) string {
	text := factorTemplates[i](fv.Values[i])
	if fv.IsMissing(i) {
		text += " (data unavailable)"
	}
	return text
}

func buildReasoning(confidence float64, factors []string) string {
	text := fmt.Sprintf("Model confidence %.1f%%. Key signals: %s.", confidence, strings.Join(factors, "; "))
	return truncate(text, MaxReasoningLen)
}

// truncate 按字符截断
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

func assessRisk(confidence float64, fv *FeatureVector) string {
	var risks []string
	if confidence < 70 {
		risks = append(risks, "Moderate confidence level")
	}
	if !fv.IsMissing(FeatImpliedProbability) && math.Abs(fv.Values[FeatImpliedProbability]-0.5) < 0.05 {
		risks = append(risks, "Close odds indicate tight matchup")
	}
	if fv.Missing != 0 {
		risks = append(risks, "Some inputs unavailable")
	}
	if fv.Degraded {
		risks = append(risks, "Built from fallback data")
	}
	if len(risks) == 0 {
		return "Low risk factors identified"
	}
	return strings.Join(risks, "; ")
}
