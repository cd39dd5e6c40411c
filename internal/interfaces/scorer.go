package interfaces

import "DailyPick/internal/engine"

// PickScorer 由特征向量计算置信度与推荐理由，必须是确定性的
type PickScorer interface {
	Score(fv *engine.FeatureVector) (*engine.Score, error)
}
