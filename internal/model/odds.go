package model

import "fmt"

// ValidAmericanOdds 美式赔率必须 >= +100 或 <= -100
func ValidAmericanOdds(o int) bool {
	return o >= 100 || o <= -100
}

// WinProfit 单位注额赢时的盈利：正赔率 o/100，负赔率 100/|o|
func WinProfit(o int) float64 {
	if o > 0 {
		return float64(o) / 100.0
	}
	if o < 0 {
		return 100.0 / float64(-o)
	}
	return 0
}

// ImpliedProbability 隐含概率：正赔率 100/(o+100)，负赔率 |o|/(|o|+100)
func ImpliedProbability(o int) (float64, error) {
	if !ValidAmericanOdds(o) {
		return 0, fmt.Errorf("非法美式赔率: %d", o)
	}
	if o > 0 {
		return 100.0 / float64(o+100), nil
	}
	a := float64(-o)
	return a / (a + 100.0), nil
}
