package optimizer

import (
	"fmt"
	"math"

	"github.com/sei-dlp/engine/internal/types"
)

// trendWindow is how many of the most recent closes drive the trend score.
const trendWindow = 10

// AnalyzeTrend classifies a closing-price series as bullish, bearish, or
// neutral and projects a price target with support/resistance levels. The
// trend score is the relative move across the trailing window; the +-2%
// bands separate a real trend from noise.
func (o *Optimizer) AnalyzeTrend(closes []float64) (types.TrendAnalysis, error) {
	if len(closes) < 2 {
		return types.TrendAnalysis{}, fmt.Errorf("%w: need at least 2 closing prices, got %d",
			ErrInvalidInput, len(closes))
	}

	recent := closes
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}

	first, last := recent[0], recent[len(recent)-1]
	if first <= 0 || math.IsNaN(first) || math.IsNaN(last) {
		return types.TrendAnalysis{}, fmt.Errorf("%w: closing prices must be positive and finite", ErrInvalidInput)
	}

	score := (last - first) / first

	lowest, highest := closes[0], closes[0]
	for _, c := range closes {
		lowest = math.Min(lowest, c)
		highest = math.Max(highest, c)
	}

	analysis := types.TrendAnalysis{
		TrendScore:       score,
		Confidence:       math.Min(0.9, math.Abs(score)*10+0.5),
		SupportLevels:    []float64{lowest, lowest * 0.95},
		ResistanceLevels: []float64{highest, highest * 1.05},
	}

	switch {
	case score > 0.02:
		analysis.Trend = types.TrendBullish
		analysis.PredictedPrice = last * 1.03
		analysis.RecommendedAction = "consider_tightening_range_upward"
	case score < -0.02:
		analysis.Trend = types.TrendBearish
		analysis.PredictedPrice = last * 0.97
		analysis.RecommendedAction = "consider_tightening_range_downward"
	default:
		analysis.Trend = types.TrendNeutral
		analysis.PredictedPrice = last
		analysis.RecommendedAction = "maintain_current_range"
	}

	return analysis, nil
}
