package types

// Trend classifications from time-series analysis.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// TrendAnalysis is the output of a market-movement prediction over a series
// of closing prices.
type TrendAnalysis struct {
	Trend             string    `json:"trend"`
	TrendScore        float64   `json:"trend_score"`
	PredictedPrice    float64   `json:"prediction"`
	Confidence        float64   `json:"confidence"`
	SupportLevels     []float64 `json:"support_levels"`
	ResistanceLevels  []float64 `json:"resistance_levels"`
	RecommendedAction string    `json:"recommended_action"`
}

// DeltaNeutralPlan is the output of delta-neutral strategy optimization: an
// LP range tightened for fee capture plus a perp hedge ratio.
type DeltaNeutralPlan struct {
	Pair               string             `json:"pair"`
	HedgeRatio         float64            `json:"hedge_ratio"`
	LowerTick          int                `json:"lower_tick"`
	UpperTick          int                `json:"upper_tick"`
	LowerPrice         float64            `json:"lower_price"`
	UpperPrice         float64            `json:"upper_price"`
	ExpectedNeutrality float64            `json:"expected_neutrality"`
	ExpectedAPR        float64            `json:"expected_apr"`
	RevenueBreakdown   map[string]float64 `json:"revenue_breakdown"`
	Reasoning          string             `json:"reasoning"`
}
