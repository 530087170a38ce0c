package types

// EngineParameters is the full set of tunable numeric parameters for range
// optimization, rebalance evaluation, risk scoring, and the monitoring loop.
// A versioned copy is persisted in the database; the active row is loaded at
// startup.
type EngineParameters struct {
	// --- Tick / range geometry ---
	TickSpacing             int     `json:"tick_spacing"`
	PriceEpsilon            float64 `json:"price_epsilon"`
	GasOptimizationFactor   float64 `json:"gas_optimization_factor"`
	FinalityMs              int     `json:"finality_ms"`
	ReferenceFinalityMs     int     `json:"reference_finality_ms"`
	FinalityReductionFactor float64 `json:"finality_reduction_factor"`
	DefaultVolatility       float64 `json:"default_volatility"`
	MinRangePercent         float64 `json:"min_range_percent"`
	LowerFloorPercent       float64 `json:"lower_floor_percent"`
	StatisticalConfidence   float64 `json:"statistical_confidence"`

	// --- Performance metrics ---
	ConcentrationMultiplierCap float64 `json:"concentration_multiplier_cap"`
	ConcentrationReference     float64 `json:"concentration_reference"`
	PositionScaleBase          float64 `json:"position_scale_base"`
	MarketDepthReference       float64 `json:"market_depth_reference"`

	// --- Rebalance evaluation ---
	OptimalUtilization       float64 `json:"optimal_utilization"`
	HighUrgencyUtilization   float64 `json:"high_urgency_utilization"`
	MediumUrgencyUtilization float64 `json:"medium_urgency_utilization"`
	HighUrgencyRangeFactor   float64 `json:"high_urgency_range_factor"`
	MediumUrgencyRangeFactor float64 `json:"medium_urgency_range_factor"`
	GasCostEstimateUSD       float64 `json:"gas_cost_estimate_usd"`

	// --- Vault risk scoring ---
	ILRiskWeight            float64 `json:"il_risk_weight"`
	VolatilityRiskWeight    float64 `json:"volatility_risk_weight"`
	LiquidityRiskWeight     float64 `json:"liquidity_risk_weight"`
	ConcentrationRiskWeight float64 `json:"concentration_risk_weight"`
	LiquidityDepthThreshold float64 `json:"liquidity_depth_threshold"`
	MaxVolatility           float64 `json:"max_volatility"`
	MaxConcentration        float64 `json:"max_concentration"`
	LowRiskCutoff           float64 `json:"low_risk_cutoff"`
	MediumRiskCutoff        float64 `json:"medium_risk_cutoff"`

	// --- Monitoring / signals ---
	SignalChangeThreshold  float64 `json:"signal_change_threshold"`
	PositionDriftThreshold float64 `json:"position_drift_threshold"`
	ArbProfitThresholdUSD  float64 `json:"arb_profit_threshold_usd"`
	ArbRiskCeiling         float64 `json:"arb_risk_ceiling"`
}
