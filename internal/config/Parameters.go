/*

This file contains the default engine parameters.

The range-optimization and risk-scoring formulas depend on a handful of
calibration constants. Several of them are empirical magic numbers inherited
from the strategy research notebooks; they are kept here as named, persisted
parameters rather than buried in the code so they can be re-tuned without a
redeploy.

*/

package config

import (
	"github.com/sei-dlp/engine/internal/types"
)

// DefaultEngineParameters provides the baseline parameter set for the engine.
// These values are used if no active parameters are found in the database
// during initialization.
var DefaultEngineParameters = types.EngineParameters{
	// --- Tick / range geometry ---
	TickSpacing: 60, // Standard concentrated-liquidity tick spacing on SEI.

	PriceEpsilon: 0.001, // Lowest price tick alignment may produce.
	// Alignment must never return a non-positive price even for extreme inputs.

	GasOptimizationFactor: 0.95, // Post-alignment width tightening.
	// Empirical constant: ranges are shrunk 5% around the midpoint because
	// cheap rebalancing makes slightly tighter ranges net-positive.

	FinalityMs:          400,   // SEI block finality.
	ReferenceFinalityMs: 12000, // Ethereum finality used as the baseline.

	FinalityReductionFactor: 0.85, // Volatility band reduction.
	// Fast finality allows frequent rebalancing, so the statistical predictor
	// runs with a 15% narrower volatility band than the raw estimate.

	DefaultVolatility: 0.02, // Annualized fallback when no history is supplied.

	MinRangePercent: 0.05, // Minimum range width as a fraction of price.
	// Below 5% width, fee collection does not cover rebalancing churn.

	LowerFloorPercent: 0.10, // Lower bound floor as a fraction of price.

	StatisticalConfidence: 0.6, // Fixed confidence of the statistical method.

	// --- Performance metrics ---
	ConcentrationMultiplierCap: 5.0, // Cap on the fee concentration bonus.
	// Empirical constant: beyond 5x, a narrower range no longer captures
	// proportionally more volume.

	ConcentrationReference: 0.1, // Width at which concentration bonus is 1x.
	PositionScaleBase:      1000,
	MarketDepthReference:   1_000_000, // Volume normalization reference.

	// --- Rebalance evaluation ---
	OptimalUtilization:       0.75,
	HighUrgencyUtilization:   0.3,  // Below this, rebalancing is required.
	MediumUrgencyUtilization: 0.6,  // Below this, rebalancing is suggested.
	HighUrgencyRangeFactor:   0.7,  // Width kept when urgency is high.
	MediumUrgencyRangeFactor: 0.85, // Width kept when urgency is medium.
	GasCostEstimateUSD:       0.15, // Typical SEI rebalance cost.

	// --- Vault risk scoring ---
	ILRiskWeight:            0.30,
	VolatilityRiskWeight:    0.25,
	LiquidityRiskWeight:     0.25,
	ConcentrationRiskWeight: 0.20,

	LiquidityDepthThreshold: 10000, // Below $10k depth is high liquidity risk.
	MaxVolatility:           0.8,   // Volatility at which volatility risk saturates.
	MaxConcentration:        0.7,   // Pool share at which concentration risk saturates.

	LowRiskCutoff:    0.3,
	MediumRiskCutoff: 0.6,

	// --- Monitoring / signals ---
	SignalChangeThreshold:  0.05, // 24h move that triggers a BUY/SELL signal.
	PositionDriftThreshold: 0.10, // Price drift that triggers a rebalance signal.
	ArbProfitThresholdUSD:  100,  // Minimum profit worth surfacing.
	ArbRiskCeiling:         0.3,  // Maximum acceptable arbitrage risk score.
}
