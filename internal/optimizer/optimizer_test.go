package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sei-dlp/engine/internal/types"
	"github.com/sei-dlp/engine/internal/utils"
)

func TestOptimizeAlignsAndTightens(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)

	raw := types.RangeCandidate{LowerPrice: 0.438525, UpperPrice: 0.461475, Confidence: 0.6}
	got := o.Optimize(raw, pool)

	// Tightened around the aligned midpoint, still straddling the price.
	assert.Less(t, got.LowerPrice, 0.45)
	assert.Greater(t, got.UpperPrice, 0.45)

	// The shrink applies to the aligned bounds, not the raw ones.
	alignedWidth := utils.AlignPriceToTickSpacing(raw.UpperPrice, 60) - utils.AlignPriceToTickSpacing(raw.LowerPrice, 60)
	assert.InDelta(t, alignedWidth*0.95, got.Width(), 1e-9)

	// Width respects the minimum after shrinking.
	assert.GreaterOrEqual(t, got.Width(), 0.45*0.05-1e-12)

	// Confidence passes through untouched.
	assert.Equal(t, 0.6, got.Confidence)
}

func TestOptimizeDeterministic(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)
	raw := types.RangeCandidate{LowerPrice: 0.42, UpperPrice: 0.48}

	first := o.Optimize(raw, pool)
	second := o.Optimize(raw, pool)
	assert.Equal(t, first, second)
}

func TestOptimizeReexpandsNarrowRange(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)

	// A near-degenerate candidate is widened back to the minimum.
	got := o.Optimize(types.RangeCandidate{LowerPrice: 0.4499, UpperPrice: 0.4501}, pool)
	assert.GreaterOrEqual(t, got.Width(), 0.45*0.05-1e-12)
	assert.Greater(t, got.LowerPrice, 0.0)
}

func TestOptimizeFallsBackToDefaultSpacing(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)
	pool.TickSpacing = 0

	got := o.Optimize(types.RangeCandidate{LowerPrice: 0.42, UpperPrice: 0.48}, pool)
	assert.Greater(t, got.UpperPrice, got.LowerPrice)
}

func TestCalculatePerformanceMetrics(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)
	snapshots := []types.MarketSnapshot{
		{Symbol: types.AssetSEI, Volume24h: 2_000_000},
		{Symbol: types.AssetETH, Volume24h: 4_000_000},
	}
	candidate := types.RangeCandidate{LowerPrice: 0.43, UpperPrice: 0.47}

	fees, ilRisk, efficiency := o.CalculatePerformanceMetrics(candidate, pool, snapshots, 10000)

	// widthPct = 0.04/0.45; concentration = min(5, 0.1/widthPct);
	// fees = 3M * 0.003 * conc / 365 * 10.
	widthPct := 0.04 / 0.45
	conc := 0.1 / widthPct
	assert.InDelta(t, 3_000_000*0.003*conc/365*10, fees, 1e-6)
	assert.InDelta(t, widthPct*2, ilRisk, 1e-9)
	assert.Equal(t, 1.0, efficiency) // 1/widthPct > 1, capped

	assert.GreaterOrEqual(t, ilRisk, 0.0)
	assert.LessOrEqual(t, ilRisk, 0.5)
}

func TestCapitalEfficiencyZeroOutOfRange(t *testing.T) {
	o := newTestOptimizer()
	pool := testPool(0.45)

	// Price sits below the range.
	_, _, efficiency := o.CalculatePerformanceMetrics(
		types.RangeCandidate{LowerPrice: 0.50, UpperPrice: 0.60}, pool, nil, 10000)
	assert.Zero(t, efficiency)

	// Price exactly on the boundary also counts as out of range.
	_, _, efficiency = o.CalculatePerformanceMetrics(
		types.RangeCandidate{LowerPrice: 0.45, UpperPrice: 0.60}, pool, nil, 10000)
	assert.Zero(t, efficiency)
}

func TestPerformanceMetricsDegenerateInputs(t *testing.T) {
	o := newTestOptimizer()

	// Zero price pool yields all zeros, not NaN.
	fees, ilRisk, efficiency := o.CalculatePerformanceMetrics(
		types.RangeCandidate{LowerPrice: 0.4, UpperPrice: 0.5}, types.PoolState{}, nil, 10000)
	assert.Zero(t, fees)
	assert.Zero(t, ilRisk)
	assert.Zero(t, efficiency)

	// Zero-width range caps concentration instead of dividing by zero.
	fees, _, _ = o.CalculatePerformanceMetrics(
		types.RangeCandidate{LowerPrice: 0.45, UpperPrice: 0.45}, testPool(0.45),
		[]types.MarketSnapshot{{Volume24h: 1_000_000}}, 1000)
	assert.InDelta(t, 1_000_000*0.003*5/365, fees, 1e-6)
}

func TestEstimateAPR(t *testing.T) {
	o := newTestOptimizer()

	assert.InDelta(t, 0.12, o.EstimateAPR(0), 1e-9)
	assert.InDelta(t, 0.12+0.05, o.EstimateAPR(1_000_000), 1e-9)
	assert.InDelta(t, 0.12, o.EstimateAPR(-50), 1e-9)
}

func TestEvaluateRebalanceHighUrgency(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.EvaluateRebalance(1000, 940, 1060, 0.2)
	require.NoError(t, err)

	assert.Equal(t, types.RebalanceRequired, plan.Action)
	assert.Equal(t, "high", plan.Urgency)

	// 120 * 0.7 = 84, rounded to one 60-tick step.
	assert.Equal(t, 60, plan.NewUpperTick-plan.NewLowerTick)
	assert.Equal(t, 960, plan.NewLowerTick)
	assert.Equal(t, 1020, plan.NewUpperTick)

	assert.InDelta(t, (0.75-0.2)*100, plan.ExpectedImprovement, 1e-9)
	assert.Equal(t, 0.15, plan.GasCostEstimateUSD)
	assert.Equal(t, "High opportunity cost - immediate rebalancing recommended", plan.RiskAssessment)
}

func TestEvaluateRebalanceMediumUrgency(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.EvaluateRebalance(1000, 700, 1300, 0.45)
	require.NoError(t, err)

	assert.Equal(t, types.RebalanceSuggested, plan.Action)
	assert.Equal(t, "medium", plan.Urgency)
	assert.InDelta(t, (0.75-0.45)*60, plan.ExpectedImprovement, 1e-9)

	// 600 * 0.85 = 510, half a step away from both neighbors; rounds up to 540.
	assert.Equal(t, 540, plan.NewUpperTick-plan.NewLowerTick)
	assert.Zero(t, plan.NewUpperTick%60)
	assert.Zero(t, plan.NewLowerTick%60)
}

func TestEvaluateRebalanceHold(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.EvaluateRebalance(1000, 940, 1060, 0.8)
	require.NoError(t, err)

	assert.Equal(t, types.HoldPosition, plan.Action)
	assert.Equal(t, "low", plan.Urgency)
	assert.Zero(t, plan.ExpectedImprovement)

	// Ticks unchanged when holding.
	assert.Equal(t, 940, plan.NewLowerTick)
	assert.Equal(t, 1060, plan.NewUpperTick)
}

func TestEvaluateRebalanceRejectsBadInput(t *testing.T) {
	o := newTestOptimizer()

	_, err := o.EvaluateRebalance(1000, 1060, 940, 0.5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = o.EvaluateRebalance(1000, 940, 1060, 1.5)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = o.EvaluateRebalance(1000, 940, 1060, -0.1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvaluateRebalanceWidthNeverBelowOneStep(t *testing.T) {
	o := newTestOptimizer()

	// 60 * 0.7 = 42, which would round to zero steps.
	plan, err := o.EvaluateRebalance(1000, 960, 1020, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 60, plan.NewUpperTick-plan.NewLowerTick)
}

func TestAlignmentIdempotentThroughOptimizer(t *testing.T) {
	aligned := utils.AlignPriceToTickSpacing(0.45, 60)
	assert.Equal(t, aligned, utils.AlignPriceToTickSpacing(aligned, 60))
}
