package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeDeltaNeutral(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.OptimizeDeltaNeutral(DeltaNeutralInput{
		Pair:         "SEI/USDC",
		PositionSize: 10000,
		CurrentPrice: 0.45,
		Volatility:   0.4,
		FundingRate:  0.0001,
	})
	require.NoError(t, err)

	// hedge = min(0.95 + min(0.4*0.05, 0.04), 0.98) = 0.97.
	assert.InDelta(t, 0.97, plan.HedgeRatio, 1e-9)
	assert.InDelta(t, 0.97*0.98, plan.ExpectedNeutrality, 1e-9)

	assert.Greater(t, plan.UpperPrice, plan.LowerPrice)
	assert.Greater(t, plan.UpperTick, plan.LowerTick)
	assert.Less(t, plan.LowerPrice, 0.45)
	assert.Greater(t, plan.UpperPrice, 0.45)

	assert.InDelta(t, 10000*0.08, plan.RevenueBreakdown["lp_fees"], 1e-9)
	assert.InDelta(t, 10000*0.0001*365, plan.RevenueBreakdown["funding_rates"], 1e-9)
	assert.InDelta(t, 10000*0.4*0.12, plan.RevenueBreakdown["volatility_capture"], 1e-9)

	// (800 + 365 + 480) / 10000.
	assert.InDelta(t, 0.1645, plan.ExpectedAPR, 1e-9)
	assert.Contains(t, plan.Reasoning, "SEI/USDC")
}

func TestOptimizeDeltaNeutralHedgeRatioCap(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.OptimizeDeltaNeutral(DeltaNeutralInput{
		Pair: "ETH/USDC", PositionSize: 5000, CurrentPrice: 3000, Volatility: 1.8,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.98, plan.HedgeRatio)
}

func TestOptimizeDeltaNeutralAPRFloor(t *testing.T) {
	o := newTestOptimizer()

	// Zero volatility and tiny funding still report the floor APR.
	plan, err := o.OptimizeDeltaNeutral(DeltaNeutralInput{
		Pair: "SEI/USDC", PositionSize: 10000, CurrentPrice: 0.45,
		Volatility: 0.0, FundingRate: 0.00001,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, plan.ExpectedAPR, 0.12)

	// Zero-volatility buffer collapses; the range still has positive width.
	assert.Greater(t, plan.UpperPrice, plan.LowerPrice)
}

func TestOptimizeDeltaNeutralDefaultFundingRate(t *testing.T) {
	o := newTestOptimizer()

	plan, err := o.OptimizeDeltaNeutral(DeltaNeutralInput{
		Pair: "SEI/USDC", PositionSize: 1000, CurrentPrice: 0.45, Volatility: 0.2,
	})
	require.NoError(t, err)
	assert.InDelta(t, 1000*0.01*365, plan.RevenueBreakdown["funding_rates"], 1e-9)
}

func TestOptimizeDeltaNeutralValidation(t *testing.T) {
	o := newTestOptimizer()

	cases := []DeltaNeutralInput{
		{Pair: "SEI/USDC", PositionSize: 0, CurrentPrice: 0.45, Volatility: 0.4},
		{Pair: "SEI/USDC", PositionSize: 10000, CurrentPrice: 0, Volatility: 0.4},
		{Pair: "SEI/USDC", PositionSize: 10000, CurrentPrice: 0.45, Volatility: -0.1},
		{Pair: "SEI/USDC", PositionSize: 10000, CurrentPrice: 0.45, Volatility: 2.5},
	}
	for i, in := range cases {
		_, err := o.OptimizeDeltaNeutral(in)
		assert.ErrorIs(t, err, ErrInvalidInput, "case %d", i)
	}
}
