package optimizer

import (
	"fmt"
	"math"

	"github.com/sei-dlp/engine/internal/types"
	"github.com/sei-dlp/engine/internal/utils"
)

// DeltaNeutralInput describes a delta-neutral optimization request: an LP
// position to be hedged with perps. FundingRate and LiquidityDepth come from
// current market conditions; zero values take the documented defaults.
type DeltaNeutralInput struct {
	Pair         string
	PositionSize float64
	CurrentPrice float64
	Volatility   float64
	FundingRate  float64
}

// defaultFundingRate stands in when market conditions carry no funding rate.
const defaultFundingRate = 0.01

// OptimizeDeltaNeutral sizes a perp hedge and a tightened LP range so the
// combined position stays near delta neutral while capturing fees, funding,
// and rebalancing alpha.
func (o *Optimizer) OptimizeDeltaNeutral(in DeltaNeutralInput) (types.DeltaNeutralPlan, error) {
	if in.PositionSize <= 0 {
		return types.DeltaNeutralPlan{}, fmt.Errorf("%w: position size must be positive, got %v",
			ErrInvalidInput, in.PositionSize)
	}
	if in.CurrentPrice <= 0 || math.IsNaN(in.CurrentPrice) || math.IsInf(in.CurrentPrice, 0) {
		return types.DeltaNeutralPlan{}, fmt.Errorf("%w: current price must be positive, got %v",
			ErrInvalidInput, in.CurrentPrice)
	}
	if in.Volatility < 0 || in.Volatility > 2.0 || math.IsNaN(in.Volatility) {
		return types.DeltaNeutralPlan{}, fmt.Errorf("%w: volatility %v outside [0, 2]",
			ErrInvalidInput, in.Volatility)
	}

	// Higher volatility needs a larger hedge, capped short of a full hedge
	// so the LP side keeps some directional fee exposure.
	hedgeRatio := math.Min(0.95+math.Min(in.Volatility*0.05, 0.04), 0.98)

	// A tighter buffer than the regular LP path: the hedge absorbs
	// directional moves, so the range only needs to cover noise.
	buffer := in.CurrentPrice * math.Min(in.Volatility, 1.0) * 0.08

	spacing := o.params.TickSpacing
	lowerPrice := utils.AlignPriceToTickSpacing(in.CurrentPrice-buffer, spacing)
	upperPrice := utils.AlignPriceToTickSpacing(in.CurrentPrice+buffer, spacing)
	if upperPrice <= lowerPrice {
		upperPrice = utils.TickToPrice(priceTickOrZero(lowerPrice) + spacing)
	}

	fundingRate := in.FundingRate
	if fundingRate == 0 {
		fundingRate = defaultFundingRate
	}

	lpFees := in.PositionSize * 0.08
	fundingRevenue := in.PositionSize * fundingRate * 365
	volatilityCapture := in.PositionSize * in.Volatility * 0.12

	expectedAPR := (lpFees + fundingRevenue + volatilityCapture) / in.PositionSize
	expectedAPR = math.Max(expectedAPR, 0.12)

	expectedNeutrality := hedgeRatio * 0.98

	plan := types.DeltaNeutralPlan{
		Pair:               in.Pair,
		HedgeRatio:         hedgeRatio,
		LowerTick:          priceTickOrZero(lowerPrice),
		UpperTick:          priceTickOrZero(upperPrice),
		LowerPrice:         lowerPrice,
		UpperPrice:         upperPrice,
		ExpectedNeutrality: expectedNeutrality,
		ExpectedAPR:        expectedAPR,
		RevenueBreakdown: map[string]float64{
			"lp_fees":            lpFees,
			"funding_rates":      fundingRevenue,
			"volatility_capture": volatilityCapture,
		},
		Reasoning: fmt.Sprintf(
			"Delta neutral strategy with %.1f%% hedge ratio for %s. Optimized for %.1f%% market neutrality while capturing %.1f%% APR from LP fees, funding rates, and volatility.",
			hedgeRatio*100, in.Pair, expectedNeutrality*100, expectedAPR*100),
	}
	return plan, nil
}

// priceTickOrZero converts an already-validated positive price to its tick,
// degrading to 0 instead of erroring.
func priceTickOrZero(price float64) int {
	tick, err := utils.PriceToTick(price)
	if err != nil {
		return 0
	}
	return tick
}
