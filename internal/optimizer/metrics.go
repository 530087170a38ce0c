package optimizer

import (
	"math"

	"github.com/sei-dlp/engine/internal/types"
)

// CalculatePerformanceMetrics scores a candidate range: expected daily fees,
// impermanent-loss risk, and capital efficiency. All three are non-negative
// and finite; divide-by-zero cases substitute defaults instead of propagating
// NaN or infinity.
func (o *Optimizer) CalculatePerformanceMetrics(
	candidate types.RangeCandidate,
	pool types.PoolState,
	snapshots []types.MarketSnapshot,
	positionSize float64,
) (expectedFees, ilRisk, capitalEfficiency float64) {

	price := pool.Price()
	if price <= 0 {
		return 0, 0, 0
	}

	widthPct := candidate.Width() / price

	// A zero-width range would imply infinite concentration; the cap bounds
	// both that and very narrow real ranges.
	concentration := o.params.ConcentrationMultiplierCap
	if widthPct > 0 {
		concentration = math.Min(o.params.ConcentrationMultiplierCap, o.params.ConcentrationReference/widthPct)
	}

	var avgVolume float64
	if len(snapshots) > 0 {
		for _, s := range snapshots {
			avgVolume += s.Volume24h
		}
		avgVolume /= float64(len(snapshots))
	}

	positionScale := positionSize / o.params.PositionScaleBase
	expectedFees = avgVolume * pool.FeeTier * concentration / 365 * positionScale

	ilRisk = math.Min(0.5, widthPct*2)

	if price > candidate.LowerPrice && price < candidate.UpperPrice && widthPct > 0 {
		capitalEfficiency = math.Min(1.0, 1.0/widthPct)
	}

	expectedFees = sanitize(expectedFees)
	ilRisk = sanitize(ilRisk)
	capitalEfficiency = sanitize(capitalEfficiency)
	return expectedFees, ilRisk, capitalEfficiency
}

// EstimateAPR is a coarse yield estimate from 24h volume, used by the HTTP
// bridge's vault analysis response.
func (o *Optimizer) EstimateAPR(volume24h float64) float64 {
	if volume24h < 0 || math.IsNaN(volume24h) || math.IsInf(volume24h, 0) {
		volume24h = 0
	}
	return 0.12 + volume24h/o.params.MarketDepthReference*0.05
}

// sanitize zeroes non-finite or negative metric values.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
