/*
This file builds the fixed-order feature vector consumed by the trained range
models. Column order is frozen: a trained artifact's weights are positional,
so reordering or resizing the vector invalidates every saved model.
*/

package features

import (
	"math"

	"github.com/sei-dlp/engine/internal/types"
)

// Rolling windows, expressed in five-minute samples.
const (
	shortPriceWindow  = 12  // ~1h
	longPriceWindow   = 288 // ~24h
	volumeWindow      = 288
	fundingWindow     = 24
	minCorrelationLen = 10
)

// FeatureVectorLen is the frozen length of the extracted vector.
//
// Layout:
//
//	[0]     pool price (token0 in token1)
//	[1]     pool liquidity
//	[2]     pool fee tier
//	[3]     position impact (positionSize / liquidity, 0 if liquidity <= 0)
//	[4:19]  market block: SEI, USDC, ETH x {price, volume24h, change24h,
//	        confidence, fundingRate}; a missing asset contributes five zeros
//	[19:24] volatility block: price-return std over the short and long
//	        windows, volume-change std, funding-delta std, Pearson
//	        correlation of price returns against volume changes
//	[24:28] derived block: finality factor, gas efficiency, pool
//	        utilization, market depth
const FeatureVectorLen = 28

// ExtractFeatures builds the model input vector from a pool snapshot, current
// market data, and the historical series. It never fails: sparse or missing
// data contributes zeros, matching training-time behavior on short series.
func ExtractFeatures(
	pool types.PoolState,
	snapshots []types.MarketSnapshot,
	history types.HistoricalSeries,
	positionSize float64,
	params types.EngineParameters,
) []float64 {

	vec := make([]float64, 0, FeatureVectorLen)

	liquidity := pool.Liquidity
	positionImpact := 0.0
	if liquidity > 0 {
		positionImpact = positionSize / liquidity
	}

	vec = append(vec, pool.Price(), liquidity, pool.FeeTier, positionImpact)
	vec = append(vec, marketFeatures(snapshots)...)
	vec = append(vec, volatilityFeatures(history)...)
	vec = append(vec, derivedFeatures(pool, snapshots, params)...)

	// Scrub any numeric residue so the vector is always model-safe.
	for i, v := range vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			vec[i] = 0
		}
	}
	return vec
}

// marketFeatures reports five values per reference asset, in the canonical
// ReferenceAssets order. Assets absent from the snapshots contribute zeros so
// the block is always 15 wide.
func marketFeatures(snapshots []types.MarketSnapshot) []float64 {
	bySymbol := make(map[string]types.MarketSnapshot, len(snapshots))
	for _, s := range snapshots {
		bySymbol[s.Symbol] = s
	}

	out := make([]float64, 0, 5*len(types.ReferenceAssets))
	for _, asset := range types.ReferenceAssets {
		s, ok := bySymbol[asset]
		if !ok {
			out = append(out, 0, 0, 0, 0, 0)
			continue
		}
		funding := 0.0
		if s.FundingRate != nil {
			funding = *s.FundingRate
		}
		out = append(out, s.Price, s.Volume24h, s.PriceChange24h, s.Confidence, funding)
	}
	return out
}

// volatilityFeatures computes the rolling-statistics block. A series with
// fewer than two rows yields all zeros.
func volatilityFeatures(history types.HistoricalSeries) []float64 {
	if len(history) < 2 {
		return []float64{0, 0, 0, 0, 0}
	}

	priceReturns := make([]float64, 0, len(history)-1)
	volumeChanges := make([]float64, 0, len(history)-1)
	fundingDeltas := make([]float64, 0, len(history)-1)

	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]

		if prev.Price > 0 && curr.Price > 0 {
			priceReturns = append(priceReturns, (curr.Price-prev.Price)/prev.Price)
		}
		if prev.Volume > 0 {
			volumeChanges = append(volumeChanges, (curr.Volume-prev.Volume)/prev.Volume)
		}
		if prev.FundingRate != nil && curr.FundingRate != nil {
			fundingDeltas = append(fundingDeltas, *curr.FundingRate-*prev.FundingRate)
		}
	}

	crossCorr := 0.0
	if len(history) > minCorrelationLen {
		n := len(priceReturns)
		if len(volumeChanges) < n {
			n = len(volumeChanges)
		}
		if n >= 2 {
			crossCorr = pearsonCorrelation(
				priceReturns[len(priceReturns)-n:],
				volumeChanges[len(volumeChanges)-n:],
			)
		}
	}

	return []float64{
		rollingStd(priceReturns, shortPriceWindow),
		rollingStd(priceReturns, longPriceWindow),
		rollingStd(volumeChanges, volumeWindow),
		rollingStd(fundingDeltas, fundingWindow),
		crossCorr,
	}
}

// derivedFeatures computes the chain- and pool-level scalars.
func derivedFeatures(pool types.PoolState, snapshots []types.MarketSnapshot, params types.EngineParameters) []float64 {
	finalityFactor := 0.0
	if params.ReferenceFinalityMs > 0 {
		finalityFactor = 1.0 - float64(params.FinalityMs)/float64(params.ReferenceFinalityMs)
	}

	utilization := 0.0
	if pool.Liquidity > 0 {
		utilization = (pool.Reserve0 + pool.Reserve1) / pool.Liquidity
	}

	marketDepth := 0.0
	if len(snapshots) > 0 && params.MarketDepthReference > 0 {
		var totalVolume float64
		for _, s := range snapshots {
			totalVolume += s.Volume24h
		}
		marketDepth = totalVolume / float64(len(snapshots)) / params.MarketDepthReference
	}

	return []float64{finalityFactor, params.GasOptimizationFactor, utilization, marketDepth}
}
