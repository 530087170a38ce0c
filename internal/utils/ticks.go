/*
This file contains tick/price conversion helpers for concentrated-liquidity
ranges. Prices map to discretized tick indexes via the log-base-1.0001
encoding; tick spacing constrains which ticks are usable on-chain.
*/

package utils

import (
	"errors"
	"math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrNonPositivePrice = errors.New("price must be positive")
	ErrNotFinite        = errors.New("value is not finite")
)

// tickBase is the price ratio between adjacent ticks.
const tickBase = 1.0001

// minAlignedPrice is the floor applied to any aligned price so the result
// stays strictly positive even for extreme inputs.
const minAlignedPrice = 0.001

// PriceToTick converts a price to its nearest tick index.
func PriceToTick(price float64) (int, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, ErrNotFinite
	}
	if price <= 0 {
		return 0, ErrNonPositivePrice
	}
	return int(math.Round(math.Log(price) / math.Log(tickBase))), nil
}

// TickToPrice converts a tick index back to a price.
func TickToPrice(tick int) float64 {
	return math.Pow(tickBase, float64(tick))
}

// FloorTickToSpacing floors a tick to the nearest lower multiple of spacing.
// Works for negative ticks (true floor division, not truncation).
func FloorTickToSpacing(tick, spacing int) int {
	if spacing <= 0 {
		return tick
	}
	rem := ((tick % spacing) + spacing) % spacing
	return tick - rem
}

// AlignPriceToTickSpacing aligns a price to the pool's tick spacing. The
// returned price is the price of the nearest usable tick at or below the
// input's tick, floored at a small positive epsilon.
//
// Alignment never fails: on any numeric error (non-positive or non-finite
// price) the original input is returned unchanged as a defensive fallback.
func AlignPriceToTickSpacing(price float64, tickSpacing int) float64 {
	tick, err := PriceToTick(price)
	if err != nil {
		return price
	}

	aligned := TickToPrice(FloorTickToSpacing(tick, tickSpacing))
	if math.IsNaN(aligned) || math.IsInf(aligned, 0) {
		return price
	}
	if aligned < minAlignedPrice {
		return minAlignedPrice
	}
	return aligned
}
