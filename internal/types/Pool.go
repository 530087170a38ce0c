package types

import "time"

// PoolState is a concentrated-liquidity pool's on-chain state as supplied by
// the caller. The engine never mutates it.
type PoolState struct {
	Address     string    `json:"address"`
	Token0      string    `json:"token0"`
	Token1      string    `json:"token1"`
	Reserve0    float64   `json:"reserve0"`
	Reserve1    float64   `json:"reserve1"`
	FeeTier     float64   `json:"fee_tier"`
	Liquidity   float64   `json:"liquidity"`
	Tick        int       `json:"tick"`
	TickSpacing int       `json:"tick_spacing"`
	Timestamp   time.Time `json:"timestamp"`
}

// Price returns the price of token0 in terms of token1. A zero reserve1 is a
// documented degenerate case and yields 0, not an error.
func (p PoolState) Price() float64 {
	if p.Reserve1 == 0 {
		return 0
	}
	return p.Reserve0 / p.Reserve1
}
