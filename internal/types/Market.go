package types

import "time"

// Reference assets tracked by the engine. Market feature extraction always
// reports these three, in this order, so feature column positions stay stable.
const (
	AssetSEI  = "SEI"
	AssetUSDC = "USDC"
	AssetETH  = "ETH"
)

// ReferenceAssets is the canonical ordering used by the feature extractor
// and the monitoring loop.
var ReferenceAssets = []string{AssetSEI, AssetUSDC, AssetETH}

// MarketSnapshot is one asset's market state at a point in time, as reported
// by the oracle provider behind the agent runtime. Immutable once constructed.
type MarketSnapshot struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	Volume24h      float64   `json:"volume_24h"`
	PriceChange24h float64   `json:"price_change_24h"`
	FundingRate    *float64  `json:"funding_rate,omitempty"`
	Confidence     float64   `json:"confidence_score"`
	Timestamp      time.Time `json:"timestamp"`
	Source         string    `json:"source"`
}

// PricePoint is a single sample of a historical price/volume series.
type PricePoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Price       float64   `json:"price"`
	Volume      float64   `json:"volume"`
	FundingRate *float64  `json:"funding_rate,omitempty"`
}

// HistoricalSeries is an ordered (ascending in time) sequence of samples.
// It may be empty; consumers must tolerate empty or single-row series.
type HistoricalSeries []PricePoint

// Position is an open liquidity position tracked for drift-based rebalancing.
type Position struct {
	Asset         string    `json:"asset"`
	Size          float64   `json:"size"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	Timestamp     time.Time `json:"timestamp"`
}

// ArbitrageOpportunity is a funding-rate arbitrage candidate reported by the
// agent runtime's arbitrage engine.
type ArbitrageOpportunity struct {
	Asset               string             `json:"asset"`
	Exchanges           []string           `json:"exchanges"`
	FundingRates        map[string]float64 `json:"funding_rates"`
	Spread              float64            `json:"spread"`
	PotentialProfit     float64            `json:"potential_profit"`
	RiskScore           float64            `json:"risk_score"`
	ExecutionComplexity int                `json:"execution_complexity"`
	Timestamp           time.Time          `json:"timestamp"`
}
