package types

import "time"

// Risk level classifications produced by the vault risk scorer.
const (
	RiskLevelLow    = "low"
	RiskLevelMedium = "medium"
	RiskLevelHigh   = "high"
)

// VaultMetrics are the portfolio/vault aggregates fed to the risk scorer.
type VaultMetrics struct {
	Volatility    float64 `json:"volatility"`
	Correlation   float64 `json:"correlation"`
	Liquidity     float64 `json:"liquidity"`
	PositionSize  float64 `json:"position_size"`
	TotalPoolSize float64 `json:"total_pool_size"`
}

// RiskComponents are the four weighted inputs to the overall vault risk score.
type RiskComponents struct {
	ImpermanentLossRisk float64 `json:"impermanent_loss_risk"`
	VolatilityRisk      float64 `json:"volatility_risk"`
	LiquidityRisk       float64 `json:"liquidity_risk"`
	ConcentrationRisk   float64 `json:"concentration_risk"`
}

// VaultRiskAssessment is the scorer's output. Constructed fresh per call and
// not persisted. Degraded marks the safe medium default substituted when the
// input metrics were not numerically usable.
type VaultRiskAssessment struct {
	OverallRiskScore float64        `json:"overall_risk_score"`
	RiskLevel        string         `json:"risk_level"`
	Components       RiskComponents `json:"components"`
	Recommendations  []string       `json:"recommendations"`
	Timestamp        time.Time      `json:"timestamp"`
	Degraded         bool           `json:"degraded,omitempty"`
	Error            string         `json:"error,omitempty"`
}

// RiskMetrics is the alert payload pushed to the agent runtime when the
// monitoring loop detects a high-risk portfolio state.
type RiskMetrics struct {
	PortfolioVaR95             float64   `json:"portfolio_var_95"`
	MaxLeverage                float64   `json:"max_leverage"`
	ConcentrationRisk          float64   `json:"concentration_risk"`
	LiquidityRisk              float64   `json:"liquidity_risk"`
	CounterpartyRisk           float64   `json:"counterparty_risk"`
	OverallRiskScore           float64   `json:"overall_risk_score"`
	RecommendedMaxPositionSize float64   `json:"recommended_max_position_size"`
	Timestamp                  time.Time `json:"timestamp"`
}
