package types

// Provenance tags which predictor variant produced a range candidate.
type Provenance string

const (
	ProvenanceStatistical    Provenance = "statistical"
	ProvenanceRegressor      Provenance = "regressor"
	ProvenanceInferenceGraph Provenance = "inference_graph"
)

// RangeCandidate is an in-progress range recommendation. UpperPrice >
// LowerPrice is an invariant enforced after every transform step; a transform
// that would violate it is clamped to a minimum-width floor around the
// current price.
type RangeCandidate struct {
	LowerPrice float64    `json:"lower_price"`
	UpperPrice float64    `json:"upper_price"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning"`
	Provenance Provenance `json:"provenance"`
}

// Width returns the candidate's price width.
func (c RangeCandidate) Width() float64 {
	return c.UpperPrice - c.LowerPrice
}

// LiquidityRangeResult is the final output of a range optimization call.
// Created once per call and immutable afterwards.
type LiquidityRangeResult struct {
	LowerPrice          float64    `json:"lower_price"`
	UpperPrice          float64    `json:"upper_price"`
	Confidence          float64    `json:"confidence"`
	ExpectedFees        float64    `json:"expected_fees"`
	ImpermanentLossRisk float64    `json:"impermanent_loss_risk"`
	CapitalEfficiency   float64    `json:"capital_efficiency"`
	Reasoning           string     `json:"reasoning"`
	Provenance          Provenance `json:"provenance"`
}

// RebalanceAction classifies the outcome of a rebalance-need evaluation.
const (
	RebalanceRequired  = "rebalance_required"
	RebalanceSuggested = "rebalance_suggested"
	HoldPosition       = "hold_position"
)

// RebalancePlan is the result of evaluating whether an existing tick range
// should be rebalanced around the current tick.
type RebalancePlan struct {
	Action              string  `json:"action"`
	Urgency             string  `json:"urgency"`
	NewLowerTick        int     `json:"new_lower_tick"`
	NewUpperTick        int     `json:"new_upper_tick"`
	ExpectedImprovement float64 `json:"expected_improvement"`
	RiskAssessment      string  `json:"risk_assessment"`
	GasCostEstimateUSD  float64 `json:"gas_cost_estimate"`
}
