/*

This file contains the vault risk scorer. It aggregates four weighted risk
components into an overall score and classification. Unlike the range
predictor, the scorer never returns an error: it feeds the alerting loop, so
on numerically unusable input it degrades to a safe medium assessment instead.

*/

package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/types"
)

var riskLogger = logger.GetForComponent("risk_scorer")

// Recommendation lists per risk level. Order is part of the contract with
// downstream consumers that render them.
var (
	highRiskRecommendations = []string{
		"Consider reducing position size to limit exposure",
		"Implement tighter stop-loss mechanisms",
		"Increase rebalancing frequency to minimize IL",
		"Consider hedging strategies using perp futures",
	}
	mediumRiskRecommendations = []string{
		"Monitor position closely for volatility spikes",
		"Consider partial position reduction if conditions worsen",
		"Maintain regular rebalancing schedule",
	}
	lowRiskRecommendations = []string{
		"Current position within acceptable risk parameters",
		"Continue monitoring market conditions",
		"Consider position size increase if opportunities arise",
	}
)

// fastFinalityAdvisory is appended to every assessment regardless of level.
const fastFinalityAdvisory = "Leverage SEI's 400ms finality for rapid risk response"

// Scorer assesses vault risk using the active engine parameters. Stateless
// apart from the parameter snapshot; safe for concurrent use.
type Scorer struct {
	params types.EngineParameters
}

// NewScorer returns a Scorer bound to the given parameters.
func NewScorer(params types.EngineParameters) *Scorer {
	return &Scorer{params: params}
}

// AssessVaultRisk scores a vault position. It never returns an error: if the
// metrics are not numerically usable the assessment degrades to the medium
// default with Degraded set and the cause recorded in Error.
func (s *Scorer) AssessVaultRisk(metrics types.VaultMetrics) types.VaultRiskAssessment {
	if err := validateMetrics(metrics); err != nil {
		riskLogger.Warn().Err(err).Msg("Degrading to default medium risk assessment")
		return degradedAssessment(err)
	}

	components := types.RiskComponents{
		ImpermanentLossRisk: s.impermanentLossRisk(metrics),
		VolatilityRisk:      s.volatilityRisk(metrics),
		LiquidityRisk:       s.liquidityRisk(metrics),
		ConcentrationRisk:   s.concentrationRisk(metrics),
	}

	overall := components.ImpermanentLossRisk*s.params.ILRiskWeight +
		components.VolatilityRisk*s.params.VolatilityRiskWeight +
		components.LiquidityRisk*s.params.LiquidityRiskWeight +
		components.ConcentrationRisk*s.params.ConcentrationRiskWeight

	if math.IsNaN(overall) || math.IsInf(overall, 0) {
		err := fmt.Errorf("overall risk score is not finite: %v", overall)
		riskLogger.Warn().Err(err).Msg("Degrading to default medium risk assessment")
		return degradedAssessment(err)
	}

	level := s.classify(overall)

	riskLogger.Debug().
		Float64("overallRisk", overall).
		Str("riskLevel", level).
		Float64("ilRisk", components.ImpermanentLossRisk).
		Float64("volatilityRisk", components.VolatilityRisk).
		Float64("liquidityRisk", components.LiquidityRisk).
		Float64("concentrationRisk", components.ConcentrationRisk).
		Msg("Vault risk assessed")

	return types.VaultRiskAssessment{
		OverallRiskScore: overall,
		RiskLevel:        level,
		Components:       components,
		Recommendations:  recommendationsFor(level),
		Timestamp:        time.Now().UTC(),
	}
}

// impermanentLossRisk grows with volatility and shrinks with asset
// correlation: perfectly correlated assets cannot diverge.
func (s *Scorer) impermanentLossRisk(m types.VaultMetrics) float64 {
	return math.Min(m.Volatility*(1-m.Correlation)*1.5, 1.0)
}

func (s *Scorer) volatilityRisk(m types.VaultMetrics) float64 {
	if s.params.MaxVolatility <= 0 {
		return 1.0
	}
	return math.Min(m.Volatility/s.params.MaxVolatility, 1.0)
}

// liquidityRisk is tiered against the depth threshold. The medium tier is
// inclusive at 5x the threshold.
func (s *Scorer) liquidityRisk(m types.VaultMetrics) float64 {
	threshold := s.params.LiquidityDepthThreshold
	switch {
	case m.Liquidity < threshold:
		return 0.8
	case m.Liquidity <= threshold*5:
		return 0.4
	default:
		return 0.1
	}
}

func (s *Scorer) concentrationRisk(m types.VaultMetrics) float64 {
	if m.TotalPoolSize <= 0 {
		return 0
	}
	concentration := m.PositionSize / m.TotalPoolSize
	if s.params.MaxConcentration <= 0 {
		return 1.0
	}
	return math.Min(concentration/s.params.MaxConcentration, 1.0)
}

func (s *Scorer) classify(overall float64) string {
	switch {
	case overall < s.params.LowRiskCutoff:
		return types.RiskLevelLow
	case overall < s.params.MediumRiskCutoff:
		return types.RiskLevelMedium
	default:
		return types.RiskLevelHigh
	}
}

func recommendationsFor(level string) []string {
	var base []string
	switch level {
	case types.RiskLevelHigh:
		base = highRiskRecommendations
	case types.RiskLevelMedium:
		base = mediumRiskRecommendations
	default:
		base = lowRiskRecommendations
	}

	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	out = append(out, fastFinalityAdvisory)
	return out
}

func degradedAssessment(cause error) types.VaultRiskAssessment {
	return types.VaultRiskAssessment{
		OverallRiskScore: 0.5,
		RiskLevel:        types.RiskLevelMedium,
		Components:       types.RiskComponents{},
		Recommendations:  recommendationsFor(types.RiskLevelMedium),
		Timestamp:        time.Now().UTC(),
		Degraded:         true,
		Error:            fmt.Sprintf("risk assessment failed: %v", cause),
	}
}

func validateMetrics(m types.VaultMetrics) error {
	fields := map[string]float64{
		"volatility":      m.Volatility,
		"correlation":     m.Correlation,
		"liquidity":       m.Liquidity,
		"position_size":   m.PositionSize,
		"total_pool_size": m.TotalPoolSize,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("metric %s is not finite: %v", name, v)
		}
	}
	return nil
}
