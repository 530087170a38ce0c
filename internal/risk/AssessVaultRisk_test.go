package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sei-dlp/engine/internal/config"
	"github.com/sei-dlp/engine/internal/types"
)

func newTestScorer() *Scorer {
	return NewScorer(config.DefaultEngineParameters)
}

func TestAssessVaultRiskMediumScenario(t *testing.T) {
	assessment := newTestScorer().AssessVaultRisk(types.VaultMetrics{
		Volatility:    0.4,
		Correlation:   0.6,
		Liquidity:     50000,
		PositionSize:  10000,
		TotalPoolSize: 100000,
	})

	// il = 0.4*0.4*1.5 = 0.24; vol = 0.5; liq = 0.4 (exactly 5x threshold);
	// conc = 0.1/0.7.
	assert.InDelta(t, 0.24, assessment.Components.ImpermanentLossRisk, 1e-9)
	assert.InDelta(t, 0.5, assessment.Components.VolatilityRisk, 1e-9)
	assert.InDelta(t, 0.4, assessment.Components.LiquidityRisk, 1e-9)
	assert.InDelta(t, 0.1/0.7, assessment.Components.ConcentrationRisk, 1e-9)

	assert.InDelta(t, 0.32557, assessment.OverallRiskScore, 1e-4)
	assert.Equal(t, types.RiskLevelMedium, assessment.RiskLevel)
	assert.False(t, assessment.Degraded)
}

func TestAssessVaultRiskLevels(t *testing.T) {
	tests := []struct {
		name    string
		metrics types.VaultMetrics
		level   string
	}{
		{
			name: "calm deep pool is low risk",
			metrics: types.VaultMetrics{
				Volatility: 0.1, Correlation: 0.9, Liquidity: 1_000_000,
				PositionSize: 1000, TotalPoolSize: 1_000_000,
			},
			level: types.RiskLevelLow,
		},
		{
			name: "volatile shallow concentrated pool is high risk",
			metrics: types.VaultMetrics{
				Volatility: 0.9, Correlation: 0.1, Liquidity: 5000,
				PositionSize: 90000, TotalPoolSize: 100000,
			},
			level: types.RiskLevelHigh,
		},
	}

	scorer := newTestScorer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.AssessVaultRisk(tt.metrics)
			assert.Equal(t, tt.level, got.RiskLevel)
			assert.False(t, got.Degraded)
			assert.GreaterOrEqual(t, got.OverallRiskScore, 0.0)
			assert.LessOrEqual(t, got.OverallRiskScore, 1.0)
		})
	}
}

func TestAssessVaultRiskComponentBounds(t *testing.T) {
	// Extreme inputs still produce components capped at 1.
	assessment := newTestScorer().AssessVaultRisk(types.VaultMetrics{
		Volatility:    5.0,
		Correlation:   -1.0,
		Liquidity:     1,
		PositionSize:  1_000_000,
		TotalPoolSize: 1,
	})

	assert.Equal(t, 1.0, assessment.Components.ImpermanentLossRisk)
	assert.Equal(t, 1.0, assessment.Components.VolatilityRisk)
	assert.Equal(t, 0.8, assessment.Components.LiquidityRisk)
	assert.Equal(t, 1.0, assessment.Components.ConcentrationRisk)
}

func TestAssessVaultRiskZeroPoolSize(t *testing.T) {
	assessment := newTestScorer().AssessVaultRisk(types.VaultMetrics{
		Volatility: 0.2, Correlation: 0.8, Liquidity: 200000,
		PositionSize: 5000, TotalPoolSize: 0,
	})

	assert.Zero(t, assessment.Components.ConcentrationRisk)
	assert.False(t, assessment.Degraded)
}

func TestAssessVaultRiskDegradesOnBadInput(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		assessment := newTestScorer().AssessVaultRisk(types.VaultMetrics{
			Volatility: bad, Correlation: 0.5, Liquidity: 50000,
			PositionSize: 10000, TotalPoolSize: 100000,
		})

		assert.True(t, assessment.Degraded)
		assert.Equal(t, 0.5, assessment.OverallRiskScore)
		assert.Equal(t, types.RiskLevelMedium, assessment.RiskLevel)
		assert.NotEmpty(t, assessment.Error)
	}
}

func TestRecommendationsIncludeFinalityAdvisory(t *testing.T) {
	scorer := newTestScorer()

	for _, metrics := range []types.VaultMetrics{
		{Volatility: 0.1, Correlation: 0.9, Liquidity: 1_000_000, PositionSize: 100, TotalPoolSize: 1_000_000},
		{Volatility: 0.9, Correlation: 0.0, Liquidity: 100, PositionSize: 1000, TotalPoolSize: 1000},
	} {
		got := scorer.AssessVaultRisk(metrics)
		require.NotEmpty(t, got.Recommendations)
		assert.Equal(t, "Leverage SEI's 400ms finality for rapid risk response",
			got.Recommendations[len(got.Recommendations)-1])
	}
}

func TestHighRiskRecommendationOrder(t *testing.T) {
	got := newTestScorer().AssessVaultRisk(types.VaultMetrics{
		Volatility: 1.0, Correlation: 0.0, Liquidity: 500,
		PositionSize: 100000, TotalPoolSize: 100000,
	})

	require.Equal(t, types.RiskLevelHigh, got.RiskLevel)
	require.Len(t, got.Recommendations, 5)
	assert.Equal(t, "Consider reducing position size to limit exposure", got.Recommendations[0])
	assert.Equal(t, "Consider hedging strategies using perp futures", got.Recommendations[3])
}
