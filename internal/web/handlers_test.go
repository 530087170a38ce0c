package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sei-dlp/engine/internal/config"
	"github.com/sei-dlp/engine/internal/optimizer"
	"github.com/sei-dlp/engine/internal/risk"
	"github.com/sei-dlp/engine/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	params := config.DefaultEngineParameters
	return NewServer(Config{
		Port:       "0",
		Optimizer:  optimizer.New(params),
		RiskScorer: risk.NewScorer(params),
		Params:     params,
	})
}

func doRequest(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestHealthDegradedWithoutDatabase(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "DEGRADED", body["status"])
	assert.Equal(t, false, body["database_healthy"])
}

func TestModelsStatus(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/models/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Models              map[string]string `json:"models"`
		SupportedOperations []string          `json:"supported_operations"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "statistical", body.Models["range_predictor"])
	assert.Len(t, body.SupportedOperations, 5)
	assert.Contains(t, body.SupportedOperations, "delta_neutral_optimization")
}

func TestParametersReturnsBootParams(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/parameters", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Parameters types.EngineParameters `json:"parameters"`
		ConfigName string                 `json:"config_name"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, 60, body.Parameters.TickSpacing)
	assert.Equal(t, "default", body.ConfigName)
}

func TestOptimalRangeValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name string
		req  VaultAnalysisRequest
		code int
	}{
		{"zero price", VaultAnalysisRequest{CurrentPrice: 0, Volatility: 0.3, Liquidity: 1000}, http.StatusBadRequest},
		{"negative price", VaultAnalysisRequest{CurrentPrice: -1, Volatility: 0.3, Liquidity: 1000}, http.StatusBadRequest},
		{"volatility above cap", VaultAnalysisRequest{CurrentPrice: 0.45, Volatility: 3, Liquidity: 1000}, http.StatusUnprocessableEntity},
		{"negative liquidity", VaultAnalysisRequest{CurrentPrice: 0.45, Volatility: 0.3, Liquidity: -5}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, s, http.MethodPost, "/predict/optimal-range", tc.req)
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestOptimalRangeAnalysis(t *testing.T) {
	s := newTestServer(t)

	req := VaultAnalysisRequest{
		VaultAddress: "sei1vault",
		CurrentPrice: 0.45,
		Volume24h:    1_500_000,
		Volatility:   0.3,
		Liquidity:    5_000_000,
	}
	rec := doRequest(t, s, http.MethodPost, "/predict/optimal-range", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OptimalRangeResponse
	decodeBody(t, rec, &resp)

	assert.Less(t, resp.LowerPrice, 0.45)
	assert.Greater(t, resp.UpperPrice, 0.45)
	assert.Less(t, resp.LowerTick, resp.UpperTick)
	assert.InDelta(t, 0.79, resp.Confidence, 1e-9)
	assert.InDelta(t, 0.195, resp.ExpectedAPR, 1e-9)
	assert.InDelta(t, 0.38, resp.RiskScore, 1e-9)
	assert.Contains(t, resp.Reasoning, "30.0% volatility")
}

func TestOptimalRangeRiskScoreClamped(t *testing.T) {
	s := newTestServer(t)

	// Deep liquidity drives the depth term negative; the score clamps at 0.
	req := VaultAnalysisRequest{CurrentPrice: 0.45, Volatility: 0, Liquidity: 50_000_000}
	rec := doRequest(t, s, http.MethodPost, "/predict/optimal-range", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp OptimalRangeResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 0.0, resp.RiskScore)
}

func TestMarketPrediction(t *testing.T) {
	s := newTestServer(t)

	points := make([]HistoricalPoint, 0, 10)
	for _, c := range []float64{1.00, 1.01, 1.02, 1.03, 1.04, 1.05, 1.06, 1.07, 1.08, 1.10} {
		points = append(points, HistoricalPoint{Close: c})
	}
	rec := doRequest(t, s, http.MethodPost, "/predict/market", MarketPredictionRequest{
		Symbol:         "SEI/USDC",
		HistoricalData: points,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var analysis types.TrendAnalysis
	decodeBody(t, rec, &analysis)
	assert.Equal(t, types.TrendBullish, analysis.Trend)
	assert.Equal(t, "consider_tightening_range_upward", analysis.RecommendedAction)
}

func TestMarketPredictionRejectsThinHistory(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/predict/market", MarketPredictionRequest{Symbol: "SEI/USDC"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/predict/market", MarketPredictionRequest{
		Symbol:         "SEI/USDC",
		HistoricalData: []HistoricalPoint{{Close: 1.0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRebalanceAnalysis(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/analyze/rebalance", RebalanceRecommendationRequest{
		VaultAddress:    "sei1vault",
		CurrentTick:     1000,
		LowerTick:       940,
		UpperTick:       1060,
		UtilizationRate: 0.2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var plan types.RebalancePlan
	decodeBody(t, rec, &plan)
	assert.Equal(t, types.RebalanceRequired, plan.Action)
	assert.Equal(t, "high", plan.Urgency)
	assert.Less(t, plan.NewLowerTick, plan.NewUpperTick)
}

func TestRebalanceAnalysisRejectsInvertedRange(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/analyze/rebalance", RebalanceRecommendationRequest{
		CurrentTick:     1000,
		LowerTick:       1060,
		UpperTick:       940,
		UtilizationRate: 0.2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeltaNeutralOptimization(t *testing.T) {
	s := newTestServer(t)

	req := DeltaNeutralRequest{
		Pair:         "SEI/USDC",
		PositionSize: 10_000,
		CurrentPrice: 0.45,
		Volatility:   0.4,
	}
	rec := doRequest(t, s, http.MethodPost, "/predict/delta-neutral-optimization", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var plan types.DeltaNeutralPlan
	decodeBody(t, rec, &plan)
	assert.InDelta(t, 0.97, plan.HedgeRatio, 1e-9)
	assert.Less(t, plan.LowerPrice, plan.UpperPrice)
	assert.Contains(t, plan.RevenueBreakdown, "lp_fees")
}

func TestDeltaNeutralValidationSplit(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/predict/delta-neutral-optimization", DeltaNeutralRequest{
		Pair: "SEI/USDC", PositionSize: 0, CurrentPrice: 0.45, Volatility: 0.4,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, s, http.MethodPost, "/predict/delta-neutral-optimization", DeltaNeutralRequest{
		Pair: "SEI/USDC", PositionSize: 10_000, CurrentPrice: 0.45, Volatility: 3,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestVaultRiskAssessment(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/assess/vault-risk", types.VaultMetrics{
		Volatility:    0.4,
		Correlation:   0.6,
		Liquidity:     50_000,
		PositionSize:  10_000,
		TotalPoolSize: 100_000,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var assessment types.VaultRiskAssessment
	decodeBody(t, rec, &assessment)
	assert.Equal(t, types.RiskLevelMedium, assessment.RiskLevel)
	assert.NotEmpty(t, assessment.Recommendations)
}

func TestRuntimeWebhookRouting(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/runtime/webhook", map[string]interface{}{
		"type": "vault_analysis",
		"params": map[string]interface{}{
			"vault_address": "sei1vault",
			"current_price": 0.45,
			"volume_24h":    1_000_000,
			"volatility":    0.3,
			"liquidity":     2_000_000,
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string               `json:"status"`
		Result OptimalRangeResponse `json:"result"`
	}
	decodeBody(t, rec, &body)
	assert.Equal(t, "success", body.Status)
	assert.Greater(t, body.Result.UpperPrice, body.Result.LowerPrice)
}

func TestRuntimeWebhookUnknownType(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/runtime/webhook", map[string]interface{}{
		"type": "sentiment_analysis",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "unknown_request_type", body["status"])
	assert.Equal(t, "sentiment_analysis", body["type"])
}

func TestRuntimeWebhookSurfacesValidationErrors(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/runtime/webhook", map[string]interface{}{
		"type":   "vault_analysis",
		"params": map[string]interface{}{"current_price": 0},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Current price must be positive", body["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/models/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
