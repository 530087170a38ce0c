package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/sei-dlp/engine/internal/observability"
	"github.com/sei-dlp/engine/internal/optimizer"
	"github.com/sei-dlp/engine/internal/types"
	"github.com/sei-dlp/engine/internal/utils"
)

// VaultAnalysisRequest asks for an optimal liquidity range for a vault.
type VaultAnalysisRequest struct {
	VaultAddress string  `json:"vault_address"`
	CurrentPrice float64 `json:"current_price"`
	Volume24h    float64 `json:"volume_24h"`
	Volatility   float64 `json:"volatility"`
	Liquidity    float64 `json:"liquidity"`
	Timeframe    string  `json:"timeframe"`
	ChainID      int     `json:"chain_id"`
}

// OptimalRangeResponse is the bridge payload for a range recommendation.
type OptimalRangeResponse struct {
	LowerTick   int     `json:"lower_tick"`
	UpperTick   int     `json:"upper_tick"`
	LowerPrice  float64 `json:"lower_price"`
	UpperPrice  float64 `json:"upper_price"`
	Confidence  float64 `json:"confidence"`
	ExpectedAPR float64 `json:"expected_apr"`
	RiskScore   float64 `json:"risk_score"`
	Reasoning   string  `json:"reasoning"`
}

// MarketPredictionRequest carries a close-price history for trend analysis.
type MarketPredictionRequest struct {
	Symbol              string            `json:"symbol"`
	HistoricalData      []HistoricalPoint `json:"historical_data"`
	PredictionHorizon   string            `json:"prediction_horizon"`
	ConfidenceThreshold float64           `json:"confidence_threshold"`
}

// HistoricalPoint is one candle of the supplied history. Only the close is
// used.
type HistoricalPoint struct {
	Close float64 `json:"close"`
}

// RebalanceRecommendationRequest asks whether an existing position should be
// rebalanced around the current tick.
type RebalanceRecommendationRequest struct {
	VaultAddress    string  `json:"vault_address"`
	CurrentTick     int     `json:"current_tick"`
	LowerTick       int     `json:"lower_tick"`
	UpperTick       int     `json:"upper_tick"`
	UtilizationRate float64 `json:"utilization_rate"`
}

// DeltaNeutralRequest asks for a hedged LP plan for a trading pair.
type DeltaNeutralRequest struct {
	Pair             string  `json:"pair"`
	PositionSize     float64 `json:"position_size"`
	CurrentPrice     float64 `json:"current_price"`
	Volatility       float64 `json:"volatility"`
	MarketConditions struct {
		FundingRate float64 `json:"funding_rate"`
	} `json:"market_conditions"`
}

// webhookEnvelope is the generic payload the agent runtime posts to
// /runtime/webhook.
type webhookEnvelope struct {
	Type   string          `json:"type"`
	Params json.RawMessage `json:"params"`
}

// handleOptimalRange serves POST /predict/optimal-range.
func (s *Server) handleOptimalRange(w http.ResponseWriter, r *http.Request) {
	var req VaultAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, status, errMsg := s.analyzeVault(req)
	if errMsg != "" {
		observability.RecordPredictionError("invalid_input")
		s.writeErrorResponse(w, status, errMsg)
		return
	}

	observability.RecordPrediction(string(types.ProvenanceStatistical))
	s.writeJSONResponse(w, http.StatusOK, result)
}

// analyzeVault computes a vault's optimal range from the supplied market
// inputs. Returns a non-empty message and an HTTP status on validation
// failure.
func (s *Server) analyzeVault(req VaultAnalysisRequest) (OptimalRangeResponse, int, string) {
	if req.CurrentPrice <= 0 || math.IsNaN(req.CurrentPrice) || math.IsInf(req.CurrentPrice, 0) {
		return OptimalRangeResponse{}, http.StatusBadRequest, "Current price must be positive"
	}
	if req.Volatility < 0 || req.Volatility > 2.0 || math.IsNaN(req.Volatility) {
		return OptimalRangeResponse{}, http.StatusUnprocessableEntity, "Volatility must be between 0 and 2.0"
	}
	if req.Liquidity < 0 || math.IsNaN(req.Liquidity) {
		return OptimalRangeResponse{}, http.StatusBadRequest, "Liquidity must be non-negative"
	}

	webLogger.Info().Str("vault", req.VaultAddress).Msg("Analyzing optimal range")

	pool := types.PoolState{
		Address:     req.VaultAddress,
		Reserve0:    req.CurrentPrice,
		Reserve1:    1,
		FeeTier:     0.003,
		Liquidity:   req.Liquidity,
		TickSpacing: s.params.TickSpacing,
	}

	volatilityFactor := math.Min(req.Volatility, 1.0)
	buffer := req.CurrentPrice * volatilityFactor * 0.1

	candidate := types.RangeCandidate{
		LowerPrice: req.CurrentPrice - buffer,
		UpperPrice: req.CurrentPrice + buffer,
		Provenance: types.ProvenanceStatistical,
	}
	candidate = s.optimizer.Optimize(candidate, pool)

	confidence := 0.85 - volatilityFactor*0.2
	expectedAPR := s.optimizer.EstimateAPR(req.Volume24h)
	riskScore := clampUnit(req.Volatility*0.6 + (1-req.Liquidity/10_000_000)*0.4)

	return OptimalRangeResponse{
		LowerTick:   priceTick(candidate.LowerPrice),
		UpperTick:   priceTick(candidate.UpperPrice),
		LowerPrice:  candidate.LowerPrice,
		UpperPrice:  candidate.UpperPrice,
		Confidence:  confidence,
		ExpectedAPR: expectedAPR,
		RiskScore:   riskScore,
		Reasoning: fmt.Sprintf(
			"Optimal range calculated for SEI Chain (1328) considering %.1f%% volatility. Range provides %.1f%% confidence with estimated %.1f%% APR.",
			req.Volatility*100, confidence*100, expectedAPR*100),
	}, http.StatusOK, ""
}

// handleMarketPrediction serves POST /predict/market.
func (s *Server) handleMarketPrediction(w http.ResponseWriter, r *http.Request) {
	var req MarketPredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, status, errMsg := s.predictMarket(req)
	if errMsg != "" {
		s.writeErrorResponse(w, status, errMsg)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) predictMarket(req MarketPredictionRequest) (types.TrendAnalysis, int, string) {
	if len(req.HistoricalData) == 0 {
		return types.TrendAnalysis{}, http.StatusBadRequest, "Historical data required"
	}

	webLogger.Info().Str("symbol", req.Symbol).Msg("Predicting market movement")

	closes := make([]float64, 0, len(req.HistoricalData))
	for _, point := range req.HistoricalData {
		closes = append(closes, point.Close)
	}

	analysis, err := s.optimizer.AnalyzeTrend(closes)
	if err != nil {
		return types.TrendAnalysis{}, http.StatusBadRequest, "Insufficient historical data"
	}
	return analysis, http.StatusOK, ""
}

// handleRebalanceAnalysis serves POST /analyze/rebalance.
func (s *Server) handleRebalanceAnalysis(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, status, errMsg := s.analyzeRebalance(req)
	if errMsg != "" {
		s.writeErrorResponse(w, status, errMsg)
		return
	}

	s.writeJSONResponse(w, http.StatusOK, result)
}

func (s *Server) analyzeRebalance(req RebalanceRecommendationRequest) (types.RebalancePlan, int, string) {
	webLogger.Info().Str("vault", req.VaultAddress).Msg("Analyzing rebalance need")

	plan, err := s.optimizer.EvaluateRebalance(req.CurrentTick, req.LowerTick, req.UpperTick, req.UtilizationRate)
	if err != nil {
		return types.RebalancePlan{}, http.StatusBadRequest, err.Error()
	}
	return plan, http.StatusOK, ""
}

// handleDeltaNeutral serves POST /predict/delta-neutral-optimization.
func (s *Server) handleDeltaNeutral(w http.ResponseWriter, r *http.Request) {
	var req DeltaNeutralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.PositionSize <= 0 {
		s.writeErrorResponse(w, http.StatusBadRequest, "Position size must be positive")
		return
	}
	if req.CurrentPrice <= 0 || math.IsNaN(req.CurrentPrice) || math.IsInf(req.CurrentPrice, 0) {
		s.writeErrorResponse(w, http.StatusBadRequest, "Current price must be positive")
		return
	}
	if req.Volatility < 0 || req.Volatility > 2.0 || math.IsNaN(req.Volatility) {
		s.writeErrorResponse(w, http.StatusUnprocessableEntity, "Volatility must be between 0 and 2.0")
		return
	}

	webLogger.Info().Str("pair", req.Pair).Msg("Optimizing delta neutral strategy")

	plan, err := s.optimizer.OptimizeDeltaNeutral(optimizer.DeltaNeutralInput{
		Pair:         req.Pair,
		PositionSize: req.PositionSize,
		CurrentPrice: req.CurrentPrice,
		Volatility:   req.Volatility,
		FundingRate:  req.MarketConditions.FundingRate,
	})
	if err != nil {
		if errors.Is(err, optimizer.ErrInvalidInput) {
			s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		webLogger.Error().Err(err).Msg("Delta neutral optimization failed")
		s.writeErrorResponse(w, http.StatusInternalServerError, "Delta neutral optimization failed")
		return
	}

	s.writeJSONResponse(w, http.StatusOK, plan)
}

// handleVaultRisk serves POST /assess/vault-risk.
func (s *Server) handleVaultRisk(w http.ResponseWriter, r *http.Request) {
	var metrics types.VaultMetrics
	if err := json.NewDecoder(r.Body).Decode(&metrics); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	assessment := s.scorer.AssessVaultRisk(metrics)
	observability.RecordRiskAssessment(assessment.RiskLevel)
	s.writeJSONResponse(w, http.StatusOK, assessment)
}

// handleRuntimeWebhook serves POST /runtime/webhook, routing typed payloads
// from the agent runtime to the matching analysis.
func (s *Server) handleRuntimeWebhook(w http.ResponseWriter, r *http.Request) {
	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"status": "error", "message": "Invalid request body",
		})
		return
	}

	webLogger.Info().Str("type", envelope.Type).Msg("Received runtime webhook")

	var (
		result interface{}
		errMsg string
	)

	switch envelope.Type {
	case "vault_analysis":
		var req VaultAnalysisRequest
		if err := json.Unmarshal(envelope.Params, &req); err != nil {
			errMsg = "Invalid vault_analysis params"
			break
		}
		result, _, errMsg = s.analyzeVault(req)
	case "market_prediction":
		var req MarketPredictionRequest
		if err := json.Unmarshal(envelope.Params, &req); err != nil {
			errMsg = "Invalid market_prediction params"
			break
		}
		result, _, errMsg = s.predictMarket(req)
	case "rebalance_analysis":
		var req RebalanceRecommendationRequest
		if err := json.Unmarshal(envelope.Params, &req); err != nil {
			errMsg = "Invalid rebalance_analysis params"
			break
		}
		result, _, errMsg = s.analyzeRebalance(req)
	default:
		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"status": "unknown_request_type", "type": envelope.Type,
		})
		return
	}

	if errMsg != "" {
		s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"status": "error", "message": errMsg,
		})
		return
	}

	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "success", "result": result,
	})
}

// priceTick converts a positive price to its tick, degrading to 0 instead of
// erroring.
func priceTick(price float64) int {
	tick, err := utils.PriceToTick(price)
	if err != nil {
		return 0
	}
	return tick
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
