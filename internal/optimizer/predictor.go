/*

This file contains the range predictor. Three variants share one contract:
a statistical estimator that needs no trained model, a linear regressor
loaded from a JSON artifact, and an inference-graph session. Selection is a
strict priority chain (graph > regressor > statistical): an attached model
that fails propagates its error rather than silently falling back, because a
silent fallback would hide a misconfigured deployment.

*/

package optimizer

import (
	"errors"
	"fmt"
	"math"

	"github.com/sei-dlp/engine/internal/features"
	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/types"
)

var (
	// ErrInvalidInput rejects non-positive prices, out-of-range volatility,
	// and non-positive position sizes at the caller boundary.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelNotReady is returned when a model path is selected but no
	// trained model is attached.
	ErrModelNotReady = errors.New("model not ready")

	// ErrInvalidModelOutput is returned when a model produces a malformed or
	// too-short output.
	ErrInvalidModelOutput = errors.New("invalid model output")
)

// annualizationFactor scales five-minute-sample volatility to a daily figure.
const annualizationFactor = 288

var optimizerLogger = logger.GetForComponent("range_optimizer")

// Optimizer produces, tightens, and scores liquidity range recommendations.
// The prediction path is read-only and safe for concurrent callers; attaching
// models must happen before concurrent use begins.
type Optimizer struct {
	params    types.EngineParameters
	regressor *RegressorModel
	graph     GraphSession
}

// New returns an Optimizer using the given engine parameters and no attached
// models (statistical prediction only).
func New(params types.EngineParameters) *Optimizer {
	return &Optimizer{params: params}
}

// AttachRegressor attaches a trained regressor. Not safe to call concurrently
// with prediction.
func (o *Optimizer) AttachRegressor(m *RegressorModel) {
	o.regressor = m
}

// AttachGraph attaches an inference-graph session. Takes priority over the
// regressor. Not safe to call concurrently with prediction.
func (o *Optimizer) AttachGraph(s GraphSession) {
	o.graph = s
}

// ActiveProvenance reports which predictor variant the priority chain would
// select right now.
func (o *Optimizer) ActiveProvenance() types.Provenance {
	switch {
	case o.graph != nil:
		return types.ProvenanceInferenceGraph
	case o.regressor != nil:
		return types.ProvenanceRegressor
	default:
		return types.ProvenanceStatistical
	}
}

// PredictOptimalRange runs the full pipeline: predict a raw candidate,
// tick-align and tighten it, then score it.
func (o *Optimizer) PredictOptimalRange(
	pool types.PoolState,
	snapshots []types.MarketSnapshot,
	history types.HistoricalSeries,
	riskTolerance float64,
	positionSize float64,
) (types.LiquidityRangeResult, error) {

	price := pool.Price()
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return types.LiquidityRangeResult{}, fmt.Errorf("%w: pool price must be positive, got %v", ErrInvalidInput, price)
	}
	if positionSize <= 0 {
		return types.LiquidityRangeResult{}, fmt.Errorf("%w: position size must be positive, got %v", ErrInvalidInput, positionSize)
	}

	candidate, err := o.predict(pool, snapshots, history, riskTolerance, positionSize)
	if err != nil {
		return types.LiquidityRangeResult{}, err
	}

	candidate = o.Optimize(candidate, pool)
	fees, ilRisk, efficiency := o.CalculatePerformanceMetrics(candidate, pool, snapshots, positionSize)

	optimizerLogger.Debug().
		Str("provenance", string(candidate.Provenance)).
		Float64("lowerPrice", candidate.LowerPrice).
		Float64("upperPrice", candidate.UpperPrice).
		Float64("confidence", candidate.Confidence).
		Msg("Optimal range computed")

	return types.LiquidityRangeResult{
		LowerPrice:          candidate.LowerPrice,
		UpperPrice:          candidate.UpperPrice,
		Confidence:          candidate.Confidence,
		ExpectedFees:        fees,
		ImpermanentLossRisk: ilRisk,
		CapitalEfficiency:   efficiency,
		Reasoning:           candidate.Reasoning,
		Provenance:          candidate.Provenance,
	}, nil
}

// predict dispatches along the strict priority chain.
func (o *Optimizer) predict(
	pool types.PoolState,
	snapshots []types.MarketSnapshot,
	history types.HistoricalSeries,
	riskTolerance float64,
	positionSize float64,
) (types.RangeCandidate, error) {

	if o.graph != nil {
		vec := features.ExtractFeatures(pool, snapshots, history, positionSize, o.params)
		return o.predictWithGraph(pool.Price(), vec)
	}
	if o.regressor != nil {
		vec := features.ExtractFeatures(pool, snapshots, history, positionSize, o.params)
		return o.predictWithRegressor(pool.Price(), vec)
	}
	return o.predictStatistical(pool.Price(), history, riskTolerance), nil
}

// predictStatistical derives symmetric bounds from annualized historical
// volatility. An empty or too-short series falls back to the default
// volatility constant; this path never fails.
func (o *Optimizer) predictStatistical(price float64, history types.HistoricalSeries, riskTolerance float64) types.RangeCandidate {
	vol, err := features.EstimateAnnualizedVolatility(history, annualizationFactor)
	if err != nil {
		vol = o.params.DefaultVolatility
	}

	// Fast finality allows tighter ranges; lower risk tolerance widens them.
	adjusted := vol * o.params.FinalityReductionFactor * (1 + (1 - riskTolerance))

	candidate := types.RangeCandidate{
		LowerPrice: price * (1 - adjusted),
		UpperPrice: price * (1 + adjusted),
		Confidence: o.params.StatisticalConfidence,
		Reasoning: fmt.Sprintf(
			"Statistical range from %.2f%% annualized volatility at %.2f risk tolerance",
			vol*100, riskTolerance),
		Provenance: types.ProvenanceStatistical,
	}

	if floor := price * o.params.LowerFloorPercent; candidate.LowerPrice < floor {
		candidate.LowerPrice = floor
	}
	return o.enforceRangeInvariant(candidate, price)
}

func (o *Optimizer) predictWithRegressor(price float64, vec []float64) (types.RangeCandidate, error) {
	if !o.regressor.Trained() {
		return types.RangeCandidate{}, fmt.Errorf("%w: regressor attached but not trained", ErrModelNotReady)
	}

	out, err := o.regressor.Predict(vec)
	if err != nil {
		return types.RangeCandidate{}, err
	}
	if len(out) < 2 {
		return types.RangeCandidate{}, fmt.Errorf("%w: regressor produced %d outputs, need at least 2",
			ErrInvalidModelOutput, len(out))
	}

	confidence := 0.7
	if len(out) >= 3 {
		confidence = clamp(out[2], 0.1, 0.9)
	}

	candidate := types.RangeCandidate{
		LowerPrice: out[0],
		UpperPrice: out[1],
		Confidence: confidence,
		Reasoning:  "Regressor prediction from market and volatility features",
		Provenance: types.ProvenanceRegressor,
	}
	return o.enforceRangeInvariant(candidate, price), nil
}

func (o *Optimizer) predictWithGraph(price float64, vec []float64) (types.RangeCandidate, error) {
	tensor, err := o.graph.Run(vec)
	if err != nil {
		return types.RangeCandidate{}, fmt.Errorf("inference graph run failed: %w", err)
	}

	triple, err := normalizeGraphOutput(tensor)
	if err != nil {
		return types.RangeCandidate{}, err
	}

	candidate := types.RangeCandidate{
		LowerPrice: triple[0],
		UpperPrice: triple[1],
		Confidence: clamp(triple[2], 0.1, 0.9),
		Reasoning:  "Inference graph prediction from market and volatility features",
		Provenance: types.ProvenanceInferenceGraph,
	}
	return o.enforceRangeInvariant(candidate, price), nil
}

// enforceRangeInvariant guarantees UpperPrice > LowerPrice with at least the
// minimum width, and a strictly positive lower bound. Applied after every
// transform so a degenerate range never escapes this package.
func (o *Optimizer) enforceRangeInvariant(c types.RangeCandidate, price float64) types.RangeCandidate {
	minWidth := price * o.params.MinRangePercent

	bad := math.IsNaN(c.LowerPrice) || math.IsInf(c.LowerPrice, 0) ||
		math.IsNaN(c.UpperPrice) || math.IsInf(c.UpperPrice, 0)
	if bad {
		c.LowerPrice = price - minWidth/2
		c.UpperPrice = price + minWidth/2
	}

	if c.Width() < minWidth {
		mid := (c.LowerPrice + c.UpperPrice) / 2
		c.LowerPrice = mid - minWidth/2
		c.UpperPrice = mid + minWidth/2
	}

	if floor := price * o.params.MinRangePercent; c.LowerPrice < floor {
		c.LowerPrice = floor
		if c.UpperPrice-c.LowerPrice < minWidth {
			c.UpperPrice = c.LowerPrice + minWidth
		}
	}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
