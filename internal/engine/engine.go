/*

This file contains the engine orchestrator. It owns the runtime channel, the
optimizer, and the risk scorer, and drives the periodic monitoring loop:
market-condition scanning, arbitrage screening, and portfolio risk
assessment. Lifecycle is an explicit state machine; transitions happen only
through Initialize, Start, and Stop.

*/

package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sei-dlp/engine/internal/agent"
	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/observability"
	"github.com/sei-dlp/engine/internal/optimizer"
	"github.com/sei-dlp/engine/internal/risk"
	"github.com/sei-dlp/engine/internal/types"
)

// State is the engine lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitialized   State = "initialized"
	StateRunning       State = "running"
	StateStopped       State = "stopped"
)

// RuntimeClient is the slice of the agent runtime the engine depends on.
type RuntimeClient interface {
	Connect(ctx context.Context) error
	Disconnect() error
	RegisterHandler(messageType string, h agent.Handler)
	GetMarketData(ctx context.Context, assets []string) ([]types.MarketSnapshot, error)
	GetArbitrageOpportunities(ctx context.Context) ([]types.ArbitrageOpportunity, error)
	SendTradingSignal(signal types.TradingSignal) error
	SendRiskAlert(metrics types.RiskMetrics, alertLevel string) error
}

// Config wires the engine's collaborators.
type Config struct {
	Runtime    RuntimeClient
	Optimizer  *optimizer.Optimizer
	RiskScorer *risk.Scorer
	Params     types.EngineParameters

	MonitorInterval time.Duration
	ErrorBackoff    time.Duration

	// VaultMetricsFn supplies portfolio aggregates for the periodic risk
	// assessment. Optional; nil skips the assessment step.
	VaultMetricsFn func(ctx context.Context) (types.VaultMetrics, error)
}

func (c Config) validate() error {
	if c.Runtime == nil {
		return errors.New("runtime client is required")
	}
	if c.Optimizer == nil {
		return errors.New("optimizer is required")
	}
	if c.RiskScorer == nil {
		return errors.New("risk scorer is required")
	}
	if c.MonitorInterval <= 0 {
		return errors.New("monitor interval must be positive")
	}
	if c.ErrorBackoff <= 0 {
		return errors.New("error backoff must be positive")
	}
	return nil
}

// Engine coordinates prediction, risk assessment, and runtime communication.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	mu    sync.Mutex
	state State

	done chan struct{}
	wg   sync.WaitGroup
}

// New builds an Engine in the uninitialized state.
func New(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.GetForComponent("engine"),
		state:  StateUninitialized,
	}, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Initialize connects the runtime channel and registers message handlers.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateUninitialized {
		return fmt.Errorf("cannot initialize from state %s", e.state)
	}

	e.cfg.Runtime.RegisterHandler(agent.MsgMarketDataUpdate, e.handleMarketDataUpdate)
	e.cfg.Runtime.RegisterHandler(agent.MsgPositionUpdate, e.handlePositionUpdate)
	e.cfg.Runtime.RegisterHandler(agent.MsgRebalanceRequest, e.handleRebalanceRequest)

	if err := e.cfg.Runtime.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to agent runtime: %w", err)
	}

	e.state = StateInitialized
	e.logger.Info().Msg("Engine initialized")
	return nil
}

// Start begins the monitoring loop. Initializes first if needed.
func (e *Engine) Start(ctx context.Context) error {
	if e.State() == StateUninitialized {
		if err := e.Initialize(ctx); err != nil {
			return err
		}
	}

	e.mu.Lock()
	if e.state != StateInitialized {
		e.mu.Unlock()
		return fmt.Errorf("cannot start from state %s", e.state)
	}
	e.state = StateRunning
	e.done = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.monitorLoop()

	e.logger.Info().Msg("Engine started")
	return nil
}

// Stop halts the monitoring loop and disconnects the runtime channel.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.state != StateRunning && e.state != StateInitialized {
		e.mu.Unlock()
		return fmt.Errorf("cannot stop from state %s", e.state)
	}
	running := e.state == StateRunning
	e.state = StateStopped
	e.mu.Unlock()

	if running {
		close(e.done)
		e.wg.Wait()
	}

	if err := e.cfg.Runtime.Disconnect(); err != nil {
		e.logger.Warn().Err(err).Msg("Runtime disconnect failed during engine stop")
	}

	e.logger.Info().Msg("Engine stopped")
	return nil
}

// monitorLoop runs monitoring cycles until stopped. A failed cycle backs off
// longer before the next attempt instead of crashing the engine.
func (e *Engine) monitorLoop() {
	defer e.wg.Done()

	delay := time.Duration(0) // first cycle runs immediately
	for {
		select {
		case <-e.done:
			return
		case <-time.After(delay):
		}

		start := time.Now()
		err := e.runCycle()
		elapsed := time.Since(start)

		if err != nil {
			observability.RecordMonitorCycle("error", elapsed.Seconds())
			delay = e.cfg.ErrorBackoff
			continue
		}
		observability.RecordMonitorCycle("ok", elapsed.Seconds())
		delay = e.cfg.MonitorInterval
	}
}

// runCycle executes one monitoring pass.
func (e *Engine) runCycle() error {
	cycleID := uuid.New().String()
	log := e.logger.With().Str("cycle_id", cycleID).Logger()

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.MonitorInterval)
	defer cancel()

	log.Debug().Msg("Monitoring cycle started")

	var firstErr error
	if err := e.monitorMarketConditions(ctx, log); err != nil {
		log.Warn().Err(err).Msg("Market condition monitoring failed")
		firstErr = err
	}
	if err := e.checkArbitrageOpportunities(ctx, log); err != nil {
		log.Warn().Err(err).Msg("Arbitrage opportunity check failed")
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := e.assessPortfolioRisk(ctx, log); err != nil {
		log.Warn().Err(err).Msg("Portfolio risk assessment failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	log.Debug().Msg("Monitoring cycle finished")
	return firstErr
}

// monitorMarketConditions scans reference-asset market data and emits trading
// signals on outsized 24h moves.
func (e *Engine) monitorMarketConditions(ctx context.Context, log zerolog.Logger) error {
	snapshots, err := e.cfg.Runtime.GetMarketData(ctx, types.ReferenceAssets)
	if err != nil {
		return fmt.Errorf("failed to get market data: %w", err)
	}

	for _, snapshot := range snapshots {
		if math.Abs(snapshot.PriceChange24h) <= e.cfg.Params.SignalChangeThreshold {
			continue
		}

		signal := e.generateTradingSignal(snapshot)
		if signal == nil {
			continue
		}

		if err := e.cfg.Runtime.SendTradingSignal(*signal); err != nil {
			log.Warn().Err(err).Str("asset", signal.Asset).Msg("Failed to send trading signal")
			continue
		}
		observability.RecordSignalSent(signal.Action)
		log.Info().
			Str("asset", signal.Asset).
			Str("action", signal.Action).
			Float64("confidence", signal.Confidence).
			Msg("Trading signal sent")
	}
	return nil
}

// generateTradingSignal maps a large 24h move to a BUY or SELL signal.
// Returns nil when the move does not clear the threshold.
func (e *Engine) generateTradingSignal(snapshot types.MarketSnapshot) *types.TradingSignal {
	threshold := e.cfg.Params.SignalChangeThreshold

	var action string
	switch {
	case snapshot.PriceChange24h > threshold:
		action = types.SignalBuy
	case snapshot.PriceChange24h < -threshold:
		action = types.SignalSell
	default:
		return nil
	}

	return &types.TradingSignal{
		Asset:       snapshot.Symbol,
		Action:      action,
		Confidence:  math.Min(0.9, snapshot.Confidence+0.1),
		TargetPrice: snapshot.Price * 1.02,
		Reasoning: fmt.Sprintf("Market %s signal based on %.2f%% price movement",
			action, snapshot.PriceChange24h*100),
		ModelVersion: "v1.0.0",
		Timestamp:    time.Now().UTC(),
	}
}

// checkArbitrageOpportunities logs high-value, low-risk funding arbitrage
// candidates.
func (e *Engine) checkArbitrageOpportunities(ctx context.Context, log zerolog.Logger) error {
	opportunities, err := e.cfg.Runtime.GetArbitrageOpportunities(ctx)
	if err != nil {
		return fmt.Errorf("failed to get arbitrage opportunities: %w", err)
	}

	for _, opp := range opportunities {
		if opp.PotentialProfit > e.cfg.Params.ArbProfitThresholdUSD && opp.RiskScore < e.cfg.Params.ArbRiskCeiling {
			log.Info().
				Str("asset", opp.Asset).
				Float64("potentialProfit", opp.PotentialProfit).
				Float64("riskScore", opp.RiskScore).
				Msg("High-value arbitrage opportunity detected")
		}
	}
	return nil
}

// assessPortfolioRisk scores the current portfolio and pushes an alert on a
// high-risk result.
func (e *Engine) assessPortfolioRisk(ctx context.Context, log zerolog.Logger) error {
	if e.cfg.VaultMetricsFn == nil {
		return nil
	}

	metrics, err := e.cfg.VaultMetricsFn(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch vault metrics: %w", err)
	}

	assessment := e.cfg.RiskScorer.AssessVaultRisk(metrics)
	observability.RecordRiskAssessment(assessment.RiskLevel)

	if assessment.RiskLevel != types.RiskLevelHigh {
		return nil
	}

	log.Warn().
		Float64("overallRisk", assessment.OverallRiskScore).
		Msg("High portfolio risk detected")

	alert := types.RiskMetrics{
		ConcentrationRisk: assessment.Components.ConcentrationRisk,
		LiquidityRisk:     assessment.Components.LiquidityRisk,
		OverallRiskScore:  assessment.OverallRiskScore,
		Timestamp:         time.Now().UTC(),
	}
	if err := e.cfg.Runtime.SendRiskAlert(alert, types.RiskLevelHigh); err != nil {
		return fmt.Errorf("failed to send risk alert: %w", err)
	}
	observability.RecordRiskAlert()
	return nil
}

// GenerateRebalanceSignal emits a REBALANCE signal when a position has
// drifted from its entry price beyond the configured threshold. Fast finality
// keeps the cost of acting on these signals low.
func (e *Engine) GenerateRebalanceSignal(position types.Position, pool types.PoolState) (*types.TradingSignal, error) {
	if position.EntryPrice <= 0 {
		return nil, fmt.Errorf("%w: entry price must be positive, got %v",
			optimizer.ErrInvalidInput, position.EntryPrice)
	}

	currentPrice := pool.Price()
	drift := math.Abs(currentPrice-position.EntryPrice) / position.EntryPrice
	if drift <= e.cfg.Params.PositionDriftThreshold {
		return nil, nil
	}

	return &types.TradingSignal{
		Asset:       position.Asset,
		Action:      types.SignalRebalance,
		Confidence:  math.Min(0.9, drift*2),
		TargetPrice: currentPrice,
		Reasoning: fmt.Sprintf("Position drift %.1f%% exceeds threshold %.1f%%. Fast finality enables cost-effective rebalancing.",
			drift*100, e.cfg.Params.PositionDriftThreshold*100),
		ModelVersion: "statistical_v1.0",
		Timestamp:    time.Now().UTC(),
	}, nil
}

// PredictOptimalRange exposes the optimizer pipeline to callers holding an
// Engine handle.
func (e *Engine) PredictOptimalRange(
	pool types.PoolState,
	snapshots []types.MarketSnapshot,
	history types.HistoricalSeries,
	riskTolerance float64,
	positionSize float64,
) (types.LiquidityRangeResult, error) {
	return e.cfg.Optimizer.PredictOptimalRange(pool, snapshots, history, riskTolerance, positionSize)
}

// AssessVaultRisk exposes the risk scorer.
func (e *Engine) AssessVaultRisk(metrics types.VaultMetrics) types.VaultRiskAssessment {
	assessment := e.cfg.RiskScorer.AssessVaultRisk(metrics)
	observability.RecordRiskAssessment(assessment.RiskLevel)
	return assessment
}

func (e *Engine) handleMarketDataUpdate(msg types.ChannelMessage) {
	e.logger.Debug().Str("id", msg.ID).Msg("Received market data update")
}

func (e *Engine) handlePositionUpdate(msg types.ChannelMessage) {
	e.logger.Debug().Str("id", msg.ID).Msg("Received position update")
}

func (e *Engine) handleRebalanceRequest(msg types.ChannelMessage) {
	e.logger.Info().Str("id", msg.ID).Msg("Received rebalance request")
}
