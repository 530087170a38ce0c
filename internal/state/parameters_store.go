// ./internal/state/parameters_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sei-dlp/engine/internal/observability"
	"github.com/sei-dlp/engine/internal/types"
)

const engineParameterColumns = `
            tick_spacing, price_epsilon, gas_optimization_factor,
            finality_ms, reference_finality_ms, finality_reduction_factor,
            default_volatility, min_range_percent, lower_floor_percent, statistical_confidence,
            concentration_multiplier_cap, concentration_reference, position_scale_base, market_depth_reference,
            optimal_utilization, high_urgency_utilization, medium_urgency_utilization,
            high_urgency_range_factor, medium_urgency_range_factor, gas_cost_estimate_usd,
            il_risk_weight, volatility_risk_weight, liquidity_risk_weight, concentration_risk_weight,
            liquidity_depth_threshold, max_volatility, max_concentration,
            low_risk_cutoff, medium_risk_cutoff,
            signal_change_threshold, position_drift_threshold, arb_profit_threshold_usd, arb_risk_ceiling`

// SaveEngineParameters saves a new version of engine parameters. When
// makeActive is true the previous active row for the config is deactivated in
// the same transaction.
func SaveEngineParameters(params types.EngineParameters, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	start := time.Now()

	tx, err := DB.Begin()
	if err != nil {
		observability.RecordDBQuery("save_parameters", time.Since(start).Seconds(), err)
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE engine_parameters SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			observability.RecordDBQuery("save_parameters", time.Since(start).Seconds(), err)
			return 0, fmt.Errorf("failed to deactivate existing active parameters for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO engine_parameters (
            version, config_name, is_active, activated_at, created_at,` + engineParameterColumns + `
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8,
            $9, $10, $11,
            $12, $13, $14, $15,
            $16, $17, $18, $19,
            $20, $21, $22,
            $23, $24, $25,
            $26, $27, $28, $29,
            $30, $31, $32,
            $33, $34,
            $35, $36, $37, $38
        ) RETURNING params_id;`

	var paramsID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		params.TickSpacing, params.PriceEpsilon, params.GasOptimizationFactor,
		params.FinalityMs, params.ReferenceFinalityMs, params.FinalityReductionFactor,
		params.DefaultVolatility, params.MinRangePercent, params.LowerFloorPercent, params.StatisticalConfidence,
		params.ConcentrationMultiplierCap, params.ConcentrationReference, params.PositionScaleBase, params.MarketDepthReference,
		params.OptimalUtilization, params.HighUrgencyUtilization, params.MediumUrgencyUtilization,
		params.HighUrgencyRangeFactor, params.MediumUrgencyRangeFactor, params.GasCostEstimateUSD,
		params.ILRiskWeight, params.VolatilityRiskWeight, params.LiquidityRiskWeight, params.ConcentrationRiskWeight,
		params.LiquidityDepthThreshold, params.MaxVolatility, params.MaxConcentration,
		params.LowRiskCutoff, params.MediumRiskCutoff,
		params.SignalChangeThreshold, params.PositionDriftThreshold, params.ArbProfitThresholdUSD, params.ArbRiskCeiling,
	).Scan(&paramsID)

	if err != nil {
		observability.RecordDBQuery("save_parameters", time.Since(start).Seconds(), err)
		return 0, fmt.Errorf("failed to insert engine parameters: %w", err)
	}

	err = tx.Commit()
	observability.RecordDBQuery("save_parameters", time.Since(start).Seconds(), err)
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("params_id", paramsID).
		Bool("active", makeActive).
		Msg("Saved engine parameters")
	return paramsID, nil
}

// LoadActiveEngineParameters loads the currently active engine parameters.
func LoadActiveEngineParameters(configName string) (*types.EngineParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT` + engineParameterColumns + `
        FROM engine_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	start := time.Now()
	p := &types.EngineParameters{}
	row := DB.QueryRow(query, configName)
	err := scanEngineParameters(row, p)
	observability.RecordDBQuery("load_active_parameters", time.Since(start).Seconds(), err)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active engine parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan active engine parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded active engine parameters")
	return p, nil
}

// LoadLatestEngineParameters loads the most recently activated engine
// parameters for a given config name, active or not.
func LoadLatestEngineParameters(configName string) (*types.EngineParameters, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT` + engineParameterColumns + `
        FROM engine_parameters
        WHERE config_name = $1
        ORDER BY activated_at DESC, created_at DESC
        LIMIT 1;`

	start := time.Now()
	p := &types.EngineParameters{}
	row := DB.QueryRow(query, configName)
	err := scanEngineParameters(row, p)
	observability.RecordDBQuery("load_latest_parameters", time.Since(start).Seconds(), err)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no engine parameters found for config '%s'", configName)
		}
		return nil, fmt.Errorf("failed to scan latest engine parameters for config '%s': %w", configName, err)
	}
	log.Info().Str("config", configName).Msg("Loaded latest engine parameters (by activation/creation time)")
	return p, nil
}

// GetActiveEngineParametersID returns the params_id of the currently active
// engine parameters, or nil when none is active.
func GetActiveEngineParametersID(configName string) (*int64, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
        SELECT params_id
        FROM engine_parameters
        WHERE config_name = $1 AND is_active = TRUE
        ORDER BY activated_at DESC
        LIMIT 1;`

	start := time.Now()
	var paramsID int64
	row := DB.QueryRow(query, configName)
	err := row.Scan(&paramsID)
	observability.RecordDBQuery("get_active_parameters_id", time.Since(start).Seconds(), err)

	if err != nil {
		if err == sql.ErrNoRows {
			// No active parameters found - this is valid, return nil
			log.Debug().Str("config", configName).Msg("No active engine parameters found")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active engine parameters ID for config '%s': %w", configName, err)
	}

	log.Debug().
		Str("config", configName).
		Int64("params_id", paramsID).
		Msg("Retrieved active engine parameters ID")

	return &paramsID, nil
}

func scanEngineParameters(row *sql.Row, p *types.EngineParameters) error {
	return row.Scan(
		&p.TickSpacing, &p.PriceEpsilon, &p.GasOptimizationFactor,
		&p.FinalityMs, &p.ReferenceFinalityMs, &p.FinalityReductionFactor,
		&p.DefaultVolatility, &p.MinRangePercent, &p.LowerFloorPercent, &p.StatisticalConfidence,
		&p.ConcentrationMultiplierCap, &p.ConcentrationReference, &p.PositionScaleBase, &p.MarketDepthReference,
		&p.OptimalUtilization, &p.HighUrgencyUtilization, &p.MediumUrgencyUtilization,
		&p.HighUrgencyRangeFactor, &p.MediumUrgencyRangeFactor, &p.GasCostEstimateUSD,
		&p.ILRiskWeight, &p.VolatilityRiskWeight, &p.LiquidityRiskWeight, &p.ConcentrationRiskWeight,
		&p.LiquidityDepthThreshold, &p.MaxVolatility, &p.MaxConcentration,
		&p.LowRiskCutoff, &p.MediumRiskCutoff,
		&p.SignalChangeThreshold, &p.PositionDriftThreshold, &p.ArbProfitThresholdUSD, &p.ArbRiskCeiling,
	)
}
