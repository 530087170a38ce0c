// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS engine_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,

			tick_spacing INTEGER NOT NULL,
			price_epsilon DECIMAL(20, 12) NOT NULL,
			gas_optimization_factor DECIMAL(10, 4) NOT NULL,
			finality_ms INTEGER NOT NULL,
			reference_finality_ms INTEGER NOT NULL,
			finality_reduction_factor DECIMAL(10, 4) NOT NULL,
			default_volatility DECIMAL(10, 6) NOT NULL,
			min_range_percent DECIMAL(10, 6) NOT NULL,
			lower_floor_percent DECIMAL(10, 6) NOT NULL,
			statistical_confidence DECIMAL(10, 4) NOT NULL,

			concentration_multiplier_cap DECIMAL(10, 4) NOT NULL,
			concentration_reference DECIMAL(10, 6) NOT NULL,
			position_scale_base DECIMAL(20, 8) NOT NULL,
			market_depth_reference DECIMAL(20, 8) NOT NULL,

			optimal_utilization DECIMAL(10, 4) NOT NULL,
			high_urgency_utilization DECIMAL(10, 4) NOT NULL,
			medium_urgency_utilization DECIMAL(10, 4) NOT NULL,
			high_urgency_range_factor DECIMAL(10, 4) NOT NULL,
			medium_urgency_range_factor DECIMAL(10, 4) NOT NULL,
			gas_cost_estimate_usd DECIMAL(20, 8) NOT NULL,

			il_risk_weight DECIMAL(10, 4) NOT NULL,
			volatility_risk_weight DECIMAL(10, 4) NOT NULL,
			liquidity_risk_weight DECIMAL(10, 4) NOT NULL,
			concentration_risk_weight DECIMAL(10, 4) NOT NULL,
			liquidity_depth_threshold DECIMAL(20, 8) NOT NULL,
			max_volatility DECIMAL(10, 4) NOT NULL,
			max_concentration DECIMAL(10, 4) NOT NULL,
			low_risk_cutoff DECIMAL(10, 4) NOT NULL,
			medium_risk_cutoff DECIMAL(10, 4) NOT NULL,

			signal_change_threshold DECIMAL(10, 6) NOT NULL,
			position_drift_threshold DECIMAL(10, 6) NOT NULL,
			arb_profit_threshold_usd DECIMAL(20, 8) NOT NULL,
			arb_risk_ceiling DECIMAL(10, 4) NOT NULL,

			CONSTRAINT uq_engine_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_engine_parameters_config_active_timestamp ON engine_parameters(config_name, is_active, activated_at DESC);
		CREATE INDEX IF NOT EXISTS idx_engine_parameters_config_timestamp ON engine_parameters(config_name, activated_at DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
