package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sei-dlp/engine/internal/agent"
	"github.com/sei-dlp/engine/internal/config"
	"github.com/sei-dlp/engine/internal/engine"
	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/optimizer"
	"github.com/sei-dlp/engine/internal/risk"
	"github.com/sei-dlp/engine/internal/state"
	"github.com/sei-dlp/engine/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_PARAMS_CONFIG_NAME    = "default"
	DEFAULT_PARAMS_CONFIG_VERSION = 1
)

// main is the entry point for the DLP engine.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("DLP Engine Starting...")

	// Initialize Database Connection (for EngineParameters only)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Engine Parameters
	engineParams, err := state.LoadActiveEngineParameters(DEFAULT_PARAMS_CONFIG_NAME)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active engine parameters, using defaults and saving.")
		defaultParams := config.DefaultEngineParameters
		if _, err := state.SaveEngineParameters(defaultParams, DEFAULT_PARAMS_CONFIG_NAME, DEFAULT_PARAMS_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default engine parameters.")
		}
		engineParams = &defaultParams
	}
	log.Info().Msg("Engine parameters loaded successfully.")

	// --- 2. Component Initialization ---
	opt := optimizer.New(*engineParams)
	if config.ModelPath != "" {
		model, err := optimizer.LoadRegressorModel(config.ModelPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", config.ModelPath).Msg("Failed to load regressor model")
		}
		opt.AttachRegressor(model)
		log.Info().Str("path", config.ModelPath).Msg("Regressor model attached")
	}
	scorer := risk.NewScorer(*engineParams)

	agentCfg := agent.DefaultConfig()
	agentCfg.BaseURL = config.RuntimeBaseURL
	agentCfg.WebsocketURL = config.RuntimeWebsocketURL
	agentCfg.APIKey = config.RuntimeAPIKey
	agentCfg.AgentID = config.AgentID
	agentCfg.RoomID = config.RoomID
	agentCfg.Timeout = config.RuntimeTimeout
	agentCfg.ReconnectAttempts = config.ReconnectAttempts
	agentCfg.ReconnectDelay = config.ReconnectDelay
	runtimeClient := agent.NewClient(agentCfg)

	eng, err := engine.New(engine.Config{
		Runtime:         runtimeClient,
		Optimizer:       opt,
		RiskScorer:      scorer,
		Params:          *engineParams,
		MonitorInterval: config.MonitorInterval,
		ErrorBackoff:    config.MonitorErrorBackoff,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	// --- 3. Start Bridge Server ---
	bridgeServer := web.NewServer(web.Config{
		Port:       config.WebPort,
		Optimizer:  opt,
		RiskScorer: scorer,
		Params:     *engineParams,
		ConfigName: DEFAULT_PARAMS_CONFIG_NAME,
	})
	go func() {
		log.Info().Str("port", config.WebPort).Msg("Starting DLP bridge server")
		if err := bridgeServer.Start(); err != nil {
			log.Error().Err(err).Msg("Bridge server failed to start")
		}
	}()

	// --- 4. Start Engine Monitoring Loop ---
	ctx := context.Background()
	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start engine")
	}
	log.Info().Dur("interval", config.MonitorInterval).Msg("Engine monitoring loop started")

	// Block until asked to shut down
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	if err := eng.Stop(); err != nil {
		log.Error().Err(err).Msg("Engine shutdown error")
	}
	log.Info().Msg("DLP Engine stopped.")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
