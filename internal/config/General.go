package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// AgentID identifies this engine instance to the agent runtime.
	AgentID string
	// RoomID is the runtime room/channel this engine publishes into.
	RoomID string

	// WebPort is the port the HTTP bridge listens on.
	WebPort string

	// RuntimeTimeout bounds individual HTTP calls to the agent runtime.
	RuntimeTimeout time.Duration
	// ReconnectAttempts bounds channel reconnection tries before the channel
	// is declared disconnected.
	ReconnectAttempts int
	// ReconnectDelay is the base delay for exponential reconnect backoff.
	ReconnectDelay time.Duration

	// MonitorInterval is the cadence of the engine monitoring loop.
	MonitorInterval time.Duration
	// MonitorErrorBackoff is the extra wait applied after a failed iteration.
	MonitorErrorBackoff time.Duration

	// ModelPath optionally points at a trained regressor artifact loaded at
	// startup. Empty means the statistical predictor is used.
	ModelPath string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	AgentID, err = getEnv("AGENT_ID")
	if err != nil {
		return err
	}

	RoomID, err = getEnv("ROOM_ID")
	if err != nil {
		return err
	}

	WebPort = getEnvOptional("WEB_PORT", "8000")

	timeoutSecs, err := getEnvAsIntDefault("RUNTIME_TIMEOUT_SECONDS", 30)
	if err != nil {
		return err
	}
	RuntimeTimeout = time.Duration(timeoutSecs) * time.Second

	ReconnectAttempts, err = getEnvAsIntDefault("RECONNECT_ATTEMPTS", 5)
	if err != nil {
		return err
	}

	reconnectSecs, err := getEnvAsIntDefault("RECONNECT_DELAY_SECONDS", 5)
	if err != nil {
		return err
	}
	ReconnectDelay = time.Duration(reconnectSecs) * time.Second

	monitorSecs, err := getEnvAsIntDefault("MONITOR_INTERVAL_SECONDS", 30)
	if err != nil {
		return err
	}
	MonitorInterval = time.Duration(monitorSecs) * time.Second

	backoffSecs, err := getEnvAsIntDefault("MONITOR_ERROR_BACKOFF_SECONDS", 60)
	if err != nil {
		return err
	}
	MonitorErrorBackoff = time.Duration(backoffSecs) * time.Second

	ModelPath = getEnvOptional("MODEL_PATH", "")

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("AgentID", AgentID).
		Str("RoomID", RoomID).
		Str("WebPort", WebPort).
		Dur("MonitorInterval", MonitorInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOptional retrieves a string environment variable with a fallback.
func getEnvOptional(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsIntDefault retrieves an environment variable as an int, falling back
// to a default when unset. Returns error if set but invalid.
func getEnvAsIntDefault(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}
