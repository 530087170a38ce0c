package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// RuntimeBaseURL is the HTTP base URL of the agent orchestration runtime.
	RuntimeBaseURL string
	// RuntimeWebsocketURL is the runtime's persistent channel endpoint.
	RuntimeWebsocketURL string
	// RuntimeAPIKey authenticates against the runtime. Optional; empty means
	// no Authorization header is sent.
	RuntimeAPIKey string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	RuntimeBaseURL, err = getEnv("RUNTIME_BASE_URL")
	if err != nil {
		return err
	}

	RuntimeWebsocketURL, err = getEnv("RUNTIME_WS_URL")
	if err != nil {
		return err
	}

	RuntimeAPIKey = getEnvOptional("RUNTIME_API_KEY", "")

	log.Debug().
		Str("RuntimeBaseURL", RuntimeBaseURL).
		Str("RuntimeWebsocketURL", RuntimeWebsocketURL).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
