package web

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sei-dlp/engine/internal/logger"
	"github.com/sei-dlp/engine/internal/observability"
	"github.com/sei-dlp/engine/internal/optimizer"
	"github.com/sei-dlp/engine/internal/risk"
	"github.com/sei-dlp/engine/internal/state"
	"github.com/sei-dlp/engine/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// Config wires the bridge server to the engine components it exposes.
type Config struct {
	Port       string
	Optimizer  *optimizer.Optimizer
	RiskScorer *risk.Scorer
	Params     types.EngineParameters
	ConfigName string
}

// Server handles HTTP requests bridging the engine to the agent runtime and
// any frontend consumers.
type Server struct {
	router     *mux.Router
	port       string
	optimizer  *optimizer.Optimizer
	scorer     *risk.Scorer
	params     types.EngineParameters
	configName string
	startedAt  time.Time
}

// NewServer creates a new bridge server instance.
func NewServer(cfg Config) *Server {
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.ConfigName == "" {
		cfg.ConfigName = "default"
	}

	server := &Server{
		router:     mux.NewRouter(),
		port:       cfg.Port,
		optimizer:  cfg.Optimizer,
		scorer:     cfg.RiskScorer,
		params:     cfg.Params,
		configName: cfg.ConfigName,
		startedAt:  time.Now(),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/models/status", s.handleModelsStatus).Methods("GET")
	s.router.HandleFunc("/parameters", s.handleParameters).Methods("GET")
	s.router.Handle("/metrics", observability.Handler()).Methods("GET")

	s.router.HandleFunc("/predict/optimal-range", s.handleOptimalRange).Methods("POST")
	s.router.HandleFunc("/predict/market", s.handleMarketPrediction).Methods("POST")
	s.router.HandleFunc("/analyze/rebalance", s.handleRebalanceAnalysis).Methods("POST")
	s.router.HandleFunc("/predict/delta-neutral-optimization", s.handleDeltaNeutral).Methods("POST")
	s.router.HandleFunc("/assess/vault-risk", s.handleVaultRisk).Methods("POST")
	s.router.HandleFunc("/runtime/webhook", s.handleRuntimeWebhook).Methods("POST")

	s.router.Use(s.corsMiddleware)
	s.router.Use(s.loggingMiddleware)
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the bridge server
func (s *Server) Start() error {
	webLogger.Info().Str("port", s.port).Msg("Starting bridge server")

	server := &http.Server{
		Addr:         ":" + s.port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"service":   "sei-dlp-engine",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"go_version":       runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
		},
		"database_healthy": dbHealthy,
	}

	s.writeJSONResponse(w, statusCode, response)
}

// handleModelsStatus reports which predictor variant would serve a request.
func (s *Server) handleModelsStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"models": map[string]string{
			"range_predictor": string(s.optimizer.ActiveProvenance()),
			"risk_scorer":     "active",
			"trend_analyzer":  "active",
		},
		"supported_operations": []string{
			"optimal_range_prediction",
			"market_movement_prediction",
			"rebalance_analysis",
			"risk_assessment",
			"delta_neutral_optimization",
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}

	s.writeJSONResponse(w, http.StatusOK, response)
}

// handleParameters returns the engine parameters the server was booted with,
// plus the active row ID when the parameter store is reachable.
func (s *Server) handleParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters":  s.params,
		"config_name": s.configName,
		"timestamp":   time.Now().UTC(),
	}

	if state.DB != nil {
		if paramsID, err := state.GetActiveEngineParametersID(s.configName); err == nil && paramsID != nil {
			response["params_id"] = *paramsID
		}
	}

	s.writeJSONResponse(w, http.StatusOK, response)
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	s.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests and records request metrics.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		observability.RecordHTTPRequest(route, strconv.Itoa(wrapper.statusCode), duration.Seconds())

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
