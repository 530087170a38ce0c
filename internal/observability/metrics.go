// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Prediction metrics
	PredictionsTotal *prometheus.CounterVec
	PredictionErrors *prometheus.CounterVec

	// Risk metrics
	RiskAssessmentsTotal *prometheus.CounterVec
	RiskAlertsSent       prometheus.Counter

	// Signal metrics
	SignalsSent *prometheus.CounterVec

	// Monitoring loop metrics
	MonitorCyclesTotal   *prometheus.CounterVec
	MonitorCycleDuration prometheus.Histogram

	// Channel metrics
	ChannelReconnects prometheus.Counter

	// HTTP bridge metrics
	HTTPRequestDuration *prometheus.HistogramVec

	// Parameter store metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sei_dlp_engine"
	}

	return &Metrics{
		PredictionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "predictions_total",
			Help:      "Total number of range predictions by predictor variant",
		}, []string{"provenance"}),
		PredictionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "optimizer",
			Name:      "prediction_errors_total",
			Help:      "Total number of failed range predictions by reason",
		}, []string{"reason"}),

		RiskAssessmentsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "assessments_total",
			Help:      "Total number of vault risk assessments by level",
		}, []string{"level"}),
		RiskAlertsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "alerts_sent_total",
			Help:      "Total number of risk alerts pushed to the agent runtime",
		}),

		SignalsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signals",
			Name:      "sent_total",
			Help:      "Total number of trading signals sent by action",
		}, []string{"action"}),

		MonitorCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total number of monitoring cycles by status",
		}, []string{"status"}),
		MonitorCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Monitoring cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		ChannelReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "channel",
			Name:      "reconnects_total",
			Help:      "Total number of runtime channel reconnect attempts",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP bridge request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "status"}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Parameter store query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of parameter store query errors",
		}, []string{"operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPrediction increments the prediction counter for a predictor variant.
func RecordPrediction(provenance string) {
	DefaultMetrics.PredictionsTotal.WithLabelValues(provenance).Inc()
}

// RecordPredictionError records a failed prediction.
func RecordPredictionError(reason string) {
	DefaultMetrics.PredictionErrors.WithLabelValues(reason).Inc()
}

// RecordRiskAssessment increments the assessment counter for a risk level.
func RecordRiskAssessment(level string) {
	DefaultMetrics.RiskAssessmentsTotal.WithLabelValues(level).Inc()
}

// RecordRiskAlert increments the risk alerts sent counter.
func RecordRiskAlert() {
	DefaultMetrics.RiskAlertsSent.Inc()
}

// RecordSignalSent increments the signals sent counter for an action.
func RecordSignalSent(action string) {
	DefaultMetrics.SignalsSent.WithLabelValues(action).Inc()
}

// RecordMonitorCycle records a monitoring cycle outcome and duration.
func RecordMonitorCycle(status string, durationSeconds float64) {
	DefaultMetrics.MonitorCyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.MonitorCycleDuration.Observe(durationSeconds)
}

// RecordChannelReconnect increments the channel reconnect counter.
func RecordChannelReconnect() {
	DefaultMetrics.ChannelReconnects.Inc()
}

// RecordHTTPRequest records an HTTP bridge request duration.
func RecordHTTPRequest(route, status string, durationSeconds float64) {
	DefaultMetrics.HTTPRequestDuration.WithLabelValues(route, status).Observe(durationSeconds)
}

// RecordDBQuery records parameter store query metrics.
func RecordDBQuery(operation string, durationSeconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(operation).Observe(durationSeconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}
