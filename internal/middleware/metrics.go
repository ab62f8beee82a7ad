package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Message metrics
	messagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_messages_received_total",
		Help: "Total number of messages received",
	}, []string{"chat_type"})

	// Command metrics
	commandsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_commands_executed_total",
		Help: "Total number of commands executed",
	}, []string{"command"})

	// Completion metrics
	completionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "wisedebot_completion_duration_seconds",
		Help:    "Duration of Groq completion calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"model", "status"})

	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_completions_total",
		Help: "Total number of Groq completion calls",
	}, []string{"model", "status"})

	// Moderation metrics
	moderationVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_moderation_verdicts_total",
		Help: "Total number of moderation classifications",
	}, []string{"verdict"})

	// Setup dialog metrics
	setupSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_setup_sessions_total",
		Help: "Total number of setup dialogs by outcome",
	}, []string{"outcome"})

	// Rate limit metrics
	rateLimitExceeded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wisedebot_rate_limit_exceeded_total",
		Help: "Total number of rate limit exceeded events",
	})

	// Welcome metrics
	welcomesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wisedebot_welcomes_sent_total",
		Help: "Total number of welcome messages sent",
	}, []string{"kind"})
)

// Metrics provides methods to record metrics
type Metrics struct{}

// NewMetrics creates a new metrics instance
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessageReceived records a received message
func (m *Metrics) RecordMessageReceived(chatType string) {
	messagesReceived.WithLabelValues(chatType).Inc()
}

// RecordCommandExecuted records an executed command
func (m *Metrics) RecordCommandExecuted(command string) {
	commandsExecuted.WithLabelValues(command).Inc()
}

// RecordCompletion records one Groq completion call
func (m *Metrics) RecordCompletion(model, status string, duration time.Duration) {
	completionDuration.WithLabelValues(model, status).Observe(duration.Seconds())
	completionsTotal.WithLabelValues(model, status).Inc()
}

// RecordModerationVerdict records a classifier verdict
// (flagged / safe / indeterminate)
func (m *Metrics) RecordModerationVerdict(verdict string) {
	moderationVerdicts.WithLabelValues(verdict).Inc()
}

// RecordSetupOutcome records a finished setup dialog
// (saved / cancelled / aborted)
func (m *Metrics) RecordSetupOutcome(outcome string) {
	setupSessions.WithLabelValues(outcome).Inc()
}

// RecordRateLimitExceeded records a rate limit exceeded event
func (m *Metrics) RecordRateLimitExceeded() {
	rateLimitExceeded.Inc()
}

// RecordWelcomeSent records a welcome message (ai / manual / default)
func (m *Metrics) RecordWelcomeSent(kind string) {
	welcomesSent.WithLabelValues(kind).Inc()
}

// StartMetricsServer starts the metrics HTTP server
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	addr := fmt.Sprintf(":%d", port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
