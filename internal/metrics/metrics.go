package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RuleCompileErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_rule_compile_errors_total",
			Help: "Rules rejected by the compiler",
		},
		[]string{"source"}, // source: label_save, sync, ingest
	)

	RuleEvaluationFaults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailtriage_rule_evaluation_faults_total",
			Help: "Rule evaluations that failed at runtime and counted as no match",
		},
	)

	RuleMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_rule_matches_total",
			Help: "Email/label pairs matched by a rule",
		},
		[]string{"operation"}, // operation: apply, reconcile, ingest
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_sync_duration_seconds",
			Help:    "Time spent evaluating a rule over the email corpus",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"operation"},
	)

	AssignmentChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_assignment_changes_total",
			Help: "Label assignments inserted or removed by rule synchronization",
		},
		[]string{"change"}, // change: added, removed
	)

	WebhookResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailtriage_webhook_results_total",
			Help: "Inbound webhook deliveries by outcome",
		},
		[]string{"result"}, // result: created, duplicate, invalid, failed
	)

	SummaryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_summary_latency_ms",
			Help:    "AI summary call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"provider", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailtriage_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func IncrementCompileError(source string) {
	RuleCompileErrors.WithLabelValues(source).Inc()
}

func IncrementEvaluationFault() {
	RuleEvaluationFaults.Inc()
}

func AddRuleMatches(operation string, n int) {
	RuleMatches.WithLabelValues(operation).Add(float64(n))
}

func RecordSyncDuration(operation string, duration time.Duration) {
	SyncDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func AddAssignmentChanges(added, removed int) {
	AssignmentChanges.WithLabelValues("added").Add(float64(added))
	AssignmentChanges.WithLabelValues("removed").Add(float64(removed))
}

func IncrementWebhook(result string) {
	WebhookResults.WithLabelValues(result).Inc()
}

func RecordSummaryLatency(provider, status string, duration time.Duration) {
	SummaryLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
