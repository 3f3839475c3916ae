package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrachat_requests_total",
			Help: "Generation requests by outcome",
		},
		[]string{"outcome"}, // outcome: ok|empty_query|invalid_code|llm_error
	)
	RequestDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "infrachat_request_duration_seconds",
			Help:    "End-to-end duration of generation requests",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 9), // 0.5s..128s
		},
	)

	// LLM
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrachat_llm_requests_total",
			Help: "Number of LLM requests by model",
		},
		[]string{"model"},
	)

	// Terraform plan runs
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrachat_plan_runs_total",
			Help: "Terraform init/plan runs by final status",
		},
		[]string{"status"},
	)
	PlanDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "infrachat_plan_duration_seconds",
			Help:    "Duration of terraform phases",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"}, // phase: init|plan
	)

	// Static analysis
	StaticFindings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrachat_static_findings_total",
			Help: "Static analysis findings by severity",
		},
		[]string{"severity"},
	)

	// HTTP
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	HTTPErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)

	// Errors
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "infrachat_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "type"},
	)
)

func init() {
	prometheus.MustRegister(
		Requests,
		RequestDurationSeconds,
		LLMRequests,
		PlanRuns,
		PlanDurationSeconds,
		StaticFindings,
		HTTPRequestDuration,
		HTTPRequests,
		HTTPErrors,
		Errors,
	)
}

// Requests
func IncRequest(outcome string) {
	Requests.WithLabelValues(outcome).Inc()
}

func ObserveRequestDuration(d time.Duration) {
	RequestDurationSeconds.Observe(d.Seconds())
}

// LLM
func IncLLMRequest(model string) {
	LLMRequests.WithLabelValues(model).Inc()
}

// Plan
func IncPlanRun(status string) {
	PlanRuns.WithLabelValues(status).Inc()
}

func ObservePlanPhase(phase string, d time.Duration) {
	PlanDurationSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

// Static analysis
func AddStaticFindings(severity string, n int) {
	StaticFindings.WithLabelValues(severity).Add(float64(n))
}

// HTTP
func ObserveHTTPRequest(method, path, status string, d time.Duration, failed bool) {
	HTTPRequests.WithLabelValues(method, path).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
	if failed {
		HTTPErrors.WithLabelValues(method, path, status).Inc()
	}
}

// Errors
func IncError(component, typ string) {
	Errors.WithLabelValues(component, typ).Inc()
}
