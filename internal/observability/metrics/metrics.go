package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPMetrics instruments inbound HTTP traffic.
type HTTPMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// PipelineMetrics exposes receipt-pipeline instruments.
type PipelineMetrics struct {
	receiptsProcessed  *prometheus.CounterVec
	extractionFailures prometheus.Counter
	rulesMatched       prometheus.Counter
	manualReview       prometheus.Counter
}

// NewRegistry builds the process-wide prometheus registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewHTTPMetrics registers HTTP instruments on the registry.
func NewHTTPMetrics(reg *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptor_http_requests_total",
			Help: "Count of HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "receiptor_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// Observe records a single request.
func (m *HTTPMetrics) Observe(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	route = normalizeRoute(route)
	m.requestsTotal.WithLabelValues(route, method, status).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(seconds)
}

// NewPipelineMetrics registers pipeline instruments on the registry.
func NewPipelineMetrics(reg *prometheus.Registry) *PipelineMetrics {
	m := &PipelineMetrics{
		receiptsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receiptor_receipts_processed_total",
			Help: "Receipts processed by terminal status.",
		}, []string{"status"}),
		extractionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptor_extraction_failures_total",
			Help: "Extraction adapter failures.",
		}),
		rulesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptor_rules_matched_total",
			Help: "Receipts categorized by a matching rule.",
		}),
		manualReview: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receiptor_manual_review_total",
			Help: "Receipts flagged for manual review.",
		}),
	}
	reg.MustRegister(m.receiptsProcessed, m.extractionFailures, m.rulesMatched, m.manualReview)
	return m
}

// RecordProcessed increments the processed count for a terminal status.
func (m *PipelineMetrics) RecordProcessed(status string) {
	if m == nil {
		return
	}
	m.receiptsProcessed.WithLabelValues(strings.TrimSpace(status)).Inc()
}

// RecordExtractionFailure increments the extraction failure count.
func (m *PipelineMetrics) RecordExtractionFailure() {
	if m == nil {
		return
	}
	m.extractionFailures.Inc()
}

// RecordRuleMatch increments the rule match count.
func (m *PipelineMetrics) RecordRuleMatch() {
	if m == nil {
		return
	}
	m.rulesMatched.Inc()
}

// RecordManualReview increments the manual review count.
func (m *PipelineMetrics) RecordManualReview() {
	if m == nil {
		return
	}
	m.manualReview.Inc()
}

func normalizeRoute(route string) string {
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	return route
}
