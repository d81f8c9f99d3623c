// Package metrics exposes Prometheus collectors for IndexNow submissions.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"indexnow-go/pkg/audit"
	"indexnow-go/pkg/indexnow"
)

// EntrySource provides the newest audit log entries, oldest first
type EntrySource interface {
	RecentEntries(limit int) ([]audit.Entry, error)
}

// Metrics owns a private registry so several instances can coexist in tests
type Metrics struct {
	registry *prometheus.Registry

	batchesTotal       *prometheus.CounterVec
	urlsTotal          *prometheus.CounterVec
	submissionDuration prometheus.Histogram
}

// New registers submission counters and, when source is non-nil, gauges that
// summarize the newest window entries of the audit log at scrape time.
func New(source EntrySource, window int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		batchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexnow_batches_total",
				Help: "Total number of submitted batches, labeled by outcome and HTTP status.",
			},
			[]string{"outcome", "status"},
		),
		urlsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexnow_urls_total",
				Help: "Total number of URLs sent, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		submissionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexnow_submission_duration_seconds",
				Help:    "Histogram of submission request latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}

	m.registry.MustRegister(
		m.batchesTotal,
		m.urlsTotal,
		m.submissionDuration,
		collectors.NewGoCollector(),
	)

	if source != nil {
		if window <= 0 {
			window = audit.DefaultStatsWindow
		}
		m.registerAuditGauges(source, window)
	}
	return m
}

func (m *Metrics) registerAuditGauges(source EntrySource, window int) {
	snapshot := func() audit.Statistics {
		entries, err := source.RecentEntries(window)
		if err != nil {
			return audit.Statistics{}
		}
		return audit.ComputeStatistics(entries)
	}

	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "indexnow_audit_success_rate",
			Help: "Success rate over the newest audit log entries.",
		}, func() float64 { return snapshot().SuccessRate }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "indexnow_audit_window_submissions",
			Help: "Number of audit log entries in the statistics window.",
		}, func() float64 { return float64(snapshot().TotalSubmissions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "indexnow_audit_window_failures",
			Help: "Number of failed submissions in the statistics window.",
		}, func() float64 { return float64(snapshot().FailedSubmissions) }),
	)
}

// RecordResult counts one batch result
func (m *Metrics) RecordResult(result indexnow.SubmissionResult) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	m.batchesTotal.WithLabelValues(outcome, strconv.Itoa(result.StatusCode)).Inc()
	m.urlsTotal.WithLabelValues(outcome).Add(float64(result.URLCount))
	m.submissionDuration.Observe(float64(result.DurationMs) / 1000)
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler exposing the registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the registry to a Pushgateway under job; short-lived submission
// runs exit before any scrape could reach them.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.registry).PushContext(ctx)
}
