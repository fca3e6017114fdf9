// Package metrics exposes Prometheus collectors for the assistant and the
// HTTP server. A nil *Collector is valid and records nothing.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketsense"

// Query outcomes.
const (
	OutcomeAnswered    = "answered"
	OutcomeUnresolved  = "unresolved"
	OutcomeUnsupported = "unsupported"
	OutcomeNotFound    = "not_found"
	OutcomeUpstream    = "upstream_failure"
	OutcomeInvalid     = "invalid_input"
)

// Collector handles all assistant and server metrics
type Collector struct {
	queriesTotal     *prometheus.CounterVec
	upstreamFailures *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	scanSpread       *prometheus.HistogramVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		queriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "queries_total",
				Help:      "Total number of questions by outcome and kind",
			},
			[]string{"outcome", "kind"},
		),

		upstreamFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "upstream_failures_total",
				Help:      "Total number of failed calls to external collaborators by stage",
			},
			[]string{"stage"},
		),

		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "assistant",
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"stage"},
		),

		scanSpread: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "arbitrage",
				Name:      "scan_spread_naira",
				Help:      "Price spread between the most expensive and cheapest market per scan",
				Buckets:   prometheus.ExponentialBuckets(100, 2.5, 10),
			},
			[]string{"commodity"},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by method, route, and status code",
			},
			[]string{"method", "route", "status_code"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration distribution",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// Register registers all metrics with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil || reg == nil {
		return nil
	}

	for _, metric := range []prometheus.Collector{
		c.queriesTotal,
		c.upstreamFailures,
		c.stageDuration,
		c.scanSpread,
		c.httpRequests,
		c.httpDuration,
	} {
		if err := reg.Register(metric); err != nil {
			return err
		}
	}
	return nil
}

// RecordQuery counts a finished question. kind is "quote" or "scan" for
// answered questions and empty otherwise.
func (c *Collector) RecordQuery(outcome, kind string) {
	if c == nil {
		return
	}
	c.queriesTotal.WithLabelValues(outcome, kind).Inc()
}

// RecordUpstreamFailure counts a failed collaborator call.
func (c *Collector) RecordUpstreamFailure(stage string) {
	if c == nil {
		return
	}
	c.upstreamFailures.WithLabelValues(stage).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (c *Collector) ObserveStage(stage string, d time.Duration) {
	if c == nil {
		return
	}
	c.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveSpread records the spread of an arbitrage scan.
func (c *Collector) ObserveSpread(commodity string, spread int) {
	if c == nil {
		return
	}
	c.scanSpread.WithLabelValues(commodity).Observe(float64(spread))
}

// RecordHTTPRequest records an HTTP request completion
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, d time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
