// Copyright (c) Microsoft. All rights reserved.

// Package metrics exposes Prometheus metrics for the agent services.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ask outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeApprovalLimit = "approval_limit"
	OutcomeFailed        = "failed"
)

// Collector records service metrics on its own registry.
type Collector struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	asksTotal         *prometheus.CounterVec
	askDuration       prometheus.Histogram
	approvalDecisions *prometheus.CounterVec
	tokensUsed        *prometheus.CounterVec
	threadLoads       *prometheus.CounterVec
}

// NewCollector creates a collector whose metrics carry the given namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		asksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_asks_total",
			Help:      "Total number of messages sent to agents, by outcome",
		}, []string{"outcome"}),
		askDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agent_ask_duration_seconds",
			Help:      "Duration of a message round trip including approval rounds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		approvalDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_approval_decisions_total",
			Help:      "Tool approval decisions",
		}, []string{"tool", "decision"}),
		tokensUsed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_used_total",
			Help:      "Total number of tokens used",
		}, []string{"type"}),
		threadLoads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_loads_total",
			Help:      "Thread state lookups, by result",
		}, []string{"result"}),
	}
}

// RecordHTTPRequest records one served request. path is the route pattern.
func (c *Collector) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordAsk records the outcome of one message round trip.
func (c *Collector) RecordAsk(outcome string, d time.Duration) {
	c.asksTotal.WithLabelValues(outcome).Inc()
	c.askDuration.Observe(d.Seconds())
}

// RecordApproval records a decision on a pending tool call.
func (c *Collector) RecordApproval(tool string, approved bool) {
	decision := "denied"
	if approved {
		decision = "approved"
	}
	c.approvalDecisions.WithLabelValues(tool, decision).Inc()
}

// RecordTokens records token usage of a completed run.
func (c *Collector) RecordTokens(input, output int) {
	c.tokensUsed.WithLabelValues("input").Add(float64(input))
	c.tokensUsed.WithLabelValues("output").Add(float64(output))
}

// RecordThreadLoad records whether persisted thread state was found.
func (c *Collector) RecordThreadLoad(found bool) {
	result := "miss"
	if found {
		result = "hit"
	}
	c.threadLoads.WithLabelValues(result).Inc()
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
