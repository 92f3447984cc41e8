// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package observability holds the Prometheus metrics recorded by the
// bot API transport, the update poller and the dispatch driver.
//
// Metrics live in a private registry rather than the global default so
// tests and embedding programs can create as many as they like. All
// recording methods are safe on a nil *Metrics, which lets library
// code record unconditionally when the caller did not ask for metrics.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes, one per error kind of the transport.
const (
	OutcomeOK           = "ok"
	OutcomeAPIError     = "api_error"
	OutcomeNetworkError = "network_error"
	OutcomeDecodeError  = "decode_error"
	OutcomeError        = "error"
)

// Handler outcomes.
const (
	HandlerOK       = "ok"
	HandlerError    = "error"
	HandlerPanic    = "panic"
	HandlerFiltered = "filtered"
)

// Metrics is the botwire metric set and the registry that owns it.
type Metrics struct {
	Registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	UpdatesTotal    prometheus.Counter
	PollOffset      prometheus.Gauge
	HandlersTotal   *prometheus.CounterVec
	HandlerDuration prometheus.Histogram
	BackoffSeconds  prometheus.Gauge
}

// NewMetrics creates a registry with the botwire metrics registered,
// plus the Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "botwire_request_duration_seconds",
		Help: "Duration of bot API calls, including long-poll hold time.",
		// Long polls hold for up to the poll timeout, so the top
		// buckets reach past a minute.
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"method", "outcome"})

	requestsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "botwire_requests_total",
		Help: "Bot API calls by method and outcome.",
	}, []string{"method", "outcome"})

	updatesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "botwire_updates_received_total",
		Help: "Updates delivered by the poller.",
	})

	pollOffset := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "botwire_poll_offset",
		Help: "Current update offset watermark.",
	})

	handlersTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "botwire_handler_total",
		Help: "Handler invocations by outcome.",
	}, []string{"outcome"})

	handlerDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "botwire_handler_duration_seconds",
		Help:    "Time spent in the update handler.",
		Buckets: prometheus.DefBuckets,
	})

	backoffSeconds := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "botwire_poll_backoff_seconds",
		Help: "Current delay before the next poll after a failure; zero when healthy.",
	})

	registry.MustRegister(
		requestDuration, requestsTotal, updatesTotal, pollOffset,
		handlersTotal, handlerDuration, backoffSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Metrics{
		Registry:        registry,
		RequestDuration: requestDuration,
		RequestsTotal:   requestsTotal,
		UpdatesTotal:    updatesTotal,
		PollOffset:      pollOffset,
		HandlersTotal:   handlersTotal,
		HandlerDuration: handlerDuration,
		BackoffSeconds:  backoffSeconds,
	}
}

// ObserveRequest records one API call.
func (m *Metrics) ObserveRequest(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
}

// ObservePoll records a successful poll that delivered count updates
// and left the watermark at offset.
func (m *Metrics) ObservePoll(count int, offset int64) {
	if m == nil {
		return
	}
	m.UpdatesTotal.Add(float64(count))
	m.PollOffset.Set(float64(offset))
}

// ObserveHandler records one handler invocation. Filtered updates are
// recorded with a zero duration and do not touch the histogram.
func (m *Metrics) ObserveHandler(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HandlersTotal.WithLabelValues(outcome).Inc()
	if outcome != HandlerFiltered {
		m.HandlerDuration.Observe(duration.Seconds())
	}
}

// SetBackoff publishes the current retry delay.
func (m *Metrics) SetBackoff(delay time.Duration) {
	if m == nil {
		return
	}
	m.BackoffSeconds.Set(delay.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
