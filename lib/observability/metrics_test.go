// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoOps(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveRequest("getUpdates", OutcomeOK, time.Second)
	metrics.ObservePoll(3, 104)
	metrics.ObserveHandler(HandlerOK, time.Millisecond)
	metrics.SetBackoff(time.Second)
}

func TestObserveRequest(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveRequest("sendMessage", OutcomeOK, 20*time.Millisecond)
	metrics.ObserveRequest("sendMessage", OutcomeAPIError, 20*time.Millisecond)
	metrics.ObserveRequest("sendMessage", OutcomeAPIError, 20*time.Millisecond)

	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("sendMessage", OutcomeAPIError)); got != 2 {
		t.Errorf("api_error count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("sendMessage", OutcomeOK)); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
}

func TestObservePoll(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObservePoll(2, 103)
	metrics.ObservePoll(0, 103)

	if got := testutil.ToFloat64(metrics.UpdatesTotal); got != 2 {
		t.Errorf("updates = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.PollOffset); got != 103 {
		t.Errorf("offset = %v, want 103", got)
	}
}

func TestObserveHandlerFiltered(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveHandler(HandlerFiltered, 0)
	metrics.ObserveHandler(HandlerOK, time.Millisecond)

	if got := testutil.ToFloat64(metrics.HandlersTotal.WithLabelValues(HandlerFiltered)); got != 1 {
		t.Errorf("filtered = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(metrics.HandlerDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObservePoll(1, 7)

	recorder := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(recorder.Body.String(), "botwire_poll_offset 7") {
		t.Errorf("exposition missing offset gauge:\n%s", recorder.Body.String())
	}
}
