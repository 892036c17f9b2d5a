package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveSessionStarted()
	m.ObserveTransition("step_verify", "step_select_provider")
	m.ObserveSlotRaceLost()
	m.ObserveSubmission("ok")
	m.ObserveSubmitLatency(0.25)

	if got := testutil.ToFloat64(m.sessionsStarted); got != 1 {
		t.Errorf("expected 1 session started, got %f", got)
	}
	if got := testutil.ToFloat64(m.slotRacesLost); got != 1 {
		t.Errorf("expected 1 race lost, got %f", got)
	}
	if got := testutil.ToFloat64(m.submissions.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok submission, got %f", got)
	}
}

func TestBookingMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)
	m.ObserveSubmission("failed")
}

func TestBookingMetricsNilSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveSessionStarted()
	m.ObserveTransition("a", "b")
	m.ObserveSlotRaceLost()
	m.ObserveSubmission("ok")
	m.ObserveSubmitLatency(0.1)
}
