package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register should be ignored, got %v", err)
	}
}

func TestObserversLabelOutcomes(t *testing.T) {
	before := testutil.ToFloat64(notificationsTotal.WithLabelValues("sms", OutcomeError))
	ObserveNotification("sms", false)
	if got := testutil.ToFloat64(notificationsTotal.WithLabelValues("sms", OutcomeError)); got != before+1 {
		t.Fatalf("expected failed sms counter to grow, got %v", got)
	}

	before = testutil.ToFloat64(checkinsTotal.WithLabelValues(OutcomeSuccess))
	ObserveCheckin(-time.Second, "anything")
	if got := testutil.ToFloat64(checkinsTotal.WithLabelValues(OutcomeSuccess)); got != before+1 {
		t.Fatalf("unknown outcomes should count as success, got %v", got)
	}

	before = testutil.ToFloat64(scoresTotal.WithLabelValues("ensemble", "HIGH"))
	ObserveScoring("ensemble", "HIGH")
	if got := testutil.ToFloat64(scoresTotal.WithLabelValues("ensemble", "HIGH")); got != before+1 {
		t.Fatalf("expected score counter to grow, got %v", got)
	}
}
