package monitor

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	s := InitMetrics("127.0.0.1:0")
	defer s.Shutdown(context.Background())

	// Registering twice must not panic
	Register()

	StateTransitions.WithLabelValues("dark", "nap").Inc()
	if got := testutil.ToFloat64(StateTransitions.WithLabelValues("dark", "nap")); got < 1 {
		t.Errorf("Expected at least one transition, got %v", got)
	}
}

func TestLockGauge(t *testing.T) {
	SetLockHeld(true)
	if got := testutil.ToFloat64(RunningLockHeld); got != 1 {
		t.Errorf("Expected 1, got %v", got)
	}
	SetLockHeld(false)
	if got := testutil.ToFloat64(RunningLockHeld); got != 0 {
		t.Errorf("Expected 0, got %v", got)
	}
}

func TestShutdownWithoutServer(t *testing.T) {
	s := InitMetrics("")
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	var nilServer *Server
	if err := nilServer.Shutdown(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
