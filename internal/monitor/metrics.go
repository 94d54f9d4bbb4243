package monitor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
)

var (
	// StateTransitions counts committed standby state transitions.
	StateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "standby_state_transitions_total",
		Help: "Total number of committed standby state transitions",
	}, []string{"from", "to"})
	// Evaluations counts finished constraint evaluations, partitioned by verdict.
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "standby_evaluations_total",
		Help: "Total number of finished constraint evaluations",
	}, []string{"verdict"})
	// Blocked counts how often the machine was halted in a state.
	Blocked = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "standby_blocked_total",
		Help: "Total number of times a standby state was blocked",
	}, []string{"state"})
	// CurrentState exposes the numeric identifier of the current standby state.
	CurrentState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "standby_current_state",
		Help: "Current standby state (0 working, 1 dark, 2 nap, 3 maintenance, 4 sleep)",
	})
	// RunningLockHeld is 1 while the running lock is held.
	RunningLockHeld = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "standby_running_lock_held",
		Help: "Whether the running lock is held",
	})
)

var registerOnce sync.Once

// Register adds the standby collectors to the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(StateTransitions, Evaluations, Blocked, CurrentState, RunningLockHeld)
	})
}

// SetLockHeld mirrors the running lock into its gauge.
func SetLockHeld(held bool) {
	if held {
		RunningLockHeld.Set(1)
		return
	}
	RunningLockHeld.Set(0)
}

// Server exposes /metrics over HTTP.
type Server struct {
	srv *http.Server
}

// InitMetrics registers the collectors and starts an HTTP server on addr (e.g. ":9090").
// An empty addr registers the collectors without serving them.
func InitMetrics(addr string) *Server {
	Register()
	if addr == "" {
		return &Server{}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	s := &Server{srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}}

	go func() {
		logger.Log.Info("Metrics server starting", "addr", addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Metrics server failed", "err", err)
		}
	}()
	return s
}

// Shutdown stops the HTTP server, if one was started.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// Personal.AI order the ending
