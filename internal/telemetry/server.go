package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rumbridge/internal/logging"
)

// NewHealth builds the liveness/readiness handler. Readiness checks are
// supplied by the caller; liveness guards against goroutine leaks.
func NewHealth(goroutineThreshold int, ready map[string]healthcheck.Check) healthcheck.Handler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(goroutineThreshold))
	for name, check := range ready {
		h.AddReadinessCheck(name, check)
	}
	return h
}

func Handler(health healthcheck.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if health != nil {
		mux.HandleFunc("/live", health.LiveEndpoint)
		mux.HandleFunc("/ready", health.ReadyEndpoint)
	}
	return mux
}

type Server struct {
	srv *http.Server
}

// Expose serves /metrics, /live and /ready on port in the background.
func Expose(port int, health healthcheck.Handler) *Server {
	s := &Server{srv: &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           Handler(health),
		ReadHeaderTimeout: 5 * time.Second,
	}}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.For("telemetry").Error("metrics listener stopped", "port", port, "err", err)
		}
	}()
	return s
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
