package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/critic/pkg/logger"
	"github.com/okian/critic/pkg/metrics"
)

// MetricsHandler serves the custom registry in the Prometheus text format.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth handles GET /healthz. It fails with 503 when the store
// cannot be reached.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Ping(r.Context()); err != nil {
		s.log.Warn(r.Context(), "health check failed", logger.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Stats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
