package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/bobmcallan/fund-breakdown/internal/common"
)

// HealthChecker probes an upstream service.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// ServerHealthHandler reports whether the analysis service is reachable.
type ServerHealthHandler struct {
	logger  *common.Logger
	checker HealthChecker
}

// NewServerHealthHandler creates a new server health handler.
func NewServerHealthHandler(logger *common.Logger, checker HealthChecker) *ServerHealthHandler {
	return &ServerHealthHandler{logger: logger, checker: checker}
}

// ServeHTTP handles GET /api/server-health.
func (h *ServerHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.checker.Health(ctx); err != nil {
		h.logger.Debug().Err(err).Msg("analysis service health check failed")
		WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
