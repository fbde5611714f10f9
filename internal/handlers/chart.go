package handlers

import (
	"net/http"
	"strconv"

	"github.com/bobmcallan/fund-breakdown/internal/chart"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/models"
)

// ChartHandler serves the session's sector chart.
type ChartHandler struct {
	logger          *common.Logger
	sessions        *Sessions
	defaultViewport int
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(logger *common.Logger, sessions *Sessions, defaultViewport int) *ChartHandler {
	return &ChartHandler{logger: logger, sessions: sessions, defaultViewport: defaultViewport}
}

// ServeSVG handles GET /chart.svg.
func (h *ChartHandler) ServeSVG(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ctrl, ok := h.sessions.Peek(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	in := ctrl.State().Chart
	if in == nil {
		http.NotFound(w, r)
		return
	}
	svg := in.SVG()
	if svg == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(svg)
}

// ServeConfig handles GET /api/chart-config. The optional width parameter
// selects the legend preset.
func (h *ChartHandler) ServeConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	width := h.defaultViewport
	if v := r.URL.Query().Get("width"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			WriteError(w, http.StatusBadRequest, "width must be a non-negative integer")
			return
		}
		width = n
	}

	sectors := models.Sectors{}
	if ctrl, ok := h.sessions.Peek(r); ok {
		if res := ctrl.State().Result; res != nil {
			sectors = res.Sectors
		}
	}

	WriteJSON(w, http.StatusOK, chart.BuildConfig(sectors, width))
}
