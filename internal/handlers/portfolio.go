package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bobmcallan/fund-breakdown/internal/chart"
	"github.com/bobmcallan/fund-breakdown/internal/client"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/config"
	"github.com/bobmcallan/fund-breakdown/internal/controller"
	"github.com/bobmcallan/fund-breakdown/internal/portfolio"
	"github.com/bobmcallan/fund-breakdown/internal/render"
)

// PortfolioOptions are the display settings for the portfolio pages.
type PortfolioOptions struct {
	Layout          render.Layout
	ErrorAutoHide   time.Duration
	DefaultViewport int
	WeightMode      bool
}

// PortfolioHandler serves the entry form, the row updates, the analysis
// submission and the holdings view.
type PortfolioHandler struct {
	logger    *common.Logger
	pages     *PageHandler
	sessions  *Sessions
	formatter *render.Formatter
	opts      PortfolioOptions
}

// NewPortfolioHandler creates a new portfolio handler.
func NewPortfolioHandler(logger *common.Logger, pages *PageHandler, sessions *Sessions, formatter *render.Formatter, opts PortfolioOptions) *PortfolioHandler {
	if opts.Layout == "" {
		opts.Layout = render.LayoutTable
	}
	return &PortfolioHandler{
		logger:    logger,
		pages:     pages,
		sessions:  sessions,
		formatter: formatter,
		opts:      opts,
	}
}

// pageData is the template context shared by every portfolio template.
type pageData struct {
	Page         string
	Title        string
	Version      string
	CSRFToken    string
	Form         portfolio.Form
	WeightMode   bool
	State        controller.ViewState
	Holdings     []render.HoldingRow
	Sectors      []render.SectorRow
	Layout       render.Layout
	AutoHideMs   int64
	ChartVersion int64
}

func (h *PortfolioHandler) data(r *http.Request, page, title string, ctrl *controller.Controller) pageData {
	state := ctrl.State()
	d := pageData{
		Page:       page,
		Title:      title,
		Version:    config.GetVersion(),
		CSRFToken:  CSRFToken(r),
		Form:       ctrl.Form(),
		WeightMode: h.opts.WeightMode,
		State:      state,
		Layout:     render.ParseLayout(r.URL.Query().Get("layout"), h.opts.Layout),
		AutoHideMs: h.opts.ErrorAutoHide.Milliseconds(),
	}
	if state.Result != nil {
		d.Holdings = h.formatter.Holdings(state.Result.Holdings)
		d.Sectors = h.formatter.Sectors(state.Result.Sectors, chart.Color)
		d.ChartVersion = state.Result.ReceivedAt.UnixNano()
	}
	return d
}

// ServeIndex handles GET /.
func (h *PortfolioHandler) ServeIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctrl := h.sessions.Lookup(w, r)
	h.pages.Render(w, http.StatusOK, "index.html", h.data(r, "portfolio", "Portfolio", ctrl))
}

// ServeHoldings handles GET /holdings.
func (h *PortfolioHandler) ServeHoldings(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	ctrl := h.sessions.Lookup(w, r)
	h.pages.Render(w, http.StatusOK, "holdings.html", h.data(r, "holdings", "Holdings", ctrl))
}

// AddRow handles POST /rows/add.
func (h *PortfolioHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	h.updateRows(w, r, func(f *portfolio.Form) bool {
		f.Add()
		return true
	})
}

// RemoveRow handles POST /rows/remove. The row is named by the label posted
// in the remove field.
func (h *PortfolioHandler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	h.updateRows(w, r, func(f *portfolio.Form) bool {
		label, err := strconv.Atoi(r.PostForm.Get("remove"))
		if err != nil {
			return false
		}
		return f.Remove(label)
	})
}

func (h *PortfolioHandler) updateRows(w http.ResponseWriter, r *http.Request, edit func(*portfolio.Form) bool) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := ParsePostedForm(r); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctrl := h.sessions.Lookup(w, r)
	status := http.StatusOK
	ctrl.UpdateForm(portfolio.ParseForm(r.PostForm), func(f *portfolio.Form) {
		if !edit(f) {
			status = http.StatusUnprocessableEntity
		}
	})

	data := h.data(r, "portfolio", "Portfolio", ctrl)
	if IsFragmentRequest(r) {
		h.pages.Render(w, status, "rows", data)
		return
	}
	h.pages.Render(w, status, "index.html", data)
}

// Analyze handles POST /analyze.
func (h *PortfolioHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := ParsePostedForm(r); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctrl := h.sessions.Lookup(w, r)
	form := portfolio.ParseForm(r.PostForm)
	ctrl.UpdateForm(form, nil)

	width := h.opts.DefaultViewport
	if v, err := strconv.Atoi(r.PostForm.Get("viewport")); err == nil && v > 0 {
		width = v
	}

	status := http.StatusOK
	if _, err := ctrl.Submit(r.Context(), form.Lines, width); err != nil {
		status = statusFor(err)
	}

	data := h.data(r, "portfolio", "Portfolio", ctrl)
	if IsFragmentRequest(r) {
		h.pages.Render(w, status, "analysis", data)
		return
	}
	h.pages.Render(w, status, "index.html", data)
}

// Dismiss handles POST /status/dismiss.
func (h *PortfolioHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	ctrl := h.sessions.Lookup(w, r)
	ctrl.Dismiss()

	if IsFragmentRequest(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// statusFor maps a submission error to the response status: 422 for form
// problems, the upstream status for rejections and 502 otherwise.
func statusFor(err error) int {
	var vErr *portfolio.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusUnprocessableEntity
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode <= 599 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
