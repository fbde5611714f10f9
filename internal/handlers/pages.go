package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/pages"
)

// PageHandler renders the embedded templates and serves static assets.
type PageHandler struct {
	logger    *common.Logger
	templates *template.Template
	static    http.Handler
}

// NewPageHandler parses the page and partial templates.
func NewPageHandler(logger *common.Logger) *PageHandler {
	templates := template.Must(template.ParseFS(pages.Templates(), "*.html", "partials/*.html"))

	return &PageHandler{
		logger:    logger,
		templates: templates,
		static:    http.StripPrefix("/static/", http.FileServer(http.FS(pages.Static()))),
	}
}

// Render executes name into a buffer and writes it with status. Template
// errors become a 500 with nothing else written.
func (h *PageHandler) Render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error().Str("template", name).Err(err).Msg("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// StaticFileHandler serves static files (CSS, JS).
func (h *PageHandler) StaticFileHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	h.static.ServeHTTP(w, r)
}
