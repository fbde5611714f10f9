package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/bobmcallan/fund-breakdown/internal/app"
	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/config"
)

const analysisResponse = `{
	"holdings": [
		{"name": "Apple Inc", "ticker": "AAPL", "sector": "Technology", "weighting": 40},
		{"name": "Exxon Mobil", "ticker": "XOM", "sector": "Energy", "weighting": 60}
	],
	"sectors": {"Technology": 40, "Energy": 60}
}`

func newTestApp(t *testing.T, upstream http.HandlerFunc) *app.App {
	t.Helper()

	if upstream == nil {
		upstream = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(analysisResponse))
		}
	}
	analysis := httptest.NewServer(upstream)
	t.Cleanup(analysis.Close)

	cfg := config.NewDefaultConfig()
	cfg.Analysis.URL = analysis.URL + "/analyze"
	cfg.Analysis.RateLimit = 0

	application, err := app.New(cfg, common.NewSilentLogger())
	if err != nil {
		t.Fatalf("failed to create test app: %v", err)
	}

	t.Cleanup(func() {
		application.Close()
	})

	return application
}

// browser carries cookies across requests like a real client.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, h http.Handler) *browser {
	return &browser{t: t, handler: h, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.handler.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) post(path string, form url.Values, fragment bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if fragment {
		req.Header.Set("X-Fragment", "true")
	}
	return b.do(req)
}

var csrfField = regexp.MustCompile(`name="_csrf" value="([^"]+)"`)

func TestRoutes_HealthEndpoint(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %s", body["status"])
	}
}

func TestRoutes_VersionEndpoint(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/version", nil))

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if _, ok := body["version"]; !ok {
		t.Error("expected version field in response")
	}
}

func TestRoutes_ServerHealthEndpoint(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/server-health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected analysis service reported up, got %d", w.Code)
	}
}

func TestRoutes_APINotFound(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/nonexistent", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestRoutes_IndexPage(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{"Portfolio Breakdown", "portfolio.css", "portfolio.js", "Security Ticker 1"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected index page to contain %q", want)
		}
	}

	var csrf string
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookie {
			csrf = c.Value
		}
	}
	if csrf == "" {
		t.Fatal("expected _csrf cookie to be set on index page")
	}
	if m := csrfField.FindStringSubmatch(body); m == nil || m[1] != csrf {
		t.Error("expected form to carry the issued CSRF token")
	}
}

func TestRoutes_MiddlewareApplied(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/health", nil))

	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header from middleware")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS header from middleware")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers from middleware")
	}
}

func TestRoutes_AnalyzeRequiresCSRF(t *testing.T) {
	srv := New(newTestApp(t, nil))
	b := newBrowser(t, srv.Handler())
	b.do(httptest.NewRequest("GET", "/", nil))

	w := b.post("/analyze", url.Values{"ticker_1": {"AAPL"}, "weight_1": {"100"}}, false)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected 403 without token, got %d", w.Code)
	}
}

func TestRoutes_AnalyzeFlow(t *testing.T) {
	var gotContentType string
	srv := New(newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(analysisResponse))
	}))
	b := newBrowser(t, srv.Handler())

	w := b.do(httptest.NewRequest("GET", "/", nil))
	csrf := b.cookies[csrfCookie].Value

	w = b.post("/rows/add", url.Values{
		"_csrf": {csrf}, "next_label": {"1"}, "ticker_1": {"AAPL"}, "weight_1": {"40"},
	}, true)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Security Ticker 2") {
		t.Fatalf("expected second row, got %d: %s", w.Code, w.Body.String())
	}

	w = b.post("/analyze", url.Values{
		"_csrf": {csrf}, "next_label": {"2"},
		"ticker_1": {"AAPL"}, "weight_1": {"40"},
		"ticker_2": {"XOM"}, "weight_2": {"60"},
	}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(gotContentType, "multipart/form-data") {
		t.Errorf("expected multipart upload, got %s", gotContentType)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Exxon Mobil") || !strings.Contains(body, `id="sector-table"`) {
		t.Error("expected results in analysis fragment")
	}
	if strings.Index(body, ">Technology<") > strings.Index(body, ">Energy<") {
		t.Error("expected sectors in response order")
	}

	w = b.do(httptest.NewRequest("GET", "/chart.svg", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<svg") {
		t.Errorf("expected chart svg, got %d", w.Code)
	}

	w = b.do(httptest.NewRequest("GET", "/holdings?layout=cards", nil))
	if strings.Count(w.Body.String(), `class="holding-card"`) != 2 {
		t.Error("expected holdings page to list both holdings as cards")
	}
}

func TestRoutes_AnalyzeUpstreamRejection(t *testing.T) {
	srv := New(newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"detail": "Unknown ticker: ZZZZ"}`))
	}))
	b := newBrowser(t, srv.Handler())
	b.do(httptest.NewRequest("GET", "/", nil))

	req := httptest.NewRequest("POST", "/analyze", strings.NewReader(url.Values{
		"ticker_1": {"ZZZZ"}, "weight_1": {"100"},
	}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRF-Token", b.cookies[csrfCookie].Value)
	req.Header.Set("X-Fragment", "true")

	w := b.do(req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected upstream 400 passed through, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Unknown ticker: ZZZZ") {
		t.Error("expected upstream message in status area")
	}
}

func TestRoutes_ChartConfigWithoutSession(t *testing.T) {
	srv := New(newTestApp(t, nil))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/chart-config?width=500", nil))

	var cfg map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("expected chart config JSON: %v", err)
	}
	if cfg["type"] != "pie" {
		t.Errorf("expected pie chart, got %v", cfg["type"])
	}
}
