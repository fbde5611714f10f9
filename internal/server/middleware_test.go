package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/handlers"
)

func newTestServer() *Server {
	return &Server{logger: common.NewSilentLogger()}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// --- Correlation ID Middleware ---

func TestCorrelationIDMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"generated", "", ""},
		{"request id", "X-Request-ID", "test-request-id"},
		{"correlation id", "X-Correlation-ID", "existing-correlation-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			var seen string
			handler := s.correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = r.Context().Value(correlationIDKey).(string)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if seen == "" {
				t.Fatal("expected correlation ID in context")
			}
			if tt.value != "" && seen != tt.value {
				t.Errorf("expected %s, got %s", tt.value, seen)
			}
			if w.Header().Get("X-Correlation-ID") != seen {
				t.Errorf("expected X-Correlation-ID=%s, got %s", seen, w.Header().Get("X-Correlation-ID"))
			}
		})
	}
}

// --- CORS Middleware ---

func TestCORSMiddleware_SetsHeaders(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.corsMiddleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS origin header")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), "X-Fragment") {
		t.Error("expected X-Fragment in allowed headers")
	}
}

func TestCORSMiddleware_HandlesPreflight(t *testing.T) {
	s := newTestServer()

	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called for OPTIONS")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for preflight, got %d", w.Code)
	}
}

// --- Recovery Middleware ---

func TestRecoveryMiddleware_CatchesPanic(t *testing.T) {
	s := newTestServer()

	handler := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("test panic")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500 after panic, got %d", w.Code)
	}
}

// --- Logging Middleware ---

func TestLoggingMiddleware_CapturesStatusCode(t *testing.T) {
	s := newTestServer()

	handler := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("POST", "/analyze", nil))

	if w.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", w.Code)
	}
}

func TestResponseWriter_CapturesBytes(t *testing.T) {
	rw := &responseWriter{
		ResponseWriter: httptest.NewRecorder(),
		statusCode:     http.StatusOK,
	}

	data := []byte("hello world")
	n, err := rw.Write(data)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != len(data) || rw.bytesWritten != len(data) {
		t.Errorf("expected %d bytes written, got n=%d tracked=%d", len(data), n, rw.bytesWritten)
	}
}

// --- Security Headers Middleware ---

func TestSecurityHeadersMiddleware_SetsAllHeaders(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	s.securityHeadersMiddleware(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("expected %s=%s, got %s", header, value, got)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self'") || !strings.Contains(csp, "script-src 'self'") {
		t.Errorf("unexpected CSP %q", csp)
	}
}

// --- Max Body Size Middleware ---

func TestMaxBodySizeMiddleware_AllowsSmallBody(t *testing.T) {
	s := newTestServer()

	handler := s.maxBodySizeMiddleware(1024)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("failed to read body: %v", err)
		}
		if string(body) != "small payload" {
			t.Errorf("expected body 'small payload', got '%s'", string(body))
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/test", strings.NewReader("small payload")))
}

func TestMaxBodySizeMiddleware_RejectsOversizedBody(t *testing.T) {
	s := newTestServer()

	handler := s.maxBodySizeMiddleware(10)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err == nil {
			t.Error("expected error reading oversized body")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/test", strings.NewReader(strings.Repeat("x", 100))))
}

// --- CSRF Middleware ---

func TestCSRFMiddleware_SafeMethodsPass(t *testing.T) {
	s := newTestServer()

	for _, method := range []string{"GET", "HEAD", "OPTIONS"} {
		w := httptest.NewRecorder()
		s.csrfMiddleware(okHandler()).ServeHTTP(w, httptest.NewRequest(method, "/", nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", method, w.Code)
		}
	}
}

func TestCSRFMiddleware_GETIssuesTokenToTemplates(t *testing.T) {
	s := newTestServer()

	var fromContext string
	handler := s.csrfMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromContext = handlers.CSRFToken(r)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookie {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected _csrf cookie on GET")
	}
	if fromContext != cookie.Value {
		t.Errorf("expected template token %q to match cookie %q", fromContext, cookie.Value)
	}
}

func TestCSRFMiddleware_UnsafeMethods(t *testing.T) {
	const token = "test-csrf-token"

	formBody := func(v string) url.Values { return url.Values{"_csrf": {v}, "ticker_1": {"AAPL"}} }

	tests := []struct {
		name     string
		path     string
		cookie   string
		header   string
		form     url.Values
		wantCode int
	}{
		{"no cookie", "/analyze", "", token, nil, http.StatusForbidden},
		{"no token", "/analyze", token, "", nil, http.StatusForbidden},
		{"header match", "/analyze", token, token, nil, http.StatusOK},
		{"header mismatch", "/analyze", token, "wrong", nil, http.StatusForbidden},
		{"form field match", "/rows/add", token, "", formBody(token), http.StatusOK},
		{"form field mismatch", "/rows/add", token, "", formBody("wrong"), http.StatusForbidden},
		{"api skipped", "/api/anything", "", "", nil, http.StatusOK},
		{"mcp skipped", "/mcp", "", "", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()

			var req *http.Request
			if tt.form != nil {
				req = httptest.NewRequest("POST", tt.path, strings.NewReader(tt.form.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest("POST", tt.path, nil)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookie, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}

			w := httptest.NewRecorder()
			s.csrfMiddleware(okHandler()).ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestCSRFMiddleware_MultipartFormKeepsFields(t *testing.T) {
	s := newTestServer()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("_csrf", "tok")
	mw.WriteField("ticker_1", "VTI")
	mw.Close()

	req := httptest.NewRequest("POST", "/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookie, Value: "tok"})

	var ticker string
	handler := s.csrfMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.ParsePostedForm(r)
		ticker = r.PostForm.Get("ticker_1")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || ticker != "VTI" {
		t.Errorf("expected form to reach handler, got code=%d ticker=%q", w.Code, ticker)
	}
}
