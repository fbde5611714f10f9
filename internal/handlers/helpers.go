package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// maxFormMemory bounds the in-memory part of a parsed multipart form.
const maxFormMemory = 1 << 20

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// IsFragmentRequest reports whether the caller wants a partial page. The
// portal script marks its fetches with X-Fragment.
func IsFragmentRequest(r *http.Request) bool {
	return r.Header.Get("X-Fragment") != ""
}

// ParsePostedForm parses url-encoded and multipart bodies alike.
func ParsePostedForm(r *http.Request) error {
	err := r.ParseMultipartForm(maxFormMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

type csrfKey struct{}

// WithCSRFToken stores the request's CSRF token in ctx.
func WithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfKey{}, token)
}

// CSRFToken returns the token issued for this request, falling back to the
// _csrf cookie.
func CSRFToken(r *http.Request) string {
	if token, ok := r.Context().Value(csrfKey{}).(string); ok && token != "" {
		return token
	}
	if c, err := r.Cookie("_csrf"); err == nil {
		return c.Value
	}
	return ""
}
