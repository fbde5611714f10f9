// Package client talks to the remote portfolio analysis service.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/fund-breakdown/internal/common"
	"github.com/bobmcallan/fund-breakdown/internal/models"
)

const (
	DefaultRateLimit    = 5 // requests per second
	DefaultHoldingsPath = "$.holdings"
	DefaultSectorsPath  = "$.sectors"

	maxResponseBytes = 10 << 20
	healthTimeout    = 5 * time.Second
)

// AnalysisClient submits portfolios to the analysis endpoint.
type AnalysisClient struct {
	endpoint     string
	healthURL    string
	encoding     models.Encoding
	timeout      time.Duration
	holdingsPath string
	sectorsPath  string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *common.Logger
}

// ClientOption configures the client
type ClientOption func(*AnalysisClient)

// WithEncoding sets the request body encoding
func WithEncoding(enc models.Encoding) ClientOption {
	return func(c *AnalysisClient) {
		c.encoding = enc
	}
}

// WithTimeout bounds each analysis request. Zero leaves requests unbounded.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *AnalysisClient) {
		c.timeout = timeout
	}
}

// WithRateLimit sets the rate limit. Zero or less disables limiting.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *AnalysisClient) {
		if requestsPerSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *AnalysisClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *AnalysisClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPaths sets the JSONPath expressions for holdings and sectors.
// Empty values keep the defaults.
func WithPaths(holdings, sectors string) ClientOption {
	return func(c *AnalysisClient) {
		if holdings != "" {
			c.holdingsPath = holdings
		}
		if sectors != "" {
			c.sectorsPath = sectors
		}
	}
}

// WithHealthURL sets the URL probed by Health
func WithHealthURL(u string) ClientOption {
	return func(c *AnalysisClient) {
		c.healthURL = u
	}
}

// NewAnalysisClient creates a client posting to endpoint.
func NewAnalysisClient(endpoint string, opts ...ClientOption) *AnalysisClient {
	c := &AnalysisClient{
		endpoint:     endpoint,
		encoding:     models.EncodingMultipart,
		holdingsPath: DefaultHoldingsPath,
		sectorsPath:  DefaultSectorsPath,
		httpClient:   &http.Client{},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Endpoint returns the analysis URL.
func (c *AnalysisClient) Endpoint() string { return c.endpoint }

// Encoding returns the request body encoding.
func (c *AnalysisClient) Encoding() models.Encoding { return c.encoding }

// Analyze posts lines to the analysis endpoint and decodes the result.
// Rejections carry an *APIError; network failures a *TransportError.
func (c *AnalysisClient) Analyze(ctx context.Context, lines models.Lines) (*models.Result, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Endpoint: c.endpoint, Err: err}
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := Encode(c.encoding, lines)
	if err != nil {
		return nil, fmt.Errorf("failed to encode portfolio: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Str("endpoint", c.endpoint).Err(err).Msg("Analysis request failed")
		return nil, &TransportError{Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug().
		Str("endpoint", c.endpoint).
		Str("encoding", string(c.encoding)).
		Int("status", resp.StatusCode).
		Int("lines", len(lines)).
		Dur("elapsed", time.Since(start)).
		Msg("Analysis response received")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(data, resp.Header.Get("Content-Type")),
			Endpoint:   c.endpoint,
		}
	}

	result, err := decodeResult(data, c.holdingsPath, c.sectorsPath, c.logger)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			apiErr.Endpoint = c.endpoint
			return nil, apiErr
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: MsgAnalysisFailed, Endpoint: c.endpoint}
	}
	result.ReceivedAt = time.Now()
	return result, nil
}

// Health probes the analysis service. Any response below 500 counts as up.
func (c *AnalysisClient) Health(ctx context.Context) error {
	target := c.healthURL
	if target == "" {
		u, err := url.Parse(c.endpoint)
		if err != nil {
			return fmt.Errorf("invalid analysis endpoint: %w", err)
		}
		target = u.Scheme + "://" + u.Host + "/"
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Endpoint: target, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode >= 500 {
		return &APIError{StatusCode: resp.StatusCode, Message: "analysis service unhealthy", Endpoint: target}
	}
	return nil
}
