// Package client provides the core Kolada HTTP client with request
// throttling, retry with exponential backoff, and error classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/kolada-client/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for Kolada client operations.
var (
	koladaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kolada_requests_total",
		Help: "Total Kolada requests by endpoint and status",
	}, []string{"endpoint", "status"})

	koladaRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kolada_request_duration_seconds",
		Help:    "Kolada request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	koladaErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kolada_errors_total",
		Help: "Total Kolada errors by class",
	}, []string{"class"})
)

// DefaultBaseURL is the public Kolada v3 service root.
const DefaultBaseURL = "https://api.kolada.se/v3/"

// defaultRetryAfter applies when a 429 response omits the Retry-After
// header.
const defaultRetryAfter = 60 * time.Second

// Client is the core Kolada HTTP client. One instance owns one throttle
// clock and one connection pool; no state survives a call beyond those.
type Client struct {
	httpClient *http.Client
	baseURL    string
	throttle   *throttle
	retry      RetryConfig
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration. Zero fields fall back to
// DefaultConfig values.
type Config struct {
	// BaseURL overrides the public service root.
	BaseURL string

	// UserAgent identifies the client to the service.
	UserAgent string

	// MaxRetries is the total attempt count for transient failures.
	MaxRetries int

	// Timeout bounds a single HTTP call. Multi-page and multi-batch
	// operations have no overall deadline beyond the caller's context.
	Timeout time.Duration

	// MaxRequestsPerSecond controls the throttle interval.
	MaxRequestsPerSecond float64

	// MaxBatchSize is the longest ID list sent in one request.
	MaxBatchSize int

	// PerPage is the default page size for paginated fetches.
	PerPage int

	// MaxPages caps cursor-following per fetch. Zero falls back to the
	// default; a negative value disables the cap.
	MaxPages int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
}

// DefaultConfig returns the Kolada service defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:              DefaultBaseURL,
		UserAgent:            "kolada-client/1.0 (+https://github.com/Sternrassler/kolada-client)",
		MaxRetries:           5,
		Timeout:              30 * time.Second,
		MaxRequestsPerSecond: 5.0,
		MaxBatchSize:         25,
		PerPage:              5000,
		MaxPages:             10000,
		InitialBackoff:       1 * time.Second,
	}
}

// New creates a Kolada client.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRequestsPerSecond == 0 {
		cfg.MaxRequestsPerSecond = def.MaxRequestsPerSecond
	}
	if cfg.MaxBatchSize == 0 {
		cfg.MaxBatchSize = def.MaxBatchSize
	}
	if cfg.PerPage == 0 {
		cfg.PerPage = def.PerPage
	}
	if cfg.MaxPages == 0 {
		cfg.MaxPages = def.MaxPages
	} else if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.MaxRequestsPerSecond < 0 {
		return nil, fmt.Errorf("max_requests_per_second must be positive (got %v)", cfg.MaxRequestsPerSecond)
	}
	if cfg.MaxBatchSize < 1 {
		return nil, fmt.Errorf("max_batch_size must be >= 1 (got %d)", cfg.MaxBatchSize)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.InitialBackoff = cfg.InitialBackoff

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		throttle: newThrottle(cfg.MaxRequestsPerSecond),
		retry:    retry,
		config:   cfg,
		logger:   log.With().Str("component", "kolada-client").Logger(),
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// FetchPage performs one GET against a Kolada endpoint and decodes the
// response envelope, retrying transient failures with exponential backoff.
// It implements pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params pagination.Params) (*pagination.Page, error) {
	var page *pagination.Page

	err := retryWithBackoff(ctx, c.retry, c.logger, func() error {
		p, err := c.fetchOnce(ctx, endpoint, params)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return page, nil
}

// fetchOnce is a single attempt: throttle, GET, classify, decode.
func (c *Client) fetchOnce(ctx context.Context, endpoint string, params pagination.Params) (*pagination.Page, error) {
	if err := c.throttle.waitTurn(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}

	reqURL := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &APIError{
			Endpoint: endpoint,
			Class:    ErrorClassAPI,
			Message:  "create request",
			Err:      err,
		}
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	koladaRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		koladaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		koladaRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, &APIError{
			Endpoint: endpoint,
			Class:    ErrorClassNetwork,
			Message:  "request failed",
			Err:      err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, c.handleRateLimited(ctx, endpoint, resp)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		koladaErrorsTotal.WithLabelValues(string(ErrorClassAPI)).Inc()
		koladaRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Kolada request rejected")
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassAPI,
			Message:    resp.Status,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		koladaErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return nil, &APIError{
			Endpoint: endpoint,
			Class:    ErrorClassNetwork,
			Message:  "read response body",
			Err:      err,
		}
	}

	var page pagination.Page
	if err := json.Unmarshal(body, &page); err != nil {
		koladaErrorsTotal.WithLabelValues(string(ErrorClassAPI)).Inc()
		koladaRequestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("Failed to decode response")
		return nil, &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Class:      ErrorClassAPI,
			Message:    "decode response",
			Err:        err,
		}
	}

	koladaRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
	return &page, nil
}

// handleRateLimited honors the Retry-After cooldown before reporting the
// rate-limit class error that makes the retry loop re-attempt.
func (c *Client) handleRateLimited(ctx context.Context, endpoint string, resp *http.Response) error {
	retryAfter := defaultRetryAfter
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds >= 0 {
			retryAfter = time.Duration(seconds) * time.Second
		}
	}

	koladaErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
	koladaRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
	c.logger.Warn().
		Str("endpoint", endpoint).
		Dur("retry_after", retryAfter).
		Msg("Rate limit exceeded, honoring Retry-After")

	if retryAfter > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(retryAfter):
		}
	}

	return &APIError{
		Endpoint:   endpoint,
		StatusCode: http.StatusTooManyRequests,
		Class:      ErrorClassRateLimit,
		Message:    fmt.Sprintf("rate limit exceeded, retry after %s", retryAfter),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
