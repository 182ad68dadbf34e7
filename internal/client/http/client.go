package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tipcast/tipcast-api/internal/logger"
	"go.uber.org/zap"
)

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// RequestOption mutates one outgoing request.
type RequestOption func(*http.Request)

// Error is a non-2xx HTTP response surfaced as an error.
type Error struct {
	StatusCode int
	Status     string
	URL        string
	Method     string
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed with status %d %s: %s", e.Method, e.URL, e.StatusCode, e.Status, e.Body)
}

// RetryConfig controls retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries           int
	InitialInterval      time.Duration
	MaxInterval          time.Duration
	Multiplier           float64
	MaxElapsedTime       time.Duration
	RetryableStatusCodes []int
}

// DefaultRetryConfig provides sensible retry defaults.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:           3,
		InitialInterval:      100 * time.Millisecond,
		MaxInterval:          10 * time.Second,
		Multiplier:           2.0,
		MaxElapsedTime:       30 * time.Second,
		RetryableStatusCodes: []int{408, 429, 500, 502, 503, 504},
	}
}

// Client is a JSON-first HTTP client with retries and structured logging.
// The upstream service clients (feed, prices, custody, faucet) are thin
// wrappers around it.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	defaultHeaders map[string]string
	retryConfig    *RetryConfig
}

// NewClient creates a Client with the given options.
func NewClient(options ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		retryConfig: DefaultRetryConfig(),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// WithBaseURL sets the base URL prepended to request paths.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithDefaultHeader adds a header sent on every request.
func WithDefaultHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.defaultHeaders[key] = value
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRetryConfig overrides the retry configuration. Pass nil to disable
// retries entirely.
func WithRetryConfig(config *RetryConfig) ClientOption {
	return func(c *Client) {
		c.retryConfig = config
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(req *http.Request) {
		q := req.URL.Query()
		q.Add(key, value)
		req.URL.RawQuery = q.Encode()
	}
}

// WithHeader sets a header on the request.
func WithHeader(key, value string) RequestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, options ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, options...)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, options ...RequestOption) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, options...)
}

// Do performs an HTTP request, retrying transient failures per the retry
// configuration. Responses with status >= 400 are returned alongside an
// *Error so callers can still inspect the body.
func (c *Client) Do(ctx context.Context, method, path string, body interface{}, options ...RequestOption) (*http.Response, error) {
	fullURL := path
	if c.baseURL != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		fullURL = c.baseURL + path
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	newRequest := func() (*http.Request, error) {
		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range c.defaultHeaders {
			req.Header.Set(key, value)
		}
		for _, option := range options {
			option(req)
		}
		return req, nil
	}

	start := time.Now()
	var resp *http.Response

	operation := func() error {
		req, err := newRequest()
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return err
		}
		if c.retryConfig != nil {
			for _, code := range c.retryConfig.RetryableStatusCodes {
				if resp.StatusCode == code {
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					return fmt.Errorf("retryable status code: %d", resp.StatusCode)
				}
			}
		}
		return nil
	}

	var requestErr error
	if c.retryConfig != nil && c.retryConfig.MaxRetries > 0 {
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.InitialInterval = c.retryConfig.InitialInterval
		expBackoff.MaxInterval = c.retryConfig.MaxInterval
		expBackoff.Multiplier = c.retryConfig.Multiplier
		expBackoff.MaxElapsedTime = c.retryConfig.MaxElapsedTime
		requestErr = backoff.Retry(operation, backoff.WithContext(
			backoff.WithMaxRetries(expBackoff, uint64(c.retryConfig.MaxRetries)), ctx))
	} else {
		requestErr = operation()
	}

	duration := time.Since(start)
	if requestErr != nil {
		logger.Error("HTTP request failed",
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.Error(requestErr),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("http request failed: %w", requestErr)
	}

	if resp.StatusCode >= 400 {
		var errBody []byte
		if resp.Body != nil {
			errBody, _ = io.ReadAll(resp.Body)
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(errBody))
		}
		logger.Warn("HTTP error response",
			zap.String("method", method),
			zap.String("url", fullURL),
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", duration))
		return resp, &Error{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        fullURL,
			Method:     method,
			Body:       string(errBody),
		}
	}

	logger.Debug("HTTP request completed",
		zap.String("method", method),
		zap.String("url", fullURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration))
	return resp, nil
}

// DecodeJSON decodes a JSON response body into target and closes it.
func (c *Client) DecodeJSON(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}
