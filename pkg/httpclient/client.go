package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/chalosawari/chalo-sawari/pkg/resilience"
)

// HTTPError is returned for any non-2xx response
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a small JSON HTTP client with optional retries
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
}

// NewClient creates a client rooted at baseURL. The optional timeout
// defaults to 30s.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := 30 * time.Second
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: t},
	}
}

// WithRetry enables retries with the given config
func (c *Client) WithRetry(cfg resilience.RetryConfig) *Client {
	if cfg.RetryableChecker == nil {
		cfg.RetryableChecker = isHTTPRetryable
	}
	c.retryConfig = &cfg
	return c
}

// WithDefaultRetry enables retries with resilience.DefaultRetryConfig
func (c *Client) WithDefaultRetry() *Client {
	return c.WithRetry(resilience.DefaultRetryConfig())
}

// Get performs a GET and returns the response body
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post marshals body as JSON, POSTs it and returns the response body
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, headers)
}

// GetJSON performs a GET and decodes the body into dest
func (c *Client) GetJSON(ctx context.Context, path string, headers map[string]string, dest interface{}) error {
	data, err := c.Get(ctx, path, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	call := func(ctx context.Context) (interface{}, error) {
		return c.once(ctx, method, path, payload, headers)
	}

	if c.retryConfig == nil {
		data, err := call(ctx)
		if err != nil {
			return nil, err
		}
		return data.([]byte), nil
	}

	data, err := resilience.Retry(ctx, *c.retryConfig, call)
	if err != nil {
		return nil, err
	}
	return data.([]byte), nil
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}

func isHTTPRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
