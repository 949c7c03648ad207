// Package api provides the HTTP client for the KillTheNoise backend.
// It is the single place where backend responses are normalized: some
// historical endpoints return their payload nested under a "data" field
// and others at the response root, so every caller goes through the
// envelope decoder here and sees exactly one canonical shape.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// APIError is a well-formed backend response with success=false.
// Message carries the backend-provided text when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed (status %d)", e.StatusCode)
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// Client is a thin HTTP client for the KillTheNoise backend REST API.
// It handles JSON marshaling, tenant threading, response-envelope
// normalization, and automatic retry with backoff on HTTP 429.
type Client struct {
	baseURL    string
	tenantID   string
	httpClient *http.Client
	maxRetries int
}

// NewClient creates a new backend client. The baseURL should be the root
// URL of the backend (e.g. http://localhost:8000). tenantID scopes every
// request; an empty value is replaced by the well-known placeholder by
// the caller before construction.
func NewClient(baseURL, tenantID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tenantID: tenantID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		maxRetries: 3,
	}
}

// TenantID returns the tenant this client is scoped to.
func (c *Client) TenantID() string {
	return c.tenantID
}

// WithTenant returns a copy of the client scoped to a different tenant.
// The underlying HTTP client is shared.
func (c *Client) WithTenant(tenantID string) *Client {
	clone := *c
	clone.tenantID = tenantID
	return &clone
}

// envelope is the backend's response wrapper. Data is kept raw so the
// decoder can fall back to the response root for endpoints that predate
// the wrapper.
type envelope struct {
	Success *bool           `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get performs an HTTP GET request and decodes the normalized payload
// into result.
func (c *Client) get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// post performs an HTTP POST request with a JSON body and decodes the
// normalized payload into result.
func (c *Client) post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// do is the core HTTP method that builds the request, handles rate
// limiting with backoff, and funnels every response through the
// envelope decoder.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		// Rebuild the body reader on retries since it was consumed.
		if attempt > 0 && body != nil {
			data, _ := json.Marshal(body)
			bodyReader = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Tenant-ID", c.tenantID)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return decodeResponse(resp.StatusCode, respBody, result)
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// decodeResponse normalizes a backend response body into result. A
// payload nested under "data" wins over the response root; a well-formed
// body with success=false becomes an APIError carrying the backend
// message regardless of HTTP status.
func decodeResponse(statusCode int, body []byte, result interface{}) error {
	var env envelope
	envErr := json.Unmarshal(body, &env)

	if envErr == nil && env.Success != nil && !*env.Success {
		return &APIError{StatusCode: statusCode, Message: env.Message}
	}

	if statusCode < 200 || statusCode >= 300 {
		msg := ""
		if envErr == nil {
			msg = env.Message
		}
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return &APIError{StatusCode: statusCode, Message: msg}
	}

	if result == nil || statusCode == http.StatusNoContent {
		return nil
	}

	payload := body
	if envErr == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		payload = env.Data
	}

	if err := json.Unmarshal(payload, result); err != nil {
		return fmt.Errorf("unmarshaling response: %w", err)
	}

	return nil
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
