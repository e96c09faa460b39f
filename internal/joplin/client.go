// Package joplin provides a client for the Joplin Web Clipper data API.
package joplin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/rongzh/wiz2joplin/internal/apperrors"
)

const (
	// DefaultHost is the default Web Clipper service host.
	DefaultHost = "127.0.0.1"
	// DefaultPort is the default Web Clipper service port.
	DefaultPort = 41184

	// HTTP client configuration. Resource uploads can be slow on large
	// attachments, hence the generous timeout.
	httpTimeout = 100 * time.Second

	// Request pacing. The data API is a local single-writer service; pacing
	// keeps it from falling behind during bulk migration.
	rateLimitInterval = 100 * time.Millisecond

	// pingResponse is the fixed body the Web Clipper service answers on /ping.
	pingResponse = "JoplinClipperServer"

	httpStatusBadRequest = 400
)

// Client is a Joplin Web Clipper API client with request pacing.
type Client struct {
	httpClient  *http.Client
	token       string
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(u string) ClientOption {
	return func(client *Client) {
		client.baseURL = u
	}
}

// NewClient creates a new Joplin Web Clipper API client.
func NewClient(host string, port int, token string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient:  &http.Client{Timeout: httpTimeout},
		token:       token,
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitInterval), 1),
		baseURL:     fmt.Sprintf("http://%s:%d", host, port),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Ping checks that the Web Clipper service is answering.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read ping response: %w", err)
	}
	if string(body) != pingResponse {
		return fmt.Errorf("%w: got %q", apperrors.ErrPingFailed, string(body))
	}

	return nil
}

// query builds the request query string with the auth token and any extra
// parameters.
func (c *Client) query(extra url.Values) string {
	q := url.Values{}
	q.Set("token", c.token)
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	return q.Encode()
}

// do performs a JSON request against the data API with request pacing.
// The API reports failures as a JSON object with an "error" field, usually
// with a 500 status; both are turned into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, extra url.Values, body, result any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	reqURL := c.baseURL + path + "?" + c.query(extra)
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(ctx, req, method, path, result)
}

// send executes a prepared request and decodes the response. It is shared by
// do and the multipart resource upload.
func (c *Client) send(ctx context.Context, req *http.Request, method, path string, result any) error {
	c.logger.DebugContext(ctx, "API request", "method", method, "path", path)
	startTime := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if closeErr := resp.Body.Close(); closeErr != nil {
		c.logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
	}
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if apiErr := decodeAPIError(resp.StatusCode, respBody); apiErr != nil {
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	c.logger.DebugContext(ctx, "API response",
		"method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(startTime))

	return nil
}

// decodeAPIError turns an error response into an *APIError. The data API
// reports failures in the body even on some 200 responses, so the body is
// checked regardless of the status code.
func decodeAPIError(statusCode int, respBody []byte) error {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != "" {
		return &APIError{StatusCode: statusCode, Message: errResp.Error}
	}
	if statusCode >= httpStatusBadRequest {
		return apperrors.NewHTTPError(statusCode, string(respBody))
	}
	return nil
}
