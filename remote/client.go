// Package remote is the HTTP client for the recipe API. It implements the
// Authenticator, reaction and comment contracts used by the session,
// interaction and comment packages. The API's session cookie is the ambient
// credential and travels in the client's cookie jar.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urcuisine/urcuisine/storage"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Client talks to the recipe API.
type Client struct {
	base       *url.URL
	http       *http.Client
	logger     *slog.Logger
	cookieRepo storage.Repository
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. A nil Jar is replaced
// with an in-memory one; WithCookieStore always installs its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout. Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithCookieStore persists the API's cookies in repo so the session cookie
// survives restarts.
func WithCookieStore(repo storage.Repository) Option {
	return func(c *Client) {
		c.cookieRepo = repo
	}
}

// New returns a Client for the API at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing API URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("API URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		base: base,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "remote")

	switch {
	case c.cookieRepo != nil:
		jar, err := newPersistentJar(c.cookieRepo, base, c.logger)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	case c.http.Jar == nil:
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = c.base.Path + path
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil. Non-2xx answers become *ValidationError (4xx) or ErrNetwork.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	body, err := c.send(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding %s %s response: %v", ErrNetwork, method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) ([]byte, error) {
	var reqBody io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return nil, err
		}
		reqBody = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reqBody)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(requestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s response: %v", ErrNetwork, method, path, err)
	}
	c.logger.Debug("api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, parseValidationError(resp.StatusCode, body)
	default:
		return nil, fmt.Errorf("%w: %s %s: status %d: %s", ErrNetwork, method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// parseValidationError reads either a JSON object of field messages or a
// plain-text message.
func parseValidationError(status int, body []byte) *ValidationError {
	verr := &ValidationError{Status: status}
	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
		if msg, ok := fields["error"]; ok && len(fields) == 1 {
			verr.Message = msg
		} else {
			verr.Fields = fields
		}
		return verr
	}
	verr.Message = strings.TrimSpace(string(body))
	return verr
}
