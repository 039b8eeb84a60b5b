// Package provider holds the JSON-over-HTTP plumbing shared by the
// third-party API clients (Firecrawl, Apollo, PatentsView).
package provider

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

	"github.com/chromara/hq/internal/metrics"
	"github.com/chromara/hq/internal/ratelimit"
)

// DefaultTimeout bounds a single provider call when Options.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response is kept on StatusError.
const maxErrorBody = 512

// ErrNotConfigured is returned by clients constructed without an API key.
var ErrNotConfigured = errors.New("provider not configured")

// Options configures a provider client. Callers pass everything explicitly;
// nothing is read from the environment.
type Options struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// RPS paces outbound calls. Zero or negative disables pacing.
	RPS        float64
	HTTPClient *http.Client
	UserAgent  string
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// StatusCode extracts the HTTP status from a provider error, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Client performs paced JSON requests against one provider.
type Client struct {
	name    string
	opts    Options
	http    *http.Client
	limiter *ratelimit.Limiter
	headers http.Header
}

// NewClient builds a client for the named provider. Headers are sent on
// every request.
func NewClient(name string, opts Options, headers http.Header) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		name:    name,
		opts:    opts,
		http:    hc,
		limiter: ratelimit.New(ratelimit.Config{RPS: opts.RPS, Burst: 1}),
		headers: headers.Clone(),
	}
}

// Name returns the provider name used in errors and metrics.
func (c *Client) Name() string { return c.name }

// PostJSON sends in as a JSON body to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.name, err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	if err := c.limiter.Wait(ctx, c.name); err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.opts.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveProviderCall(c.name, 0, time.Since(start))
		return fmt.Errorf("%s: send request: %w", c.name, err)
	}
	defer resp.Body.Close()
	metrics.ObserveProviderCall(c.name, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Provider: c.name, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}
