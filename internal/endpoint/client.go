package endpoint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/graylight/internal/light"
)

const (
	// DefaultTimeout bounds a single endpoint request.
	DefaultTimeout = 2 * time.Second

	// maxResponseSize caps how much of a read response is consumed.
	maxResponseSize = 1 << 20
)

// Client talks to multi-channel endpoints over HTTP. Each call is a
// single attempt bounded by the client's timeout.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	http    *http.Client
	timeout time.Duration
	metrics *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records request counts and latency.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a Client whose requests each time out after timeout
// (DefaultTimeout when zero or negative).
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		http:    &http.Client{},
		timeout: timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Write sends every channel's payload to the endpoint at address in one
// PUT.
func (c *Client) Write(ctx context.Context, address string, channels map[int]light.State) (err error) {
	defer func(started time.Time) { c.metrics.observe(http.MethodPut, started, err) }(time.Now())

	body, err := encodeBody(channels)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", address, err)
	}

	_, err = c.do(ctx, http.MethodPut, address, body)
	return err
}

// Read fetches the state of every channel on the endpoint at address in
// one GET.
func (c *Client) Read(ctx context.Context, address string) (channels map[int]light.State, err error) {
	defer func(started time.Time) { c.metrics.observe(http.MethodGet, started, err) }(time.Now())

	data, err := c.do(ctx, http.MethodGet, address, nil)
	if err != nil {
		return nil, err
	}
	channels, err = decodeBody(data)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", address, err)
	}
	return channels, nil
}

func (c *Client) do(ctx context.Context, method, address string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, URL(address), reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, address, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestFailed, method, address, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: reading body: %w", ErrRequestFailed, method, address, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %d", ErrBadStatus, method, address, resp.StatusCode)
	}
	return data, nil
}

// URL returns the state URL for an endpoint address. Bare hosts get the
// http scheme.
func URL(address string) string {
	if strings.Contains(address, "://") {
		return strings.TrimSuffix(address, "/") + StatePath
	}
	return "http://" + address + StatePath
}
