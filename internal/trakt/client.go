// Package trakt is the authenticated HTTP client for the Trakt.tv API.
package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/localrivet/traktmcp/internal/config"
	"github.com/localrivet/traktmcp/internal/errortypes"
	"github.com/localrivet/traktmcp/internal/telemetry"
)

// Version is reported in the User-Agent header.
const Version = "0.0.3"

const (
	// DefaultTimeout bounds every request, connection through body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxInFlight bounds concurrent upstream requests.
	DefaultMaxInFlight = 100

	// SearchLimit is the number of search results returned.
	SearchLimit = 10

	// MinTrendingLimit and MaxTrendingLimit bound ListTrending.
	MinTrendingLimit = 1
	MaxTrendingLimit = 20

	maxResponseBytes = 8 << 20
)

// ErrClientClosed is wrapped by the NetworkError returned after Close.
var ErrClientClosed = errors.New("trakt client closed")

// Client talks to the Trakt API on behalf of one account. It is safe for
// concurrent use.
type Client struct {
	baseURL     string
	creds       config.Credentials
	userAgent   string
	httpClient  *http.Client
	timeout     time.Duration
	maxInFlight int64
	inflight    *semaphore.Weighted
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
	closed      atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxInFlight overrides DefaultMaxInFlight.
func WithMaxInFlight(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxInFlight = int64(n)
		}
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the given credentials.
func New(creds config.Credentials, opts ...Option) (*Client, error) {
	if creds.ClientID == "" || creds.AccessToken == "" || creds.APIVersion == "" {
		return nil, errortypes.ConfigurationError(nil, "Trakt credentials are incomplete")
	}

	c := &Client{
		baseURL:     config.DefaultBaseURL,
		creds:       creds,
		userAgent:   "TraktMCPServer/" + Version,
		timeout:     DefaultTimeout,
		maxInFlight: DefaultMaxInFlight,
		tracer:      telemetry.Tracer(),
		logger:      slog.Default().With("component", "trakt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.timeout)
	}
	c.inflight = semaphore.NewWeighted(c.maxInFlight)

	c.logger.Info("Trakt client initialized", "base_url", c.baseURL, "api_version", creds.APIVersion)
	return c, nil
}

// Close releases pooled connections. Calls made after Close fail with a
// NetworkError. Close is idempotent.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	c.logger.Info("Trakt client closed")
	return nil
}

// Closed reports whether Close has been called.
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// request describes one upstream call.
type request struct {
	operation  string
	method     string
	path       string
	query      url.Values
	body       any
	identifier string // reported on 404
}

func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	if c.closed.Load() {
		return errortypes.NetworkError(ErrClientClosed, "Trakt client is closed")
	}

	start := time.Now()
	status := 0

	spanCtx, span := c.tracer.Start(ctx, "trakt."+r.operation, trace.WithAttributes(
		attribute.String("http.request.method", r.method),
		attribute.String("url.path", r.path),
	))
	defer func() {
		kind := ""
		if err != nil {
			kind = string(errortypes.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, kind)
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		span.End()
		c.metrics.RecordUpstream(spanCtx, telemetry.UpstreamObservation{
			Operation:  r.operation,
			Method:     r.method,
			StatusCode: status,
			Kind:       kind,
			Duration:   time.Since(start),
		})
	}()

	if err := c.inflight.Acquire(spanCtx, 1); err != nil {
		return errortypes.NetworkError(err, "request cancelled while waiting for a connection")
	}
	defer c.inflight.Release(1)

	reqCtx, cancel := context.WithTimeout(spanCtx, c.timeout)
	defer cancel()

	req, err := c.newRequest(reqCtx, r)
	if err != nil {
		return err
	}

	c.logger.Debug("Making request", "method", r.method, "path", r.path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(r, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return c.transportError(r, err)
	}

	if err := c.statusError(r, resp.StatusCode, body); err != nil {
		return err
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("Malformed upstream response", "path", r.path, "error", err)
		return errortypes.NetworkError(err, "malformed upstream response")
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, r request) (*http.Request, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return nil, errortypes.ValidationError(err, "failed to encode request body")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, errortypes.NetworkError(err, "failed to build request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("trakt-api-version", c.creds.APIVersion)
	req.Header.Set("trakt-api-key", c.creds.ClientID)
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	return req, nil
}

// statusError classifies a non-2xx response. Status classification happens
// before any attempt to decode the body.
func (c *Client) statusError(r request, status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Error("Authentication failed, check TRAKT_ACCESS_TOKEN", "status", status, "path", r.path)
		return errortypes.AuthenticationError(nil,
			fmt.Sprintf("Trakt rejected the credentials (HTTP %d)", status)).
			WithField("status", status)
	case status == http.StatusNotFound:
		c.logger.Warn("Resource not found", "path", r.path, "identifier", r.identifier)
		msg := "resource not found"
		if r.identifier != "" {
			msg = fmt.Sprintf("resource %s not found", r.identifier)
		}
		return errortypes.ResourceNotFoundError(nil, r.identifier, msg)
	case status == http.StatusTooManyRequests:
		c.logger.Warn("Rate limited", "path", r.path)
		return errortypes.NetworkError(nil, "rate limit exceeded, try again later").
			WithField("status", status)
	default:
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		c.logger.Error("Upstream error", "status", status, "path", r.path, "body", snippet)
		return errortypes.NetworkError(nil, fmt.Sprintf("Trakt returned HTTP %d", status)).
			WithField("status", status)
	}
}

func (c *Client) transportError(r request, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		c.logger.Warn("Request timeout", "path", r.path, "timeout", c.timeout)
		return errortypes.NetworkError(err, fmt.Sprintf("request timed out after %s", c.timeout))
	case errors.Is(err, context.Canceled):
		return errortypes.NetworkError(err, "request cancelled")
	default:
		c.logger.Warn("Connection error", "path", r.path, "error", err)
		return errortypes.NetworkError(err, "connection to Trakt failed")
	}
}
