// Package api provides an HTTP client for the booking API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/studioline/shootplan/internal/auth"
	"github.com/studioline/shootplan/internal/observability"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/resilience"
	"github.com/studioline/shootplan/internal/telemetry"
	"github.com/studioline/shootplan/internal/version"
)

// StatusSessionExpired is the non-standard status the server uses to
// force a logout.
const StatusSessionExpired = 498

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 500 * time.Millisecond
	maxJitter         = 100 * time.Millisecond
)

// Client is an HTTP client for the booking API. Every call is authorized
// by the Session it was built with; a 498 from any call ends that session.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *auth.Session
	logger     *slog.Logger
	tracer     trace.Tracer
	breaker    *resilience.Breaker
	collector  *observability.SessionCollector
	maxRetries int
	baseDelay  time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetry sets how many attempts idempotent requests get and the base
// backoff delay between them.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxAttempts
		c.baseDelay = baseDelay
	}
}

// WithTracer overrides the tracer used for request spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithBreaker makes the client fail fast while the breaker is open and
// report every outcome to it.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithCollector counts every attempt and retry in c.
func WithCollector(sc *observability.SessionCollector) Option {
	return func(c *Client) { c.collector = sc }
}

// NewClient creates a new API client.
func NewClient(baseURL string, session *auth.Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		session:    session,
		logger:     slog.Default(),
		tracer:     telemetry.Tracer("api"),
		maxRetries: defaultMaxRetries,
		baseDelay:  defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the session the client authorizes with.
func (c *Client) Session() *auth.Session { return c.session }

// Envelope is the one response shape every endpoint is decoded into.
// Endpoints that put their payload next to success/message instead of
// under "data" are folded into Data.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeEnvelope parses body into an Envelope.
func decodeEnvelope(body []byte) (*Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return &Envelope{Success: true}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}

	env := &Envelope{Success: true}
	if raw, ok := fields["success"]; ok {
		if err := json.Unmarshal(raw, &env.Success); err != nil {
			return nil, fmt.Errorf("invalid success flag: %w", err)
		}
		delete(fields, "success")
	}
	if raw, ok := fields["message"]; ok {
		_ = json.Unmarshal(raw, &env.Message)
		delete(fields, "message")
	}
	if raw, ok := fields["data"]; ok {
		env.Data = raw
	} else if len(fields) > 0 {
		folded, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		env.Data = folded
	}
	return env, nil
}

type request struct {
	method string
	path   string
	body   any
	// idempotent requests are retried on retryable failures.
	idempotent bool
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, request{method: http.MethodGet, path: path, idempotent: true}, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, request{method: http.MethodPost, path: path, body: body}, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, request{method: http.MethodPut, path: path, body: body, idempotent: true}, out)
}

func (c *Client) delete(ctx context.Context, path string, body any) error {
	return c.do(ctx, request{method: http.MethodDelete, path: path, body: body, idempotent: true}, nil)
}

// do runs req with retries and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, req request, out any) error {
	attempts := 1
	if req.idempotent && c.maxRetries > 1 {
		attempts = c.maxRetries
	}

	if err := c.allow(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		env, err := c.singleRequest(ctx, req, attempt)
		c.observe(req, attempt, time.Since(start), err)
		c.record(err)
		if err == nil {
			if out == nil || len(env.Data) == 0 {
				return nil
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return output.ErrAPI(0, fmt.Sprintf("Unexpected response from %s: %v", req.path, err))
			}
			return nil
		}

		var apiErr *output.Error
		if !errors.As(err, &apiErr) || !apiErr.Retryable || attempt == attempts {
			return err
		}
		lastErr = err

		delay := c.backoffDelay(attempt)
		if c.collector != nil {
			c.collector.RecordRetry()
		}
		c.logger.Info("retrying request", "method", req.method, "path", req.path,
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// allow consults the breaker before a call.
func (c *Client) allow() error {
	if c.breaker == nil {
		return nil
	}
	var rej *resilience.Rejection
	if err := c.breaker.Allow(); errors.As(err, &rej) {
		if rej.RateLimited {
			e := output.ErrRateLimit(int(rej.Wait.Seconds()))
			e.Retryable = false
			return e
		}
		return &output.Error{
			Code:    output.CodeNetwork,
			Message: "Booking API unavailable",
			Hint:    fmt.Sprintf("Recent requests failed, try again in %s", rej.Wait),
		}
	}
	return nil
}

func (c *Client) observe(req request, attempt int, elapsed time.Duration, err error) {
	if c.collector == nil {
		return
	}
	status := http.StatusOK
	if err != nil {
		status = output.AsError(err).HTTPStatus
	}
	c.collector.RecordRequest(observability.RequestMetrics{
		Method: req.method, Path: req.path, Attempt: attempt,
		StatusCode: status, Duration: elapsed, Err: err,
	})
}

// record reports a request outcome to the breaker. Only network failures
// and server errors count against the API.
func (c *Client) record(err error) {
	if c.breaker == nil {
		return
	}
	var e *output.Error
	switch {
	case err == nil:
		c.breaker.RecordSuccess()
	case !errors.As(err, &e):
	case e.Code == output.CodeRateLimit:
		if e.RetryAfter > 0 {
			c.breaker.BlockFor(time.Duration(e.RetryAfter) * time.Second)
		}
	case e.Code == output.CodeNetwork || e.HTTPStatus >= 500:
		c.breaker.RecordFailure()
	case e.HTTPStatus > 0:
		c.breaker.RecordSuccess()
	}
}

func (c *Client) singleRequest(ctx context.Context, req request, attempt int) (env *Envelope, err error) {
	token := c.session.Token()
	if token == "" {
		if c.session.EndReason() == auth.ReasonExpired {
			return nil, output.ErrSessionExpired()
		}
		return nil, output.ErrAuth("Not logged in")
	}

	ctx, span := c.tracer.Start(ctx, req.method+" "+routeOf(req.path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.method),
			attribute.String("url.path", req.path),
			attribute.Int("http.request.resend_count", attempt-1),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	var bodyReader io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, bodyReader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("User-Agent", version.UserAgent())
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	c.logger.Debug("request", "method", req.method, "path", req.path, "attempt", attempt)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, output.ErrNetwork(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.logger.Debug("response", "method", req.method, "path", req.path,
		"status", resp.StatusCode, "elapsed", time.Since(start).Round(time.Millisecond))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.ErrNetwork(err)
	}

	switch {
	case resp.StatusCode == StatusSessionExpired:
		if c.session.Expire() {
			c.logger.Warn("session expired, logged out")
		}
		return nil, output.ErrSessionExpired()

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		env, err := decodeEnvelope(body)
		if err != nil {
			return nil, output.ErrAPI(resp.StatusCode, err.Error())
		}
		if !env.Success {
			return nil, output.ErrRejected(resp.StatusCode, env.Message)
		}
		return env, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, output.ErrRateLimit(parseRetryAfter(resp.Header.Get("Retry-After")))

	case resp.StatusCode == http.StatusUnauthorized:
		return nil, output.ErrAuth(messageOr(body, "Authentication failed"))

	case resp.StatusCode == http.StatusForbidden:
		return nil, output.ErrForbidden(messageOr(body, "Access denied"))

	case resp.StatusCode == http.StatusNotFound:
		e := output.ErrNotFound("Resource", req.path)
		if msg := messageOr(body, ""); msg != "" {
			e.Message = msg
		}
		return nil, e

	case resp.StatusCode == http.StatusBadGateway,
		resp.StatusCode == http.StatusServiceUnavailable,
		resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &output.Error{
			Code:       output.CodeAPI,
			Message:    fmt.Sprintf("Gateway error (%d)", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Retryable:  true,
		}

	case resp.StatusCode >= 500:
		return nil, output.ErrAPI(resp.StatusCode, messageOr(body, fmt.Sprintf("Server error (%d)", resp.StatusCode)))

	default:
		// 4xx with an explicit refusal is a domain rejection, shown verbatim.
		if env, err := decodeEnvelope(body); err == nil && !env.Success && env.Message != "" {
			return nil, output.ErrRejected(resp.StatusCode, env.Message)
		}
		return nil, output.ErrAPI(resp.StatusCode, messageOr(body, fmt.Sprintf("Request failed (HTTP %d)", resp.StatusCode)))
	}
}

// messageOr extracts "message" or "error" from a JSON error body.
func messageOr(body []byte, fallback string) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	return fallback
}

// routeOf replaces path segments that look like ids with a placeholder so
// span names stay low-cardinality.
func routeOf(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if i > 1 && p != "" && parts[i-1] != "" && !isRouteWord(p) {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func isRouteWord(s string) bool {
	switch s {
	case "members", "sections", "roles":
		return true
	}
	return false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(1<<(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(maxJitter))) //nolint:gosec // G404: Jitter doesn't need crypto rand
	return delay + jitter
}

// parseRetryAfter parses the Retry-After header value.
func parseRetryAfter(header string) int {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return seconds
	}
	return 0
}
