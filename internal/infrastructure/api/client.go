// Package api is the HTTP client of the marketplace backend. It sends one
// request per call and never retries: whether a failed mutation may be
// repeated is decided by the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace/orderflow/internal/infrastructure/logger"
	"github.com/marketplace/orderflow/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds every non-streaming request
	DefaultTimeout = 10 * time.Second

	apiPrefix       = "/api"
	requestIDHeader = "X-Request-ID"
)

// Config holds the client settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// TokenSource supplies the bearer token of the current session. An empty
// token sends the request unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource
type TokenFunc func() string

// Token implements TokenSource
func (f TokenFunc) Token() string { return f() }

// Option configures a Client
type Option func(*Client)

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithUnauthorizedHandler registers a hook invoked whenever an
// authenticated request is answered with 401
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithHTTPClient replaces the underlying HTTP client. Its Timeout is
// overwritten with the configured one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client talks to the marketplace REST API
type Client struct {
	httpClient     *http.Client
	streamClient   *http.Client
	baseURL        *url.URL
	headers        map[string]string
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	logger         *zap.Logger
}

// NewClient creates a client for the backend at cfg.BaseURL
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "orderflow/1.0"
	}

	c := &Client{
		baseURL: base,
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": cfg.UserAgent,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	c.httpClient.Timeout = cfg.Timeout
	// Streams stay open for as long as the caller's context lives
	c.streamClient = &http.Client{Transport: c.httpClient.Transport}

	return c, nil
}

// Request is a single API call
type Request struct {
	Method string
	Path   string // relative to /api
	Query  url.Values
	Body   interface{}
	// Anonymous requests carry no bearer token and a 401 answer does not
	// invalidate the session (e.g. wrong credentials at login)
	Anonymous bool
}

// Response is a successful (2xx) HTTP response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// Do sends req once. Non-2xx answers and transport failures are returned as
// *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	u := c.buildURL(req.Path, req.Query)

	var bodyReader io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	ctx, span := telemetry.StartSpan(ctx, "api "+req.Method+" "+req.Path,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.AttrHTTPMethod, req.Method),
		telemetry.WithAttribute(telemetry.AttrHTTPRoute, u.Path),
	)
	defer span.End()

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	requestID := c.prepare(ctx, httpReq, req.Anonymous)
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	log := logger.WithLogger(ctx, c.logger).With(
		zap.String("method", req.Method),
		zap.String("path", u.Path),
		zap.String("request_id", requestID),
	)

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		apiErr := transportError(err)
		apiErr.RequestID = requestID
		telemetry.RecordError(span, apiErr)
		log.Warn("API request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, apiErr
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		apiErr := transportError(fmt.Errorf("reading response body: %w", err))
		apiErr.RequestID = requestID
		telemetry.RecordError(span, apiErr)
		return nil, apiErr
	}
	telemetry.SetAttributes(span, telemetry.AttrHTTPStatus, httpResp.StatusCode)

	if httpResp.StatusCode >= 300 {
		apiErr := &Error{
			Kind:       kindForStatus(httpResp.StatusCode),
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(httpResp.StatusCode, body),
			RequestID:  requestID,
		}
		telemetry.RecordError(span, apiErr)
		log.Debug("API request rejected",
			zap.Int("status", httpResp.StatusCode),
			zap.Duration("duration", duration),
			zap.String("message", apiErr.Message),
		)
		if apiErr.Kind == KindUnauthorized && !req.Anonymous && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, apiErr
	}

	log.Debug("API request completed", zap.Int("status", httpResp.StatusCode), zap.Duration("duration", duration))
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
		Duration:   duration,
		RequestID:  requestID,
	}, nil
}

// prepare sets the default, tracing, request-id and auth headers and returns
// the request id
func (c *Client) prepare(ctx context.Context, httpReq *http.Request, anonymous bool) string {
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}

	requestID := logger.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set(requestIDHeader, requestID)

	if !anonymous && c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	telemetry.InjectHTTPHeaders(ctx, httpReq.Header)
	return requestID
}

// buildURL joins the base URL, the /api prefix and path
func (c *Client) buildURL(path string, query url.Values) *url.URL {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := *c.baseURL
	u.Path = strings.TrimRight(c.baseURL.Path, "/") + apiPrefix + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return &u
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

func errorMessage(status int, body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return http.StatusText(status)
}
