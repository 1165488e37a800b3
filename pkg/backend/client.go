package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/shopster-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/shopster-storefront/pkg/errors"
	"github.com/angelmondragon/shopster-storefront/pkg/logger"
	"github.com/angelmondragon/shopster-storefront/pkg/metrics"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultTimeout         = 10 * time.Second
	responseBodyReadLimit  = 4 << 20
	breakerName            = "backend"
	transportFailureReason = "Network error. Please try again."
)

var errServerStatus = stdErrors.New("backend server error")

// Request describes one call against the REST backend.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Body        any
	AccessToken string
	// Operation labels metrics and logs, e.g. "carts.create".
	Operation string
}

// Response is a fully-read backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Client wraps the storefront backend REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logg       *logger.Logger
	metrics    *metrics.BackendMetrics
	breaker    *gobreaker.CircuitBreaker[*Response]
	settings   gobreaker.Settings
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches the structured logger.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// WithMetrics records outbound request metrics.
func WithMetrics(m *metrics.BackendMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBreaker configures the circuit breaker from config values.
func WithBreaker(cfg config.BackendConfig) Option {
	return func(c *Client) {
		c.settings.MaxRequests = cfg.BreakerMaxRequests
		c.settings.Interval = cfg.BreakerInterval
		c.settings.Timeout = cfg.BreakerTimeout
		failures := cfg.BreakerFailures
		if failures > 0 {
			c.settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			}
		}
	}
}

// NewClient builds the backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, stdErrors.New("backend base url is required")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend base url must be absolute: %q", baseURL)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		settings:   gobreaker.Settings{Name: breakerName},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	client.settings.Name = breakerName
	client.settings.OnStateChange = func(name string, from, to gobreaker.State) {
		client.metrics.SetBreakerOpen(name, to == gobreaker.StateOpen)
		if client.logg != nil {
			ctx := client.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			client.logg.Warn(ctx, "backend circuit breaker state changed")
		}
	}
	client.breaker = gobreaker.NewCircuitBreaker[*Response](client.settings)
	return client, nil
}

// BaseURL returns the configured backend root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL joins a backend path onto the base URL. Absolute URLs are returned as-is
// so pagination links can be followed directly.
func (c *Client) ResolveURL(path string, query url.Values) string {
	target := strings.TrimSpace(path)
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(target, "/")
	}
	if len(query) == 0 {
		return target
	}
	sep := "?"
	if strings.Contains(target, "?") {
		sep = "&"
	}
	return target + sep + query.Encode()
}

// Do executes the request and returns the response for any HTTP status. The error is
// non-nil only when no response could be obtained.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal backend request")
		}
		payload = encoded
	}
	target := c.ResolveURL(req.Path, req.Query)

	started := c.now()
	var captured *Response
	_, err := c.breaker.Execute(func() (*Response, error) {
		resp, err := c.roundTrip(ctx, method, target, payload, req.AccessToken)
		if err != nil {
			return nil, err
		}
		captured = resp
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	status := 0
	if captured != nil {
		status = captured.StatusCode
	}
	c.metrics.Observe(req.Operation, method, status, c.now().Sub(started))

	switch {
	case err == nil:
		return captured, nil
	case stdErrors.Is(err, errServerStatus):
		c.logWarn(ctx, req, method, status, "backend returned server error")
		return captured, nil
	case stdErrors.Is(err, gobreaker.ErrOpenState), stdErrors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, transportFailureReason)
	default:
		if ctx.Err() != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, ctx.Err(), transportFailureReason)
		}
		c.logWarn(ctx, req, method, 0, "backend request failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, transportFailureReason)
	}
}

func (c *Client) roundTrip(ctx context.Context, method, target string, payload []byte, token string) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build backend request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token = strings.TrimSpace(token); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute backend request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, fmt.Errorf("read backend response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: raw}, nil
}

// Send executes the request and decodes a 2xx body into dest (when non-nil). Non-2xx
// responses become coded errors carrying a *StatusError.
func (c *Client) Send(ctx context.Context, req Request, dest any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if !resp.OK() {
		method := req.Method
		if method == "" {
			method = http.MethodGet
		}
		return classify(newStatusError(method, req.Path, resp.StatusCode, resp.Body))
	}
	if dest == nil || len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}

// GetJSON is a GET shortcut around Send.
func (c *Client) GetJSON(ctx context.Context, op, path string, query url.Values, token string, dest any) error {
	return c.Send(ctx, Request{
		Method:      http.MethodGet,
		Path:        path,
		Query:       query,
		AccessToken: token,
		Operation:   op,
	}, dest)
}

// SendJSON sends body with the given method and decodes the response into dest.
func (c *Client) SendJSON(ctx context.Context, op, method, path string, body any, token string, dest any) error {
	return c.Send(ctx, Request{
		Method:      method,
		Path:        path,
		Body:        body,
		AccessToken: token,
		Operation:   op,
	}, dest)
}

func (c *Client) logWarn(ctx context.Context, req Request, method string, status int, msg string) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithUpstream(ctx, req.Operation, method, req.Path, status), msg)
}
