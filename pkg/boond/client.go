// Package boond provides resilient, environment-scoped access to the
// BoondManager REST API.
package boond

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/staffline/boond-sync/internal/resilience"
)

// Client defines the BoondManager operations for one environment.
type Client interface {
	Environment() Environment

	Get(ctx context.Context, rt ResourceType, id ID, view DetailView) (*Entity, error)
	List(ctx context.Context, rt ResourceType, filter ListFilter) (*Page, error)
	GetResumes(ctx context.Context, rt ResourceType, id ID) ([]Document, error)
	DownloadDocument(ctx context.Context, id ID) (*DocumentContent, error)

	Create(ctx context.Context, rt ResourceType, attrs map[string]any) (*Entity, error)
	Update(ctx context.Context, rt ResourceType, id ID, attrs map[string]any) (*Entity, error)
	UploadDocument(ctx context.Context, parentType ResourceType, parentID ID, content DocumentContent) (*Document, error)
}

// ObserveFunc receives one event per HTTP round trip. status is 0 when no
// response was received.
type ObserveFunc func(env Environment, operation string, status int, elapsed time.Duration)

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second rate limit for API calls.
// A burst equal to the integer portion of rps is allowed.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithRetryConfig overrides the retry budget.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithCircuitBreaker routes every attempt through cb.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

// WithObserver installs a round-trip observer (metrics).
func WithObserver(fn ObserveFunc) Option {
	return func(c *httpClient) {
		c.observe = fn
	}
}

type httpClient struct {
	env     Environment
	baseURL string
	session *session
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	observe ObserveFunc
}

// NewClient creates a client bound to a single environment and its
// credentials.
func NewClient(env Environment, baseURL string, creds Credentials, opts ...Option) (Client, error) {
	if env != Production && env != Sandbox {
		return nil, validationError("unknown environment %q", env)
	}
	if baseURL == "" {
		return nil, eris.Errorf("boond: base url is required for %s", env)
	}
	if !creds.valid() {
		return nil, eris.Errorf("boond: credentials are required for %s", env)
	}
	c := &httpClient{
		env:     env,
		baseURL: strings.TrimRight(baseURL, "/"),
		session: newSession(creds),
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *httpClient) Environment() Environment { return c.env }

// request describes one logical API call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	accept      string
}

// idempotent requests may be retried after ambiguous failures.
func (r request) idempotent() bool {
	return r.method == http.MethodGet || r.method == http.MethodHead
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// do runs req through the retry loop. Reads retry on any transient failure;
// writes only when the failure proves the request was never delivered.
// A 401 invalidates the session token and is re-sent once per call chain.
func (c *httpClient) do(ctx context.Context, req request) (*response, error) {
	cfg := c.retry
	cfg.OnRetry = resilience.RetryLogger(string(c.env), req.op)
	if !req.idempotent() {
		cfg.ShouldRetry = resilience.IsNotApplied
	}

	refreshed := false
	attempt := func(ctx context.Context) (*response, error) {
		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		if resp.status == http.StatusUnauthorized && !refreshed {
			refreshed = true
			c.session.invalidate()
			if resp, err = c.send(ctx, req); err != nil {
				return nil, err
			}
		}
		if resp.status < 200 || resp.status >= 300 {
			return nil, classifyStatus(c.env, resp.status, resp.body)
		}
		return resp, nil
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (*response, error) {
		if c.breaker == nil {
			return attempt(ctx)
		}
		return resilience.ExecuteVal(ctx, c.breaker, attempt)
	})
}

// send performs a single HTTP round trip.
func (c *httpClient) send(ctx context.Context, req request) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "boond: rate limit")
		}
	}

	u := c.baseURL + req.path
	if len(req.query) > 0 {
		u += "?" + req.query.Encode()
	}
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, u, body)
	if err != nil {
		return nil, eris.Wrapf(err, "boond: %s: create request", req.op)
	}
	accept := req.accept
	if accept == "" {
		accept = "application/json"
	}
	httpReq.Header.Set("Accept", accept)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if err := c.session.authorize(httpReq); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.record(req.op, 0, start)
		wrapped := eris.Wrapf(err, "boond [%s]: %s", c.env, req.op)
		if resilience.IsNotApplied(err) {
			return nil, &resilience.NotAppliedError{Err: wrapped}
		}
		return nil, resilience.NewTransientError(wrapped, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	c.record(req.op, resp.StatusCode, start)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "boond [%s]: %s: read body", c.env, req.op), 0)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: b}, nil
}

func (c *httpClient) record(op string, status int, start time.Time) {
	if c.observe != nil {
		c.observe(c.env, op, status, time.Since(start))
	}
}
