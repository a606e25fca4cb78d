package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/http2"

	"github.com/sophialabs/labelcheck/internal/infrastructure/ports"
)

const (
	// DefaultContentType is sent on every call unless the caller overrides it.
	DefaultContentType = "application/json;charset=utf-8"
	// TokenHeader carries the backend session token.
	TokenHeader = "token"

	defaultMaxRetries  = 3
	defaultBackoffUnit = time.Second
	defaultTimeout     = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	VerifyTLS bool
	Timeout   time.Duration
	// MaxRetries is the number of retries after the first attempt. Nil
	// selects the default; zero disables retries.
	MaxRetries *int
	// BackoffUnit is multiplied by the attempt number between attempts.
	BackoffUnit time.Duration

	// Limiter, when set, paces every attempt per host at Rate/Burst.
	Limiter ports.RateLimiter
	Rate    float64
	Burst   int

	Clock   ports.Clock
	Logger  ports.Logger
	Metrics ports.Metrics
}

// Retries returns n as a MaxRetries option value.
func Retries(n int) *int { return &n }

// RequestSpec describes one logical call. Path is joined to the base URL.
type RequestSpec struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client is an HTTP client bound to one base URL with token injection and retry.
// It is safe for concurrent use. Swapping the base URL or TLS mode waits for
// in-flight attempts to drain.
type Client struct {
	mu        sync.RWMutex
	http      *http.Client
	baseURL   *url.URL
	verifyTLS bool
	token     string

	timeout     time.Duration
	maxRetries  int
	backoffUnit time.Duration
	limiter     ports.RateLimiter
	rate        float64
	burst       int
	clock       ports.Clock
	logger      ports.Logger
	metrics     ports.Metrics
}

// New creates a Client. Clock and Logger are required.
func New(opts Options) (*Client, error) {
	if opts.Clock == nil || opts.Logger == nil {
		return nil, errors.New("transport: clock and logger are required")
	}
	c := &Client{
		verifyTLS:   opts.VerifyTLS,
		timeout:     opts.Timeout,
		maxRetries:  defaultMaxRetries,
		backoffUnit: opts.BackoffUnit,
		limiter:     opts.Limiter,
		rate:        opts.Rate,
		burst:       opts.Burst,
		clock:       opts.Clock,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if opts.MaxRetries != nil {
		c.maxRetries = max(*opts.MaxRetries, 0)
	}
	if c.backoffUnit <= 0 {
		c.backoffUnit = defaultBackoffUnit
	}
	if c.metrics == nil {
		c.metrics = nopMetrics{}
	}

	base, err := parseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	hc, err := newHTTPClient(c.verifyTLS, c.timeout)
	if err != nil {
		return nil, err
	}
	c.baseURL = base
	c.http = hc
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", raw)
	}
	return u, nil
}

func newHTTPClient(verifyTLS bool, timeout time.Duration) (*http.Client, error) {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: !verifyTLS}, //nolint:gosec // backend appliances use self-signed certs
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 16,
		IdleConnTimeout:     90 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		return nil, fmt.Errorf("enabling http2: %w", err)
	}
	return &http.Client{Transport: tr, Timeout: timeout}, nil
}

// SetToken sets the token sent in the token header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken stops sending the token header.
func (c *Client) ClearToken() { c.SetToken("") }

// Token returns the current token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the current base URL, or "" if unset.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// SetBaseURL points the client at a new base URL and rebuilds the connection pool.
func (c *Client) SetBaseURL(raw string) error {
	base, err := parseBaseURL(raw)
	if err != nil {
		return err
	}
	return c.rebuild(func() { c.baseURL = base })
}

// SetVerifyTLS switches certificate verification and rebuilds the connection pool.
func (c *Client) SetVerifyTLS(verify bool) error {
	return c.rebuild(func() { c.verifyTLS = verify })
}

func (c *Client) rebuild(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	apply()
	hc, err := newHTTPClient(c.verifyTLS, c.timeout)
	if err != nil {
		return err
	}
	c.http.CloseIdleConnections()
	c.http = hc
	return nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	c.http.CloseIdleConnections()
}

// Do sends spec, retrying network errors and non-2xx responses.
func (c *Client) Do(ctx context.Context, spec RequestSpec) (*Response, error) {
	attempts := c.maxRetries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.attempt(ctx, spec)
		if err == nil {
			c.metrics.RequestAttempt(spec.Method, true)
			return resp, nil
		}
		c.metrics.RequestAttempt(spec.Method, false)
		lastErr = err

		if ctx.Err() != nil {
			return nil, &TransportError{Method: spec.Method, Path: spec.Path, Attempts: attempt, Err: lastErr}
		}
		if attempt == attempts {
			break
		}
		c.metrics.RequestRetry(spec.Method)
		c.logger.Warn("retrying request",
			"method", spec.Method, "path", spec.Path, "retry", attempt, "error", err)
		if err := c.clock.SleepContext(ctx, time.Duration(attempt)*c.backoffUnit); err != nil {
			return nil, &TransportError{Method: spec.Method, Path: spec.Path, Attempts: attempt, Err: lastErr}
		}
	}

	c.metrics.RequestExhausted(spec.Method)
	c.logger.Error("request failed",
		"method", spec.Method, "path", spec.Path, "attempts", attempts, "error", lastErr)
	return nil, &TransportError{Method: spec.Method, Path: spec.Path, Attempts: attempts, Err: lastErr}
}

// attempt performs one round trip while holding the read lock, so pool swaps
// wait for it.
func (c *Client) attempt(ctx context.Context, spec RequestSpec) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	target, err := c.resolve(spec.Path, spec.Query)
	if err != nil {
		return nil, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target.Host, c.rate, c.burst); err != nil {
			return nil, fmt.Errorf("pacing %s: %w", target.Host, err)
		}
	}

	var body io.Reader
	if spec.Body != nil {
		body = bytes.NewReader(spec.Body)
	}
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", DefaultContentType)
	for k, vs := range spec.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.token != "" {
		req.Header.Set(TokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: data}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// resolve joins path to the base URL. Absolute URLs are used as-is.
func (c *Client) resolve(path string, query url.Values) (*url.URL, error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		parsed, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("parsing url %q: %w", path, err)
		}
		u = parsed
	} else {
		if c.baseURL == nil {
			return nil, fmt.Errorf("relative path %q without base URL", path)
		}
		rel, err := url.Parse(strings.TrimLeft(path, "/"))
		if err != nil {
			return nil, fmt.Errorf("parsing path %q: %w", path, err)
		}
		base := *c.baseURL
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		u = base.ResolveReference(rel)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	resp, err := c.Do(ctx, RequestSpec{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// PostJSON issues a POST with in encoded as JSON and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, in, out)
}

// PutJSON issues a PUT with in encoded as JSON and decodes the response into out.
func (c *Client) PutJSON(ctx context.Context, path string, in, out any) error {
	return c.sendJSON(ctx, http.MethodPut, path, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s %s body: %w", method, path, err)
		}
		body = b
	}
	resp, err := c.Do(ctx, RequestSpec{Method: method, Path: path, Body: body})
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// decodeJSON unmarshals resp into out. A non-JSON body decoded into a
// map[string]any yields {"content": body, "status_code": code}.
func decodeJSON(resp *Response, out any) error {
	if out == nil {
		return nil
	}
	err := json.Unmarshal(resp.Body, out)
	if err == nil {
		return nil
	}
	if m, ok := out.(*map[string]any); ok {
		*m = map[string]any{
			"content":     string(resp.Body),
			"status_code": resp.StatusCode,
		}
		return nil
	}
	return fmt.Errorf("decoding response: %w", err)
}

type nopMetrics struct{}

func (nopMetrics) RequestAttempt(string, bool)    {}
func (nopMetrics) RequestRetry(string)            {}
func (nopMetrics) RequestExhausted(string)        {}
func (nopMetrics) Verdict(string, string, string) {}
func (nopMetrics) RunFinished(float64, bool)      {}
