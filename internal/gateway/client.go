// Package gateway is the console's only path to the backend: a JSON over
// HTTP client for the REST resource contract, with errors normalized into a
// small taxonomy the entity stores can record.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"adminpanel.org/internal/ids"
	"adminpanel.org/internal/obs"
)

const (
	defaultTimeout = 15 * time.Second
	maxBody        = 10 << 20
)

// TokenSource supplies the bearer token for authenticated calls. An empty
// token sends the request without an Authorization header.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource, handy for tools and tests.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client issues gateway calls against one base URL.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter

	mu     sync.RWMutex
	tokens TokenSource
}

type Option func(*Client)

// WithHTTPClient replaces the default client (15s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit throttles outgoing calls to perSec with the given burst.
// Zero disables throttling.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// New returns a client for baseURL, which must be absolute.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("gateway: parse base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("gateway: base url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	c := &Client{
		base: u,
		http: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetTokenSource swaps the token source after construction. The auth session
// is built on top of the client and registers itself here.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	c.tokens = ts
	c.mu.Unlock()
}

// BaseURL returns the resolved base URL.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) token() string {
	c.mu.RLock()
	ts := c.tokens
	c.mu.RUnlock()
	if ts == nil {
		return ""
	}
	return ts.Token()
}

// call describes one request.
type call struct {
	entity string
	op     string
	method string
	path   string
	query  url.Values

	body        io.Reader
	contentType string

	// token overrides the token source when set.
	token string
}

func jsonBody(v any) (io.Reader, string, error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("gateway: encode body: %w", err)
	}
	return bytes.NewReader(buf), "application/json", nil
}

// do runs the call and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	start := time.Now()
	reqID := ids.RequestID(cl.op)

	body, status, err := c.roundTrip(ctx, cl, reqID)

	obs.GatewayRequests.WithLabelValues(cl.entity, cl.op, Outcome(err)).Inc()
	obs.GatewayDuration.WithLabelValues(cl.entity, cl.op).Observe(time.Since(start).Seconds())

	var ev *zerolog.Event
	if err != nil {
		ev = obs.Logger().Warn().Err(err)
	} else {
		ev = obs.Logger().Debug()
	}
	ev.Str("request_id", reqID).
		Str("entity", cl.entity).
		Str("op", cl.op).
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("gateway call")
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, cl call, reqID string) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, networkError(err)
		}
	}

	rel, err := url.Parse(strings.TrimPrefix(cl.path, "/"))
	if err != nil {
		return nil, 0, networkError(err)
	}
	target := c.base.ResolveReference(rel)
	if len(cl.query) > 0 {
		target.RawQuery = cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target.String(), cl.body)
	if err != nil {
		return nil, 0, networkError(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	token := cl.token
	if token == "" {
		token = c.token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, networkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, resp.StatusCode, networkError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, statusError(resp.StatusCode, body)
	}
	return body, resp.StatusCode, nil
}
