// Package client is the shared KIT8 API client.
//
// Every page of the platform (CRM, deals, inventory, orders, cashier) talks to the backend through
// one Client. The client builds request URLs from a base path, injects the bearer token kept in a
// tokenstore.Store, parses JSON responses and keeps a small read-through cache for GET lookups.
//
// Errors are returned as *ClientError. Each error is logged when it is detected and then returned
// to the caller, which decides how to present it and whether to retry. The client never retries.
package client

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kit8-platform/kit8/internal/cache"
	"github.com/kit8-platform/kit8/internal/tokenstore"
	"github.com/kit8-platform/kit8/internal/version"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "/api"
	DefaultCacheTTL = 60 * time.Second
)

// Client handles communication with the KIT8 API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	store          tokenstore.Store
	defaultHeaders http.Header
	logger         *slog.Logger
	now            func() time.Time
	timeout        time.Duration

	cache    *cache.Cache
	inflight *singleflight.Group // nil when de-duplication is disabled
	limiter  *rate.Limiter       // nil when rate limiting is disabled
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default otelhttp-instrumented http.Client. The client passed in is
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request, including reading the response body. It applies to the
// default http.Client or to one supplied with WithHTTPClient, whatever the option order.
// Without it the client keeps the http.Client's own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the time source of the default cache. A cache supplied with WithCache keeps the
// clock from its own cache.Config.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithCache supplies the response cache. By default each client owns a cache with the package defaults.
func WithCache(rc *cache.Cache) Option {
	return func(c *Client) {
		c.cache = rc
	}
}

// WithRateLimit makes every request wait for a token from a limiter allowing rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithoutInflightDedup lets concurrent GetCached misses for the same key each reach the network.
// The last response to arrive is the one left in the cache.
func WithoutInflightDedup() Option {
	return func(c *Client) {
		c.inflight = nil
	}
}

// New creates a client for the API mounted at baseURL (DefaultBaseURL when empty).
// A nil store gets an in-memory store.
func New(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if store == nil {
		store = tokenstore.NewMemory()
	}

	defaultHeaders := http.Header{}
	defaultHeaders.Set("Content-Type", "application/json")
	defaultHeaders.Set("Accept", "application/json")
	defaultHeaders.Set("User-Agent", version.UserAgent())

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store:          store,
		defaultHeaders: defaultHeaders,
		logger:         slog.Default(),
		now:            time.Now,
		inflight:       &singleflight.Group{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	if c.cache == nil {
		c.cache = cache.New(cache.Config{Now: c.now})
	}

	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Cache exposes the response cache, e.g. so callers can Sweep it on a timer.
func (c *Client) Cache() *cache.Cache {
	return c.cache
}
