package apiclient

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/credstore"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultBaseURL is the local backend.
	DefaultBaseURL = "http://localhost:8080/api/v1"

	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	DefaultUserAgent = "sharebox-cli"

	headerRequestID = slogx.HeaderRequestID
)

// Client talks to the file-sharing backend on behalf of one user. Tokens are
// read from and written to the Store on every call, so several clients may
// share one Store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      credstore.Store
	logger     *slog.Logger
	userAgent  string

	// coalesce makes concurrent expiries share a single refresh.
	coalesce  bool
	rateLimit httpx.RateLimitConfig
	flight    singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithRefreshCoalescing toggles single-flight refresh. Enabled by default.
// When disabled every expired call refreshes on its own.
func WithRefreshCoalescing(enabled bool) Option {
	return func(c *Client) { c.coalesce = enabled }
}

// WithRateLimit paces outbound requests. A disabled config is ignored.
func WithRateLimit(cfg httpx.RateLimitConfig) Option {
	return func(c *Client) { c.rateLimit = cfg }
}

// WithTimeout sets the per-attempt timeout of the HTTP client. A client
// passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.httpClient
			hc.Timeout = d
			c.httpClient = &hc
		}
	}
}

// New returns a Client for baseURL backed by store. An empty baseURL selects
// DefaultBaseURL.
func New(baseURL string, store credstore.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if store == nil {
		store = credstore.NewMemory(credstore.TokenPair{})
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: &slogx.Transport{Level: slog.LevelDebug},
		},
		store:     store,
		logger:    slog.Default(),
		userAgent: DefaultUserAgent,
		coalesce:  true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if !c.rateLimit.Disabled() {
		hc := *c.httpClient
		hc.Transport = httpx.NewRateLimitedTransport(hc.Transport, c.rateLimit)
		c.httpClient = &hc
	}

	return c
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the credential store the client reads and writes.
func (c *Client) Store() credstore.Store { return c.store }

// url builds a complete URL by appending path and query to the base URL.
func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
