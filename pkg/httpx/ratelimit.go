package httpx

import (
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// Disabled reports whether the config does not limit anything.
func (c RateLimitConfig) Disabled() bool {
	return c.RequestsPerWindow <= 0 || c.Window <= 0
}

func (c RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

func (c RateLimitConfig) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return 1
}

// ParseRateLimitFromEnv overlays RATELIMIT_{prefix}_REQUESTS,
// RATELIMIT_{prefix}_WINDOW_SEC and RATELIMIT_{prefix}_BURST on def.
func ParseRateLimitFromEnv(prefix string, def RateLimitConfig) RateLimitConfig {
	cfg := def
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_REQUESTS"); ok {
		cfg.RequestsPerWindow = n
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_WINDOW_SEC"); ok {
		cfg.Window = time.Duration(n) * time.Second
	}
	if n, ok := positiveEnvInt("RATELIMIT_" + prefix + "_BURST"); ok {
		cfg.Burst = n
	}
	return cfg
}

func positiveEnvInt(key string) (int, bool) {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ============================================================================
// Client side
// ============================================================================

// RateLimitedTransport delays outbound requests so that no more than the
// configured rate leaves the process. Waiting honours request cancellation.
type RateLimitedTransport struct {
	Base    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps base. A disabled config returns base as is.
func NewRateLimitedTransport(base http.RoundTripper, cfg RateLimitConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.Disabled() {
		return base
	}
	return &RateLimitedTransport{
		Base:    base,
		limiter: rate.NewLimiter(cfg.limit(), cfg.burst()),
	}
}

func (t *RateLimitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.Base.RoundTrip(req)
}

// ============================================================================
// Server side
// ============================================================================

// KeyExtractor groups requests for rate limiting, e.g. by client IP.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP, preferring X-Forwarded-For.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

type keyedLimiters struct {
	cfg      RateLimitConfig
	limiters sync.Map // map[string]*rate.Limiter
}

func (k *keyedLimiters) get(key string) *rate.Limiter {
	if l, ok := k.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	l, _ := k.limiters.LoadOrStore(key, rate.NewLimiter(k.cfg.limit(), k.cfg.burst()))
	return l.(*rate.Limiter)
}

// RateLimitMiddleware rejects requests over the configured rate with 429 and
// a {message} body. Requests with no extractable key pass through.
func RateLimitMiddleware(cfg RateLimitConfig, keyFn KeyExtractor) Middleware {
	if cfg.Disabled() {
		return func(next http.Handler) http.Handler { return next }
	}
	kl := &keyedLimiters{cfg: cfg}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			limiter := kl.get(key)
			if !limiter.Allow() {
				res := limiter.Reserve()
				retryAfter := max(int(res.Delay().Seconds()), 1)
				res.Cancel()

				slogx.FromContext(r.Context()).Warn("rate limit exceeded",
					"key", key,
					"retry_after", retryAfter,
				)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				WriteMessage(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
