package app

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

type Config struct {
	Issuer    string // Optional: issuer claim for access tokens (default: sharebox-dev)
	JWTSecret string // Optional: HS256 secret, at least 32 bytes (default: random per process)
	BasePath  string // Optional: route prefix (default: /api/v1)

	AccessTTL          time.Duration // Access token lifetime (default: 15m)
	RefreshTTL         time.Duration // Refresh token lifetime (default: 7 days)
	ReuseRefreshTokens bool          // Keep refresh tokens valid after use (default: false)

	// SeedUsers are created at startup, "username:email:password" separated
	// by commas. A leading "+" grants the ADMIN role.
	SeedUsers []SeedUser

	AuthRateLimit httpx.RateLimitConfig // RATELIMIT_AUTH_{REQUESTS,WINDOW_SEC,BURST}

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: text)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// SeedUser is an account created when the server starts.
type SeedUser struct {
	Username string
	Email    string
	Password string
	Admin    bool
}

func LoadConfig() Config {
	return Config{
		Issuer:             getEnvOrDefault("DEVSERVER_ISSUER", "sharebox-dev"),
		JWTSecret:          os.Getenv("DEVSERVER_JWT_SECRET"),
		BasePath:           getEnvOrDefault("DEVSERVER_BASE_PATH", "/api/v1"),
		AccessTTL:          getEnvDurationOrDefault("DEVSERVER_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:         getEnvDurationOrDefault("DEVSERVER_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		ReuseRefreshTokens: getEnvBool("DEVSERVER_REUSE_REFRESH_TOKENS"),
		SeedUsers:          ParseSeedUsers(os.Getenv("DEVSERVER_SEED_USERS")),
		AuthRateLimit: httpx.ParseRateLimitFromEnv("AUTH", httpx.RateLimitConfig{
			RequestsPerWindow: 20,
			Window:            time.Minute,
			Burst:             5,
		}),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "text"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

// ParseSeedUsers parses "username:email:password" entries separated by
// commas. Malformed entries are skipped.
func ParseSeedUsers(s string) []SeedUser {
	var out []SeedUser
	for entry := range strings.SplitSeq(s, ",") {
		entry = strings.TrimSpace(entry)
		admin := strings.HasPrefix(entry, "+")
		entry = strings.TrimPrefix(entry, "+")

		parts := strings.SplitN(entry, ":", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			continue
		}
		out = append(out, SeedUser{Username: parts[0], Email: parts[1], Password: parts[2], Admin: admin})
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// "1h", "30m", "90s"
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
