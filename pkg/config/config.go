package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel           string
	LogFormat          string // "json" or "console"
	HTTPPort           string
	CORSAllowedOrigins []string

	// Odds provider
	OddsAPIURL             string
	OddsAPIKey             string
	OddsRequestTimeout     time.Duration
	OddsRateLimitPerMinute int
	OddsRateLimitBackoff   time.Duration
	OddsMaxRetries         int
	OddsEventsPerRequest   int
	OddsMaxPages           int
	OddsBreakerThreshold   int // consecutive failures before a sport is skipped; 0 disables
	OddsBreakerCooldown    time.Duration

	// Scanning
	Sports           []string
	ScanInterval     time.Duration
	CacheLiveTTL     time.Duration
	CacheUpcomingTTL time.Duration

	// Arbitrage detection
	ArbStaleAfter     time.Duration
	ArbMinProfitPct   float64
	ArbMaxProfitPct   float64
	ArbHeuristicsFile string

	// Storage
	StorageMode       string // "postgres", "console" or "none"
	StorageBufferSize int
	PostgresHost      string
	PostgresPort      string
	PostgresUser      string
	PostgresPass      string
	PostgresDB        string
	PostgresSSL       string

	// Notifications
	NotifyMode         string // "redis" or "none"
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	NotifyStreamPrefix string
	NotifyStreamMaxLen int64
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          getEnvOrDefault("LOG_FORMAT", LogFormatJSON),
		HTTPPort:           getEnvOrDefault("HTTP_PORT", "8080"),
		CORSAllowedOrigins: getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"*"}),

		// Odds provider defaults
		OddsAPIURL:             getEnvOrDefault("ODDS_API_URL", "https://api.sportsgameodds.com/v2"),
		OddsAPIKey:             os.Getenv("ODDS_API_KEY"),
		OddsRequestTimeout:     getDurationOrDefault("ODDS_REQUEST_TIMEOUT", 30*time.Second),
		OddsRateLimitPerMinute: getIntOrDefault("ODDS_RATE_LIMIT_PER_MINUTE", 290),
		OddsRateLimitBackoff:   getDurationOrDefault("ODDS_RATE_LIMIT_BACKOFF", 5*time.Second),
		OddsMaxRetries:         getIntOrDefault("ODDS_MAX_RETRIES", 3),
		OddsEventsPerRequest:   getIntOrDefault("ODDS_EVENTS_PER_REQUEST", 100),
		OddsMaxPages:           getIntOrDefault("ODDS_MAX_PAGES", 20),
		OddsBreakerThreshold:   getIntOrDefault("ODDS_BREAKER_THRESHOLD", 3),
		OddsBreakerCooldown:    getDurationOrDefault("ODDS_BREAKER_COOLDOWN", 2*time.Minute),

		// Scanning defaults
		Sports:           upper(getStringSliceOrDefault("SPORTS", []string{"BASKETBALL", "FOOTBALL", "HOCKEY", "BASEBALL", "SOCCER"})),
		ScanInterval:     getDurationOrDefault("SCAN_INTERVAL", 30*time.Second),
		CacheLiveTTL:     getDurationOrDefault("CACHE_LIVE_TTL", 15*time.Second),
		CacheUpcomingTTL: getDurationOrDefault("CACHE_UPCOMING_TTL", 30*time.Second),

		// Arbitrage defaults
		ArbStaleAfter:     getDurationOrDefault("ARB_STALE_AFTER", 5*time.Minute),
		ArbMinProfitPct:   getFloat64OrDefault("ARB_MIN_PROFIT_PCT", 0.01),
		ArbMaxProfitPct:   getFloat64OrDefault("ARB_MAX_PROFIT_PCT", 8.0),
		ArbHeuristicsFile: os.Getenv("ARB_HEURISTICS_FILE"),

		// Storage defaults
		StorageMode:       getEnvOrDefault("STORAGE_MODE", "console"),
		StorageBufferSize: getIntOrDefault("STORAGE_BUFFER_SIZE", 64),
		PostgresHost:      getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort:      getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser:      getEnvOrDefault("POSTGRES_USER", "sportsarb"),
		PostgresPass:      getEnvOrDefault("POSTGRES_PASSWORD", "sportsarb"),
		PostgresDB:        getEnvOrDefault("POSTGRES_DB", "sports_arb"),
		PostgresSSL:       getEnvOrDefault("POSTGRES_SSLMODE", "disable"),

		// Notification defaults
		NotifyMode:         getEnvOrDefault("NOTIFY_MODE", "none"),
		RedisAddr:          getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getIntOrDefault("REDIS_DB", 0),
		NotifyStreamPrefix: getEnvOrDefault("NOTIFY_STREAM_PREFIX", "opportunities.detected"),
		NotifyStreamMaxLen: int64(getIntOrDefault("NOTIFY_STREAM_MAXLEN", 10000)),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	switch c.LogFormat {
	case "", LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got %q", c.LogFormat)
	}

	if c.OddsAPIURL == "" {
		return fmt.Errorf("ODDS_API_URL cannot be empty")
	}

	if c.OddsAPIKey == "" {
		return fmt.Errorf("ODDS_API_KEY is required")
	}

	if c.OddsRateLimitPerMinute <= 0 {
		return fmt.Errorf("ODDS_RATE_LIMIT_PER_MINUTE must be positive, got %d", c.OddsRateLimitPerMinute)
	}

	if c.OddsMaxRetries < 0 {
		return fmt.Errorf("ODDS_MAX_RETRIES must be non-negative, got %d", c.OddsMaxRetries)
	}

	if c.OddsEventsPerRequest <= 0 {
		return fmt.Errorf("ODDS_EVENTS_PER_REQUEST must be positive, got %d", c.OddsEventsPerRequest)
	}

	if c.OddsBreakerThreshold < 0 {
		return fmt.Errorf("ODDS_BREAKER_THRESHOLD must be non-negative, got %d", c.OddsBreakerThreshold)
	}

	if c.OddsBreakerThreshold > 0 && c.OddsBreakerCooldown <= 0 {
		return fmt.Errorf("ODDS_BREAKER_COOLDOWN must be positive, got %v", c.OddsBreakerCooldown)
	}

	if len(c.Sports) == 0 {
		return fmt.Errorf("SPORTS must list at least one sport")
	}

	if c.ScanInterval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive, got %v", c.ScanInterval)
	}

	if c.CacheLiveTTL <= 0 || c.CacheUpcomingTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive, got live=%v upcoming=%v", c.CacheLiveTTL, c.CacheUpcomingTTL)
	}

	if c.ArbStaleAfter <= 0 {
		return fmt.Errorf("ARB_STALE_AFTER must be positive, got %v", c.ArbStaleAfter)
	}

	if c.ArbMinProfitPct < 0 || c.ArbMinProfitPct >= c.ArbMaxProfitPct {
		return fmt.Errorf("ARB_MIN_PROFIT_PCT must be in [0, ARB_MAX_PROFIT_PCT), got %f", c.ArbMinProfitPct)
	}

	switch c.StorageMode {
	case "console", "postgres", "none":
	default:
		return fmt.Errorf("STORAGE_MODE must be 'console', 'postgres' or 'none', got %q", c.StorageMode)
	}

	if c.NotifyMode != "none" && c.NotifyMode != "redis" {
		return fmt.Errorf("NOTIFY_MODE must be 'none' or 'redis', got %q", c.NotifyMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}

// getStringSliceOrDefault splits a comma-separated value, dropping blanks.
func getStringSliceOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	if len(out) == 0 {
		return defaultValue
	}

	return out
}

// upper normalizes sport IDs, which the provider expects in upper case.
func upper(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToUpper(v)
	}
	return out
}
