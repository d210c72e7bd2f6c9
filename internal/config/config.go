package config

import (
	"os"
	"strings"
	"time"

	"github.com/riverglen/reddit-broker/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	AppName string

	AMQPHost     string
	AMQPPort     int
	AMQPVHost    string
	AMQPUsername string
	AMQPPassword string
	AMQPQueue    string

	MinTimeBetweenRequests time.Duration

	UserAgent          string
	RedditUsername     string
	RedditPassword     string
	RedditClientID     string
	RedditClientSecret string

	HTTPMaxRetries int
	HTTPRetryBase  time.Duration
	HTTPTimeout    time.Duration
	LogHTTPRetries bool

	LogLevel string

	CacheTTL       time.Duration
	CacheMaxSizeMB int64
	CacheMaxItems  int64

	OTELEnabled        bool
	OTELEndpoint       string
	OTELSampleRate     float64
	SentryEnvironment  string
	SentryRelease      string

	AdminAddr string
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}

	ua := os.Getenv("USER_AGENT")
	if strings.TrimSpace(ua) == "" {
		ua = "reddit-api-broker/0.1"
	}

	cached = &Config{
		AppName: getEnvOr("APPNAME", "reddit-api-broker"),

		AMQPHost:     getEnvOr("AMQP_HOST", "localhost"),
		AMQPPort:     utils.GetEnvAsInt("AMQP_PORT", 5672),
		AMQPVHost:    getEnvOr("AMQP_VHOST", "/"),
		AMQPUsername: os.Getenv("AMQP_USERNAME"),
		AMQPPassword: os.Getenv("AMQP_PASSWORD"),
		AMQPQueue:    getEnvOr("AMQP_QUEUE", "reddit-proxy"),

		MinTimeBetweenRequests: time.Duration(utils.GetEnvAsFloat("MIN_TIME_BETWEEN_REQUESTS_S", 1.0) * float64(time.Second)),

		UserAgent:          ua,
		RedditUsername:     os.Getenv("REDDIT_USERNAME"),
		RedditPassword:     os.Getenv("REDDIT_PASSWORD"),
		RedditClientID:     os.Getenv("REDDIT_CLIENT_ID"),
		RedditClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),

		HTTPMaxRetries: utils.GetEnvAsInt("HTTP_MAX_RETRIES", 3),
		HTTPRetryBase:  time.Duration(utils.GetEnvAsInt("HTTP_RETRY_BASE_MS", 300)) * time.Millisecond,
		HTTPTimeout:    time.Duration(utils.GetEnvAsInt("HTTP_TIMEOUT_MS", 30000)) * time.Millisecond,
		LogHTTPRetries: utils.GetEnvAsBool("LOG_HTTP_RETRIES", false),

		LogLevel: getEnvOr("LOG_LEVEL", "info"),

		CacheTTL:       time.Duration(utils.GetEnvAsInt("CACHE_TTL_S", 30)) * time.Second,
		CacheMaxSizeMB: int64(utils.GetEnvAsInt("CACHE_MAX_SIZE_MB", 16)),
		CacheMaxItems:  int64(utils.GetEnvAsInt("CACHE_MAX_ITEMS", 10000)),

		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryEnvironment: getEnvOr("ENV", "development"),
		SentryRelease:     getEnvOr("SENTRY_RELEASE", "dev"),

		AdminAddr: getEnvOr("ADMIN_ADDR", ":9091"),
	}

	return cached
}

func getEnvOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
