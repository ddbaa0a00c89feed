// Package config loads companion configuration from the environment,
// with .env files honored for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the companion service.
type Config struct {
	// Serverless function proxies (agency credentials stay on that side)
	FunctionsBaseURL string
	ServiceKey       string

	// Managed datastore (incident/SOS writes)
	DatabaseURL string

	// Offline durable queue
	QueuePath string

	// Telemetry
	NATSURL string

	// HTTP API
	ListenAddr     string
	AllowedOrigins []string

	// Arrivals read path. WatchViews lists the schedule views refreshed
	// in the background, each as "city:line:station".
	WatchViews      []string
	RefreshInterval time.Duration
	CacheTTL        time.Duration
	RequestTimeout  time.Duration
	MaxAttempts     int
	BaseDelay       time.Duration

	// Write-path rate limits
	ReportLimit  int
	ReportWindow time.Duration
	SOSLimit     int
	SOSWindow    time.Duration

	// Emergency dispatch
	LocationTimeout time.Duration

	// Offline queue replay
	ProbeInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
// .env is loaded first, then .env.local overrides it for local development.
func Load() *Config {
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	return &Config{
		FunctionsBaseURL: getEnv("FUNCTIONS_BASE_URL", "http://localhost:54321/functions/v1"),
		ServiceKey:       getEnv("FUNCTIONS_SERVICE_KEY", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		QueuePath: getEnv("OFFLINE_QUEUE_PATH", "/data/offline-queue.db"),

		NATSURL: getEnv("NATS_URL", ""),

		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "http://localhost:5173"),

		WatchViews:      getEnvList("WATCH_VIEWS", ""),
		RefreshInterval: getEnvDuration("REFRESH_INTERVAL_SECONDS", 60) * time.Second,
		CacheTTL:        getEnvDuration("ARRIVALS_CACHE_TTL_SECONDS", 15) * time.Second,
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT_SECONDS", 10) * time.Second,
		MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 3),
		BaseDelay:       getEnvDuration("BASE_DELAY_MS", 1000) * time.Millisecond,

		ReportLimit:  getEnvInt("REPORT_RATE_LIMIT", 3),
		ReportWindow: getEnvDuration("REPORT_RATE_WINDOW_SECONDS", 60) * time.Second,
		SOSLimit:     getEnvInt("SOS_RATE_LIMIT", 2),
		SOSWindow:    getEnvDuration("SOS_RATE_WINDOW_SECONDS", 300) * time.Second,

		LocationTimeout: getEnvDuration("LOCATION_TIMEOUT_SECONDS", 8) * time.Second,

		ProbeInterval: getEnvDuration("PROBE_INTERVAL_SECONDS", 30) * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue))
}

func getEnvList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
