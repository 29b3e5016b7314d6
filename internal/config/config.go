package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process configuration for the widget API
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Scheduling provider
	ProviderBaseURL      string
	ProviderOrgID        string
	ProviderAPIKey       string
	ProviderAPIKeyHeader string
	ProviderTimeout      time.Duration

	// Widget configuration source: a JSON file, or a Redis key when WidgetID is set
	WidgetConfigPath string
	WidgetID         string

	RedisAddr     string
	RedisPassword string

	Timezone           string
	SessionTTL         time.Duration
	CORSAllowedOrigins []string

	// HTTP surface
	AdminAuthSecret string
	RateLimitRPS    float64
	RateLimitBurst  int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProviderBaseURL:      strings.TrimRight(getEnv("PROVIDER_BASE_URL", ""), "/"),
		ProviderOrgID:        getEnv("PROVIDER_ORGANIZATION_ID", ""),
		ProviderAPIKey:       getEnv("PROVIDER_API_KEY", ""),
		ProviderAPIKeyHeader: getEnv("PROVIDER_API_KEY_HEADER", "X-API-Key"),
		ProviderTimeout:      getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second),

		WidgetConfigPath: getEnv("WIDGET_CONFIG_PATH", "widget.json"),
		WidgetID:         getEnv("WIDGET_ID", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		Timezone:           getEnv("TIMEZONE", "UTC"),
		SessionTTL:         getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		AdminAuthSecret: getEnv("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:    getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:  getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
