package config

import (
	"os"
	"strconv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Proxy     ProxyConfig
	RateLimit RateLimitConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	// PprofPort exposes the pprof debug server when non-zero.
	PprofPort int
}

// ProxyConfig holds image proxy settings
type ProxyConfig struct {
	// SourcesPath is the location of the tenant registry YAML file.
	SourcesPath string

	// OptimizeSVG controls whether SVG sources without an explicit output
	// format are run through the vector optimizer or returned verbatim.
	OptimizeSVG bool

	// ContentSecurityPolicy is applied to responses that don't already
	// carry one.
	ContentSecurityPolicy string
}

// RateLimitConfig holds per-tenant rate limit settings
type RateLimitConfig struct {
	Enabled       bool
	Limit         int64 // requests per window, per tenant host
	WindowSec     int
	RedisHost     string
	RedisPort     string
	RedisPassword string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
			PprofPort:   getEnvInt("PPROF_PORT", 0),
		},
		Proxy: ProxyConfig{
			SourcesPath:           getEnv("SOURCES_PATH", "config/sources.yaml"),
			OptimizeSVG:           getEnvBool("SVG_OPTIMIZE", true),
			ContentSecurityPolicy: getEnv("CONTENT_SECURITY_POLICY", "default-src 'none'"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			Limit:         int64(getEnvInt("RATE_LIMIT_PER_WINDOW", 600)),
			WindowSec:     getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
		},
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
