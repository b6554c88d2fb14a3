package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer           string        // Issuer label for provisioning URIs (default: "MFA System")
	DatabaseFile     string        // Path to SQLite database file (default: ./mfa.db)
	SessionTTL       time.Duration // Session lifetime (default: 24h)
	LockoutThreshold int           // Failures inside the window before lockout (default: 5)
	LockoutWindow    time.Duration // Trailing window for lockout counting (default: 15m)
	AttemptRetention time.Duration // How long attempt history is kept (default: 30 days)

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	return Config{
		Issuer:           getEnvOrDefault("MFA_ISSUER", "MFA System"),
		DatabaseFile:     getEnvOrDefault("MFA_DATABASE_FILE", "mfa.db"),
		SessionTTL:       getEnvDurationOrDefault("MFA_SESSION_TTL", 24*time.Hour),
		LockoutThreshold: getEnvIntOrDefault("MFA_LOCKOUT_THRESHOLD", 5),
		LockoutWindow:    getEnvDurationOrDefault("MFA_LOCKOUT_WINDOW", 15*time.Minute),
		AttemptRetention: getEnvDurationOrDefault("MFA_ATTEMPT_RETENTION", 30*24*time.Hour),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
