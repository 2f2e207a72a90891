package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer string // TOTP issuer shown in authenticator apps

	DatabaseFile string // Path to SQLite database file (default: ./tracker.db)
	PepperFile   string // Path to file containing pepper for password hashing (default: ./pepper)
	AuditLogFile string // Path to the JSON-lines audit log (default: ./audit.log)

	SessionKey  string        // Cookie signing key; required outside dev
	SessionName string        // Cookie name (default: fintrack_session)
	SessionTTL  time.Duration // Session lifetime (default: 12h)

	AdminEmail    string // Optional: seed admin account on an empty database
	AdminPassword string
	AdminName     string

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	return Config{
		Issuer:       getEnvOrDefault("FINTRACK_ISSUER", "FinTrack"),
		DatabaseFile: getEnvOrDefault("FINTRACK_DATABASE_FILE", "tracker.db"),
		PepperFile:   getEnvOrDefault("FINTRACK_PEPPER_FILE", "pepper"),
		AuditLogFile: getEnvOrDefault("FINTRACK_AUDIT_LOG_FILE", "audit.log"),

		SessionKey:  os.Getenv("FINTRACK_SESSION_KEY"),
		SessionName: getEnvOrDefault("FINTRACK_SESSION_NAME", "fintrack_session"),
		SessionTTL:  getEnvDurationOrDefault("FINTRACK_SESSION_TTL", 12*time.Hour),

		AdminEmail:    os.Getenv("FINTRACK_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("FINTRACK_ADMIN_PASSWORD"),
		AdminName:     getEnvOrDefault("FINTRACK_ADMIN_NAME", "Administrator"),

		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
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

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
