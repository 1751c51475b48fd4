package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer    string // Optional: issuer claim for tokens (default: addrbook)
	JWTSecret string // Required: HS256 signing secret

	SessionTTL time.Duration // Optional: session token lifetime (default: 30m)
	CacheTTL   time.Duration // Optional: user cache entry lifetime (default: 1h)

	DatabaseFile string // Optional: path to SQLite database file (default: ./addrbook.db)
	PepperFile   string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	RedisAddr     string // Optional: Redis address (default: localhost:6379)
	RedisPassword string // Optional: Redis password

	BaseURL string // Optional: external origin used in mail links (default: http://localhost:8080)

	SMTPHost     string // Optional: SMTP host; empty disables outgoing mail
	SMTPPort     int    // Optional: SMTP port (default: 587)
	SMTPUsername string // Optional: SMTP username
	SMTPPassword string // Optional: SMTP password
	SMTPFrom     string // Optional: sender address for outgoing mail

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:              getEnvOrDefault("ADDRBOOK_ISSUER", "addrbook"),
		JWTSecret:           os.Getenv("ADDRBOOK_JWT_SECRET"),
		SessionTTL:          getEnvDurationOrDefault("ADDRBOOK_SESSION_TTL", 30*time.Minute),
		CacheTTL:            getEnvDurationOrDefault("ADDRBOOK_CACHE_TTL", time.Hour),
		DatabaseFile:        getEnvOrDefault("ADDRBOOK_DATABASE_FILE", "addrbook.db"),
		PepperFile:          getEnvOrDefault("ADDRBOOK_PEPPER_FILE", "pepper"),
		RedisAddr:           getEnvOrDefault("ADDRBOOK_REDIS_ADDR", "localhost:6379"),
		RedisPassword:       os.Getenv("ADDRBOOK_REDIS_PASSWORD"),
		BaseURL:             getEnvOrDefault("ADDRBOOK_BASE_URL", "http://localhost:8080"),
		SMTPHost:            os.Getenv("ADDRBOOK_SMTP_HOST"),
		SMTPPort:            getEnvIntOrDefault("ADDRBOOK_SMTP_PORT", 587),
		SMTPUsername:        os.Getenv("ADDRBOOK_SMTP_USERNAME"),
		SMTPPassword:        os.Getenv("ADDRBOOK_SMTP_PASSWORD"),
		SMTPFrom:            getEnvOrDefault("ADDRBOOK_SMTP_FROM", "no-reply@localhost"),
		Env:                 getEnvOrDefault("ENV", "dev"),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:           getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod: getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	return cfg
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

	// Try parsing as integer seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
