// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nourabuild/blog-account-service/internal/sdk/mongodb"
	"github.com/nourabuild/blog-account-service/internal/services/mailtrap"
	"github.com/nourabuild/blog-account-service/internal/services/minio"
	"github.com/nourabuild/blog-account-service/internal/services/ratelimit"
	"github.com/nourabuild/blog-account-service/internal/services/sentry"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port        int
	DBDriver    string
	Mongo       mongodb.Config
	DatabaseURL string

	JWTSecret    string
	JWTIssuer    string
	BcryptCost   int
	ResetURLBase string

	AllowedOrigins []string

	// RedisURL enables reset throttling when set.
	RedisURL  string
	RateLimit ratelimit.Config

	Mailtrap mailtrap.Config
	Minio    minio.Config
	Sentry   sentry.Config
}

// Load reads a .env file if present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:     getIntEnv("PORT", 8080),
		DBDriver: strings.ToLower(getEnv("DB_DRIVER", DriverMongo)),
		Mongo: mongodb.Config{
			URI:          getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:     getEnv("MONGO_DATABASE", "blog"),
			Transactions: getBoolEnv("MONGO_TRANSACTIONS", false),
		},
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTIssuer:    getEnv("JWT_ISSUER", "blog-account-service"),
		BcryptCost:   getIntEnv("BCRYPT_COST", 10),
		ResetURLBase: strings.TrimSuffix(getEnv("RESET_URL_BASE", "http://localhost:5173/reset-password"), "/"),

		AllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		RedisURL: getEnv("REDIS_URL", ""),
		RateLimit: ratelimit.Config{
			MaxRequests: getIntEnv("RESET_RATE_LIMIT", 3),
			Window:      getDurationEnv("RESET_RATE_WINDOW", time.Hour),
		},

		Mailtrap: mailtrap.Config{
			APIKey:    getEnv("MAILTRAP_API_KEY", ""),
			URL:       getEnv("MAILTRAP_URL", ""),
			FromEmail: getEnv("MAIL_FROM_EMAIL", "noreply@example.com"),
			FromName:  getEnv("MAIL_FROM_NAME", "Blog"),
		},
		Minio: minio.Config{
			Endpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:     getEnv("MINIO_SECRET_KEY", ""),
			Bucket:        getEnv("MINIO_BUCKET", "blog"),
			UseSSL:        getBoolEnv("MINIO_USE_SSL", false),
			PublicBaseURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
		Sentry: sentry.Config{
			DSN:         getEnv("SENTRY_DSN", ""),
			Environment: getEnv("SENTRY_ENVIRONMENT", "development"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case DriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getBoolEnv(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(input string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
