package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Database
	DatabaseURL string
	AutoMigrate bool

	// JWT
	JWTSecret string

	// Storage (uploaded bank statements)
	StoragePath string

	// Background Workers
	WorkerCount          int
	OverdueSweepInterval time.Duration

	// CORS
	AllowedOrigins []string

	// Sentry
	SentryDSN string

	// Reconciliation
	Currency                 string
	CandidateAmountTolerance decimal.Decimal
	CandidateDateWindowDays  int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "development")

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Environment:             env,
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		AutoMigrate:             getEnvAsBool("AUTO_MIGRATE", env != "production"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		StoragePath:             getEnv("STORAGE_PATH", "./storage"),
		WorkerCount:             getEnvAsInt("WORKER_COUNT", 2),
		OverdueSweepInterval:    getEnvAsDuration("OVERDUE_SWEEP_INTERVAL", time.Hour),
		AllowedOrigins:          getEnvAsSlice("ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:               getEnv("SENTRY_DSN", ""),
		Currency:                getEnv("CURRENCY", "THB"),
		CandidateDateWindowDays: getEnvAsInt("CANDIDATE_DATE_WINDOW_DAYS", 3),
	}

	tolerance, err := decimal.NewFromString(getEnv("CANDIDATE_AMOUNT_TOLERANCE", "0"))
	if err != nil || tolerance.IsNegative() {
		return nil, fmt.Errorf("CANDIDATE_AMOUNT_TOLERANCE must be a non-negative decimal")
	}
	cfg.CandidateAmountTolerance = tolerance

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	if cfg.CandidateDateWindowDays < 0 {
		cfg.CandidateDateWindowDays = 0
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// getEnvAsSlice reads an environment variable as comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
