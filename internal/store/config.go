package store

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds PostgreSQL connection and pool configuration for the
// persistence sinks (C7).
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// BatchSize bounds the number of rows per multi-row upsert statement.
	// Default 500, hard cap 1000 per spec.
	BatchSize int
	// MaxRetries bounds retry attempts on transient transport errors.
	MaxRetries int
}

// DSN builds a libpq-style connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LoadConfigFromEnv loads store configuration from environment variables
// with production-ready defaults.
func LoadConfigFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("SIGNALPIPE_DB_PORT", "5432"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SIGNALPIPE_DB_PORT: %w", err)
	}

	maxOpen, _ := strconv.Atoi(getEnvOrDefault("SIGNALPIPE_DB_MAX_OPEN_CONNS", "25"))
	maxIdle, _ := strconv.Atoi(getEnvOrDefault("SIGNALPIPE_DB_MAX_IDLE_CONNS", "10"))
	batchSize, _ := strconv.Atoi(getEnvOrDefault("SIGNALPIPE_DB_BATCH_SIZE", "500"))
	maxRetries, _ := strconv.Atoi(getEnvOrDefault("SIGNALPIPE_DB_MAX_RETRIES", "3"))

	maxLifetime, err := time.ParseDuration(getEnvOrDefault("SIGNALPIPE_DB_CONN_MAX_LIFETIME", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SIGNALPIPE_DB_CONN_MAX_LIFETIME: %w", err)
	}
	maxIdleTime, err := time.ParseDuration(getEnvOrDefault("SIGNALPIPE_DB_CONN_MAX_IDLE_TIME", "15m"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SIGNALPIPE_DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	cfg := Config{
		Host:            getEnvOrDefault("SIGNALPIPE_DB_HOST", "localhost"),
		Port:            port,
		User:            getEnvOrDefault("SIGNALPIPE_DB_USER", "signalpipe"),
		Password:        os.Getenv("SIGNALPIPE_DB_PASSWORD"),
		Database:        getEnvOrDefault("SIGNALPIPE_DB_NAME", "signalpipe"),
		SSLMode:         getEnvOrDefault("SIGNALPIPE_DB_SSLMODE", "disable"),
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: maxLifetime,
		ConnMaxIdleTime: maxIdleTime,
		BatchSize:       batchSize,
		MaxRetries:      maxRetries,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for internal consistency, clamping
// BatchSize to the spec's hard cap of 1000 rather than rejecting it.
func (c *Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("SIGNALPIPE_DB_PASSWORD is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("SIGNALPIPE_DB_MAX_IDLE_CONNS (%d) cannot exceed SIGNALPIPE_DB_MAX_OPEN_CONNS (%d)",
			c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("SIGNALPIPE_DB_MAX_OPEN_CONNS must be at least 1")
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.BatchSize > 1000 {
		c.BatchSize = 1000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
