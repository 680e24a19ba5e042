// Package config assembles run configuration from CLI flags and
// environment variables, with flags taking precedence and environment
// variables supplying defaults, following the teacher's
// cmd/tarsy/main.go getEnv-fallback idiom and pkg/config/queue.go's
// DefaultQueueConfig shape.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ballistic-intel/signalpipe/internal/runctx"
)

// Config holds every tunable named in spec.md §6: CLI surface and
// environment variables.
type Config struct {
	Mode           runctx.Mode
	LookbackDays   int
	StartDate      string
	EndDate        string
	P2Concurrency  int
	P3Concurrency  int
	LogLevel       string

	OracleMaxRPM       int
	LiveIntegration    bool
	DLQDir             string
	DLQEnabled         bool
	TimeBudgetMinutes  int

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	OracleBaseURL string
	OracleAPIKey  string
	OracleModel   string
}

// defaults mirrors DefaultQueueConfig's pattern of a single constructor
// for built-in values, used both as flag defaults and validation
// fallbacks.
func defaults() Config {
	return Config{
		Mode:              runctx.ModeIncremental,
		LookbackDays:      7,
		P2Concurrency:     5,
		P3Concurrency:     5,
		LogLevel:          "info",
		OracleMaxRPM:      15,
		DLQDir:            "./dlq",
		DLQEnabled:        true,
		TimeBudgetMinutes: 30,
		DBHost:            "localhost",
		DBPort:            5432,
		DBUser:            "signalpipe",
		DBName:            "signalpipe",
		DBSSLMode:         "disable",
		OracleModel:       "default",
	}
}

// Load parses CLI flags from args (typically os.Args[1:]), falling back
// to environment variables, and then built-in defaults, validating the
// result before returning it.
func Load(args []string) (Config, error) {
	d := defaults()
	fs := flag.NewFlagSet("run", flag.ContinueOnError)

	mode := fs.String("mode", getEnv("RUN_MODE", string(d.Mode)), "run mode: incremental|backfill|dry-run")
	lookback := fs.Int("lookback", getEnvInt("LOOKBACK_DAYS", d.LookbackDays), "lookback window in days")
	start := fs.String("start", getEnv("START_DATE", ""), "backfill start date YYYY-MM-DD")
	end := fs.String("end", getEnv("END_DATE", ""), "backfill end date YYYY-MM-DD")
	p2 := fs.Int("p2-concurrency", getEnvInt("P2_CONCURRENCY", d.P2Concurrency), "relevance classification concurrency")
	p3 := fs.Int("p3-concurrency", getEnvInt("P3_CONCURRENCY", d.P3Concurrency), "extraction classification concurrency")
	logLevel := fs.String("log-level", getEnv("LOG_LEVEL", d.LogLevel), "log level: debug|info|warn|error")

	if err := fs.Parse(args); err != nil {
		return Config{}, &runctx.ConfigError{Field: "flags", Err: err}
	}

	cfg := d
	cfg.Mode = runctx.Mode(*mode)
	cfg.LookbackDays = *lookback
	cfg.StartDate = *start
	cfg.EndDate = *end
	cfg.P2Concurrency = *p2
	cfg.P3Concurrency = *p3
	cfg.LogLevel = *logLevel

	cfg.OracleMaxRPM = getEnvInt("GEMINI_MAX_RPM", d.OracleMaxRPM)
	cfg.LiveIntegration = getEnvBool("LIVE_INTEGRATION", false)
	cfg.DLQDir = getEnv("DLQ_DIR", d.DLQDir)
	cfg.DLQEnabled = getEnvBool("DLQ_ENABLED", d.DLQEnabled)
	cfg.TimeBudgetMinutes = getEnvInt("TIME_BUDGET_MINUTES", d.TimeBudgetMinutes)

	cfg.DBHost = getEnv("SIGNALPIPE_DB_HOST", d.DBHost)
	cfg.DBPort = getEnvInt("SIGNALPIPE_DB_PORT", d.DBPort)
	cfg.DBUser = getEnv("SIGNALPIPE_DB_USER", d.DBUser)
	cfg.DBPassword = os.Getenv("SIGNALPIPE_DB_PASSWORD")
	cfg.DBName = getEnv("SIGNALPIPE_DB_NAME", d.DBName)
	cfg.DBSSLMode = getEnv("SIGNALPIPE_DB_SSLMODE", d.DBSSLMode)

	cfg.OracleBaseURL = os.Getenv("ORACLE_BASE_URL")
	cfg.OracleAPIKey = os.Getenv("ORACLE_API_KEY")
	cfg.OracleModel = getEnv("ORACLE_MODEL", d.OracleModel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces ConfigError per spec.md §7: invalid mode, missing
// backfill dates, malformed dates, negative concurrency, missing
// credentials.
func (c Config) Validate() error {
	switch c.Mode {
	case runctx.ModeIncremental, runctx.ModeBackfill, runctx.ModeDryRun:
	default:
		return &runctx.ConfigError{Field: "mode", Err: fmt.Errorf("invalid run mode %q", c.Mode)}
	}

	if c.Mode == runctx.ModeBackfill {
		if c.StartDate == "" || c.EndDate == "" {
			return &runctx.ConfigError{Field: "start/end", Err: fmt.Errorf("backfill mode requires --start and --end")}
		}
		if _, err := time.Parse("2006-01-02", c.StartDate); err != nil {
			return &runctx.ConfigError{Field: "start", Err: err}
		}
		if _, err := time.Parse("2006-01-02", c.EndDate); err != nil {
			return &runctx.ConfigError{Field: "end", Err: err}
		}
	}

	if c.P2Concurrency <= 0 {
		return &runctx.ConfigError{Field: "p2-concurrency", Err: fmt.Errorf("must be positive, got %d", c.P2Concurrency)}
	}
	if c.P3Concurrency <= 0 {
		return &runctx.ConfigError{Field: "p3-concurrency", Err: fmt.Errorf("must be positive, got %d", c.P3Concurrency)}
	}
	if c.LookbackDays <= 0 {
		return &runctx.ConfigError{Field: "lookback", Err: fmt.Errorf("must be positive, got %d", c.LookbackDays)}
	}
	if c.TimeBudgetMinutes <= 0 {
		return &runctx.ConfigError{Field: "time-budget", Err: fmt.Errorf("must be positive, got %d", c.TimeBudgetMinutes)}
	}
	if !c.LiveIntegration {
		// dry-run/test mode tolerates missing oracle credentials; live runs do not.
		return nil
	}
	if c.OracleAPIKey == "" {
		return &runctx.ConfigError{Field: "oracle.api_key", Err: fmt.Errorf("ORACLE_API_KEY is required when LIVE_INTEGRATION is set")}
	}
	if c.DBPassword == "" {
		return &runctx.ConfigError{Field: "db.password", Err: fmt.Errorf("SIGNALPIPE_DB_PASSWORD is required when LIVE_INTEGRATION is set")}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvBool(key string, defaultVal bool) bool {
	v := strings.ToLower(os.Getenv(key))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultVal
	}
}
