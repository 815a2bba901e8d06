package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the Extracta server.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Jira       JiraConfig
	Extraction ExtractionConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// JiraConfig holds upstream HTTP client tuning. Credentials themselves
// live in the database, not the environment.
type JiraConfig struct {
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
}

// ExtractionConfig holds the pipeline tuning knobs. The page ceiling keeps
// a single job inside the execution time budget; the throttle pause avoids
// tripping upstream rate limits on long fetches.
type ExtractionConfig struct {
	PageSize      int
	MaxPages      int
	BatchSize     int
	MaxRetries    int
	ThrottleEvery int
	ThrottlePause time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("EXTRACTA_PORT", 8080),
			Env:  envString("EXTRACTA_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jira: JiraConfig{
			RequestTimeout: envDuration("JIRA_REQUEST_TIMEOUT", 30*time.Second),
			ProbeTimeout:   envDuration("JIRA_PROBE_TIMEOUT", 10*time.Second),
		},
		Extraction: ExtractionConfig{
			PageSize:      envInt("EXTRACTION_PAGE_SIZE", 100),
			MaxPages:      envInt("EXTRACTION_MAX_PAGES", 20),
			BatchSize:     envInt("EXTRACTION_BATCH_SIZE", 100),
			MaxRetries:    envInt("EXTRACTION_MAX_RETRIES", 3),
			ThrottleEvery: envInt("EXTRACTION_THROTTLE_EVERY", 20),
			ThrottlePause: envDuration("EXTRACTION_THROTTLE_PAUSE", 500*time.Millisecond),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("EXTRACTA_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Extraction.PageSize <= 0 {
		return fmt.Errorf("EXTRACTION_PAGE_SIZE must be positive, got %d", c.Extraction.PageSize)
	}
	if c.Extraction.MaxPages <= 0 {
		return fmt.Errorf("EXTRACTION_MAX_PAGES must be positive, got %d", c.Extraction.MaxPages)
	}
	if c.Extraction.BatchSize <= 0 {
		return fmt.Errorf("EXTRACTION_BATCH_SIZE must be positive, got %d", c.Extraction.BatchSize)
	}
	if c.Extraction.MaxRetries < 0 {
		return fmt.Errorf("EXTRACTION_MAX_RETRIES must not be negative, got %d", c.Extraction.MaxRetries)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
