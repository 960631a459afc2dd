package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the runtime settings of the mortality pipeline.
// Every environment variable is read here and nowhere else.
type Config struct {
	Env string `env:"MORTALITY_ENV" envDefault:"development"`

	// Storage
	DataDir      string `env:"MORTALITY_DATA_DIR" envDefault:"data"`
	ResultsDir   string `env:"MORTALITY_RESULTS_DIR" envDefault:"results"`
	DatabasePath string `env:"MORTALITY_DB_PATH"`
	CatalogPath  string `env:"MORTALITY_CATALOG"`

	// Fetching
	HTTPTimeout time.Duration `env:"MORTALITY_HTTP_TIMEOUT" envDefault:"5m"`
	UserAgent   string        `env:"MORTALITY_USER_AGENT" envDefault:"france-mortality/1.0"`
	// RequestDelay is waited before each download.
	RequestDelay time.Duration `env:"MORTALITY_REQUEST_DELAY" envDefault:"250ms"`

	// Parsing
	MaxRejectRatio float64 `env:"MORTALITY_MAX_REJECT_RATIO" envDefault:"0.001"`

	// Charts
	ChartWidth  int `env:"MORTALITY_CHART_WIDTH" envDefault:"1200"`
	ChartHeight int `env:"MORTALITY_CHART_HEIGHT" envDefault:"800"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// DBPath is the staging database location, inside DataDir unless
// MORTALITY_DB_PATH says otherwise.
func (c *Config) DBPath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, "mortality.sqlite")
}

// Validate checks that the settings can drive a run.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("MORTALITY_DATA_DIR is required")
	}
	if c.ResultsDir == "" {
		return fmt.Errorf("MORTALITY_RESULTS_DIR is required")
	}
	if c.MaxRejectRatio < 0 || c.MaxRejectRatio >= 1 {
		return fmt.Errorf("MORTALITY_MAX_REJECT_RATIO must be in [0, 1), got %v", c.MaxRejectRatio)
	}
	if c.ChartWidth < 200 || c.ChartHeight < 150 {
		return fmt.Errorf("chart size %dx%d is too small", c.ChartWidth, c.ChartHeight)
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("MORTALITY_REQUEST_DELAY must not be negative")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("MORTALITY_HTTP_TIMEOUT must be positive")
	}
	return nil
}

// loadEnvFile loads the first .env found, current directory first.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}
