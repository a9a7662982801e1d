package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DataDir     string `envconfig:"INTEGRATOR_DATA_DIR" default:"data"`
	OutputDir   string `envconfig:"INTEGRATOR_OUTPUT_DIR" default:"output"`
	SourcesFile string `envconfig:"INTEGRATOR_SOURCES_FILE" default:""`
	Workers     int    `envconfig:"INTEGRATOR_WORKERS" default:"1"`

	// DatabaseURL is optional; persistence is skipped when it is empty.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"INTEGRATOR_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"INTEGRATOR_DB_MAX_CONNS" default:"8"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("INTEGRATOR_DATA_DIR is required")
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		return fmt.Errorf("INTEGRATOR_OUTPUT_DIR is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("INTEGRATOR_WORKERS must be >= 1")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("INTEGRATOR_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("INTEGRATOR_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("INTEGRATOR_DB_MIN_CONNS (%d) cannot exceed INTEGRATOR_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// PersistenceEnabled reports whether a database is configured.
func (c *Config) PersistenceEnabled() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
