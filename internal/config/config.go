package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends understood by the storage factory.
const (
	BackendLocal = "local"
	BackendGCS   = "gcs"
)

// Config holds all configuration for the chartdeck service
type Config struct {
	// Server configuration
	Port           string   `env:"PORT,default=8981"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS,default=http://localhost:3000,http://localhost:5173"`
	MaxUploadMB    int64    `env:"MAX_UPLOAD_MB,default=50"`

	// Storage configuration
	StorageBackend string `env:"STORAGE_BACKEND,default=local"`
	StorageRoot    string `env:"STORAGE_ROOT,default=."`
	DashboardsDir  string `env:"DASHBOARDS_DIR,default=dashboards"`

	// GCP configuration (only needed for the gcs backend)
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCSBucket    string `env:"GCS_BUCKET"`

	// Chart and data defaults
	ChartHeight  int           `env:"CHART_HEIGHT,default=400"`
	ChartTheme   string        `env:"CHART_THEME,default=westeros"`
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT,default=30s"`

	// OpenAI configuration; narratives are disabled without a key
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL,default=gpt-4o-mini"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=auto"`
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch c.StorageBackend {
	case BackendLocal:
	case BackendGCS:
		if c.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required when STORAGE_BACKEND=gcs"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}
	if c.ChartHeight <= 0 {
		errs = append(errs, fmt.Errorf("CHART_HEIGHT must be positive, got %d", c.ChartHeight))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}
	if c.DashboardsDir == "" {
		errs = append(errs, errors.New("DASHBOARDS_DIR must not be empty"))
	}
	return errors.Join(errs...)
}

// NarrativeEnabled reports whether an LLM narrator can be configured.
func (c *Config) NarrativeEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
