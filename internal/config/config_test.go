package config

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		validate    func(*testing.T, *Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "8981" {
					t.Errorf("Expected default Port to be '8981', got '%s'", cfg.Port)
				}
				if cfg.StorageBackend != BackendLocal {
					t.Errorf("Expected default StorageBackend 'local', got '%s'", cfg.StorageBackend)
				}
				if cfg.DashboardsDir != "dashboards" {
					t.Errorf("Expected default DashboardsDir 'dashboards', got '%s'", cfg.DashboardsDir)
				}
				if cfg.ChartHeight != 400 {
					t.Errorf("Expected default ChartHeight 400, got %d", cfg.ChartHeight)
				}
				if cfg.ChartTheme != "westeros" {
					t.Errorf("Expected default ChartTheme 'westeros', got '%s'", cfg.ChartTheme)
				}
				if cfg.MaxUploadMB != 50 {
					t.Errorf("Expected default MaxUploadMB 50, got %d", cfg.MaxUploadMB)
				}
				if cfg.FetchTimeout != 30*time.Second {
					t.Errorf("Expected default FetchTimeout 30s, got %v", cfg.FetchTimeout)
				}
				wantOrigins := []string{"http://localhost:3000", "http://localhost:5173"}
				if !reflect.DeepEqual(cfg.AllowedOrigins, wantOrigins) {
					t.Errorf("Expected default AllowedOrigins %v, got %v", wantOrigins, cfg.AllowedOrigins)
				}
				if cfg.Environment != "development" {
					t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
				}
				if cfg.LogLevel != "info" {
					t.Errorf("Expected default LogLevel to be 'info', got '%s'", cfg.LogLevel)
				}
				if cfg.LogFormat != "auto" {
					t.Errorf("Expected default LogFormat to be 'auto', got '%s'", cfg.LogFormat)
				}
				if cfg.NarrativeEnabled() {
					t.Error("Expected narrative to be disabled without an API key")
				}
			},
		},
		{
			name: "custom configuration values",
			envVars: map[string]string{
				"PORT":            "9000",
				"STORAGE_BACKEND": "gcs",
				"GCS_BUCKET":      "dashboards-bucket",
				"GCP_PROJECT_ID":  "test-project",
				"CHART_HEIGHT":    "600",
				"FETCH_TIMEOUT":   "5s",
				"ALLOWED_ORIGINS": "https://app.example.com",
				"OPENAI_API_KEY":  "test-key",
				"OPENAI_MODEL":    "gpt-4.1",
				"ENVIRONMENT":     "production",
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "json",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("Expected Port to be '9000', got '%s'", cfg.Port)
				}
				if cfg.StorageBackend != BackendGCS || cfg.GCSBucket != "dashboards-bucket" {
					t.Errorf("Expected gcs backend with bucket, got %s/%s", cfg.StorageBackend, cfg.GCSBucket)
				}
				if cfg.ChartHeight != 600 {
					t.Errorf("Expected ChartHeight 600, got %d", cfg.ChartHeight)
				}
				if cfg.FetchTimeout != 5*time.Second {
					t.Errorf("Expected FetchTimeout 5s, got %v", cfg.FetchTimeout)
				}
				if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://app.example.com" {
					t.Errorf("Unexpected AllowedOrigins %v", cfg.AllowedOrigins)
				}
				if !cfg.NarrativeEnabled() {
					t.Error("Expected narrative to be enabled with an API key")
				}
				if !cfg.IsProduction() {
					t.Error("Expected production environment")
				}
			},
		},
		{
			name:        "gcs without bucket",
			envVars:     map[string]string{"STORAGE_BACKEND": "gcs"},
			expectError: true,
		},
		{
			name:        "unknown backend",
			envVars:     map[string]string{"STORAGE_BACKEND": "s3"},
			expectError: true,
		},
		{
			name:        "non-positive chart height",
			envVars:     map[string]string{"CHART_HEIGHT": "0"},
			expectError: true,
		},
		{
			name:        "malformed duration",
			envVars:     map[string]string{"FETCH_TIMEOUT": "soon"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load(context.Background())
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}
