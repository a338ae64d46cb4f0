// Package app wires configuration, storage and the domain components
// shared by the HTTP service and the CLI.
package app

import (
	"context"
	"fmt"

	"chartdeck/internal/chart"
	"chartdeck/internal/config"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/llm"
	"chartdeck/internal/logger"
	"chartdeck/internal/report"
	"chartdeck/internal/storage"
)

// App holds the components built from a configuration.
type App struct {
	Config     *config.Config
	Storage    storage.StorageClient
	Dashboards *dashboard.Manager
	Builder    *chart.Builder
	Generator  *report.Generator

	log *logger.Logger
}

// New builds the components described by cfg. The caller owns Close.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.WithComponent("app")

	store, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	dashboards, err := dashboard.NewManager(ctx, store, cfg.DashboardsDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize dashboards: %w", err)
	}

	builder := chart.NewBuilder(
		chart.WithDefaultHeight(cfg.ChartHeight),
		chart.WithTheme(cfg.ChartTheme),
	)

	var options []report.Option
	if cfg.NarrativeEnabled() {
		options = append(options, report.WithNarrator(llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)))
		log.Info("Narratives enabled", map[string]interface{}{"model": cfg.OpenAIModel})
	}

	log.Info("Components initialized", map[string]interface{}{
		"storage":        cfg.StorageBackend,
		"dashboards_dir": cfg.DashboardsDir,
		"chart_height":   cfg.ChartHeight,
		"chart_theme":    cfg.ChartTheme,
	})

	return &App{
		Config:     cfg,
		Storage:    store,
		Dashboards: dashboards,
		Builder:    builder,
		Generator:  report.NewGenerator(builder, options...),
		log:        log,
	}, nil
}

// Close releases the storage client.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
