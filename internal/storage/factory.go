package storage

import (
	"context"
	"fmt"

	"chartdeck/internal/config"
)

// DeploymentMode represents the storage backend in use
type DeploymentMode string

const (
	DeploymentLocal DeploymentMode = config.BackendLocal
	DeploymentGCS   DeploymentMode = config.BackendGCS
)

// NewStorageClient creates a storage client based on deployment mode and configuration
func NewStorageClient(ctx context.Context, deploymentMode DeploymentMode, cfg *config.Config) (StorageClient, error) {
	switch deploymentMode {
	case DeploymentLocal:
		root := cfg.StorageRoot
		if root == "" {
			root = "."
		}

		localClient, err := NewLocalStorageClient(root)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage client: %w", err)
		}
		return localClient, nil

	case DeploymentGCS:
		gcsClient, err := NewGCSClient(ctx, cfg.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS client: %w", err)
		}
		return gcsClient, nil

	default:
		return nil, fmt.Errorf("unsupported deployment mode: %s", deploymentMode)
	}
}

// NewFromConfig picks the backend named by cfg.StorageBackend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (StorageClient, error) {
	return NewStorageClient(ctx, DeploymentMode(cfg.StorageBackend), cfg)
}
