package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotExist is returned when a file is missing from the backend.
	ErrNotExist = errors.New("storage: file does not exist")
	// ErrInvalidPath is returned for absolute paths or paths escaping the root.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// StorageClient defines the interface for basic storage operations.
// Paths are slash-separated and relative to the client's root.
type StorageClient interface {
	// Close closes the storage client
	Close() error

	// CreateDir creates a directory (and any necessary parent directories)
	CreateDir(ctx context.Context, dirPath string) error

	// StoreFile stores a file at the specified path, replacing any previous content
	StoreFile(ctx context.Context, filePath string, fileData []byte) error

	// GetFile retrieves a file from the specified path
	GetFile(ctx context.Context, filePath string) ([]byte, error)

	// ListDir lists the names of files directly inside a directory
	ListDir(ctx context.Context, dirPath string) ([]string, error)

	// FileExists checks if a file exists at the specified path
	FileExists(ctx context.Context, filePath string) (bool, error)

	// DeleteFile removes a file; ErrNotExist when it is absent
	DeleteFile(ctx context.Context, filePath string) error
}
