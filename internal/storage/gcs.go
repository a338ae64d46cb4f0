package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"chartdeck/internal/logger"
)

// GCSClient handles Google Cloud Storage operations
type GCSClient struct {
	client *storage.Client
	bucket string
	log    *logger.Logger
}

// NewGCSClient creates a new GCS client
func NewGCSClient(ctx context.Context, bucketName string) (*GCSClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSClient{
		client: client,
		bucket: bucketName,
		log:    logger.WithComponent("gcs"),
	}, nil
}

// Close closes the GCS client
func (g *GCSClient) Close() error {
	return g.client.Close()
}

func (g *GCSClient) object(p string) (*storage.ObjectHandle, string, error) {
	name, err := CleanPath(p)
	if err != nil {
		return nil, "", err
	}
	return g.client.Bucket(g.bucket).Object(name), name, nil
}

// CreateDir is a no-op: GCS has a flat namespace and prefixes appear with
// their first object.
func (g *GCSClient) CreateDir(ctx context.Context, dirPath string) error {
	_, err := CleanPath(dirPath)
	return err
}

// StoreFile uploads fileData, replacing any existing object
func (g *GCSClient) StoreFile(ctx context.Context, filePath string, fileData []byte) error {
	obj, name, err := g.object(filePath)
	if err != nil {
		return err
	}

	g.log.Debug("Storing file to GCS", map[string]interface{}{
		"bucket": g.bucket,
		"object": name,
		"bytes":  len(fileData),
	})

	writer := obj.NewWriter(ctx)
	writer.ContentType = GetContentType(name)
	writer.CacheControl = "no-cache"

	if _, err := writer.Write(fileData); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", g.bucket, name, err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize gs://%s/%s: %w", g.bucket, name, err)
	}
	return nil
}

// GetFile retrieves any file from GCS
func (g *GCSClient) GetFile(ctx context.Context, filePath string) ([]byte, error) {
	obj, name, err := g.object(filePath)
	if err != nil {
		return nil, err
	}

	reader, err := obj.NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create reader for file %s: %w", name, err)
	}
	defer reader.Close()

	fileData, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", name, err)
	}
	return fileData, nil
}

// ListDir lists object names directly under dirPath, sorted.
func (g *GCSClient) ListDir(ctx context.Context, dirPath string) ([]string, error) {
	dir, err := CleanPath(dirPath)
	if err != nil {
		return nil, err
	}
	prefix := ""
	if dir != "." {
		prefix = strings.TrimSuffix(dir, "/") + "/"
	}

	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{
		Prefix:    prefix,
		Delimiter: "/",
	})

	names := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		// synthetic prefix entries carry only Prefix
		if attrs.Name == "" {
			continue
		}
		names = append(names, path.Base(attrs.Name))
	}
	sort.Strings(names)
	return names, nil
}

// FileExists checks if an object exists
func (g *GCSClient) FileExists(ctx context.Context, filePath string) (bool, error) {
	obj, name, err := g.object(filePath)
	if err != nil {
		return false, err
	}
	_, err = obj.Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return true, nil
}

// DeleteFile removes an object
func (g *GCSClient) DeleteFile(ctx context.Context, filePath string) error {
	obj, name, err := g.object(filePath)
	if err != nil {
		return err
	}
	err = obj.Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}
