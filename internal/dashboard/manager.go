package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"chartdeck/internal/dataset"
	"chartdeck/internal/logger"
	"chartdeck/internal/storage"
)

const fileExt = ".json"

var (
	// ErrNotFound is returned when no dashboard has the requested name.
	ErrNotFound = errors.New("dashboard not found")
	// ErrParse is returned for stored documents that are not valid JSON.
	ErrParse = errors.New("dashboard is not valid JSON")
	// ErrIO wraps storage failures.
	ErrIO = errors.New("dashboard storage failure")
	// ErrInvalidConfig is returned when an imported document lacks the
	// dashboard structure.
	ErrInvalidConfig = errors.New("invalid dashboard configuration")
	// ErrInvalidName is returned for empty names or names with path elements.
	ErrInvalidName = errors.New("invalid dashboard name")
)

// Info summarises a saved dashboard.
type Info struct {
	Name       string   `json:"name"`
	Metadata   Metadata `json:"metadata"`
	ChartCount int      `json:"chart_count"`
	HasFilters bool     `json:"has_filters"`
}

// MetadataPatch holds the metadata fields a caller may change.
type MetadataPatch struct {
	Description *string `json:"description,omitempty"`
}

// Manager stores dashboards as <dir>/<name>.json. Writes are last-wins.
type Manager struct {
	store storage.StorageClient
	dir   string
	now   func() time.Time
	log   *logger.Logger
}

// ManagerOption customises a Manager.
type ManagerOption func(*Manager)

// WithClock replaces the time source used for metadata timestamps.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the dashboards directory if needed.
func NewManager(ctx context.Context, store storage.StorageClient, dir string, options ...ManagerOption) (*Manager, error) {
	m := &Manager{
		store: store,
		dir:   dir,
		now:   time.Now,
		log:   logger.WithComponent("dashboard"),
	}
	for _, o := range options {
		o(m)
	}
	if err := store.CreateDir(ctx, dir); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrIO, dir, err)
	}
	return m, nil
}

// ValidateName rejects names that cannot be used as a file name.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func (m *Manager) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return path.Join(m.dir, name+fileExt), nil
}

// NewDefault returns an empty dashboard stamped with the manager's clock.
func (m *Manager) NewDefault() *Dashboard {
	return New(m.now())
}

// Save writes d under name. It sets the metadata name, fills created_at and
// version when unset, and always refreshes last_modified. d is only updated
// once the write has succeeded.
func (m *Manager) Save(ctx context.Context, name string, d *Dashboard) error {
	p, err := m.path(name)
	if err != nil {
		return err
	}

	doc := *d
	now := NewTimestamp(m.now())
	doc.Metadata.Name = name
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = now
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = FormatVersion
	}
	doc.Metadata.LastModified = now
	if doc.Charts == nil {
		doc.Charts = []ChartEntry{}
	}
	if doc.Filters == nil {
		doc.Filters = map[string]dataset.Filter{}
	}

	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dashboard %s: %w", name, err)
	}
	if err := m.store.StoreFile(ctx, p, data); err != nil {
		return fmt.Errorf("%w: save %s: %v", ErrIO, name, err)
	}
	*d = doc

	m.log.Info("Dashboard saved", map[string]interface{}{
		"name":   name,
		"charts": len(d.Charts),
	})
	return nil
}

// Load reads a dashboard by name.
func (m *Manager) Load(ctx context.Context, name string) (*Dashboard, error) {
	data, err := m.read(ctx, name)
	if err != nil {
		return nil, err
	}
	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, name, err)
	}
	return &d, nil
}

func (m *Manager) read(ctx context.Context, name string) ([]byte, error) {
	p, err := m.path(name)
	if err != nil {
		return nil, err
	}
	data, err := m.store.GetFile(ctx, p)
	if errors.Is(err, storage.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrIO, name, err)
	}
	return data, nil
}

// List returns the saved dashboard names, sorted.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	files, err := m.store.ListDir(ctx, m.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrIO, err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if strings.HasSuffix(f, fileExt) {
			names = append(names, strings.TrimSuffix(f, fileExt))
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a dashboard. It reports false without error when the
// dashboard does not exist.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	p, err := m.path(name)
	if err != nil {
		return false, err
	}
	err = m.store.DeleteFile(ctx, p)
	if errors.Is(err, storage.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: delete %s: %v", ErrIO, name, err)
	}
	m.log.Info("Dashboard deleted", map[string]interface{}{"name": name})
	return true, nil
}

// Duplicate copies source to target with fresh timestamps. It reports false
// without writing anything when source does not exist.
func (m *Manager) Duplicate(ctx context.Context, source, target string) (bool, error) {
	if err := ValidateName(target); err != nil {
		return false, err
	}
	d, err := m.Load(ctx, source)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := NewTimestamp(m.now())
	d.Metadata.Name = target
	d.Metadata.CreatedAt = now
	d.Metadata.LastModified = now
	if err := m.Save(ctx, target, d); err != nil {
		return false, err
	}
	return true, nil
}

// Import parses a dashboard document from r and saves it under name.
// Documents without a layout, or whose charts are not objects carrying
// id, type and config, are rejected before anything is written. Fields
// must have the document's types (string ids, object configs); keys the
// document does not define are dropped.
func (m *Manager) Import(ctx context.Context, r io.Reader, name string) (*Dashboard, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read import: %v", ErrIO, err)
	}
	if err := validateDocument(data); err != nil {
		return nil, err
	}

	var d Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := m.Save(ctx, name, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func validateDocument(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: not a JSON object: %v", ErrInvalidConfig, err)
	}
	if _, ok := doc["layout"]; !ok {
		return fmt.Errorf("%w: missing layout", ErrInvalidConfig)
	}
	raw, ok := doc["charts"]
	if !ok {
		return fmt.Errorf("%w: missing charts", ErrInvalidConfig)
	}
	var charts []json.RawMessage
	if err := json.Unmarshal(raw, &charts); err != nil || charts == nil {
		return fmt.Errorf("%w: charts must be an array", ErrInvalidConfig)
	}
	for i, c := range charts {
		var entry map[string]json.RawMessage
		if err := json.Unmarshal(c, &entry); err != nil || entry == nil {
			return fmt.Errorf("%w: chart %d is not an object", ErrInvalidConfig, i)
		}
		for _, key := range []string{"id", "type", "config"} {
			if _, ok := entry[key]; !ok {
				return fmt.Errorf("%w: chart %d has no %s", ErrInvalidConfig, i, key)
			}
		}
	}
	return nil
}

// Export returns the stored document, pretty-printed.
func (m *Manager) Export(ctx context.Context, name string) ([]byte, error) {
	d, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(d, "", "  ")
}

// Info summarises a saved dashboard.
func (m *Manager) Info(ctx context.Context, name string) (*Info, error) {
	d, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	return &Info{
		Name:       name,
		Metadata:   d.Metadata,
		ChartCount: len(d.Charts),
		HasFilters: len(d.Filters) > 0,
	}, nil
}

// UpdateMetadata merges patch into the stored metadata and saves.
func (m *Manager) UpdateMetadata(ctx context.Context, name string, patch MetadataPatch) (*Dashboard, error) {
	d, err := m.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	if patch.Description != nil {
		d.Metadata.Description = *patch.Description
	}
	if err := m.Save(ctx, name, d); err != nil {
		return nil, err
	}
	return d, nil
}
