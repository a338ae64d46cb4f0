// Package session keeps per-client application state: the working dataset,
// the dashboard being edited and the last generated report.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"chartdeck/internal/dashboard"
	"chartdeck/internal/dataset"
	"chartdeck/internal/report"
)

var (
	// ErrNotFound is returned for an unknown session id.
	ErrNotFound = errors.New("session not found")
	// ErrNoData is returned by operations that need a loaded dataset.
	ErrNoData = errors.New("no data loaded")
	// ErrNoReport is returned when no report has been generated yet.
	ErrNoReport = errors.New("no report generated")
)

// Session is the state of one client. Fields are only touched inside
// Update or View.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu sync.Mutex

	// DataName is the file name or URL the dataset was loaded from.
	DataName string
	// Dataset is the working copy every transform replaces.
	Dataset *dataset.Dataset
	// Original is the dataset as loaded, used by reset.
	Original *dataset.Dataset
	// Dashboard is the dashboard being edited; DashboardName is set once
	// it was saved or loaded.
	Dashboard     *dashboard.Dashboard
	DashboardName string
	// Report is the last generated report.
	Report *report.Report
}

// Update runs fn with the session locked.
func (s *Session) Update(fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// View runs fn with the session locked; fn must not modify it.
func (s *Session) View(fn func(*Session) error) error {
	return s.Update(fn)
}

// SetData installs a freshly loaded dataset as both working and original
// copy. The previous report no longer describes the data and is dropped.
func (s *Session) SetData(name string, ds *dataset.Dataset) {
	s.DataName = name
	s.Dataset = ds
	s.Original = ds
	s.Report = nil
}

// Data returns the working dataset or ErrNoData.
func (s *Session) Data() (*dataset.Dataset, error) {
	if s.Dataset == nil {
		return nil, ErrNoData
	}
	return s.Dataset, nil
}

// Transform replaces the working dataset with fn's result.
func (s *Session) Transform(fn func(*dataset.Dataset) (*dataset.Dataset, error)) (*dataset.Dataset, error) {
	ds, err := s.Data()
	if err != nil {
		return nil, err
	}
	next, err := fn(ds)
	if err != nil {
		return nil, err
	}
	s.Dataset = next
	return next, nil
}

// Reset restores the dataset as loaded.
func (s *Session) Reset() (*dataset.Dataset, error) {
	if s.Original == nil {
		return nil, ErrNoData
	}
	s.Dataset = s.Original
	return s.Dataset, nil
}

// Store holds sessions by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newBoard func() *dashboard.Dashboard
	now      func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock replaces the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty store. newBoard creates the dashboard every new
// session starts with.
func NewStore(newBoard func() *dashboard.Dashboard, options ...StoreOption) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		newBoard: newBoard,
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Create starts a new session with an empty dashboard.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Dashboard: s.newBoard(),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with id or ErrNotFound.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Delete removes a session, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
