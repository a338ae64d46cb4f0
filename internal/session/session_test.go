package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartdeck/internal/chart"
	"chartdeck/internal/dashboard"
	"chartdeck/internal/dataset"
	"chartdeck/internal/report"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newStore() *Store {
	return NewStore(func() *dashboard.Dashboard { return dashboard.New(epoch) }, WithClock(func() time.Time { return epoch }))
}

func numbers(t *testing.T, values ...any) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(&dataset.Column{Name: "v", Kind: dataset.KindNumeric, Values: values})
	require.NoError(t, err)
	return ds
}

func TestStoreLifecycle(t *testing.T) {
	s := newStore()
	sess := s.Create()

	_, err := uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, epoch, sess.CreatedAt)
	require.NotNil(t, sess.Dashboard)
	assert.Equal(t, dashboard.DefaultName, sess.Dashboard.Metadata.Name)
	assert.Equal(t, 1, s.Len())

	got, err := s.Get(sess.ID)
	require.NoError(t, err)
	assert.Same(t, sess, got)

	assert.True(t, s.Delete(sess.ID))
	assert.False(t, s.Delete(sess.ID))
	_, err = s.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDataTransformAndReset(t *testing.T) {
	sess := newStore().Create()

	_, err := sess.Data()
	assert.ErrorIs(t, err, ErrNoData)
	_, err = sess.Reset()
	assert.ErrorIs(t, err, ErrNoData)

	original := numbers(t, 1.0, nil, 3.0)
	sess.Report = &report.Report{}
	sess.SetData("numbers.csv", original)
	assert.Nil(t, sess.Report)
	assert.Equal(t, "numbers.csv", sess.DataName)

	cleaned, err := sess.Transform(func(ds *dataset.Dataset) (*dataset.Dataset, error) {
		return dataset.Clean(ds, []string{"drop_nulls"})
	})
	require.NoError(t, err)
	assert.Equal(t, 2, cleaned.Rows())
	assert.Equal(t, 3, original.Rows(), "transforms never touch the loaded copy")

	boom := errors.New("boom")
	_, err = sess.Transform(func(*dataset.Dataset) (*dataset.Dataset, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	current, _ := sess.Data()
	assert.Same(t, cleaned, current)

	reset, err := sess.Reset()
	require.NoError(t, err)
	assert.Same(t, original, reset)
}

func TestConcurrentUpdates(t *testing.T) {
	sess := newStore().Create()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sess.Update(func(s *Session) error {
				s.Dashboard.AddChart(chart.Config{Type: chart.Histogram, XColumn: "v"}, nil)
				return nil
			})
		}()
	}
	wg.Wait()
	_ = sess.View(func(s *Session) error {
		assert.Len(t, s.Dashboard.Charts, 50)
		return nil
	})
}
