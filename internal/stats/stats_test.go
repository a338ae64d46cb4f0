package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Quantile(sorted, tt.q), 1e-12, "q=%v", tt.q)
	}

	assert.True(t, math.IsNaN(Quantile(nil, 0.5)))
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.75))
}

func TestDescribe(t *testing.T) {
	s := Describe([]float64{4, 1, 3, 2})

	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, 1.2909944487358056, s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q1, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q3, 1e-12)
	assert.Equal(t, 4.0, s.Max)
}

func TestDescribeSmallSamples(t *testing.T) {
	empty := Describe(nil)
	assert.Equal(t, 0, empty.Count)
	assert.True(t, math.IsNaN(empty.Mean))
	assert.True(t, math.IsNaN(empty.Max))

	single := Describe([]float64{5})
	assert.Equal(t, 5.0, single.Mean)
	assert.True(t, math.IsNaN(single.Std))
}

func TestPearson(t *testing.T) {
	assert.InDelta(t, 1.0, Pearson([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, Pearson([]float64{1, 2, 3}, []float64{3, 2, 1}), 1e-12)
	assert.True(t, math.IsNaN(Pearson([]float64{1, 1, 1}, []float64{1, 2, 3})))
	assert.True(t, math.IsNaN(Pearson([]float64{1}, []float64{1})))
}

func TestOutliers(t *testing.T) {
	values := []float64{10, 11, 12, 13, 14, 15, 100}
	assert.Equal(t, 1, Outliers(values))
	assert.Equal(t, 0, Outliers([]float64{5, 5, 5}))
	assert.Equal(t, 0, Outliers(nil))
}

func TestMedianAndBounds(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	lo, hi := Bounds([]float64{3, -1, 2})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 3.0, hi)
	assert.True(t, math.IsNaN(Mean(nil)))
	assert.Equal(t, 6.0, Sum([]float64{1, 2, 3}))
}

func TestFinite(t *testing.T) {
	values := []float64{1, math.Inf(1), math.NaN(), -2, math.Inf(-1)}
	assert.Equal(t, []float64{1, -2}, Finite(values))
	assert.Empty(t, Finite(nil))
}
