package chart

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartdeck/internal/dataset"
)

func sales(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		&dataset.Column{Name: "region", Kind: dataset.KindText, Values: []any{"north", "south", "north", "east", nil}},
		&dataset.Column{Name: "product", Kind: dataset.KindText, Values: []any{"a", "a", "b", "b", "a"}},
		&dataset.Column{Name: "revenue", Kind: dataset.KindNumeric, Values: []any{10.0, 20.0, 5.0, nil, 7.0}},
		&dataset.Column{Name: "units", Kind: dataset.KindNumeric, Values: []any{1.0, 4.0, 2.0, 3.0, 5.0}},
	)
	require.NoError(t, err)
	return ds
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"bar without y", Config{Type: Bar, XColumn: "region"}, FieldY},
		{"line without x", Config{Type: Line, YColumn: "revenue"}, FieldX},
		{"pie without names", Config{Type: Pie, ValuesColumn: "revenue"}, FieldNames},
		{"scatter without y", Config{Type: Scatter, XColumn: "units"}, FieldY},
		{"histogram without x", Config{Type: Histogram}, FieldX},
		{"box without y", Config{Type: Box, XColumn: "region"}, FieldY},
		{"heatmap without z", Config{Type: Heatmap, XColumn: "region", YColumn: "product"}, FieldZ},
		{"area without y", Config{Type: Area, XColumn: "units"}, FieldY},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMissingField))

			var mf *MissingFieldError
			require.True(t, errors.As(err, &mf))
			assert.Equal(t, tt.field, mf.Field)
		})
	}
}

func TestValidateOptions(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no type", Config{XColumn: "a"}, ErrUnsupportedType},
		{"unknown type", Config{Type: "radar"}, ErrUnsupportedType},
		{"bad orientation", Config{Type: Bar, XColumn: "a", YColumn: "b", Orientation: "diagonal"}, ErrInvalidOption},
		{"hole too large", Config{Type: Pie, ValuesColumn: "a", NamesColumn: "b", Hole: 1}, ErrInvalidOption},
		{"negative bins", Config{Type: Histogram, XColumn: "a", Bins: -1}, ErrInvalidOption},
		{"unknown palette", Config{Type: Histogram, XColumn: "a", ColorScheme: "Rainbow"}, ErrUnknownPalette},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, Config{Type: Pie, ValuesColumn: "a", NamesColumn: "b", Hole: 0.4, ColorScheme: "viridis"}.Validate())
}

func TestRequirements(t *testing.T) {
	assert.Len(t, Types(), 8)
	for _, typ := range Types() {
		req, ok := Requirements(typ)
		require.True(t, ok, typ)
		assert.NotEmpty(t, req.Required, typ)
	}

	req, _ := Requirements(Heatmap)
	assert.Equal(t, []string{FieldX, FieldY, FieldZ}, req.Required)
	req.Required[0] = "changed"
	again, _ := Requirements(Heatmap)
	assert.Equal(t, FieldX, again.Required[0])

	_, ok := Requirements("radar")
	assert.False(t, ok)
}

func TestDefaultTitles(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Type: Bar, XColumn: "region", YColumn: "revenue"}, "revenue by region"},
		{Config{Type: Line, XColumn: "day", YColumn: "revenue"}, "revenue over day"},
		{Config{Type: Area, XColumn: "day", YColumn: "revenue"}, "revenue over day"},
		{Config{Type: Pie, ValuesColumn: "revenue", NamesColumn: "region"}, "revenue by region"},
		{Config{Type: Scatter, XColumn: "units", YColumn: "revenue"}, "revenue vs units"},
		{Config{Type: Histogram, XColumn: "units"}, "Distribution of units"},
		{Config{Type: Box, YColumn: "revenue"}, "Box Plot of revenue"},
		{Config{Type: Heatmap, XColumn: "a", YColumn: "b", ZColumn: "revenue"}, "Heatmap of revenue"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.ResolvedTitle())
	}
	assert.Equal(t, "Custom", Config{Type: Bar, Title: "Custom"}.ResolvedTitle())
}

func TestBuildEveryType(t *testing.T) {
	ds := sales(t)
	b := NewBuilder()
	configs := []Config{
		{Type: Bar, XColumn: "region", YColumn: "revenue", ColorColumn: "product"},
		{Type: Bar, XColumn: "region", YColumn: "revenue", Orientation: "h"},
		{Type: Line, XColumn: "units", YColumn: "revenue"},
		{Type: Area, XColumn: "region", YColumn: "units", ColorColumn: "product"},
		{Type: Pie, ValuesColumn: "units", NamesColumn: "product", Hole: 0.3},
		{Type: Scatter, XColumn: "units", YColumn: "revenue", SizeColumn: "units", HoverData: []string{"region"}},
		{Type: Histogram, XColumn: "units", Bins: 4},
		{Type: Box, XColumn: "product", YColumn: "revenue"},
		{Type: Heatmap, XColumn: "region", YColumn: "product", ZColumn: "revenue"},
	}
	for _, cfg := range configs {
		t.Run(string(cfg.Type), func(t *testing.T) {
			fig, err := b.Build(ds, cfg)
			require.NoError(t, err)
			assert.Equal(t, cfg.Type, fig.Type)
			assert.Equal(t, cfg.ResolvedTitle(), fig.Title)
			assert.Equal(t, DefaultHeight, fig.Height)

			html, err := fig.HTML()
			require.NoError(t, err)
			assert.Contains(t, html, fig.Title)
		})
	}
}

func TestBuildColumnErrors(t *testing.T) {
	ds := sales(t)
	b := NewBuilder()

	_, err := b.Build(ds, Config{Type: Bar, XColumn: "missing", YColumn: "revenue"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
	var ce *ColumnError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, FieldX, ce.Field)
	assert.Equal(t, "missing", ce.Column)

	_, err = b.Build(ds, Config{Type: Bar, XColumn: "region", YColumn: "product"})
	assert.ErrorIs(t, err, ErrNotNumeric)

	_, err = b.Build(ds, Config{Type: Scatter, XColumn: "units", YColumn: "revenue", HoverData: []string{"nope"}})
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = b.Build(ds, Config{Type: Type("radar")})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestLayout(t *testing.T) {
	ds := sales(t)
	b := NewBuilder(WithDefaultHeight(500))
	assert.Equal(t, 500, b.DefaultHeight())

	fig, err := b.Build(ds, Config{
		Type:        Bar,
		XColumn:     "region",
		YColumn:     "revenue",
		HideLegend:  true,
		YLabel:      "Revenue ($)",
		Labels:      map[string]string{"region": "Sales Region"},
		ColorScheme: "Blues",
	})
	require.NoError(t, err)
	assert.Equal(t, 500, fig.Height)
	assert.False(t, fig.Layout.ShowLegend)
	assert.Equal(t, "Sales Region", fig.Layout.XTitle)
	assert.Equal(t, "Revenue ($)", fig.Layout.YTitle)
	assert.Equal(t, FontSize, fig.Layout.FontSize)
	assert.Equal(t, TitleFontSize, fig.Layout.TitleFontSize)
	assert.Equal(t, DefaultMargin, fig.Layout.Margin)
	assert.Len(t, fig.Layout.Colors, 8)

	fig, err = b.Build(ds, Config{Type: Histogram, XColumn: "units", Height: 250})
	require.NoError(t, err)
	assert.Equal(t, 250, fig.Height)
	assert.True(t, fig.Layout.ShowLegend)
	assert.Equal(t, "count", fig.Layout.YTitle)
	assert.Equal(t, "westeros", fig.Layout.Theme)

	dark := NewBuilder(WithTheme("dark"), WithTheme(""))
	fig, err = dark.Build(ds, Config{Type: Histogram, XColumn: "units"})
	require.NoError(t, err)
	assert.Equal(t, "dark", fig.Layout.Theme)
}

func TestPivotMean(t *testing.T) {
	ds, err := dataset.New(
		&dataset.Column{Name: "x", Kind: dataset.KindText, Values: []any{"b", "a", "a", "b", nil, "c"}},
		&dataset.Column{Name: "y", Kind: dataset.KindText, Values: []any{"r", "r", "r", "s", "r", "s"}},
		&dataset.Column{Name: "z", Kind: dataset.KindNumeric, Values: []any{5.0, 10.0, 20.0, nil, 99.0, 1.0}},
	)
	require.NoError(t, err)

	table, err := Pivot(ds, "x", "y", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, table.Columns)
	assert.Equal(t, []string{"r", "s"}, table.Index)

	v, ok := table.At("a", "r")
	require.True(t, ok)
	assert.Equal(t, 15.0, v)

	v, ok = table.At("b", "r")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)

	_, ok = table.At("b", "s")
	assert.False(t, ok, "missing z leaves the cell empty")
	assert.True(t, math.IsNaN(table.Values[1][1]))

	lo, hi, ok := table.Bounds()
	require.True(t, ok)
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 15.0, hi)
}

func TestPivotSortsNumericKeys(t *testing.T) {
	ds, err := dataset.New(
		&dataset.Column{Name: "x", Kind: dataset.KindNumeric, Values: []any{10.0, 2.0, 1.0}},
		&dataset.Column{Name: "y", Kind: dataset.KindText, Values: []any{"r", "r", "r"}},
		&dataset.Column{Name: "z", Kind: dataset.KindNumeric, Values: []any{1.0, 2.0, 3.0}},
	)
	require.NoError(t, err)

	table, err := Pivot(ds, "x", "y", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "10"}, table.Columns)

	_, err = Pivot(ds, "x", "y", "y")
	assert.ErrorIs(t, err, ErrNotNumeric)
}

func TestBins(t *testing.T) {
	bins := Bins([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 10}, 5)
	require.Len(t, bins, 5)
	assert.Equal(t, 0.0, bins[0].Lo)
	assert.Equal(t, 10.0, bins[4].Hi)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 2, bins[4].Count, "max value falls in the closed last bin")
	assert.Equal(t, "0-2", bins[0].Label())

	assert.Len(t, Bins([]float64{1, 2}, 0), DefaultBins)
	assert.Equal(t, []Bin{{Lo: 3, Hi: 3, Count: 2}}, Bins([]float64{3, 3}, 10))
	assert.Nil(t, Bins(nil, 10))
}

func TestBinsIgnoreInfinite(t *testing.T) {
	bins := Bins([]float64{1, 2, math.Inf(1), math.Inf(-1), math.NaN()}, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, 1.0, bins[0].Lo)
	assert.Equal(t, 2.0, bins[1].Hi)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[1].Count)

	assert.Nil(t, Bins([]float64{math.Inf(1)}, 5))
}

func TestHistogramWithInfiniteValues(t *testing.T) {
	ds, err := dataset.Load("values.csv", strings.NewReader("v\n1\n2\ninf\n"))
	require.NoError(t, err)

	fig, err := NewBuilder().Build(ds, Config{Type: Histogram, XColumn: "v"})
	require.NoError(t, err)
	assert.Equal(t, "Distribution of v", fig.Title)
}

func TestPalette(t *testing.T) {
	colors, err := Palette("plasma")
	require.NoError(t, err)
	assert.Len(t, colors, 10)

	_, err = Palette("Rainbow")
	assert.ErrorIs(t, err, ErrUnknownPalette)
	assert.Equal(t, []string{"Blues", "Greens", "Plasma", "Reds", "Viridis"}, PaletteNames())
}

func TestSnippetAndPage(t *testing.T) {
	ds := sales(t)
	b := NewBuilder()
	bar, err := b.Build(ds, Config{Type: Bar, XColumn: "region", YColumn: "revenue"})
	require.NoError(t, err)
	pie, err := b.Build(ds, Config{Type: Pie, ValuesColumn: "units", NamesColumn: "region"})
	require.NoError(t, err)

	s, err := bar.Snippet()
	require.NoError(t, err)
	assert.Contains(t, s.Assets, "echarts")
	assert.Contains(t, s.Body, "echarts.init")
	assert.NotContains(t, s.Body, "<body>")

	var buf bytes.Buffer
	require.NoError(t, RenderPage(&buf, "Sales", bar, pie, nil))
	assert.Contains(t, buf.String(), "Sales")
	assert.Contains(t, buf.String(), "revenue by region")
	assert.Contains(t, buf.String(), "units by region")
}

func TestMatrix(t *testing.T) {
	table := &Table{
		Columns: []string{"a", "b"},
		Index:   []string{"a", "b"},
		Values:  [][]float64{{1, -0.5}, {-0.5, 1}},
	}
	fig := NewBuilder().Matrix(table, "Correlation Matrix")
	assert.Equal(t, Heatmap, fig.Type)
	html, err := fig.HTML()
	require.NoError(t, err)
	assert.Contains(t, html, "Correlation Matrix")
}
