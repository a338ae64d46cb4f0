package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"chartdeck/internal/dataset"
	"chartdeck/internal/logger"
	"chartdeck/internal/stats"
)

const (
	minSymbolSize = 5
	maxSymbolSize = 30
	areaOpacity   = 0.4
)

// Builder turns a dataset and a Config into a Figure.
type Builder struct {
	height int
	theme  string
	log    *logger.Logger
}

// Option customises a Builder.
type Option func(*Builder)

// WithDefaultHeight sets the height used when a configuration has none.
func WithDefaultHeight(h int) Option {
	return func(b *Builder) {
		if h > 0 {
			b.height = h
		}
	}
}

// WithTheme selects the ECharts theme.
func WithTheme(theme string) Option {
	return func(b *Builder) {
		if theme != "" {
			b.theme = theme
		}
	}
}

// NewBuilder creates a Builder with the default styling.
func NewBuilder(options ...Option) *Builder {
	b := &Builder{
		height: DefaultHeight,
		theme:  types.ThemeWesteros,
		log:    logger.WithComponent("chart"),
	}
	for _, o := range options {
		o(b)
	}
	return b
}

// DefaultHeight returns the height applied to configurations without one.
func (b *Builder) DefaultHeight() int { return b.height }

// Build validates cfg against ds and renders the figure.
func (b *Builder) Build(ds *dataset.Dataset, cfg Config) (*Figure, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l, err := b.resolveLayout(cfg)
	if err != nil {
		return nil, err
	}
	title := cfg.ResolvedTitle()

	var c components.Charter
	switch cfg.Type {
	case Bar:
		c, err = b.bar(ds, cfg, l, title)
	case Line:
		c, err = b.line(ds, cfg, l, title, false)
	case Area:
		c, err = b.line(ds, cfg, l, title, true)
	case Pie:
		c, err = b.pie(ds, cfg, l, title)
	case Scatter:
		c, err = b.scatter(ds, cfg, l, title)
	case Histogram:
		c, err = b.histogram(ds, cfg, l, title)
	case Box:
		c, err = b.box(ds, cfg, l, title)
	case Heatmap:
		var t *Table
		t, err = Pivot(ds, cfg.XColumn, cfg.YColumn, cfg.ZColumn)
		if err == nil {
			c = b.heatmap(t, l, title)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	b.log.Debug("Chart built", map[string]interface{}{
		"type":  string(cfg.Type),
		"title": title,
		"rows":  ds.Rows(),
	})
	return &Figure{Type: cfg.Type, Title: title, Height: l.Height, Layout: l, chart: c}, nil
}

// Matrix renders an already aggregated table as a heatmap.
func (b *Builder) Matrix(t *Table, title string) *Figure {
	l := Layout{
		Height:        b.height,
		FontSize:      FontSize,
		TitleFontSize: TitleFontSize,
		Margin:        DefaultMargin,
		Theme:         b.theme,
	}
	return &Figure{Type: Heatmap, Title: title, Height: l.Height, Layout: l, chart: b.heatmap(t, l, title)}
}

// column resolves a configured column; numeric demands a numeric kind.
func column(ds *dataset.Dataset, field, name string, numeric bool) (*dataset.Column, error) {
	col, ok := ds.Column(name)
	if !ok {
		return nil, &ColumnError{Field: field, Column: name, Err: ErrUnknownColumn}
	}
	if numeric && col.Kind != dataset.KindNumeric {
		return nil, &ColumnError{Field: field, Column: name, Err: ErrNotNumeric}
	}
	return col, nil
}

// optionalColumn is column for fields that may be empty.
func optionalColumn(ds *dataset.Dataset, field, name string, numeric bool) (*dataset.Column, error) {
	if name == "" {
		return nil, nil
	}
	return column(ds, field, name, numeric)
}

// seriesName is the series a row belongs to: the color value or the fallback.
func seriesName(color *dataset.Column, i int, fallback string) string {
	if color == nil {
		return fallback
	}
	if color.IsMissing(i) {
		return "(missing)"
	}
	return color.Label(i)
}

// grouped accumulates values per series and category in first-appearance order.
type grouped struct {
	categories []string
	catIndex   map[string]int
	series     []string
	values     map[string]map[string]float64
}

func newGrouped() *grouped {
	return &grouped{catIndex: make(map[string]int), values: make(map[string]map[string]float64)}
}

func (g *grouped) add(series, category string, v float64) {
	if _, ok := g.catIndex[category]; !ok {
		g.catIndex[category] = len(g.categories)
		g.categories = append(g.categories, category)
	}
	m, ok := g.values[series]
	if !ok {
		m = make(map[string]float64)
		g.values[series] = m
		g.series = append(g.series, series)
	}
	m[category] += v
}

func (b *Builder) bar(ds *dataset.Dataset, cfg Config, l Layout, title string) (components.Charter, error) {
	x, err := column(ds, FieldX, cfg.XColumn, false)
	if err != nil {
		return nil, err
	}
	y, err := column(ds, FieldY, cfg.YColumn, true)
	if err != nil {
		return nil, err
	}
	color, err := optionalColumn(ds, FieldColor, cfg.ColorColumn, false)
	if err != nil {
		return nil, err
	}

	g := newGrouped()
	for i := 0; i < ds.Rows(); i++ {
		v, ok := y.Float(i)
		if !ok || x.IsMissing(i) {
			continue
		}
		g.add(seriesName(color, i, cfg.label(cfg.YColumn)), x.Label(i), v)
	}

	horizontal := cfg.Orientation == "h"
	xAxis := opts.XAxis{Name: l.XTitle, Type: "category"}
	yAxis := opts.YAxis{Name: l.YTitle, Type: "value"}
	if horizontal {
		xAxis = opts.XAxis{Name: l.YTitle, Type: "value"}
		yAxis = opts.YAxis{Name: l.XTitle, Type: "category"}
	}

	c := charts.NewBar()
	c.SetGlobalOptions(append(l.globalOpts(title, "axis"),
		charts.WithXAxisOpts(xAxis),
		charts.WithYAxisOpts(yAxis),
	)...)
	c.SetXAxis(g.categories)
	for _, s := range g.series {
		data := make([]opts.BarData, len(g.categories))
		for j, cat := range g.categories {
			if v, ok := g.values[s][cat]; ok {
				data[j] = opts.BarData{Value: v}
			} else {
				data[j] = opts.BarData{Value: "-"}
			}
		}
		c.AddSeries(s, data)
	}
	if color != nil {
		c.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{Stack: "total"}))
	}
	if horizontal {
		c.XYReversal()
	}
	return c, nil
}

// axisValue is cell i as placed on a value, time or category axis.
func axisValue(col *dataset.Column, i int) interface{} {
	if v, ok := col.Float(i); ok {
		return v
	}
	return col.Label(i)
}

func axisType(col *dataset.Column) string {
	switch col.Kind {
	case dataset.KindNumeric:
		return "value"
	case dataset.KindDatetime:
		return "time"
	}
	return "category"
}

func (b *Builder) line(ds *dataset.Dataset, cfg Config, l Layout, title string, area bool) (components.Charter, error) {
	x, err := column(ds, FieldX, cfg.XColumn, false)
	if err != nil {
		return nil, err
	}
	y, err := column(ds, FieldY, cfg.YColumn, true)
	if err != nil {
		return nil, err
	}
	color, err := optionalColumn(ds, FieldColor, cfg.ColorColumn, false)
	if err != nil {
		return nil, err
	}

	var order []string
	points := make(map[string][]opts.LineData)
	for i := 0; i < ds.Rows(); i++ {
		v, ok := y.Float(i)
		if !ok || x.IsMissing(i) {
			continue
		}
		s := seriesName(color, i, cfg.label(cfg.YColumn))
		if _, seen := points[s]; !seen {
			order = append(order, s)
		}
		xv := axisValue(x, i)
		points[s] = append(points[s], opts.LineData{Value: []interface{}{xv, v}})
	}

	kind := axisType(x)
	c := charts.NewLine()
	c.SetGlobalOptions(append(l.globalOpts(title, "axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: l.XTitle, Type: kind}),
		charts.WithYAxisOpts(opts.YAxis{Name: l.YTitle, Type: "value"}),
	)...)
	if kind == "category" {
		c.SetXAxis(x.Distinct())
	} else {
		c.SetXAxis(nil)
	}

	lineOpts := opts.LineChart{ShowSymbol: cfg.markers() && !area}
	if area {
		lineOpts.Stack = "total"
	}
	for _, s := range order {
		seriesOpts := []charts.SeriesOpts{charts.WithLineChartOpts(lineOpts)}
		if area {
			seriesOpts = append(seriesOpts, charts.WithAreaStyleOpts(opts.AreaStyle{Opacity: areaOpacity}))
		}
		c.AddSeries(s, points[s], seriesOpts...)
	}
	return c, nil
}

func (b *Builder) pie(ds *dataset.Dataset, cfg Config, l Layout, title string) (components.Charter, error) {
	values, err := column(ds, FieldValues, cfg.ValuesColumn, true)
	if err != nil {
		return nil, err
	}
	names, err := column(ds, FieldNames, cfg.NamesColumn, false)
	if err != nil {
		return nil, err
	}

	g := newGrouped()
	for i := 0; i < ds.Rows(); i++ {
		v, ok := values.Float(i)
		if !ok || names.IsMissing(i) {
			continue
		}
		g.add("", names.Label(i), v)
	}

	data := make([]opts.PieData, 0, len(g.categories))
	for _, name := range g.categories {
		data = append(data, opts.PieData{Name: name, Value: g.values[""][name]})
	}

	radius := []string{"0%", "70%"}
	if cfg.Hole > 0 {
		radius[0] = fmt.Sprintf("%.0f%%", cfg.Hole*70)
	}

	c := charts.NewPie()
	c.SetGlobalOptions(l.globalOpts(title, "item")...)
	c.AddSeries(cfg.label(cfg.ValuesColumn), data,
		charts.WithPieChartOpts(opts.PieChart{Radius: radius}),
		charts.WithLabelOpts(opts.Label{Show: true, Formatter: "{b}: {d}%"}),
	)
	return c, nil
}

func (b *Builder) scatter(ds *dataset.Dataset, cfg Config, l Layout, title string) (components.Charter, error) {
	x, err := column(ds, FieldX, cfg.XColumn, false)
	if err != nil {
		return nil, err
	}
	y, err := column(ds, FieldY, cfg.YColumn, true)
	if err != nil {
		return nil, err
	}
	color, err := optionalColumn(ds, FieldColor, cfg.ColorColumn, false)
	if err != nil {
		return nil, err
	}
	size, err := optionalColumn(ds, FieldSize, cfg.SizeColumn, true)
	if err != nil {
		return nil, err
	}
	hover := make([]*dataset.Column, 0, len(cfg.HoverData))
	for _, name := range cfg.HoverData {
		col, err := column(ds, FieldHover, name, false)
		if err != nil {
			return nil, err
		}
		hover = append(hover, col)
	}

	var sizeLo, sizeHi float64
	if size != nil {
		if vals := size.Floats(); len(vals) > 0 {
			sizeLo, sizeHi = stats.Bounds(vals)
		}
	}
	symbol := func(i int) int {
		if size == nil {
			return 0
		}
		v, ok := size.Float(i)
		if !ok {
			return minSymbolSize
		}
		if sizeHi == sizeLo {
			return (minSymbolSize + maxSymbolSize) / 2
		}
		return minSymbolSize + int(math.Round((v-sizeLo)/(sizeHi-sizeLo)*(maxSymbolSize-minSymbolSize)))
	}

	var order []string
	points := make(map[string][]opts.ScatterData)
	for i := 0; i < ds.Rows(); i++ {
		v, ok := y.Float(i)
		if !ok || x.IsMissing(i) {
			continue
		}
		s := seriesName(color, i, cfg.label(cfg.YColumn))
		if _, seen := points[s]; !seen {
			order = append(order, s)
		}
		xv := axisValue(x, i)
		parts := make([]string, 0, len(hover))
		for _, h := range hover {
			parts = append(parts, fmt.Sprintf("%s=%s", h.Name, h.Label(i)))
		}
		points[s] = append(points[s], opts.ScatterData{
			Name:       strings.Join(parts, ", "),
			Value:      []interface{}{xv, v},
			SymbolSize: symbol(i),
		})
	}

	kind := axisType(x)
	c := charts.NewScatter()
	c.SetGlobalOptions(append(l.globalOpts(title, "item"),
		charts.WithXAxisOpts(opts.XAxis{Name: l.XTitle, Type: kind}),
		charts.WithYAxisOpts(opts.YAxis{Name: l.YTitle, Type: "value"}),
	)...)
	if kind == "category" {
		c.SetXAxis(x.Distinct())
	} else {
		c.SetXAxis(nil)
	}
	for _, s := range order {
		c.AddSeries(s, points[s])
	}
	return c, nil
}

func (b *Builder) histogram(ds *dataset.Dataset, cfg Config, l Layout, title string) (components.Charter, error) {
	x, err := column(ds, FieldX, cfg.XColumn, true)
	if err != nil {
		return nil, err
	}

	bins := Bins(x.Floats(), cfg.Bins)
	labels := make([]string, len(bins))
	data := make([]opts.BarData, len(bins))
	for i, bin := range bins {
		labels[i] = bin.Label()
		data[i] = opts.BarData{Value: bin.Count}
	}

	c := charts.NewBar()
	c.SetGlobalOptions(append(l.globalOpts(title, "axis"),
		charts.WithXAxisOpts(opts.XAxis{Name: l.XTitle, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: l.YTitle, Type: "value"}),
	)...)
	c.SetXAxis(labels)
	c.AddSeries("count", data, charts.WithBarChartOpts(opts.BarChart{BarCategoryGap: "0%"}))
	return c, nil
}

func (b *Builder) box(ds *dataset.Dataset, cfg Config, l Layout, title string) (components.Charter, error) {
	y, err := column(ds, FieldY, cfg.YColumn, true)
	if err != nil {
		return nil, err
	}
	x, err := optionalColumn(ds, FieldX, cfg.XColumn, false)
	if err != nil {
		return nil, err
	}

	var groups []string
	samples := make(map[string][]float64)
	for i := 0; i < ds.Rows(); i++ {
		v, ok := y.Float(i)
		if !ok {
			continue
		}
		g := cfg.label(cfg.YColumn)
		if x != nil {
			if x.IsMissing(i) {
				continue
			}
			g = x.Label(i)
		}
		if _, seen := samples[g]; !seen {
			groups = append(groups, g)
		}
		samples[g] = append(samples[g], v)
	}

	data := make([]opts.BoxPlotData, len(groups))
	for i, g := range groups {
		s := stats.Describe(samples[g])
		data[i] = opts.BoxPlotData{Name: g, Value: []float64{s.Min, s.Q1, s.Median, s.Q3, s.Max}}
	}

	c := charts.NewBoxPlot()
	c.SetGlobalOptions(append(l.globalOpts(title, "item"),
		charts.WithXAxisOpts(opts.XAxis{Name: l.XTitle, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: l.YTitle, Type: "value"}),
	)...)
	c.SetXAxis(groups)
	c.AddSeries(cfg.label(cfg.YColumn), data)
	return c, nil
}

func (b *Builder) heatmap(t *Table, l Layout, title string) components.Charter {
	data := make([]opts.HeatMapData, 0, len(t.Index)*len(t.Columns))
	for r := range t.Index {
		for c := range t.Columns {
			v := t.Values[r][c]
			if math.IsNaN(v) {
				data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, "-"}})
				continue
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{c, r, v}})
		}
	}

	lo, hi, ok := t.Bounds()
	if !ok {
		lo, hi = 0, 1
	}
	ramp := l.Colors
	if len(ramp) == 0 {
		ramp = heatmapRamp
	}

	// the ramp belongs to the visual map, not the series palette
	l.Colors = nil
	c := charts.NewHeatMap()
	c.SetGlobalOptions(append(l.globalOpts(title, "item"),
		charts.WithXAxisOpts(opts.XAxis{Name: l.XTitle, Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: l.YTitle, Type: "category", Data: t.Index}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: true,
			Min:        float32(lo),
			Max:        float32(hi),
			InRange:    &opts.VisualMapInRange{Color: ramp},
		}),
	)...)
	c.SetXAxis(t.Columns)
	c.AddSeries(title, data)
	return c
}
