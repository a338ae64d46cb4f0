package chart

import (
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Styling applied to every figure.
const (
	DefaultHeight = 400
	FontSize      = 12
	TitleFontSize = 16
)

// Margin is the plot margin in pixels.
type Margin struct {
	Left   int `json:"l"`
	Right  int `json:"r"`
	Top    int `json:"t"`
	Bottom int `json:"b"`
}

// DefaultMargin leaves room for the title above the plot.
var DefaultMargin = Margin{Left: 20, Right: 20, Top: 60, Bottom: 20}

// Layout is the resolved styling of a figure.
type Layout struct {
	Height        int      `json:"height"`
	FontSize      int      `json:"font_size"`
	TitleFontSize int      `json:"title_font_size"`
	Margin        Margin   `json:"margin"`
	ShowLegend    bool     `json:"show_legend"`
	XTitle        string   `json:"x_title,omitempty"`
	YTitle        string   `json:"y_title,omitempty"`
	Colors        []string `json:"colors,omitempty"`
	Theme         string   `json:"theme"`
}

// resolveLayout applies the common post-processing rules to cfg.
func (b *Builder) resolveLayout(cfg Config) (Layout, error) {
	l := Layout{
		Height:        cfg.Height,
		FontSize:      FontSize,
		TitleFontSize: TitleFontSize,
		Margin:        DefaultMargin,
		ShowLegend:    !cfg.HideLegend,
		Theme:         b.theme,
	}
	if l.Height == 0 {
		l.Height = b.height
	}

	xCol, yCol := axisColumns(cfg)
	if xCol != "" {
		l.XTitle = cfg.label(xCol)
	}
	if yCol != "" {
		l.YTitle = cfg.label(yCol)
	}
	if cfg.XLabel != "" {
		l.XTitle = cfg.XLabel
	}
	if cfg.YLabel != "" {
		l.YTitle = cfg.YLabel
	}

	if cfg.ColorScheme != "" {
		colors, err := Palette(cfg.ColorScheme)
		if err != nil {
			return Layout{}, err
		}
		l.Colors = colors
	}
	return l, nil
}

// axisColumns names the columns plotted on each axis of a chart type.
func axisColumns(cfg Config) (string, string) {
	switch cfg.Type {
	case Pie:
		return "", ""
	case Histogram:
		return cfg.XColumn, "count"
	default:
		return cfg.XColumn, cfg.YColumn
	}
}

func px(n int) string {
	return fmt.Sprintf("%dpx", n)
}

// globalOpts are the options shared by every chart type. trigger selects
// the tooltip mode ("axis" or "item").
func (l Layout) globalOpts(title, trigger string) []charts.GlobalOpts {
	options := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Theme:  l.Theme,
			Width:  "100%",
			Height: px(l.Height),
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      title,
			Left:       "center",
			TitleStyle: &opts.TextStyle{FontSize: l.TitleFontSize},
		}),
		charts.WithLegendOpts(opts.Legend{
			Show:      l.ShowLegend,
			Top:       "bottom",
			TextStyle: &opts.TextStyle{FontSize: l.FontSize},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    true,
			Trigger: trigger,
		}),
		charts.WithGridOpts(opts.Grid{
			Left:         px(l.Margin.Left),
			Right:        px(l.Margin.Right),
			Top:          px(l.Margin.Top),
			Bottom:       px(l.Margin.Bottom + 30),
			ContainLabel: true,
		}),
	}
	if len(l.Colors) > 0 {
		options = append(options, charts.WithColorsOpts(opts.Colors(l.Colors)))
	}
	return options
}
