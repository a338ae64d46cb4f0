// Package chart maps declarative chart configurations onto ECharts figures.
package chart

import (
	"fmt"
	"strings"
)

// Type is one of the closed set of chart kinds.
type Type string

const (
	Bar       Type = "bar"
	Line      Type = "line"
	Pie       Type = "pie"
	Scatter   Type = "scatter"
	Histogram Type = "histogram"
	Box       Type = "box"
	Heatmap   Type = "heatmap"
	Area      Type = "area"
)

var allTypes = []Type{Bar, Line, Pie, Scatter, Histogram, Box, Heatmap, Area}

// Types lists the supported chart types.
func Types() []Type {
	out := make([]Type, len(allTypes))
	copy(out, allTypes)
	return out
}

// Valid reports whether t is a supported type.
func (t Type) Valid() bool {
	for _, k := range allTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Configuration field names, as they appear in JSON.
const (
	FieldX       = "x_column"
	FieldY       = "y_column"
	FieldColor   = "color_column"
	FieldValues  = "values_column"
	FieldNames   = "names_column"
	FieldZ       = "z_column"
	FieldSize    = "size_column"
	FieldHover   = "hover_data"
	FieldOrient  = "orientation"
	FieldMarkers = "markers"
	FieldBins    = "bins"
	FieldHole    = "hole"
)

// Requirement lists the fields a chart type needs and accepts.
type Requirement struct {
	Required []string `json:"required"`
	Optional []string `json:"optional"`
}

var requirements = map[Type]Requirement{
	Bar:       {Required: []string{FieldX, FieldY}, Optional: []string{FieldColor, FieldOrient}},
	Line:      {Required: []string{FieldX, FieldY}, Optional: []string{FieldColor, FieldMarkers}},
	Pie:       {Required: []string{FieldValues, FieldNames}, Optional: []string{FieldHole}},
	Scatter:   {Required: []string{FieldX, FieldY}, Optional: []string{FieldColor, FieldSize, FieldHover}},
	Histogram: {Required: []string{FieldX}, Optional: []string{FieldBins}},
	Box:       {Required: []string{FieldY}, Optional: []string{FieldX}},
	Heatmap:   {Required: []string{FieldX, FieldY, FieldZ}, Optional: []string{}},
	Area:      {Required: []string{FieldX, FieldY}, Optional: []string{FieldColor}},
}

// Requirements returns the field table for t; ok is false for unknown types.
func Requirements(t Type) (Requirement, bool) {
	r, ok := requirements[t]
	if !ok {
		return Requirement{}, false
	}
	return Requirement{
		Required: append([]string(nil), r.Required...),
		Optional: append([]string(nil), r.Optional...),
	}, true
}

// Config is the declarative description of one chart.
type Config struct {
	Type         Type              `json:"type" yaml:"type"`
	XColumn      string            `json:"x_column,omitempty" yaml:"x_column,omitempty"`
	YColumn      string            `json:"y_column,omitempty" yaml:"y_column,omitempty"`
	ColorColumn  string            `json:"color_column,omitempty" yaml:"color_column,omitempty"`
	ValuesColumn string            `json:"values_column,omitempty" yaml:"values_column,omitempty"`
	NamesColumn  string            `json:"names_column,omitempty" yaml:"names_column,omitempty"`
	ZColumn      string            `json:"z_column,omitempty" yaml:"z_column,omitempty"`
	SizeColumn   string            `json:"size_column,omitempty" yaml:"size_column,omitempty"`
	HoverData    []string          `json:"hover_data,omitempty" yaml:"hover_data,omitempty"`
	Orientation  string            `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Markers      *bool             `json:"markers,omitempty" yaml:"markers,omitempty"`
	Bins         int               `json:"bins,omitempty" yaml:"bins,omitempty"`
	Hole         float64           `json:"hole,omitempty" yaml:"hole,omitempty"`
	Title        string            `json:"title,omitempty" yaml:"title,omitempty"`
	Height       int               `json:"height,omitempty" yaml:"height,omitempty"`
	ColorScheme  string            `json:"color_scheme,omitempty" yaml:"color_scheme,omitempty"`
	XLabel       string            `json:"x_label,omitempty" yaml:"x_label,omitempty"`
	YLabel       string            `json:"y_label,omitempty" yaml:"y_label,omitempty"`
	HideLegend   bool              `json:"hide_legend,omitempty" yaml:"hide_legend,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// field returns the column-valued field by JSON name.
func (c Config) field(name string) string {
	switch name {
	case FieldX:
		return c.XColumn
	case FieldY:
		return c.YColumn
	case FieldColor:
		return c.ColorColumn
	case FieldValues:
		return c.ValuesColumn
	case FieldNames:
		return c.NamesColumn
	case FieldZ:
		return c.ZColumn
	case FieldSize:
		return c.SizeColumn
	}
	return ""
}

// Validate checks the type and its required fields, without looking at data.
func (c Config) Validate() error {
	req, ok := requirements[c.Type]
	if !ok {
		if c.Type == "" {
			return fmt.Errorf("%w: type is required", ErrUnsupportedType)
		}
		return fmt.Errorf("%w: %q", ErrUnsupportedType, c.Type)
	}
	for _, f := range req.Required {
		if strings.TrimSpace(c.field(f)) == "" {
			return &MissingFieldError{Type: c.Type, Field: f}
		}
	}
	if c.Orientation != "" && c.Orientation != "v" && c.Orientation != "h" {
		return fmt.Errorf("%w: orientation must be \"v\" or \"h\", got %q", ErrInvalidOption, c.Orientation)
	}
	if c.Hole < 0 || c.Hole >= 1 {
		return fmt.Errorf("%w: hole must be in [0, 1), got %v", ErrInvalidOption, c.Hole)
	}
	if c.Bins < 0 {
		return fmt.Errorf("%w: bins must not be negative, got %d", ErrInvalidOption, c.Bins)
	}
	if c.Height < 0 {
		return fmt.Errorf("%w: height must not be negative, got %d", ErrInvalidOption, c.Height)
	}
	if c.ColorScheme != "" {
		if _, err := Palette(c.ColorScheme); err != nil {
			return err
		}
	}
	return nil
}

// DefaultTitle is the title used when the configuration has none.
func (c Config) DefaultTitle() string {
	switch c.Type {
	case Bar:
		return fmt.Sprintf("%s by %s", c.YColumn, c.XColumn)
	case Line, Area:
		return fmt.Sprintf("%s over %s", c.YColumn, c.XColumn)
	case Pie:
		return fmt.Sprintf("%s by %s", c.ValuesColumn, c.NamesColumn)
	case Scatter:
		return fmt.Sprintf("%s vs %s", c.YColumn, c.XColumn)
	case Histogram:
		return "Distribution of " + c.XColumn
	case Box:
		return "Box Plot of " + c.YColumn
	case Heatmap:
		return "Heatmap of " + c.ZColumn
	}
	return ""
}

// ResolvedTitle returns Title or the default.
func (c Config) ResolvedTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return c.DefaultTitle()
}

// label returns the axis name for a column honouring the labels map.
func (c Config) label(column string) string {
	if l, ok := c.Labels[column]; ok && l != "" {
		return l
	}
	return column
}

func (c Config) markers() bool {
	return c.Markers == nil || *c.Markers
}
