package chart

import (
	"fmt"
	"sort"
	"strings"
)

var palettes = map[string][]string{
	"Blues":   {"#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Reds":    {"#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"Greens":  {"#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Viridis": {"#440154", "#482878", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"},
	"Plasma":  {"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786", "#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921"},
}

// heatmapRamp is used for heatmaps without a color scheme.
var heatmapRamp = []string{"#313695", "#4575b4", "#74add1", "#abd9e9", "#e0f3f8", "#ffffbf", "#fee090", "#fdae61", "#f46d43", "#d73027", "#a50026"}

// Palette returns the colors of a named scheme; names match case-insensitively.
func Palette(name string) ([]string, error) {
	for k, colors := range palettes {
		if strings.EqualFold(k, name) {
			return append([]string(nil), colors...), nil
		}
	}
	return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownPalette, name, strings.Join(PaletteNames(), ", "))
}

// PaletteNames lists the available schemes, sorted.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
