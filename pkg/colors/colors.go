// Package colors provides the shared color palette and the color math used
// to de-emphasize graph elements during focus and selection.
package colors

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultPalette is consumed front-to-back when labels are first seen.
// Once exhausted, nodes render colorless rather than failing.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
	"#aec7e8", "#ffbb78", "#98df8a", "#ff9896", "#c5b0d5",
	"#c49c94", "#f7b6d2", "#c7c7c7", "#dbdb8d", "#9edae5",
}

// ParseHex parses a #RRGGBB color into its channel values.
func ParseHex(hex string) (r, g, b int, err error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q", hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}

	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), nil
}

// Lighten interpolates each RGB channel of a hex color linearly toward
// white by the given fraction. amount 0 returns the color unchanged,
// amount 1 returns white. Invalid colors are returned as-is so a render
// frame never fails over a bad channel value.
func Lighten(hex string, amount float64) string {
	r, g, b, err := ParseHex(hex)
	if err != nil {
		return hex
	}

	if amount < 0 {
		amount = 0
	}
	if amount > 1 {
		amount = 1
	}

	lerp := func(c int) int {
		return c + int(float64(255-c)*amount)
	}

	return fmt.Sprintf("#%02x%02x%02x", lerp(r), lerp(g), lerp(b))
}
