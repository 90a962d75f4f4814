// Package palette assigns display colours to bill categories.
//
// Colours are derived from a hash of the category id so the same category
// always gets the same colour, independent of the order categories are seen.
package palette

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strconv"
	"strings"
)

// DefaultColors is the fifteen colour category palette.
var DefaultColors = []string{
	"#2196F3", "#4CAF50", "#FF9800", "#F44336", "#9C27B0",
	"#00BCD4", "#FFEB3B", "#795548", "#E91E63", "#3F51B5",
	"#009688", "#FF5722", "#8BC34A", "#FFC107", "#673AB7",
}

// ErrInvalidOpacity is returned for NaN or infinite opacities.
var ErrInvalidOpacity = errors.New("opacity must be a finite number")

// Palette maps category ids onto a fixed list of colours.
type Palette struct {
	colors []string
}

// New builds a palette. An empty list falls back to DefaultColors.
func New(colors ...string) *Palette {
	if len(colors) == 0 {
		colors = DefaultColors
	}
	return &Palette{colors: append([]string(nil), colors...)}
}

// ColorFor returns the colour for a category id. Ids are compared
// case-insensitively and without surrounding spaces.
func (p *Palette) ColorFor(categoryID string) string {
	key := strings.ToLower(strings.TrimSpace(categoryID))
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return p.colors[h.Sum32()%uint32(len(p.colors))]
}

// Size returns the number of colours in the palette.
func (p *Palette) Size() int {
	return len(p.colors)
}

// WithOpacity converts #RRGGBB into an rgba() string.
func WithOpacity(hex string, opacity float64) (string, error) {
	h := strings.TrimPrefix(hex, "#")
	if len(h) != 6 {
		return "", fmt.Errorf("invalid hex colour %q", hex)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return "", fmt.Errorf("invalid hex colour %q: %w", hex, err)
	}
	if math.IsNaN(opacity) || math.IsInf(opacity, 0) {
		return "", ErrInvalidOpacity
	}
	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", v>>16&0xff, v>>8&0xff, v&0xff,
		strconv.FormatFloat(opacity, 'f', -1, 64)), nil
}
