// Package render composes the terminal dashboard: proportional cpu bars, the
// per-task table, and the in-place frame refresh via ANSI cursor movement.
package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBarRange marks a bar sub-index outside [0,9]. The index is derived from
// a percentage in [0,100], so an out-of-range value is a logic defect and the
// caller must fail rather than render garbage.
var ErrBarRange = errors.New("bar sub-index out of range")

// barGlyphs is the partial-block ramp, heaviest fill first.
var barGlyphs = [8]rune{'█', '▉', '▊', '▋', '▌', '▍', '▎', '▏'}

// Bar renders a percentage as a horizontal bar: one full block per 10%, plus
// a single partial-block glyph for the remainder. An undefined percentage
// (has=false) renders as an empty bar.
func Bar(percent float64, has bool) (string, error) {
	if !has {
		return "", nil
	}
	whole := int(percent / 10)
	sub := int((percent - float64(whole)*10) * 9 / 10)
	if sub < 0 || sub > 9 {
		return "", fmt.Errorf("%w: %d for %.3f%%", ErrBarRange, sub, percent)
	}
	var b strings.Builder
	for i := 0; i < whole; i++ {
		b.WriteRune('█')
	}
	if sub > 0 {
		idx := len(barGlyphs) - sub
		if idx < 0 {
			idx = 0
		}
		b.WriteRune(barGlyphs[idx])
	}
	return b.String(), nil
}
