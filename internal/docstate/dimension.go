package docstate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// DimensionKind tags the variant held by a Dimension.
type DimensionKind uint8

const (
	// DimensionUnset means no constraint.
	DimensionUnset DimensionKind = iota
	// DimensionPixels caps the rendered size at an absolute pixel count.
	DimensionPixels
	// DimensionPercent scales the rendered size by a percentage (0 < p <= 100).
	DimensionPercent
)

// Dimension is a diagram size constraint: unset, a pixel count or a percentage.
// The zero value is unset. Dimensions are comparable and two Dimensions are
// equal iff their canonical String forms are equal.
type Dimension struct {
	kind    DimensionKind
	pixels  int
	percent float64
}

// Pixels returns a pixel-count dimension. A count below 1 yields the unset
// dimension, since it could not be stored and read back.
func Pixels(n int) Dimension {
	if n <= 0 {
		return Dimension{}
	}
	return Dimension{kind: DimensionPixels, pixels: n}
}

// Percent returns a percentage dimension. Values outside (0, 100], NaN and
// infinities yield the unset dimension.
func Percent(p float64) Dimension {
	if math.IsNaN(p) || p <= 0 || p > 100 {
		return Dimension{}
	}
	return Dimension{kind: DimensionPercent, percent: p}
}

// Kind returns the variant tag.
func (d Dimension) Kind() DimensionKind { return d.kind }

// IsSet reports whether the dimension constrains anything.
func (d Dimension) IsSet() bool { return d.kind != DimensionUnset }

// PixelValue returns the pixel count and whether d is a pixel dimension.
func (d Dimension) PixelValue() (int, bool) {
	return d.pixels, d.kind == DimensionPixels
}

// PercentValue returns the percentage and whether d is a percent dimension.
func (d Dimension) PercentValue() (float64, bool) {
	return d.percent, d.kind == DimensionPercent
}

// String returns the canonical form: "" when unset, "1680" for pixels, "80%" or
// "80.5%" for percentages.
func (d Dimension) String() string {
	switch d.kind {
	case DimensionPixels:
		return strconv.Itoa(d.pixels)
	case DimensionPercent:
		return strconv.FormatFloat(d.percent, 'f', -1, 64) + "%"
	default:
		return ""
	}
}

// Apply returns the target size for a rendered size, and whether a resize is
// needed. Pixel limits only shrink; percentages always scale.
func (d Dimension) Apply(rendered int) (int, bool) {
	switch d.kind {
	case DimensionPixels:
		if rendered > d.pixels {
			return d.pixels, true
		}
		return rendered, false
	case DimensionPercent:
		return int(float64(rendered) * d.percent / 100.0), true
	default:
		return rendered, false
	}
}

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (d Dimension) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler via ParseDimension.
func (d *Dimension) UnmarshalText(text []byte) error {
	parsed, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDimension parses "1680", "80%" or "" (unset). Surrounding whitespace is
// ignored. Pixel counts must be positive and percentages must lie in (0, 100].
func ParseDimension(raw string) (Dimension, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Dimension{}, nil
	}

	if num, ok := strings.CutSuffix(s, "%"); ok {
		p, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil || math.IsNaN(p) || math.IsInf(p, 0) {
			return Dimension{}, invalidDimension(raw, "not a number")
		}
		if p <= 0 {
			return Dimension{}, invalidDimension(raw, "percentage must be greater than 0%")
		}
		if p > 100 {
			return Dimension{}, invalidDimension(raw, "percentage cannot exceed 100%; use absolute pixel values for larger sizes")
		}
		return Percent(p), nil
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return Dimension{}, invalidDimension(raw, "expected pixels (e.g. 1680) or a percentage (e.g. 80%)")
	}
	if n <= 0 {
		return Dimension{}, invalidDimension(raw, "pixel value must be positive")
	}
	return Pixels(n), nil
}

func invalidDimension(raw, reason string) error {
	return errors.ValidationError(fmt.Sprintf("invalid dimension %q: %s", raw, reason)).
		WithContext("value", raw).
		Build()
}
