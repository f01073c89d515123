package config

import (
	"regexp"
	"strconv"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// DefaultMargins are the page margins used for PDF output when none are configured.
const DefaultMargins = "1in 0.75in"

// maxMarginInches bounds each margin value.
const maxMarginInches = 3.0

var marginPattern = regexp.MustCompile(`^(-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)\s*(cm|in|mm|pt|px)?$`)

// inchesPer converts one unit to inches.
var inchesPer = map[string]float64{
	"in": 1,
	"cm": 1 / 2.54,
	"mm": 1 / 25.4,
	"pt": 1.0 / 72,
	"px": 1.0 / 96,
}

// Margin is one CSS length.
type Margin struct {
	Value float64
	Unit  string
}

// String returns the canonical form, e.g. "0.75in".
func (m Margin) String() string {
	return strconv.FormatFloat(m.Value, 'f', -1, 64) + m.Unit
}

// Centimeters converts the margin to cm.
func (m Margin) Centimeters() float64 {
	return m.Value * inchesPer[m.Unit] * 2.54
}

// Margins holds the four page sides.
type Margins struct {
	Top, Right, Bottom, Left Margin
	// values keeps the original count for the canonical form.
	values []Margin
}

// String returns the canonical margin specification, preserving the number of
// values given (1, 2 or 4).
func (m Margins) String() string {
	parts := make([]string, len(m.values))
	for i, v := range m.values {
		parts[i] = v.String()
	}
	return strings.Join(parts, " ")
}

// ParseMargins parses a CSS-like margin shorthand of 1, 2 or 4 values. Units
// default to inches and every side must lie between 0 and 3 inches.
func ParseMargins(raw string) (Margins, error) {
	fields := strings.Fields(raw)
	values := make([]Margin, 0, len(fields))
	for _, f := range fields {
		m, err := parseMargin(f)
		if err != nil {
			return Margins{}, err
		}
		values = append(values, m)
	}

	out := Margins{values: values}
	switch len(values) {
	case 1:
		out.Top, out.Right, out.Bottom, out.Left = values[0], values[0], values[0], values[0]
	case 2:
		out.Top, out.Right, out.Bottom, out.Left = values[0], values[1], values[0], values[1]
	case 4:
		out.Top, out.Right, out.Bottom, out.Left = values[0], values[1], values[2], values[3]
	default:
		return Margins{}, errors.ValidationError("invalid margin format, use 1, 2 or 4 values").
			WithContext("margins", raw).
			Build()
	}
	return out, nil
}

// NormalizeMargins returns the canonical form of raw.
func NormalizeMargins(raw string) (string, error) {
	m, err := ParseMargins(raw)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

func parseMargin(raw string) (Margin, error) {
	match := marginPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if match == nil {
		return Margin{}, errors.ValidationError("invalid margin value, use a length like 1in, 2.5cm or 10mm").
			WithContext("margin", raw).
			Build()
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Margin{}, errors.ValidationError("invalid margin value").
			WithContext("margin", raw).
			WithCause(err).
			Build()
	}
	unit := match[2]
	if unit == "" {
		unit = "in"
	}

	inches := value * inchesPer[unit]
	if inches < 0 {
		return Margin{}, errors.ValidationError("margin cannot be negative").
			WithContext("margin", raw).
			Build()
	}
	if inches > maxMarginInches {
		return Margin{}, errors.ValidationError("margin too large, maximum is 3 inches (7.62cm)").
			WithContext("margin", raw).
			Build()
	}
	// -0 would print as "-0in".
	if value == 0 {
		value = 0
	}
	return Margin{Value: value, Unit: unit}, nil
}
