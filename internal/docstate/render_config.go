package docstate

import "strings"

// RenderConfig is the complete set of rendering parameters that affect the
// bytes of an artifact. It is compared as a unit: any differing field makes a
// cached artifact stale. New knobs belong here so they cannot be forgotten by
// the staleness check.
type RenderConfig struct {
	StyleProfile     string
	MaxDiagramWidth  Dimension
	MaxDiagramHeight Dimension
	// PageMargins holds the canonical margin string; "" means unset.
	PageMargins string
	PageNumbers bool
}

// Equal reports whether every field matches after normalization.
func (c RenderConfig) Equal(other RenderConfig) bool {
	return c == other
}

// Diff lists the stored column names whose values differ between c and other.
func (c RenderConfig) Diff(other RenderConfig) []string {
	var fields []string
	if c.StyleProfile != other.StyleProfile {
		fields = append(fields, "style_profile")
	}
	if c.MaxDiagramWidth != other.MaxDiagramWidth {
		fields = append(fields, "max_diagram_width")
	}
	if c.MaxDiagramHeight != other.MaxDiagramHeight {
		fields = append(fields, "max_diagram_height")
	}
	if c.PageMargins != other.PageMargins {
		fields = append(fields, "page_margins")
	}
	if c.PageNumbers != other.PageNumbers {
		fields = append(fields, "has_page_numbers")
	}
	return fields
}

// String renders the tuple for logs.
func (c RenderConfig) String() string {
	var b strings.Builder
	b.WriteString("profile=")
	b.WriteString(c.StyleProfile)
	b.WriteString(" width=")
	b.WriteString(orUnset(c.MaxDiagramWidth.String()))
	b.WriteString(" height=")
	b.WriteString(orUnset(c.MaxDiagramHeight.String()))
	b.WriteString(" margins=")
	b.WriteString(orUnset(c.PageMargins))
	if c.PageNumbers {
		b.WriteString(" page_numbers=on")
	} else {
		b.WriteString(" page_numbers=off")
	}
	return b.String()
}

func orUnset(s string) string {
	if s == "" {
		return "unset"
	}
	return s
}
