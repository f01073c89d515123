package config

import (
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// Format is an output artifact type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
	FormatMOBI Format = "mobi"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatPDF, FormatEPUB, FormatMOBI}
}

// ParseFormat normalizes raw (case-insensitive, trimmed) into a Format.
func ParseFormat(raw string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FormatPDF, FormatEPUB, FormatMOBI:
		return f, nil
	default:
		return "", errors.ValidationError("invalid output format").
			WithContext("format", raw).
			WithContext("valid", "pdf, epub, mobi").
			Build()
	}
}

// IsEbook reports whether the format is reflowable. Ebooks have no page
// margins or page numbers.
func (f Format) IsEbook() bool {
	return f == FormatEPUB || f == FormatMOBI
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}
