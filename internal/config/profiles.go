package config

import (
	"slices"
	"sort"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// Profile is a named style preset.
type Profile struct {
	Name         string
	DisplayName  string
	Description  string
	FontScale    float64
	BaseFontSize string
	Formats      []Format
	// Print profiles are paginated and drop "Table of contents" sections.
	Print bool
}

// Supports reports whether the profile can produce format f.
func (p Profile) Supports(f Format) bool {
	return slices.Contains(p.Formats, f)
}

// DefaultProfile is used when no profile is configured.
const DefaultProfile = "a4-print"

var profiles = map[string]Profile{
	"a4-print": {
		Name:         "a4-print",
		DisplayName:  "A4 Print (Default)",
		Description:  "Standard print-optimized styling with 12px base font",
		FontScale:    1.0,
		BaseFontSize: "12px",
		Formats:      []Format{FormatPDF},
		Print:        true,
	},
	"a4-screen": {
		Name:         "a4-screen",
		DisplayName:  "A4 Screen (Large)",
		Description:  "Screen-optimized styling with 30% larger fonts for better readability",
		FontScale:    1.3,
		BaseFontSize: "15.6px",
		Formats:      []Format{FormatPDF},
		Print:        true,
	},
	"kindle-basic": {
		Name:         "kindle-basic",
		DisplayName:  "Kindle Basic",
		Description:  "Basic Kindle formatting optimized for e-ink displays",
		FontScale:    1.0,
		BaseFontSize: "12px",
		Formats:      []Format{FormatEPUB, FormatMOBI},
	},
	"kindle-large": {
		Name:         "kindle-large",
		DisplayName:  "Kindle Large Text",
		Description:  "Large text for better readability on Kindle devices",
		FontScale:    1.2,
		BaseFontSize: "14px",
		Formats:      []Format{FormatEPUB, FormatMOBI},
	},
	"kindle-paperwhite-11": {
		Name:         "kindle-paperwhite-11",
		DisplayName:  "Kindle Paperwhite 11th Gen",
		Description:  "Optimized for Kindle Paperwhite 11th generation (6.8\" 300ppi display)",
		FontScale:    1.1,
		BaseFontSize: "13px",
		Formats:      []Format{FormatEPUB, FormatMOBI},
	},
}

// Profiles returns the catalog sorted by name.
func Profiles() []Profile {
	out := make([]Profile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LookupProfile returns the named profile.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return Profile{}, errors.ValidationError("unknown style profile").
			WithContext("profile", name).
			WithContext("valid", strings.Join(names, ", ")).
			Build()
	}
	return p, nil
}

// DefaultProfileFor returns the default profile for format f.
func DefaultProfileFor(f Format) string {
	if f.IsEbook() {
		return "kindle-basic"
	}
	return DefaultProfile
}
