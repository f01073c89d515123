// Package version reports which mdconvert build is running.
package version

import "strings"

// Build metadata, stamped by the release build:
//
//	go build -ldflags "-X git.home.luguber.info/inful/mdconvert/internal/version.Version=v0.3.0 \
//	  -X git.home.luguber.info/inful/mdconvert/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// String renders the --version line. Unstamped fields are left out, so a local
// build prints just "mdconvert dev".
func String() string {
	line := "mdconvert " + Version
	var meta []string
	if GitCommit != "" {
		meta = append(meta, "commit "+GitCommit)
	}
	if BuildTime != "" {
		meta = append(meta, "built "+BuildTime)
	}
	if len(meta) > 0 {
		line += " (" + strings.Join(meta, ", ") + ")"
	}
	return line
}
