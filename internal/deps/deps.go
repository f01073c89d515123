// Package deps checks that the external converters for an output format are
// installed and suggests how to install the missing ones.
package deps

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

// Tool is the result of one lookup.
type Tool struct {
	// Stage is the step the tool serves: pdf, epub, mobi or a diagram language.
	Stage   string
	Command string
	Path    string
	Found   bool
	Hint    string
}

// Report lists the tools a format needs.
type Report struct {
	Format config.Format
	Tools  []Tool
	// Diagrams are the configured diagram tools. A missing one only leaves
	// its diagrams as code blocks, so it never fails the report.
	Diagrams []Tool
}

// OK reports whether every tool was found.
func (r Report) OK() bool {
	return len(r.Missing()) == 0
}

// Missing returns the tools that were not found.
func (r Report) Missing() []Tool {
	var out []Tool
	for _, t := range r.Tools {
		if !t.Found {
			out = append(out, t)
		}
	}
	return out
}

// Err returns a dependency error naming the missing tools, or nil.
func (r Report) Err() error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, t := range missing {
		names[i] = t.Command
	}
	return errors.DependencyError("required converter tools are not installed").
		WithContext("format", string(r.Format)).
		WithContext("missing", strings.Join(names, ", ")).
		Build()
}

// LookPathFunc resolves a command name to an executable path.
type LookPathFunc func(file string) (string, error)

// Check looks up the tools format f needs on PATH.
func Check(f config.Format, tools config.ToolsConfig) Report {
	return CheckWith(f, tools, exec.LookPath, runtime.GOOS)
}

// CheckWith is Check with an injectable lookup and target OS.
func CheckWith(f config.Format, tools config.ToolsConfig, lookPath LookPathFunc, goos string) Report {
	report := Report{Format: f}
	for _, stage := range stagesFor(f) {
		report.Tools = append(report.Tools, lookupTool(string(stage), tools.Command(stage), lookPath, goos))
	}
	for _, lang := range config.DiagramLanguages() {
		if argv := tools.DiagramCommand(lang); len(argv) > 0 {
			report.Diagrams = append(report.Diagrams, lookupTool(lang, argv, lookPath, goos))
		}
	}
	return report
}

func lookupTool(stage string, argv []string, lookPath LookPathFunc, goos string) Tool {
	t := Tool{Stage: stage}
	if len(argv) > 0 {
		t.Command = argv[0]
		if path, err := lookPath(argv[0]); err == nil {
			t.Path, t.Found = path, true
		}
	}
	if !t.Found {
		t.Hint = InstallHint(t.Command, goos)
	}
	return t
}

// stagesFor returns the tool stages in run order. MOBI is produced from an
// intermediate EPUB.
func stagesFor(f config.Format) []config.Format {
	switch f {
	case config.FormatEPUB:
		return []config.Format{config.FormatEPUB}
	case config.FormatMOBI:
		return []config.Format{config.FormatEPUB, config.FormatMOBI}
	default:
		return []config.Format{config.FormatPDF}
	}
}

// InstallHint suggests how to install command on goos.
func InstallHint(command, goos string) string {
	if strings.TrimSpace(command) == "" {
		return "configure a command for this format under tools in the configuration file"
	}
	name := strings.TrimSuffix(filepath.Base(command), ".exe")
	switch name {
	case "pandoc":
		switch goos {
		case "windows":
			return "download from https://pandoc.org/installing.html and add it to PATH"
		case "darwin":
			return "brew install pandoc"
		default:
			return "sudo apt-get install pandoc (or: sudo dnf install pandoc)"
		}
	case "ebook-convert":
		switch goos {
		case "windows":
			return "download calibre from https://calibre-ebook.com/download and install it"
		case "darwin":
			return "brew install --cask calibre"
		default:
			return "see https://calibre-ebook.com/download_linux"
		}
	case "chromium", "chromium-browser", "google-chrome", "chrome":
		switch goos {
		case "windows":
			return "install Google Chrome and set tools.pdf_command to its full path"
		case "darwin":
			return "brew install --cask chromium"
		default:
			return "sudo apt-get install chromium (or: sudo dnf install chromium)"
		}
	case "mmdc":
		return "npm install -g @mermaid-js/mermaid-cli"
	case "plantuml":
		switch goos {
		case "windows":
			return "download plantuml from https://plantuml.com/download and add a plantuml wrapper to PATH"
		case "darwin":
			return "brew install plantuml"
		default:
			return "sudo apt-get install plantuml"
		}
	default:
		return "install " + name + " and make sure it is on PATH"
	}
}
