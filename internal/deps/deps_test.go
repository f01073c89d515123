package deps

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	ferrors "git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

func lookup(installed ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, name := range installed {
			if name == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestCheckPDF(t *testing.T) {
	report := CheckWith(config.FormatPDF, config.DefaultTools(), lookup("chromium"), "linux")
	require.Len(t, report.Tools, 1)
	assert.True(t, report.OK())
	assert.Equal(t, "/usr/bin/chromium", report.Tools[0].Path)
	assert.NoError(t, report.Err())
}

func TestCheckMOBINeedsBothTools(t *testing.T) {
	report := CheckWith(config.FormatMOBI, config.DefaultTools(), lookup("pandoc"), "darwin")
	require.Len(t, report.Tools, 2)
	assert.Equal(t, "epub", report.Tools[0].Stage)
	assert.Equal(t, "mobi", report.Tools[1].Stage)
	assert.False(t, report.OK())

	missing := report.Missing()
	require.Len(t, missing, 1)
	assert.Equal(t, "ebook-convert", missing[0].Command)
	assert.Equal(t, "brew install --cask calibre", missing[0].Hint)

	err := report.Err()
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryDependency))
}

func TestCheckEmptyCommand(t *testing.T) {
	tools := config.DefaultTools()
	tools.EPUBCommand = nil
	report := CheckWith(config.FormatEPUB, tools, lookup("pandoc"), "linux")
	require.Len(t, report.Tools, 1)
	assert.False(t, report.Tools[0].Found)
	assert.Contains(t, report.Tools[0].Hint, "configure a command")
}

func TestInstallHint(t *testing.T) {
	assert.Equal(t, "brew install pandoc", InstallHint("pandoc", "darwin"))
	assert.Contains(t, InstallHint("pandoc.exe", "windows"), "pandoc.org")
	assert.Contains(t, InstallHint("/opt/bin/ebook-convert", "linux"), "download_linux")
	assert.Equal(t, "install wkhtmltopdf and make sure it is on PATH", InstallHint("wkhtmltopdf", "linux"))
	assert.Equal(t, "brew install plantuml", InstallHint("plantuml", "darwin"))
	assert.Contains(t, InstallHint("", "linux"), "configure a command")
	assert.Contains(t, InstallHint("  ", "darwin"), "configure a command")
}

func TestCheckDiagramToolsAreOptional(t *testing.T) {
	report := CheckWith(config.FormatPDF, config.DefaultTools(), lookup("chromium", "mmdc"), "linux")
	require.Len(t, report.Diagrams, 2)
	assert.Equal(t, "mermaid", report.Diagrams[0].Stage)
	assert.True(t, report.Diagrams[0].Found)
	assert.Equal(t, "plantuml", report.Diagrams[1].Stage)
	assert.False(t, report.Diagrams[1].Found)
	assert.Equal(t, "sudo apt-get install plantuml", report.Diagrams[1].Hint)

	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
}

func TestCheckSkipsUnconfiguredDiagramTools(t *testing.T) {
	tools := config.DefaultTools()
	tools.MermaidCommand = nil
	tools.PlantUMLCommand = nil

	report := CheckWith(config.FormatEPUB, tools, lookup("pandoc"), "linux")
	assert.Empty(t, report.Diagrams)
	assert.True(t, report.OK())
}
