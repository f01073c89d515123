package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		content string
		want    string
	}{
		{"atx", "doc.md", "intro\n\n# Hello *World*\n\n# Second\n", "Hello World"},
		{"setext", "doc.md", "My Doc\n======\n\nbody\n", "My Doc"},
		{"code span", "doc.md", "# The `convert` command\n", "The convert command"},
		{"skips level two", "user_guide.md", "## Not a title\n", "User Guide"},
		{"heading inside fence", "release-notes.md", "```\n# nope\n```\n", "Release Notes"},
		{"empty", "a_b-c.md", "", "A B C"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.path, []byte(tt.content)))
		})
	}
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "Getting Started Guide", TitleFromFilename("/docs/getting_started-guide.md"))
	assert.Equal(t, "Readme", TitleFromFilename("README.md"))
	assert.Equal(t, "___", TitleFromFilename("___.md"))
}
