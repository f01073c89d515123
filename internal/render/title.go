package render

import (
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ExtractTitle returns the text of the first level 1 heading (ATX or setext)
// or, when there is none, the file stem with separators turned into spaces and
// title-cased.
func ExtractTitle(path string, content []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(content))

	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok && h.Level == 1 {
			if t := strings.TrimSpace(inlineText(h, content)); t != "" {
				title = t
				return gmast.WalkStop, nil
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	if title != "" {
		return title
	}
	return TitleFromFilename(path)
}

// TitleFromFilename humanizes a file stem: "getting_started-guide.md" becomes
// "Getting Started Guide".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	human := strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
	if human == "" {
		return stem
	}
	return cases.Title(language.Und).String(human)
}

func inlineText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.AutoLink:
			b.Write(t.Label(source))
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
