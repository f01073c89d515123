package render

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// diagramLanguages are fenced code languages left as code when no diagram
// tool rendered them.
var diagramLanguages = map[string]bool{
	"mermaid":  true,
	"plantuml": true,
}

// Page describes one HTML document to assemble.
type Page struct {
	Title    string
	Language string
	// Markdown is the preprocessed source.
	Markdown []byte
	// BaseDir resolves relative image paths.
	BaseDir          string
	Profile          config.Profile
	Margins          config.Margins
	PageNumbers      bool
	MaxDiagramWidth  docstate.Dimension
	MaxDiagramHeight docstate.Dimension
}

// HTMLBuilder renders markdown into a standalone, styled HTML page.
type HTMLBuilder struct {
	md    goldmark.Markdown
	page  *htmltemplate.Template
	style *texttemplate.Template
}

// NewHTMLBuilder parses the embedded templates.
func NewHTMLBuilder() *HTMLBuilder {
	return &HTMLBuilder{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			// Raw HTML in sources (page breaks, figures) must pass through.
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		page:  htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/page.html.tmpl")),
		style: texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/style.css.tmpl")),
	}
}

type styleData struct {
	Paginated        bool
	PageMargin       string
	PageNumbers      bool
	BaseFontSize     string
	H1, H2, H3       string
	H4, H5, H6       string
	Code             string
	DiagramMaxWidth  string
	DiagramMaxHeight string
}

// Stylesheet renders the profile CSS. paginated adds the @page rules used by
// the PDF printer.
func (b *HTMLBuilder) Stylesheet(p Page, paginated bool) (string, error) {
	scale := p.Profile.FontScale
	if scale <= 0 {
		scale = 1
	}
	em := func(f float64) string { return fmt.Sprintf("%.1fem", f*scale) }

	data := styleData{
		Paginated:        paginated,
		PageMargin:       cssMargins(p.Margins),
		PageNumbers:      p.PageNumbers,
		BaseFontSize:     p.Profile.BaseFontSize,
		H1:               em(1.6),
		H2:               em(1.3),
		H3:               em(1.1),
		H4:               em(1.0),
		H5:               em(0.9),
		H6:               em(0.8),
		Code:             em(0.8),
		DiagramMaxWidth:  cssDimension(p.MaxDiagramWidth),
		DiagramMaxHeight: cssDimension(p.MaxDiagramHeight),
	}
	if data.BaseFontSize == "" {
		data.BaseFontSize = "12px"
	}

	var buf bytes.Buffer
	if err := b.style.Execute(&buf, data); err != nil {
		return "", errors.InternalError("render stylesheet").WithCause(err).Build()
	}
	return buf.String(), nil
}

// Build renders the page to HTML for printing.
func (b *HTMLBuilder) Build(p Page) ([]byte, error) {
	var body bytes.Buffer
	if err := b.md.Convert(p.Markdown, &body); err != nil {
		return nil, errors.RenderError("convert markdown to HTML").WithCause(err).Build()
	}
	style, err := b.Stylesheet(p, true)
	if err != nil {
		return nil, err
	}

	lang := p.Language
	if lang == "" {
		lang = "en"
	}
	var page bytes.Buffer
	err = b.page.Execute(&page, struct {
		Title    string
		Language string
		Style    htmltemplate.CSS
		Body     htmltemplate.HTML
	}{
		Title:    p.Title,
		Language: lang,
		Style:    htmltemplate.CSS(style),          //nolint:gosec // generated from trusted templates
		Body:     htmltemplate.HTML(body.String()), //nolint:gosec // markdown output of the local source
	})
	if err != nil {
		return nil, errors.InternalError("render page template").WithCause(err).Build()
	}

	return rewriteDocument(page.Bytes(), p.BaseDir)
}

// rewriteDocument resolves relative image sources against baseDir as file://
// URLs and tags diagram code blocks with the "diagram" class.
func rewriteDocument(doc []byte, baseDir string) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, errors.RenderError("parse generated HTML").WithCause(err).Build()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Img:
				for i, a := range n.Attr {
					if a.Key == "src" {
						n.Attr[i].Val = resolveImageSource(a.Val, baseDir)
					}
				}
			case atom.Pre:
				if lang := codeLanguage(n); diagramLanguages[lang] {
					addClass(n, "diagram")
					n.Attr = append(n.Attr, html.Attribute{Key: "data-diagram", Val: lang})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	var out bytes.Buffer
	if err := html.Render(&out, root); err != nil {
		return nil, errors.RenderError("render HTML").WithCause(err).Build()
	}
	return out.Bytes(), nil
}

// resolveImageSource turns a relative path into an absolute file:// URL.
// URLs with a scheme, protocol-relative URLs and fragments are kept.
func resolveImageSource(src, baseDir string) string {
	if src == "" || strings.HasPrefix(src, "#") || strings.HasPrefix(src, "//") {
		return src
	}
	if u, err := url.Parse(src); err == nil && u.Scheme != "" {
		return src
	}
	path := src
	if unescaped, err := url.PathUnescape(src); err == nil {
		path = unescaped
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, filepath.FromSlash(path))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// codeLanguage returns the language of a <pre><code class="language-x"> block.
func codeLanguage(pre *html.Node) string {
	for c := pre.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Code {
			continue
		}
		for _, a := range c.Attr {
			if a.Key != "class" {
				continue
			}
			for _, cls := range strings.Fields(a.Val) {
				if lang, ok := strings.CutPrefix(cls, "language-"); ok {
					return strings.ToLower(lang)
				}
			}
		}
	}
	return ""
}

func addClass(n *html.Node, class string) {
	for i, a := range n.Attr {
		if a.Key == "class" {
			n.Attr[i].Val = strings.TrimSpace(a.Val + " " + class)
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "class", Val: class})
}

func cssMargins(m config.Margins) string {
	if m.Top.Unit == "" {
		m, _ = config.ParseMargins(config.DefaultMargins)
	}
	sides := []config.Margin{m.Top, m.Right, m.Bottom, m.Left}
	parts := make([]string, len(sides))
	for i, s := range sides {
		parts[i] = fmt.Sprintf("%.4gcm", s.Centimeters())
	}
	return strings.Join(parts, " ")
}

func cssDimension(d docstate.Dimension) string {
	if px, ok := d.PixelValue(); ok {
		return fmt.Sprintf("%dpx", px)
	}
	if pct, ok := d.PercentValue(); ok {
		return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
	}
	return "none"
}
