package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/image/draw"

	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
)

// diagramBlock matches a fenced mermaid or plantuml block, optionally preceded
// by a "<!-- no-resize -->" line that keeps the rendered size.
var diagramBlock = regexp.MustCompile("(?s)(<!--\\s*no-resize\\s*-->[ \\t]*\\r?\\n)?```(mermaid|plantuml)[ \\t]*\\r?\\n(.*?)\\r?\\n```")

var diagramSourceExt = map[string]string{
	"mermaid":  ".mmd",
	"plantuml": ".puml",
}

// renderDiagrams replaces diagram blocks with images made by the configured
// diagram tools. A block whose language has no command, or whose tool fails,
// is kept as code.
func (r *ToolRenderer) renderDiagrams(ctx context.Context, job Job, paths jobPaths, content string) string {
	matches := diagramBlock.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var b strings.Builder
	last := 0
	for i, m := range matches {
		b.WriteString(content[last:m[0]])
		last = m[1]

		d := diagram{
			index:    i,
			lang:     content[m[4]:m[5]],
			source:   content[m[6]:m[7]],
			noResize: m[2] >= 0,
		}
		img, ok := r.renderDiagram(ctx, job, paths, d)
		if !ok {
			b.WriteString(content[m[0]:m[1]])
			continue
		}
		b.WriteString("![](<" + filepath.ToSlash(img) + ">)")
	}
	b.WriteString(content[last:])
	return b.String()
}

type diagram struct {
	index    int
	lang     string
	source   string
	noResize bool
}

func (r *ToolRenderer) renderDiagram(ctx context.Context, job Job, paths jobPaths, d diagram) (string, bool) {
	template := r.tools.DiagramCommand(d.lang)
	if len(template) == 0 {
		return "", false
	}
	logger := r.logger.With(logfields.Document(job.ID), slog.String("diagram", d.lang), slog.Int("index", d.index))

	name := fmt.Sprintf("%s_%s_%d", d.lang, paths.stem, d.index)
	input := filepath.Join(paths.temp, name+diagramSourceExt[d.lang])
	output := filepath.Join(paths.temp, name+".png")
	if err := writeTemp(input, []byte(d.source)); err != nil {
		logger.Warn("Keeping diagram as code", logfields.Error(err))
		return "", false
	}
	if err := removeStale(output); err != nil {
		logger.Warn("Keeping diagram as code", logfields.Error(err))
		return "", false
	}

	vars := map[string]string{"input": input, "output": output, "outdir": paths.temp}
	if err := r.runTool(ctx, job, d.lang, template, vars, paths.sourceDir); err != nil {
		logger.Warn("Diagram tool failed, keeping diagram as code", logfields.Error(err))
		return "", false
	}
	if _, err := os.Stat(output); err != nil {
		logger.Warn("Diagram tool wrote no image, keeping diagram as code", logfields.Path(output))
		return "", false
	}

	if !d.noResize {
		resized, err := ResizeImage(output, job.MaxDiagramWidth, job.MaxDiagramHeight)
		if err != nil {
			logger.Warn("Diagram kept at rendered size", logfields.Error(err))
		} else if resized {
			logger.Debug("Resized diagram", logfields.Path(output))
		}
	}
	return output, true
}

// FitDiagram returns the size a w x h image takes under the width and height
// bounds, keeping its aspect ratio, and whether that differs from w x h. When
// both bounds apply the smaller scale wins.
func FitDiagram(w, h int, maxWidth, maxHeight docstate.Dimension) (int, int, bool) {
	if w <= 0 || h <= 0 {
		return w, h, false
	}
	scale, scaled := 1.0, false
	if tw, ok := maxWidth.Apply(w); ok {
		scale, scaled = float64(tw)/float64(w), true
	}
	if th, ok := maxHeight.Apply(h); ok {
		if s := float64(th) / float64(h); !scaled || s < scale {
			scale, scaled = s, true
		}
	}
	if !scaled || scale == 1 {
		return w, h, false
	}
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	return nw, nh, nw != w || nh != h
}

// ResizeImage rescales the PNG at path in place to fit the bounds. It reports
// whether the file was rewritten.
func ResizeImage(path string, maxWidth, maxHeight docstate.Dimension) (bool, error) {
	if !maxWidth.IsSet() && !maxHeight.IsSet() {
		return false, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false, errors.IOError("read diagram image").WithContext("path", path).WithCause(err).Build()
	}
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return false, errors.RenderError("decode diagram image").WithContext("path", path).WithCause(err).Build()
	}

	bounds := src.Bounds()
	w, h, ok := FitDiagram(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if !ok {
		return false, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return false, errors.RenderError("encode diagram image").WithContext("path", path).WithCause(err).Build()
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return false, errors.IOError("write diagram image").WithContext("path", path).WithCause(err).Build()
	}
	return true, nil
}
