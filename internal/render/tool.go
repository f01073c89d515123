package render

import (
	"bytes"
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
)

// maxStderr bounds the tool output kept in error context.
const maxStderr = 4096

// Command is one expanded tool invocation.
type Command struct {
	Argv []string
	// Dir is the working directory; relative paths in the source resolve here.
	Dir string
}

// CommandRunner executes a tool and returns its combined stderr.
type CommandRunner func(ctx context.Context, cmd Command) (stderr []byte, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, c Command) ([]byte, error) {
	if len(c.Argv) == 0 {
		return nil, stderrors.New("empty command")
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...) //nolint:gosec // argv comes from the user's configuration
	cmd.Dir = c.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// ToolRenderer renders through external tools configured as argv templates.
type ToolRenderer struct {
	tools  config.ToolsConfig
	html   *HTMLBuilder
	run    CommandRunner
	logger *slog.Logger
}

// ToolOption configures a ToolRenderer.
type ToolOption func(*ToolRenderer)

// WithRunner replaces os/exec, mainly for tests.
func WithRunner(run CommandRunner) ToolOption {
	return func(r *ToolRenderer) {
		if run != nil {
			r.run = run
		}
	}
}

// WithToolLogger sets the logger.
func WithToolLogger(logger *slog.Logger) ToolOption {
	return func(r *ToolRenderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewToolRenderer returns a Renderer backed by the given tool templates.
func NewToolRenderer(tools config.ToolsConfig, opts ...ToolOption) *ToolRenderer {
	r := &ToolRenderer{
		tools:  tools,
		html:   NewHTMLBuilder(),
		run:    ExecRunner,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render implements Renderer.
func (r *ToolRenderer) Render(ctx context.Context, job Job) error {
	raw, err := os.ReadFile(job.SourcePath)
	if err != nil {
		return errors.IOError("read markdown source").
			WithContext("path", job.SourcePath).
			WithCause(err).
			Build()
	}

	paths, err := absPaths(job)
	if err != nil {
		return err
	}
	for _, dir := range []string{paths.temp, filepath.Dir(paths.output)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.IOError("create directory").WithContext("path", dir).WithCause(err).Build()
		}
	}

	// A tool that exits 0 without writing must not leave an older artifact
	// looking like its result.
	if err := removeStale(paths.output); err != nil {
		return err
	}

	content := Preprocess(string(raw), job.Format, job.Profile)
	title := ExtractTitle(job.SourcePath, []byte(content))
	content = r.renderDiagrams(ctx, job, paths, content)
	vars := map[string]string{
		"title":    title,
		"author":   job.Author,
		"language": job.Language,
	}

	switch job.Format {
	case config.FormatEPUB:
		err = r.renderEPUB(ctx, job, paths, content, vars, paths.output)
	case config.FormatMOBI:
		epub := filepath.Join(paths.temp, paths.stem+".epub")
		if err = removeStale(epub); err != nil {
			return err
		}
		if err = r.renderEPUB(ctx, job, paths, content, vars, epub); err == nil {
			vars["input"], vars["output"] = epub, paths.output
			err = r.runTool(ctx, job, "mobi", r.tools.MOBICommand, vars, paths.sourceDir)
		}
	default:
		err = r.renderPDF(ctx, job, paths, content, vars)
	}
	if err != nil {
		return err
	}

	if _, err := os.Stat(paths.output); err != nil {
		return errors.RenderError("converter finished without producing output").
			WithContext("document", job.ID).
			WithContext("output", paths.output).
			WithCause(err).
			Build()
	}
	return nil
}

type jobPaths struct {
	sourceDir string
	temp      string
	output    string
	stem      string
}

// absPaths makes every path absolute; tools run in the source directory.
func absPaths(job Job) (jobPaths, error) {
	var p jobPaths
	src, err := filepath.Abs(job.SourcePath)
	if err != nil {
		return p, errors.IOError("resolve source path").WithContext("path", job.SourcePath).WithCause(err).Build()
	}
	if p.temp, err = filepath.Abs(job.TempDir); err != nil {
		return p, errors.IOError("resolve temp dir").WithContext("path", job.TempDir).WithCause(err).Build()
	}
	if p.output, err = filepath.Abs(job.OutputPath); err != nil {
		return p, errors.IOError("resolve output path").WithContext("path", job.OutputPath).WithCause(err).Build()
	}
	p.sourceDir = filepath.Dir(src)
	base := filepath.Base(src)
	p.stem = strings.TrimSuffix(base, filepath.Ext(base))
	return p, nil
}

func (r *ToolRenderer) renderPDF(ctx context.Context, job Job, paths jobPaths, content string, vars map[string]string) error {
	page, err := r.html.Build(Page{
		Title:            vars["title"],
		Language:         job.Language,
		Markdown:         []byte(content),
		BaseDir:          paths.sourceDir,
		Profile:          job.Profile,
		Margins:          job.Margins,
		PageNumbers:      job.PageNumbers,
		MaxDiagramWidth:  job.MaxDiagramWidth,
		MaxDiagramHeight: job.MaxDiagramHeight,
	})
	if err != nil {
		return err
	}
	htmlPath := filepath.Join(paths.temp, paths.stem+".html")
	if err := writeTemp(htmlPath, page); err != nil {
		return err
	}
	vars["input"], vars["output"] = htmlPath, paths.output
	return r.runTool(ctx, job, "pdf", r.tools.PDFCommand, vars, paths.sourceDir)
}

func (r *ToolRenderer) renderEPUB(ctx context.Context, job Job, paths jobPaths, content string, vars map[string]string, output string) error {
	mdPath := filepath.Join(paths.temp, "temp_"+paths.stem+".md")
	if err := writeTemp(mdPath, []byte(content)); err != nil {
		return err
	}
	css, err := r.html.Stylesheet(Page{
		Profile:          job.Profile,
		MaxDiagramWidth:  job.MaxDiagramWidth,
		MaxDiagramHeight: job.MaxDiagramHeight,
	}, false)
	if err != nil {
		return err
	}
	cssPath := filepath.Join(paths.temp, paths.stem+".css")
	if err := writeTemp(cssPath, []byte(css)); err != nil {
		return err
	}
	vars["input"], vars["output"], vars["css"] = mdPath, output, cssPath
	return r.runTool(ctx, job, "epub", r.tools.EPUBCommand, vars, paths.sourceDir)
}

func (r *ToolRenderer) runTool(ctx context.Context, job Job, stage string, template []string, vars map[string]string, dir string) error {
	if len(template) == 0 {
		return errors.ConfigError("no command configured for stage").
			WithContext("stage", stage).
			Build()
	}
	argv := ExpandArgs(template, vars)
	r.logger.Debug("Running converter",
		logfields.Document(job.ID),
		logfields.Tool(argv[0]),
		slog.String("stage", stage))

	stderr, err := r.run(ctx, Command{Argv: argv, Dir: dir})
	if err == nil {
		return nil
	}

	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.DependencyError("converter tool not found on PATH").
			WithContext("tool", argv[0]).
			WithCause(err).
			Build()
	}
	b := errors.RenderError("converter failed").
		WithContext("document", job.ID).
		WithContext("stage", stage).
		WithContext("tool", argv[0]).
		WithContext("stderr", truncate(string(stderr), maxStderr)).
		WithCause(err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		b = b.WithCause(stderrors.Join(err, ctxErr))
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			b = b.WithRetry(errors.RetryBackoff)
		}
	}
	return b.Build()
}

// ExpandArgs substitutes {name} placeholders in every argv element.
func ExpandArgs(template []string, vars map[string]string) []string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	replacer := strings.NewReplacer(pairs...)
	out := make([]string, len(template))
	for i, arg := range template {
		out[i] = replacer.Replace(arg)
	}
	return out
}

func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.IOError("remove previous output").WithContext("path", path).WithCause(err).Build()
	}
	return nil
}

func writeTemp(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.IOError("write temporary file").WithContext("path", path).WithCause(err).Build()
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
