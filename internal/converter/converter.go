// Package converter turns a directory of markdown sources into documents of
// one output format, skipping sources whose artifact is still valid.
package converter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/metrics"
	"git.home.luguber.info/inful/mdconvert/internal/render"
	"git.home.luguber.info/inful/mdconvert/internal/retry"
)

// StateStore is the part of the document state store the converter needs.
type StateStore interface {
	Check(ctx context.Context, id, sourceFP, outputPath string, cfg docstate.RenderConfig) (docstate.StaleReason, error)
	Save(ctx context.Context, id, sourceFP, outputFP string, cfg docstate.RenderConfig) error
	Remove(ctx context.Context, id string) error
}

// Converter renders the sources of one directory.
type Converter struct {
	cfg      *config.Config
	profile  config.Profile
	margins  config.Margins
	policy   retry.Policy
	store    StateStore
	renderer render.Renderer
	recorder metrics.Recorder
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Converter) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Converter) {
		if r != nil {
			c.recorder = r
		}
	}
}

// New returns a Converter for a validated configuration.
func New(cfg *config.Config, store StateStore, renderer render.Renderer, opts ...Option) (*Converter, error) {
	if cfg == nil || store == nil || renderer == nil {
		return nil, errors.InternalError("converter needs a configuration, a state store and a renderer").Build()
	}
	profile, err := config.LookupProfile(cfg.Profile)
	if err != nil {
		return nil, err
	}
	var margins config.Margins
	if !cfg.Format.IsEbook() {
		if margins, err = config.ParseMargins(cfg.Margins); err != nil {
			return nil, err
		}
	}
	policy := cfg.RetryPolicy()
	if err := policy.Validate(); err != nil {
		return nil, errors.ValidationError("invalid render retry policy").WithCause(err).Build()
	}

	c := &Converter{
		cfg:      cfg,
		profile:  profile,
		margins:  margins,
		policy:   policy,
		store:    store,
		renderer: renderer,
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Identifier returns the document state identifier of a source for format f:
// "<format>/<file name>", so each format keeps its own record.
func Identifier(f config.Format, sourcePath string) string {
	return string(f) + "/" + filepath.Base(sourcePath)
}

// OutputPath returns where the artifact of sourcePath is written.
func (c *Converter) OutputPath(sourcePath string) string {
	return c.cfg.ArtifactPath(c.cfg.Format, sourcePath)
}

// IsSource reports whether name is a file Discover would return.
func IsSource(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(base, ".md") && base != "README.md" && !strings.HasPrefix(base, ".")
}

// Discover lists the markdown sources of the source directory, sorted.
// Subdirectories are not searched and README.md is skipped.
func (c *Converter) Discover() ([]string, error) {
	entries, err := os.ReadDir(c.cfg.SourceDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError("source directory does not exist").
				WithContext("path", c.cfg.SourceDir).
				WithCause(err).
				Build()
		}
		return nil, errors.IOError("read source directory").
			WithContext("path", c.cfg.SourceDir).
			WithCause(err).
			Build()
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSource(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(c.cfg.SourceDir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}
