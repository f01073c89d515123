package converter

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/mdconvert/internal/docstate"
	"git.home.luguber.info/inful/mdconvert/internal/fingerprint"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
	"git.home.luguber.info/inful/mdconvert/internal/render"
)

// Outcome is the result of converting one document.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeConverted Outcome = "converted"
	OutcomeFailed    Outcome = "failed"
)

// ConvertOne renders sourcePath unless its artifact is still valid. The error
// is set exactly when the outcome is OutcomeFailed.
func (c *Converter) ConvertOne(ctx context.Context, sourcePath string) (Outcome, error) {
	return c.convert(ctx, c.logger, sourcePath)
}

func (c *Converter) convert(ctx context.Context, logger *slog.Logger, sourcePath string) (outcome Outcome, err error) {
	id := Identifier(c.cfg.Format, sourcePath)
	outputPath := c.OutputPath(sourcePath)
	logger = logger.With(logfields.Document(id))
	defer func() { c.recorder.IncDocumentOutcome(string(outcome)) }()

	sourceFP, err := fingerprint.File(sourcePath)
	if err != nil {
		logger.Error("Cannot read source", logfields.Path(sourcePath), logfields.Error(err))
		return OutcomeFailed, err
	}

	renderCfg := c.cfg.RenderConfig()
	reason, err := c.store.Check(ctx, id, sourceFP, outputPath, renderCfg)
	if err != nil {
		// Render anyway; the save below reports a store that stays broken.
		logger.Warn("Document state check failed", logfields.Error(err))
	} else {
		c.recorder.IncCacheCheck(string(reason))
		if !reason.Stale() {
			logger.Debug("Skipping unchanged document", logfields.OutputPath(outputPath))
			return OutcomeSkipped, nil
		}
		logger.Info("Converting document", logfields.Reason(string(reason)))
	}

	if err := c.renderWithRetry(ctx, logger, c.job(id, sourcePath, outputPath)); err != nil {
		logger.Error("Conversion failed", logfields.Error(err))
		return OutcomeFailed, err
	}

	outputFP, err := fingerprint.File(outputPath)
	if err != nil {
		logger.Error("Cannot fingerprint output", logfields.OutputPath(outputPath), logfields.Error(err))
		return OutcomeFailed, err
	}
	if err := c.store.Save(ctx, id, sourceFP, outputFP, renderCfg); err != nil {
		logger.Error("Cannot save document state", logfields.Error(err))
		return OutcomeFailed, err
	}

	logger.Info("Document converted", logfields.OutputPath(outputPath))
	return OutcomeConverted, nil
}

func (c *Converter) job(id, sourcePath, outputPath string) render.Job {
	return render.Job{
		ID:               id,
		SourcePath:       sourcePath,
		OutputPath:       outputPath,
		TempDir:          filepath.Join(c.cfg.TempDir, string(c.cfg.Format)),
		Format:           c.cfg.Format,
		Profile:          c.profile,
		Margins:          c.margins,
		PageNumbers:      c.cfg.PageNumbers,
		MaxDiagramWidth:  c.cfg.MaxDiagramWidth,
		MaxDiagramHeight: c.cfg.MaxDiagramHeight,
		Author:           c.cfg.Author,
		Language:         c.cfg.Language,
	}
}

// renderWithRetry runs the renderer under the per-attempt timeout and retries
// errors classified as retryable.
func (c *Converter) renderWithRetry(ctx context.Context, logger *slog.Logger, job render.Job) error {
	format := string(job.Format)
	attemptOnce := func(attempt int) error {
		actx := ctx
		if c.cfg.Render.Timeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, c.cfg.Render.Timeout)
			defer cancel()
		}
		start := time.Now()
		err := c.renderer.Render(actx, job)
		c.recorder.ObserveRenderDuration(format, time.Since(start), err == nil)
		if err != nil && ctx.Err() != nil {
			// The caller gave up; retrying cannot help.
			return errors.RuntimeError("conversion cancelled").WithCause(ctx.Err()).Build()
		}
		return err
	}
	onRetry := func(attempt int, delay time.Duration, err error) {
		c.recorder.IncRenderRetry(format)
		logger.Warn("Retrying conversion",
			logfields.Attempt(attempt),
			logfields.Duration(delay),
			logfields.Error(err))
	}
	return c.policy.Do(ctx, attemptOnce, errors.IsRetryable, onRetry)
}

// Forget removes the state record of a deleted source.
func (c *Converter) Forget(ctx context.Context, sourcePath string) error {
	id := Identifier(c.cfg.Format, sourcePath)
	if err := c.store.Remove(ctx, id); err != nil {
		return err
	}
	c.logger.Debug("Forgot document state", logfields.Document(id))
	return nil
}

var _ StateStore = (*docstate.Store)(nil)
