package converter

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
)

// Failure is a document that could not be converted.
type Failure struct {
	Path string
	Err  error
}

// Summary reports one ConvertAll run.
type Summary struct {
	RunID     string
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Failures  []Failure
	Duration  time.Duration
}

// HasFailures reports whether any document failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

func (s *Summary) add(path string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeConverted:
		s.Converted++
	default:
		s.Failed++
		s.Failures = append(s.Failures, Failure{Path: path, Err: err})
	}
}

// ConvertAll converts every discovered source. Per-document failures are
// reported in the summary; the error is set when discovery fails or ctx is
// cancelled before every document was handled.
func (c *Converter) ConvertAll(ctx context.Context) (Summary, error) {
	start := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	logger := c.logger.With(logfields.RunID(summary.RunID))

	sources, err := c.Discover()
	if err != nil {
		return summary, err
	}
	summary.Total = len(sources)
	if len(sources) == 0 {
		logger.Warn("No markdown files found", logfields.Path(c.cfg.SourceDir))
		return summary, nil
	}

	workers := 1
	if c.cfg.Parallel && len(sources) > 1 {
		workers = min(c.cfg.MaxWorkers, len(sources))
	}
	c.recorder.SetWorkers(workers)
	defer c.recorder.SetWorkers(0)

	logger.Info("Starting conversion",
		logfields.Count(len(sources)),
		logfields.Format(string(c.cfg.Format)),
		logfields.Profile(c.profile.Name),
		logfields.Worker(workers))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(workers)
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			outcome, err := c.convert(ctx, logger, src)
			mu.Lock()
			summary.add(src, outcome, err)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if c.cfg.Cleanup {
		if err := os.RemoveAll(c.cfg.TempDir); err != nil {
			logger.Warn("Cannot remove temporary directory", logfields.Path(c.cfg.TempDir), logfields.Error(err))
		}
	}

	summary.Duration = time.Since(start)
	c.recorder.ObserveRunDuration(summary.Duration)
	logger.Info("Conversion finished",
		logfields.Count(summary.Total),
		logfields.Duration(summary.Duration),
		"converted", summary.Converted,
		"skipped", summary.Skipped,
		"failed", summary.Failed)

	if err := ctx.Err(); err != nil {
		return summary, errors.RuntimeError("conversion interrupted").
			WithContext("handled", summary.Converted+summary.Skipped+summary.Failed).
			WithCause(err).
			Build()
	}
	return summary, nil
}
