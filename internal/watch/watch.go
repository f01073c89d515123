// Package watch keeps the output directory current while sources change.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/mdconvert/internal/converter"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
)

// DefaultDebounce is the quiet period after the last change before a run.
const DefaultDebounce = 300 * time.Millisecond

// Runner converts the source directory.
type Runner interface {
	ConvertAll(ctx context.Context) (converter.Summary, error)
	Forget(ctx context.Context, sourcePath string) error
}

// Watcher triggers conversions on source changes and on a fixed sweep
// interval. At most one conversion runs at a time.
type Watcher struct {
	dir      string
	runner   Runner
	debounce time.Duration
	sweep    time.Duration
	logger   *slog.Logger
	onRun    func(converter.Summary, error)

	requests chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the debounce period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithSweepInterval sets the periodic full conversion interval. Zero disables it.
func WithSweepInterval(d time.Duration) Option {
	return func(w *Watcher) { w.sweep = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRunHook registers fn to be called after every conversion.
func WithRunHook(fn func(converter.Summary, error)) Option {
	return func(w *Watcher) { w.onRun = fn }
}

// New returns a Watcher for dir.
func New(dir string, runner Runner, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		runner:   runner,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		// One buffered slot coalesces requests made while a run is active.
		requests: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run converts once, then watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.RuntimeError("create file watcher").WithCause(err).Build()
	}
	defer func() { _ = fsw.Close() }()
	if err := fsw.Add(w.dir); err != nil {
		return errors.IOError("watch source directory").
			WithContext("path", w.dir).
			WithCause(err).
			Build()
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()

	if w.sweep > 0 {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return errors.RuntimeError("create sweep scheduler").WithCause(err).Build()
		}
		_, err = scheduler.NewJob(
			gocron.DurationJob(w.sweep),
			gocron.NewTask(w.request),
			gocron.WithName("sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.RuntimeError("schedule sweep").WithCause(err).Build()
		}
		scheduler.Start()
		defer func() { _ = scheduler.Shutdown() }()
	}

	trigger, stop := w.debouncer()
	defer stop()

	w.logger.Info("Watching for changes",
		logfields.Path(w.dir),
		slog.Duration("sweep_interval", w.sweep))
	w.request()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping watcher")
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, trigger)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) || !converter.IsSource(ev.Name) {
		return
	}
	w.logger.Debug("Source change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		if err := w.runner.Forget(ctx, ev.Name); err != nil {
			w.logger.Warn("Cannot forget removed source", logfields.Path(ev.Name), logfields.Error(err))
		}
		return
	}
	trigger()
}

// request asks for a conversion without blocking.
func (w *Watcher) request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
			summary, err := w.runner.ConvertAll(ctx)
			if err != nil && ctx.Err() == nil {
				w.logger.Error("Conversion run failed", logfields.Error(err))
			}
			if w.onRun != nil {
				w.onRun(summary, err)
			}
		}
	}
}

func (w *Watcher) debouncer() (trigger, stop func()) {
	var mu sync.Mutex
	var timer *time.Timer
	trigger = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, w.request)
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}
	return trigger, stop
}

// shouldIgnoreEvent reports hidden, editor swap and temporary files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasSuffix(base, ".tmp") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db" || strings.HasPrefix(base, "temp_")
}
