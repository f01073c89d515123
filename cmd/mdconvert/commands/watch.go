package commands

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"git.home.luguber.info/inful/mdconvert/internal/config"
	"git.home.luguber.info/inful/mdconvert/internal/converter"
	"git.home.luguber.info/inful/mdconvert/internal/foundation/errors"
	"git.home.luguber.info/inful/mdconvert/internal/logfields"
	"git.home.luguber.info/inful/mdconvert/internal/metrics"
	"git.home.luguber.info/inful/mdconvert/internal/render"
	"git.home.luguber.info/inful/mdconvert/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	ConvertFlags `embed:""`

	SweepInterval string `name:"sweep-interval" help:"Full conversion interval to catch deleted or edited outputs (0 disables)"`
	MetricsAddr   string `name:"metrics-addr" help:"Serve Prometheus metrics on this address (e.g. :9108)"`
}

// Run executes the command.
func (c *WatchCmd) Run(ctx context.Context, g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g, c.Overrides())
	if err != nil {
		return err
	}
	if c.SweepInterval != "" {
		d, err := time.ParseDuration(c.SweepInterval)
		if err != nil || d < 0 {
			return errors.ValidationError("invalid --sweep-interval").
				WithContext("value", c.SweepInterval).
				WithCause(err).
				Build()
		}
		cfg.Watch.SweepInterval = d
	}
	if c.MetricsAddr != "" {
		cfg.Watch.MetricsAddr = c.MetricsAddr
	}
	return runWatch(ctx, g, cfg, nil)
}

func runWatch(ctx context.Context, g *Global, cfg *config.Config, renderer render.Renderer) error {
	s, err := newSession(g, cfg, renderer)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if cfg.Watch.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.Watch.MetricsAddr,
			Handler:           metricsMux(s),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			g.Logger.Info("Serving metrics", logfields.Path(cfg.Watch.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				g.Logger.Error("Metrics server failed", logfields.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	w := watch.New(cfg.SourceDir, s.conv,
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.WithSweepInterval(cfg.Watch.SweepInterval),
		watch.WithLogger(g.Logger),
		watch.WithRunHook(func(summary converter.Summary, err error) {
			if err == nil && summary.Converted+summary.Failed > 0 {
				printSummary(g, summary)
			}
		}))
	return w.Run(ctx)
}

func metricsMux(s *session) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(s.registry))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}
