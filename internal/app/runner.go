package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/anitrack/internal/library"
)

// RunnerConfig tunes the long-running watch loop.
type RunnerConfig struct {
	HistoryRetention time.Duration // 0 keeps history forever
	PruneInterval    time.Duration
}

// DefaultRunnerConfig keeps 90 days of change history.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		HistoryRetention: 90 * 24 * time.Hour,
		PruneInterval:    24 * time.Hour,
	}
}

// Runner keeps an App live until its context is cancelled.
type Runner struct {
	app    *App
	config RunnerConfig
	logger *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(app *App, cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		app:    app,
		config: cfg,
		logger: logger.With("component", "runner"),
	}
}

// Run starts the app and calls onChange with the library state now and
// after every change. It blocks until ctx is cancelled or the app closes.
func (r *Runner) Run(ctx context.Context, onChange func(library.State)) error {
	changes, stop := r.app.Library.Watch()
	defer stop()

	if err := r.app.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// A closed library ends the run.
		defer cancel()
		onChange(r.app.Library.State())
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-changes:
				if !ok {
					return nil
				}
				onChange(r.app.Library.State())
			}
		}
	})

	if r.config.HistoryRetention > 0 && r.config.PruneInterval > 0 {
		g.Go(func() error {
			r.prune()
			ticker := time.NewTicker(r.config.PruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					r.prune()
				}
			}
		})
	}

	return g.Wait()
}

func (r *Runner) prune() {
	n, err := r.app.History.Prune(r.config.HistoryRetention)
	if err != nil {
		r.logger.Warn("prune history", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("pruned history", "events", n)
	}
}
