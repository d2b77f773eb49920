package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vmunix/anitrack/internal/app"
	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/config"
	"github.com/vmunix/anitrack/internal/library"
)

var version = "dev"

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	jsonOutput bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "anitrack",
		Short: "Track the anime you watch",
		Long: `anitrack - personal anime tracker

Search the Jikan catalog, add titles to your library and keep
track of status and episode progress.

Run 'anitrack signup' or 'anitrack login' to get started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("anitrack {{.Version}}\n")

	rootCmd.AddCommand(
		newInitCmd(g),
		newConfigCmd(g),
		newSignupCmd(g),
		newLoginCmd(g),
		newLogoutCmd(g),
		newWhoamiCmd(g),
		newListCmd(g),
		newAddCmd(g),
		newProgressCmd(g),
		newStepCmd(g, "inc", 1),
		newStepCmd(g, "dec", -1),
		newStatusCmd(g),
		newRemoveCmd(g),
		newSearchCmd(g),
		newFindCmd(g),
		newShowCmd(g),
		newDiscoverCmd(g, "seasonal"),
		newDiscoverCmd(g, "top"),
		newWatchCmd(g),
		newHistoryCmd(g),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage adds a hint for the failures a user can act on.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, library.ErrNotAuthenticated):
		return "not signed in; run 'anitrack login' first"
	case errors.Is(err, library.ErrRemoteUnavailable), errors.Is(err, catalog.ErrUnavailable):
		return err.Error() + " (try again later)"
	default:
		return err.Error()
	}
}

// loadConfig reads --config, or the discovered config, or the defaults
// when no config file exists.
func (g *globals) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		p, err := config.Discover()
		if errors.Is(err, config.ErrNotFound) {
			return config.Default(), nil
		}
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func (g *globals) newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	name := cfg.Log.Level
	if g.logLevel != "" {
		name = g.logLevel
	}
	level, err := log.ParseLevel(name)
	if err != nil {
		level = log.InfoLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return slog.New(handler)
}

// withApp builds the application for one command and closes it afterwards.
func (g *globals) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger := g.newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	return fn(cmd.Context(), a)
}

// withUser is withApp for commands that need a resumed session.
func (g *globals) withUser(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, user *library.User) error) error {
	return g.withApp(cmd, func(ctx context.Context, a *app.App) error {
		user, err := a.RequireUser(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, a, user)
	})
}

func (g *globals) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), json: g.jsonOutput}
}
