// Package app wires the library core to its adapters and owns their
// lifecycle.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/config"
	"github.com/vmunix/anitrack/internal/docstore"
	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/migrations"
	"github.com/vmunix/anitrack/internal/search"
	"github.com/vmunix/anitrack/internal/session"
)

// App is the application context: one of each component, built from config.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Bus      *events.Bus
	History  *events.EventLog
	Store    *docstore.Store
	Catalog  *catalog.Client
	Session  *session.Manager
	Library  *library.Materializer
	Gateway  *library.Gateway
	Registry *events.Registry

	logger     *slog.Logger
	stopBridge func()
}

// New opens the database, applies the schema and builds every component.
// Nothing is subscribed until Start.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openDB(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	secret := []byte(cfg.Session.Secret)
	if len(secret) == 0 {
		secret, err = session.LoadOrCreateKey(cfg.Session.TokenFile + ".key")
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	history := events.NewEventLog(db)
	bus := events.NewBus(history, logger)
	store := docstore.New(db, bus, logger)

	client := catalog.NewClient(
		catalog.WithBaseURL(cfg.Catalog.BaseURL),
		catalog.WithHTTPClient(&http.Client{Timeout: cfg.Catalog.Timeout}),
		catalog.WithCacheTTL(cfg.Catalog.CacheTTL),
		catalog.WithRateLimit(cfg.Catalog.RequestsPerSecond, cfg.Catalog.Burst),
		catalog.WithLogger(logger),
	)

	tokens := session.TokenService{
		Secret:   secret,
		Issuer:   cfg.Session.Issuer,
		Duration: cfg.Session.TokenTTL,
	}
	sessions := session.NewManager(session.NewAccounts(db), store, tokens, cfg.Session.TokenFile, logger)

	view := library.NewMaterializer(store, logger)

	return &App{
		Config:   cfg,
		DB:       db,
		Bus:      bus,
		History:  history,
		Store:    store,
		Catalog:  client,
		Session:  sessions,
		Library:  view,
		Gateway:  library.NewGateway(store, view, logger),
		Registry: events.DefaultRegistry(),
		logger:   logger.With("component", "app"),
	}, nil
}

func openDB(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serializes writers and keeps :memory: a single database.
	db.SetMaxOpenConns(1)
	// Other anitrack processes may hold the write lock briefly.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

// Start follows session changes with the materializer and resumes any
// saved session. It returns once the resumed user's first snapshot has
// arrived or failed.
func (a *App) Start(ctx context.Context) error {
	if a.stopBridge != nil {
		return nil
	}
	bridgeCtx := context.WithoutCancel(ctx)
	a.stopBridge = a.Session.Subscribe(func(u *library.User) {
		if err := a.Library.OnSessionChange(bridgeCtx, u); err != nil {
			a.logger.Warn("session change", "error", err)
		}
	})

	user, err := a.Session.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if user == nil {
		return nil
	}
	if err := a.Library.Ready(ctx); err != nil && !errors.Is(err, library.ErrNotAuthenticated) {
		return err
	}
	return nil
}

// RequireUser starts the app and fails with library.ErrNotAuthenticated when
// no session was resumed.
func (a *App) RequireUser(ctx context.Context) (*library.User, error) {
	if err := a.Start(ctx); err != nil {
		return nil, err
	}
	u := a.Session.Current()
	if u == nil {
		return nil, library.ErrNotAuthenticated
	}
	return u, nil
}

// NewSearcher returns a debounced catalog searcher configured from
// [search]. The caller closes it.
func (a *App) NewSearcher() *search.Searcher {
	return search.New(a.Catalog,
		search.WithDelay(a.Config.Search.Debounce),
		search.WithMinLength(a.Config.Search.MinQueryLength),
		search.WithLimit(a.Config.Search.Limit),
		search.WithLogger(a.logger),
	)
}

// Close tears components down in reverse order of construction.
func (a *App) Close() error {
	if a.stopBridge != nil {
		a.stopBridge()
	}
	var errs []error
	if err := a.Library.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close library: %w", err))
	}
	if err := a.Bus.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close bus: %w", err))
	}
	if err := a.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close db: %w", err))
	}
	return errors.Join(errs...)
}
