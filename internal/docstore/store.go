// Package docstore is a SQLite-backed library.Store. Each user's titles are
// a document collection; every committed write is published on the events
// bus, which drives live subscription pushes.
package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DefaultPollInterval is how often subscriptions check the database for
// commits made by other processes.
const DefaultPollInterval = time.Second

// Store provides access to library documents.
type Store struct {
	db     *sql.DB
	bus    *events.Bus
	logger *slog.Logger
	now    func() time.Time
	poll   time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often subscriptions look for commits from other
// connections. A non-positive interval disables polling, leaving the bus as
// the only source of pushes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		s.poll = d
	}
}

var _ library.Store = (*Store)(nil)

// New creates a store over db. Changes are published on bus; a nil bus gets
// a private one without persistence.
func New(db *sql.DB, bus *events.Bus, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = events.NewBus(nil, logger)
	}
	s := &Store{
		db:     db,
		bus:    bus,
		logger: logger.With("component", "docstore"),
		now:    func() time.Time { return time.Now().UTC() },
		poll:   DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Commit applies every operation in b in one transaction. Change events are
// published only after the transaction commits.
func (s *Store) Commit(ctx context.Context, userID string, b *library.Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}

	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := s.now()
	var changes []events.Event
	for _, op := range b.Ops() {
		e, err := applyOp(ctx, tx.tx, userID, op, now)
		if err != nil {
			return err
		}
		changes = append(changes, e)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", mapSQLiteError(err))
	}

	s.logger.Debug("batch committed", "user_id", userID, "ops", b.Len())
	s.publish(ctx, changes)
	return nil
}

// Update writes the non-nil fields of u to one document.
func (s *Store) Update(ctx context.Context, userID, id string, u library.Update) error {
	return s.Commit(ctx, userID, library.NewBatch().Update(id, u))
}

// Delete removes one document.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	return s.Commit(ctx, userID, library.NewBatch().Delete(id))
}

func applyOp(ctx context.Context, q querier, userID string, op library.Op, now time.Time) (events.Event, error) {
	switch op.Kind {
	case library.OpCreate:
		return insertTitle(ctx, q, userID, op.Title, now)
	case library.OpUpdate:
		return updateTitle(ctx, q, userID, op.ID, op.Update, now)
	case library.OpDelete:
		return deleteTitle(ctx, q, userID, op.ID)
	case library.OpTouchProfile:
		return touchProfile(ctx, q, userID, now)
	default:
		return nil, fmt.Errorf("%w: unknown batch operation %d", library.ErrValidation, op.Kind)
	}
}

func (s *Store) publish(ctx context.Context, changes []events.Event) {
	for _, e := range changes {
		if err := s.bus.Publish(ctx, e); err != nil {
			s.logger.Warn("publish change", "type", e.EventType(), "error", err)
		}
	}
}
