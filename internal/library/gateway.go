package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/vmunix/anitrack/internal/catalog"
)

// Gateway is the only write path into a library. It validates every request
// against the materialized list before anything is sent to the Store, and
// never edits the local list itself: changes appear once the Store pushes
// them back.
type Gateway struct {
	store  Store
	view   *Materializer
	logger *slog.Logger
	newID  func() string
}

// NewGateway creates a Gateway writing to store and validating against view.
func NewGateway(store Store, view *Materializer, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		store:  store,
		view:   view,
		logger: logger.With("component", "gateway"),
		newID:  uuid.NewString,
	}
}

// Add tracks a catalog entry. An empty status means plan-to-watch.
// The new document and the profile's lastModified marker are written in
// one batch. The returned title is what was written; the store sets
// CreatedAt.
func (g *Gateway) Add(ctx context.Context, entry catalog.Anime, status Status) (TrackedTitle, error) {
	user := g.view.User()
	if user == nil {
		return TrackedTitle{}, ErrNotAuthenticated
	}
	if status == "" {
		status = StatusPlanToWatch
	}
	if !status.Valid() {
		return TrackedTitle{}, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	if entry.MalID <= 0 || entry.Title == "" {
		return TrackedTitle{}, fmt.Errorf("%w: catalog entry needs an id and a title", ErrValidation)
	}
	// Two adds racing past this check can both land; the store is the only
	// place that can close that gap.
	if existing, ok := g.view.FindByCatalogID(entry.MalID); ok {
		return TrackedTitle{}, fmt.Errorf("%w: %q is already tracked as %s", ErrDuplicate, existing.Title, existing.Status.Label())
	}

	t := TrackedTitle{
		ID:            g.newID(),
		CatalogID:     entry.MalID,
		Title:         entry.Title,
		ImageURL:      entry.ImageURL(),
		Status:        status,
		Progress:      0,
		TotalEpisodes: EpisodesFromPtr(entry.Episodes),
	}

	if err := g.store.Commit(ctx, user.ID, NewBatch().Create(t).TouchProfile()); err != nil {
		err = remoteErr(fmt.Sprintf("add %q", t.Title), err)
		g.logger.Error("add failed", "catalog_id", t.CatalogID, "error", err)
		return TrackedTitle{}, err
	}

	g.logger.Info("title added", "id", t.ID, "catalog_id", t.CatalogID, "title", t.Title, "status", t.Status)
	return t, nil
}

// UpdateProgress sets the episodes watched. It must be between zero and the
// total when the total is known.
func (g *Gateway) UpdateProgress(ctx context.Context, id string, progress int) error {
	user, t, err := g.lookup(id)
	if err != nil {
		return err
	}
	if err := ValidateProgress(t, progress); err != nil {
		return err
	}

	if err := g.store.Update(ctx, user.ID, id, Update{Progress: &progress}); err != nil {
		err = remoteErr(fmt.Sprintf("update progress of %q", t.Title), err)
		g.logger.Error("update progress failed", "id", id, "error", err)
		return err
	}

	g.logger.Info("progress updated", "id", id, "title", t.Title, "progress", progress)
	return nil
}

// StepProgress moves progress by delta, as the +/- controls do, and returns
// the new value. Only titles being watched or on hold step.
func (g *Gateway) StepProgress(ctx context.Context, id string, delta int) (int, error) {
	_, t, err := g.lookup(id)
	if err != nil {
		return 0, err
	}
	if !t.Status.TracksProgress() {
		return t.Progress, fmt.Errorf("%w: progress only steps while %s or %s", ErrValidation,
			StatusWatching.Label(), StatusOnHold.Label())
	}
	if total, ok := t.TotalEpisodes.Count(); ok && delta > 0 && t.Progress >= total {
		return t.Progress, fmt.Errorf("%w: %q is already complete", ErrValidation, t.Title)
	}

	next := t.Progress + delta
	if err := g.UpdateProgress(ctx, id, next); err != nil {
		return t.Progress, err
	}
	return next, nil
}

// UpdateStatus moves a title to another bucket, applying the progress side
// effects of DeriveStatusUpdate in the same write.
func (g *Gateway) UpdateStatus(ctx context.Context, id string, status Status) error {
	user, t, err := g.lookup(id)
	if err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	u := DeriveStatusUpdate(t, status)
	if err := g.store.Update(ctx, user.ID, id, u); err != nil {
		err = remoteErr(fmt.Sprintf("move %q", t.Title), err)
		g.logger.Error("update status failed", "id", id, "error", err)
		return err
	}

	g.logger.Info("status updated", "id", id, "title", t.Title, "from", t.Status, "to", status)
	return nil
}

// Delete removes a title. A title that isn't in the list is reported as
// ErrNotFound rather than treated as already deleted.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	user, t, err := g.lookup(id)
	if err != nil {
		return err
	}

	if err := g.store.Delete(ctx, user.ID, id); err != nil {
		err = remoteErr(fmt.Sprintf("delete %q", t.Title), err)
		g.logger.Error("delete failed", "id", id, "error", err)
		return err
	}

	g.logger.Info("title deleted", "id", id, "title", t.Title)
	return nil
}

func (g *Gateway) lookup(id string) (*User, TrackedTitle, error) {
	user := g.view.User()
	if user == nil {
		return nil, TrackedTitle{}, ErrNotAuthenticated
	}
	t, ok := g.view.Lookup(id)
	if !ok {
		return nil, TrackedTitle{}, fmt.Errorf("title %s: %w", id, ErrNotFound)
	}
	return user, t, nil
}

// remoteErr classifies a Store failure. Errors the store already
// classified keep their kind; anything else is a remote failure.
func remoteErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrRemoteUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrRemoteUnavailable, err)
	}
}
