package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
)

const titleColumns = `id, catalog_id, title, image_url, status, progress, total_episodes, created_at`

func insertTitle(ctx context.Context, q querier, userID string, t library.TrackedTitle, now time.Time) (events.Event, error) {
	var total sql.NullInt64
	if n, ok := t.TotalEpisodes.Count(); ok {
		total = sql.NullInt64{Int64: int64(n), Valid: true}
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO tracked_titles (id, user_id, catalog_id, title, image_url, status, progress, total_episodes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, userID, t.CatalogID, t.Title, t.ImageURL, string(t.Status), t.Progress, total, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert title %q: %w", t.Title, mapSQLiteError(err))
	}
	return &events.TitleAdded{
		BaseEvent: events.NewBaseEvent(events.EventTitleAdded, userID, t.ID),
		CatalogID: t.CatalogID,
		Title:     t.Title,
		Status:    string(t.Status),
	}, nil
}

func titleName(ctx context.Context, q querier, userID, id string) (string, error) {
	var name string
	err := q.QueryRowContext(ctx,
		`SELECT title FROM tracked_titles WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&name)
	if err != nil {
		return "", fmt.Errorf("title %s: %w", id, mapSQLiteError(err))
	}
	return name, nil
}

func updateTitle(ctx context.Context, q querier, userID, id string, u library.Update, now time.Time) (events.Event, error) {
	name, err := titleName(ctx, q, userID, id)
	if err != nil {
		return nil, err
	}

	e := &events.TitleUpdated{
		BaseEvent: events.NewBaseEvent(events.EventTitleUpdated, userID, id),
		Title:     name,
	}
	sets := []string{"updated_at = ?"}
	args := []any{now}
	if u.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*u.Status))
		s := string(*u.Status)
		e.Status = &s
	}
	if u.Progress != nil {
		sets = append(sets, "progress = ?")
		args = append(args, *u.Progress)
		p := *u.Progress
		e.Progress = &p
	}
	args = append(args, id, userID)

	_, err = q.ExecContext(ctx,
		"UPDATE tracked_titles SET "+strings.Join(sets, ", ")+" WHERE id = ? AND user_id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update title %s: %w", id, mapSQLiteError(err))
	}
	return e, nil
}

func deleteTitle(ctx context.Context, q querier, userID, id string) (events.Event, error) {
	name, err := titleName(ctx, q, userID, id)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx,
		`DELETE FROM tracked_titles WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return nil, fmt.Errorf("delete title %s: %w", id, mapSQLiteError(err))
	}
	return &events.TitleDeleted{
		BaseEvent: events.NewBaseEvent(events.EventTitleDeleted, userID, id),
		Title:     name,
	}, nil
}

func listTitles(ctx context.Context, q querier, userID string) ([]library.TrackedTitle, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT "+titleColumns+" FROM tracked_titles WHERE user_id = ? ORDER BY seq", userID)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []library.TrackedTitle{}
	for rows.Next() {
		var (
			t      library.TrackedTitle
			status string
			total  sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.CatalogID, &t.Title, &t.ImageURL, &status, &t.Progress, &total, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		t.Status = library.Status(status)
		if total.Valid {
			t.TotalEpisodes = library.KnownEpisodes(int(total.Int64))
		}
		results = append(results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return results, nil
}

// List returns the user's titles in insertion order.
func (s *Store) List(ctx context.Context, userID string) ([]library.TrackedTitle, error) {
	return listTitles(ctx, s.db, userID)
}
