package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
)

// Profile is the per-user document created at sign-up.
type Profile struct {
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	CreatedAt    time.Time  `json:"created_at"`
	LastModified *time.Time `json:"last_modified,omitempty"` // nil until the first add
}

// ProvisionProfile creates the profile document for a new user.
// Returns library.ErrDuplicate if one exists.
func (s *Store) ProvisionProfile(ctx context.Context, user library.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, email, created_at) VALUES (?, ?, ?)`,
		user.ID, user.Email, s.now(),
	)
	if err != nil {
		return fmt.Errorf("provision profile %s: %w", user.ID, mapSQLiteError(err))
	}
	s.logger.Info("profile provisioned", "user_id", user.ID)
	return nil
}

// Profile returns the user's profile document.
func (s *Store) Profile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	var lastModified sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, email, created_at, last_modified FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.Email, &p.CreatedAt, &lastModified)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, mapSQLiteError(err))
	}
	if lastModified.Valid {
		t := lastModified.Time
		p.LastModified = &t
	}
	return p, nil
}

// touchProfile moves the profile's lastModified marker, creating the
// profile if sign-up never provisioned one.
func touchProfile(ctx context.Context, q querier, userID string, now time.Time) (events.Event, error) {
	_, err := q.ExecContext(ctx, `
		INSERT INTO profiles (user_id, created_at, last_modified) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET last_modified = excluded.last_modified`,
		userID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("touch profile %s: %w", userID, mapSQLiteError(err))
	}
	return &events.ProfileTouched{
		BaseEvent: events.NewBaseEvent(events.EventProfileTouched, userID, ""),
	}, nil
}
