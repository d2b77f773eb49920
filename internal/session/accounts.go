package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Account is a local sign-in identity.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

var errNoAccount = errors.New("account not found")

// Accounts stores accounts in SQLite.
type Accounts struct {
	db *sql.DB
}

// NewAccounts creates an account store.
func NewAccounts(db *sql.DB) *Accounts {
	return &Accounts{db: db}
}

// Create inserts a new account. Returns ErrEmailInUse if the email is taken.
func (a *Accounts) Create(ctx context.Context, acct *Account) error {
	now := time.Now().UTC()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		acct.ID, acct.Email, acct.PasswordHash, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrEmailInUse
		}
		return fmt.Errorf("insert account: %w", err)
	}
	acct.CreatedAt = now
	return nil
}

// ByEmail finds an account by email, ignoring case.
func (a *Accounts) ByEmail(ctx context.Context, email string) (*Account, error) {
	return a.get(ctx, `WHERE email = ?`, email)
}

// ByID finds an account by id.
func (a *Accounts) ByID(ctx context.Context, id string) (*Account, error) {
	return a.get(ctx, `WHERE id = ?`, id)
}

func (a *Accounts) get(ctx context.Context, where string, arg any) (*Account, error) {
	acct := &Account{}
	err := a.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM accounts `+where, arg,
	).Scan(&acct.ID, &acct.Email, &acct.PasswordHash, &acct.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoAccount
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return acct, nil
}

// Delete removes an account.
func (a *Accounts) Delete(ctx context.Context, id string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	return nil
}
