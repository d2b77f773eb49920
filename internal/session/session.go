// Package session manages the signed-in user: local accounts, a persisted
// session token, and change notification for the library layer.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vmunix/anitrack/internal/library"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// bcrypt ignores input past 72 bytes.
const maxPasswordLength = 72

// Provisioner creates the per-user profile document at sign-up.
type Provisioner interface {
	ProvisionProfile(ctx context.Context, user library.User) error
}

// Manager owns the current session.
type Manager struct {
	accounts  *Accounts
	profiles  Provisioner
	tokens    TokenService
	tokenFile string
	logger    *slog.Logger
	hashCost  int

	mu        sync.RWMutex
	current   *library.User
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(*library.User)
}

// NewManager creates a signed-out Manager. An empty tokenFile disables
// session persistence.
func NewManager(accounts *Accounts, profiles Provisioner, tokens TokenService, tokenFile string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		accounts:  accounts,
		profiles:  profiles,
		tokens:    tokens,
		tokenFile: tokenFile,
		logger:    logger.With("component", "session"),
		hashCost:  bcrypt.DefaultCost,
	}
}

// SignUp creates an account, provisions its profile and signs it in.
func (m *Manager) SignUp(ctx context.Context, email, password string) (*library.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, MinPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return nil, fmt.Errorf("%w: at most %d characters allowed", ErrWeakPassword, maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), m.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &Account{ID: uuid.NewString(), Email: email, PasswordHash: string(hash)}
	if err := m.accounts.Create(ctx, acct); err != nil {
		return nil, err
	}

	user := library.User{ID: acct.ID, Email: acct.Email}
	if err := m.profiles.ProvisionProfile(ctx, user); err != nil {
		if derr := m.accounts.Delete(ctx, acct.ID); derr != nil {
			m.logger.Error("remove account after failed provisioning", "user_id", acct.ID, "error", derr)
		}
		return nil, fmt.Errorf("provision profile: %w", err)
	}

	m.logger.Info("account created", "user_id", user.ID, "email", user.Email)
	if err := m.begin(user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignIn checks the credentials and makes the account current.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*library.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	acct, err := m.accounts.ByEmail(ctx, email)
	if errors.Is(err, errNoAccount) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user := library.User{ID: acct.ID, Email: acct.Email}
	if err := m.begin(user); err != nil {
		return nil, err
	}
	m.logger.Info("signed in", "user_id", user.ID)
	return &user, nil
}

// SignOut ends the session and removes the persisted token.
func (m *Manager) SignOut(ctx context.Context) error {
	if m.tokenFile != "" {
		if err := os.Remove(m.tokenFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove session token: %w", err)
		}
	}
	if u := m.Current(); u != nil {
		m.logger.Info("signed out", "user_id", u.ID)
	}
	m.set(nil)
	return nil
}

// Restore resumes the session saved in the token file. A missing, expired
// or otherwise invalid token leaves the Manager signed out.
func (m *Manager) Restore(ctx context.Context) (*library.User, error) {
	if m.tokenFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(m.tokenFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}

	claims, err := m.tokens.Parse(strings.TrimSpace(string(data)))
	if err != nil {
		m.logger.Warn("discarding session token", "error", err)
		_ = os.Remove(m.tokenFile)
		return nil, nil
	}

	acct, err := m.accounts.ByID(ctx, claims.Subject)
	if errors.Is(err, errNoAccount) {
		m.logger.Warn("session token for unknown account", "user_id", claims.Subject)
		_ = os.Remove(m.tokenFile)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user := library.User{ID: acct.ID, Email: acct.Email}
	m.set(&user)
	m.logger.Debug("session restored", "user_id", user.ID)
	return &user, nil
}

// Current returns the signed-in user, nil when signed out.
func (m *Manager) Current() *library.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.current)
}

// Subscribe calls fn with the current user now and after every change.
// The returned func stops the calls.
func (m *Manager) Subscribe(fn func(*library.User)) (cancel func()) {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.listeners = append(m.listeners, listener{id: id, fn: fn})
	current := copyUser(m.current)
	m.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			for i, l := range m.listeners {
				if l.id == id {
					m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) begin(user library.User) error {
	if err := m.persist(user); err != nil {
		return err
	}
	m.set(&user)
	return nil
}

func (m *Manager) persist(user library.User) error {
	if m.tokenFile == "" {
		return nil
	}
	token, _, err := m.tokens.Sign(user)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(m.tokenFile), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(m.tokenFile, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write session token: %w", err)
	}
	return nil
}

// set replaces the current user and notifies listeners outside the lock.
// Setting the same user again notifies nobody.
func (m *Manager) set(user *library.User) {
	m.mu.Lock()
	if sameUser(m.current, user) {
		m.mu.Unlock()
		return
	}
	m.current = copyUser(user)
	listeners := make([]listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l.fn(copyUser(user))
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}

func sameUser(a, b *library.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func copyUser(u *library.User) *library.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
