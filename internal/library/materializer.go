package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errMaterializerClosed = errors.New("materializer closed")

// State is a consistent snapshot of the materialized library.
type State struct {
	User    *User
	Titles  []TrackedTitle // shared; do not modify
	Loading bool           // subscribed but nothing pushed yet
	Err     error          // last subscription failure; cleared by the next push
	Version uint64         // increments on every list replacement
}

// Materializer keeps the active user's library in memory. It holds at most
// one Store subscription, replaces the list wholesale on every push, and
// derives the status partitions on demand.
type Materializer struct {
	store  Store
	logger *slog.Logger

	mu       sync.RWMutex
	user     *User
	titles   []TrackedTitle
	loading  bool
	err      error
	version  uint64
	gen      uint64 // session generation; callbacks from older generations are ignored
	sub      Subscription
	failed   bool // the active user's Subscribe call returned an error
	ready    chan struct{}
	memo     *partitionMemo
	watchers map[chan struct{}]struct{}
	closed   bool
}

type partitionMemo struct {
	version uint64
	parts   Partitions
}

// NewMaterializer creates a Materializer with no active session.
func NewMaterializer(store Store, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	ready := make(chan struct{})
	close(ready)
	return &Materializer{
		store:    store,
		logger:   logger.With("component", "materializer"),
		ready:    ready,
		watchers: make(map[chan struct{}]struct{}),
	}
}

// OnSessionChange follows the signed-in user. A new user opens one
// subscription to their library; nil closes it and empties the list.
// Repeating the current user is a no-op unless their subscription could
// not be opened, in which case it is retried.
func (m *Materializer) OnSessionChange(ctx context.Context, user *User) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return errMaterializerClosed
	}
	if sameUser(m.user, user) && !m.failed {
		m.mu.Unlock()
		return nil
	}

	m.gen++
	gen := m.gen
	old := m.sub
	m.sub = nil
	m.failed = false
	m.user = copyUser(user)
	m.titles = nil
	m.version++
	m.err = nil
	m.loading = user != nil
	m.ready = make(chan struct{})
	if user == nil {
		close(m.ready)
	}
	m.mu.Unlock()
	m.notify()

	// Closed outside the lock: Close waits for in-flight callbacks, and
	// those callbacks take the lock.
	if old != nil {
		if err := old.Close(); err != nil {
			m.logger.Warn("close subscription", "error", err)
		}
		m.logger.Info("library subscription closed")
	}
	if user == nil {
		return nil
	}

	sub, err := m.store.Subscribe(ctx, user.ID, Observer{
		Next:  func(titles []TrackedTitle) { m.apply(gen, titles) },
		Error: func(err error) { m.fail(gen, err) },
	})
	if err != nil {
		err = remoteErr("subscribe", err)
		m.mu.Lock()
		if m.gen == gen {
			m.failed = true
		}
		m.mu.Unlock()
		m.fail(gen, err)
		return err
	}

	m.mu.Lock()
	if m.gen != gen {
		// Superseded while subscribing.
		m.mu.Unlock()
		_ = sub.Close()
		return nil
	}
	m.sub = sub
	m.mu.Unlock()

	m.logger.Info("library subscription opened", "user_id", user.ID)
	return nil
}

func (m *Materializer) apply(gen uint64, titles []TrackedTitle) {
	owned := make([]TrackedTitle, len(titles))
	copy(owned, titles)

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.titles = owned
	m.version++
	m.loading = false
	m.err = nil
	m.markReadyLocked()
	m.mu.Unlock()

	m.logger.Debug("library pushed", "titles", len(owned))
	m.notify()
}

func (m *Materializer) fail(gen uint64, err error) {
	if !errors.Is(err, ErrRemoteUnavailable) {
		err = fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.loading = false
	m.err = err
	m.markReadyLocked()
	m.mu.Unlock()

	m.logger.Warn("library subscription error", "error", err)
	m.notify()
}

func (m *Materializer) markReadyLocked() {
	select {
	case <-m.ready:
	default:
		close(m.ready)
	}
}

// State returns a consistent snapshot.
func (m *Materializer) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		User:    copyUser(m.user),
		Titles:  m.titles,
		Loading: m.loading,
		Err:     m.err,
		Version: m.version,
	}
}

// User returns the active user, nil when signed out.
func (m *Materializer) User() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyUser(m.user)
}

// Titles returns the current list in store order.
func (m *Materializer) Titles() []TrackedTitle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.titles
}

// Lookup finds a title by document id.
func (m *Materializer) Lookup(id string) (TrackedTitle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.titles {
		if t.ID == id {
			return t, true
		}
	}
	return TrackedTitle{}, false
}

// FindByCatalogID finds a title by its catalog id.
func (m *Materializer) FindByCatalogID(catalogID int64) (TrackedTitle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.titles {
		if t.CatalogID == catalogID {
			return t, true
		}
	}
	return TrackedTitle{}, false
}

// Partitions returns the current list split by status. The result is
// reused until the list is replaced.
func (m *Materializer) Partitions() Partitions {
	m.mu.RLock()
	if m.memo != nil && m.memo.version == m.version {
		p := m.memo.parts
		m.mu.RUnlock()
		return p
	}
	titles, version := m.titles, m.version
	m.mu.RUnlock()

	p := PartitionByStatus(titles)

	m.mu.Lock()
	if m.version == version {
		m.memo = &partitionMemo{version: version, parts: p}
	}
	m.mu.Unlock()
	return p
}

// Ready blocks until the active session's first push or subscription
// error. It returns ErrNotAuthenticated when no user is signed in.
func (m *Materializer) Ready(ctx context.Context) error {
	m.mu.RLock()
	ready := m.ready
	m.mu.RUnlock()

	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	st := m.State()
	if st.User == nil {
		return ErrNotAuthenticated
	}
	return st.Err
}

// Watch returns a channel that is signalled after every state change, and
// a func that stops the signals. Signals coalesce.
func (m *Materializer) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	m.watchers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if _, ok := m.watchers[ch]; ok {
				delete(m.watchers, ch)
				close(ch)
			}
		})
	}
}

func (m *Materializer) notify() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for ch := range m.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close ends the active session's subscription and closes all watchers.
// The Materializer cannot be reused.
func (m *Materializer) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.gen++
	old := m.sub
	m.sub = nil
	m.failed = false
	m.user = nil
	m.titles = nil
	m.version++
	m.loading = false
	m.markReadyLocked()
	for ch := range m.watchers {
		close(ch)
	}
	m.watchers = make(map[chan struct{}]struct{})
	m.mu.Unlock()

	if old != nil {
		return old.Close()
	}
	return nil
}

func sameUser(a, b *User) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func copyUser(u *User) *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
