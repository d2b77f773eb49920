package docstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
)

const changeBuffer = 16

// Subscribe delivers the user's titles once before returning, then again
// after every change published for that user. Commits made through other
// connections, such as another anitrack process, are picked up by polling
// the database's data version. Reload failures go to obs.Error and the
// subscription keeps running.
func (s *Store) Subscribe(ctx context.Context, userID string, obs library.Observer) (library.Subscription, error) {
	// Subscribe before the first load so no change can fall between them.
	changes := s.bus.Subscribe(userID, changeBuffer)

	var version int64
	if s.poll > 0 {
		v, err := s.dataVersion(ctx)
		if err != nil {
			s.bus.Unsubscribe(changes)
			return nil, fmt.Errorf("subscribe %s: %w", userID, err)
		}
		version = v
	}

	titles, err := s.List(ctx, userID)
	if err != nil {
		s.bus.Unsubscribe(changes)
		return nil, fmt.Errorf("subscribe %s: %w", userID, err)
	}
	if obs.Next != nil {
		obs.Next(titles)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{
		bus:     s.bus,
		changes: changes,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	w := &watcher{
		store:   s,
		userID:  userID,
		obs:     obs,
		last:    titles,
		version: version,
	}
	go w.run(runCtx, sub)

	s.logger.Debug("subscribed", "user_id", userID, "titles", len(titles))
	return sub, nil
}

// dataVersion changes whenever another connection commits to the database.
// Commits on this connection leave it alone; the bus covers those.
func (s *Store) dataVersion(ctx context.Context) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA data_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read data version: %w", err)
	}
	return v, nil
}

type watcher struct {
	store   *Store
	userID  string
	obs     library.Observer
	last    []library.TrackedTitle
	version int64
}

func (w *watcher) run(ctx context.Context, sub *subscription) {
	defer close(sub.done)

	var tick <-chan time.Time
	if w.store.poll > 0 {
		ticker := time.NewTicker(w.store.poll)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.changes:
			if !ok {
				return
			}
			// One reload covers every change queued so far.
			if !drain(sub.changes) {
				return
			}
			w.reload(ctx, true)
		case <-tick:
			v, err := w.store.dataVersion(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				w.store.logger.Warn("poll failed", "user_id", w.userID, "error", err)
				continue
			}
			if v == w.version {
				continue
			}
			w.version = v
			// The commit may belong to another user; push only real changes.
			w.reload(ctx, false)
		}
	}
}

func (w *watcher) reload(ctx context.Context, always bool) {
	titles, err := w.store.List(ctx, w.userID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		w.store.logger.Warn("reload failed", "user_id", w.userID, "error", err)
		if w.obs.Error != nil {
			w.obs.Error(err)
		}
		return
	}
	if !always && sameTitles(w.last, titles) {
		return
	}
	w.last = titles
	if w.obs.Next != nil {
		w.obs.Next(titles)
	}
}

func sameTitles(a, b []library.TrackedTitle) bool {
	return slices.EqualFunc(a, b, func(x, y library.TrackedTitle) bool {
		return x.ID == y.ID &&
			x.CatalogID == y.CatalogID &&
			x.Title == y.Title &&
			x.ImageURL == y.ImageURL &&
			x.Status == y.Status &&
			x.Progress == y.Progress &&
			x.TotalEpisodes == y.TotalEpisodes &&
			x.CreatedAt.Equal(y.CreatedAt)
	})
}

// drain empties ch without blocking. It reports false if ch was closed.
func drain(ch <-chan events.Event) bool {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}

type subscription struct {
	bus     *events.Bus
	changes <-chan events.Event
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Close stops the watcher and waits for it to exit.
func (s *subscription) Close() error {
	s.once.Do(func() {
		s.cancel()
		s.bus.Unsubscribe(s.changes)
		<-s.done
	})
	return nil
}
