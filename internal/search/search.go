// Package search runs debounced catalog queries for search-as-you-type.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/pkg/title"
)

const (
	DefaultDelay     = 500 * time.Millisecond
	DefaultMinLength = 3
	DefaultLimit     = 5
)

// Fetcher runs one catalog query.
type Fetcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Anime, error)
}

// Phase is where the current query stands.
type Phase int

const (
	PhaseIdle    Phase = iota // query too short; results cleared
	PhasePending              // waiting out the quiet period
	PhaseLoading              // request in flight
	PhaseResults              // completed with entries
	PhaseEmpty                // completed with no entries
	PhaseFailed               // completed with an error
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhasePending:
		return "pending"
	case PhaseLoading:
		return "loading"
	case PhaseResults:
		return "results"
	case PhaseEmpty:
		return "empty"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the displayable state of the most recent query.
type Result struct {
	Query   string
	Phase   Phase
	Entries []catalog.Anime // set only in PhaseResults
	Err     error           // set only in PhaseFailed
}

type stopper interface {
	Stop() bool
}

// Searcher debounces query input. Each SetQuery restarts the quiet period
// and cancels any request still in flight, so only the latest query's
// outcome is ever published.
type Searcher struct {
	fetcher   Fetcher
	delay     time.Duration
	minLength int
	limit     int
	logger    *slog.Logger
	afterFunc func(time.Duration, func()) stopper

	mu      sync.Mutex
	seq     uint64
	timer   stopper
	cancel  context.CancelFunc
	state   Result
	updates chan struct{}
	closed  bool
	wg      sync.WaitGroup
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithDelay sets the quiet period.
func WithDelay(d time.Duration) Option {
	return func(s *Searcher) {
		s.delay = d
	}
}

// WithMinLength sets the minimum query length in characters.
func WithMinLength(n int) Option {
	return func(s *Searcher) {
		s.minLength = n
	}
}

// WithLimit sets the number of entries requested per query.
func WithLimit(n int) Option {
	return func(s *Searcher) {
		s.limit = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// New creates a Searcher over fetcher.
func New(fetcher Fetcher, opts ...Option) *Searcher {
	s := &Searcher{
		fetcher:   fetcher,
		delay:     DefaultDelay,
		minLength: DefaultMinLength,
		limit:     DefaultLimit,
		logger:    slog.Default(),
		afterFunc: func(d time.Duration, f func()) stopper { return time.AfterFunc(d, f) },
		updates:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "search")
	return s
}

// SetQuery records new input. Queries shorter than the minimum length clear
// the results without a request.
func (s *Searcher) SetQuery(q string) {
	q = title.NormalizeQuery(q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.seq++
	s.stopLocked()

	if utf8.RuneCountInString(q) < s.minLength {
		s.setLocked(Result{Query: q, Phase: PhaseIdle})
		return
	}

	seq := s.seq
	s.setLocked(Result{Query: q, Phase: PhasePending})
	s.timer = s.afterFunc(s.delay, func() { s.fire(seq, q) })
}

// fire runs on the timer goroutine once the quiet period passes.
func (s *Searcher) fire(seq uint64, q string) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.timer = nil
	s.cancel = cancel
	s.setLocked(Result{Query: q, Phase: PhaseLoading})
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer cancel()

	entries, err := s.fetcher.Search(ctx, q, s.limit)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.seq {
		s.logger.Debug("discarding superseded result", "query", q)
		return
	}
	s.cancel = nil

	switch {
	case err != nil:
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("catalog search failed", "query", q, "error", err)
		}
		s.setLocked(Result{Query: q, Phase: PhaseFailed, Err: err})
	case len(entries) == 0:
		s.setLocked(Result{Query: q, Phase: PhaseEmpty})
	default:
		s.setLocked(Result{Query: q, Phase: PhaseResults, Entries: entries})
	}
}

// State returns the current result.
func (s *Searcher) State() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Updates signals after every state change. Signals coalesce; read State
// after each one. The channel is closed by Close.
func (s *Searcher) Updates() <-chan struct{} {
	return s.updates
}

// Close cancels pending work and waits for any in-flight request to return.
func (s *Searcher) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopLocked()
	close(s.updates)
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Searcher) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Searcher) setLocked(r Result) {
	s.state = r
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
