package catalog

import (
	"slices"
	"sync"
	"time"
)

// cache holds anime details by id. Entries are stored and returned as
// copies so callers can't change what other callers see.
type cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[int64]cached
}

type cached struct {
	anime   Anime
	expires time.Time
}

func newCache(ttl time.Duration) *cache {
	return &cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]cached),
	}
}

func (c *cache) get(malID int64) (Anime, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[malID]
	if !ok {
		return Anime{}, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, malID)
		return Anime{}, false
	}
	return cloneAnime(e.anime), true
}

func (c *cache) set(malID int64, a Anime) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, id)
		}
	}
	c.entries[malID] = cached{anime: cloneAnime(a), expires: now.Add(c.ttl)}
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cloneAnime copies a, including the values behind its pointers and slices.
func cloneAnime(a Anime) Anime {
	if a.Episodes != nil {
		n := *a.Episodes
		a.Episodes = &n
	}
	if a.Score != nil {
		s := *a.Score
		a.Score = &s
	}
	a.Genres = slices.Clone(a.Genres)
	return a
}
