// Package library holds a user's tracked anime: the document model, the
// materialized live list, and the gateway through which every write goes.
package library

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the watch state of a tracked title.
type Status string

const (
	StatusWatching    Status = "watching"
	StatusCompleted   Status = "completed"
	StatusOnHold      Status = "on-hold"
	StatusPlanToWatch Status = "plan-to-watch"
	StatusDropped     Status = "dropped"
)

// Statuses lists every status in canonical order.
var Statuses = []Status{
	StatusWatching,
	StatusCompleted,
	StatusOnHold,
	StatusPlanToWatch,
	StatusDropped,
}

var statusLabels = map[Status]string{
	StatusWatching:    "Watching",
	StatusCompleted:   "Completed",
	StatusOnHold:      "On-Hold",
	StatusPlanToWatch: "Plan to Watch",
	StatusDropped:     "Dropped",
}

// Valid reports whether s is one of the five statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the display name, e.g. "Plan to Watch".
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// TracksProgress reports whether progress is stepped interactively in s.
func (s Status) TracksProgress() bool {
	return s == StatusWatching || s == StatusOnHold
}

func (s Status) index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStatus parses a status key or label. Matching ignores case, and
// spaces or underscores stand in for hyphens ("plan to watch", "ON_HOLD").
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "-", "_", "-").Replace(norm)
	if st := Status(norm); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Episodes is a total episode count that may be unknown.
// The zero value is unknown.
type Episodes struct {
	n     int
	known bool
}

// UnknownEpisodes is the sentinel for titles whose length is not published.
var UnknownEpisodes = Episodes{}

const unknownEpisodes = "unknown"

// KnownEpisodes returns a known total. Negative counts are treated as unknown.
func KnownEpisodes(n int) Episodes {
	if n < 0 {
		return UnknownEpisodes
	}
	return Episodes{n: n, known: true}
}

// EpisodesFromPtr converts a catalog episode count. The catalog reports
// unaired and ongoing series as null or 0; both mean unknown.
func EpisodesFromPtr(n *int) Episodes {
	if n == nil || *n <= 0 {
		return UnknownEpisodes
	}
	return KnownEpisodes(*n)
}

// Count returns the total and whether it is known.
func (e Episodes) Count() (int, bool) {
	return e.n, e.known
}

// Known reports whether the total is a number.
func (e Episodes) Known() bool {
	return e.known
}

// Ptr returns the total as a nullable int, nil when unknown.
func (e Episodes) Ptr() *int {
	if !e.known {
		return nil
	}
	n := e.n
	return &n
}

func (e Episodes) String() string {
	if !e.known {
		return unknownEpisodes
	}
	return strconv.Itoa(e.n)
}

// MarshalJSON encodes a number, or the string "unknown".
func (e Episodes) MarshalJSON() ([]byte, error) {
	if !e.known {
		return json.Marshal(unknownEpisodes)
	}
	return json.Marshal(e.n)
}

// UnmarshalJSON accepts a number, null, or "unknown".
func (e *Episodes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = UnknownEpisodes
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != unknownEpisodes {
			return fmt.Errorf("invalid episode count %q", s)
		}
		*e = UnknownEpisodes
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid episode count: %w", err)
	}
	if n < 0 {
		return fmt.Errorf("invalid episode count %d", n)
	}
	*e = KnownEpisodes(n)
	return nil
}

// TrackedTitle is one document in a user's library.
// CatalogID, Title, ImageURL, TotalEpisodes and CreatedAt never change
// after creation.
type TrackedTitle struct {
	ID            string    `json:"id"`
	CatalogID     int64     `json:"catalog_id"`
	Title         string    `json:"title"`
	ImageURL      string    `json:"image_url"`
	Status        Status    `json:"status"`
	Progress      int       `json:"progress"`
	TotalEpisodes Episodes  `json:"total_episodes"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProgressText renders "3 / 12", or "3 / ?" when the total is unknown.
func (t TrackedTitle) ProgressText() string {
	if n, ok := t.TotalEpisodes.Count(); ok {
		return fmt.Sprintf("%d / %d", t.Progress, n)
	}
	return fmt.Sprintf("%d / ?", t.Progress)
}

// User identifies the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Update is a partial write of a title's mutable fields.
// Nil fields are left untouched.
type Update struct {
	Status   *Status
	Progress *int
}

// IsEmpty reports whether the update writes nothing.
func (u Update) IsEmpty() bool {
	return u.Status == nil && u.Progress == nil
}

// Apply returns t with the update's fields written.
func (u Update) Apply(t TrackedTitle) TrackedTitle {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Progress != nil {
		t.Progress = *u.Progress
	}
	return t
}
