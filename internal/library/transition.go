package library

import (
	"fmt"
	"strconv"
	"strings"
)

// DeriveStatusUpdate returns the fields to write when current moves to next.
// Entering completed sets progress to the total when it is known. Entering
// watching from another status resets progress to zero. The status is
// always written.
func DeriveStatusUpdate(current TrackedTitle, next Status) Update {
	u := Update{Status: &next}
	switch {
	case next == StatusCompleted:
		if n, ok := current.TotalEpisodes.Count(); ok {
			u.Progress = &n
		}
	case next == StatusWatching && current.Status != StatusWatching:
		zero := 0
		u.Progress = &zero
	}
	return u
}

// ValidateProgress checks n against the title's bounds.
func ValidateProgress(t TrackedTitle, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: progress %d is negative", ErrValidation, n)
	}
	if total, ok := t.TotalEpisodes.Count(); ok && n > total {
		return fmt.Errorf("%w: progress %d exceeds %d episodes", ErrValidation, n, total)
	}
	return nil
}

// ParseProgress parses free-text progress input as a non-negative integer.
func ParseProgress(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: progress %q is not a whole number", ErrValidation, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: progress %d is negative", ErrValidation, n)
	}
	return n, nil
}
