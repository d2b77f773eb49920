package library

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vmunix/anitrack/pkg/title"
)

// Resolve finds the title a user means by ref: a document id, a catalog id,
// or a title close enough to match with at least medium confidence.
func Resolve(titles []TrackedTitle, ref string) (TrackedTitle, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return TrackedTitle{}, fmt.Errorf("%w: empty title reference", ErrValidation)
	}

	for _, t := range titles {
		if t.ID == ref {
			return t, nil
		}
	}
	if catalogID, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for _, t := range titles {
			if t.CatalogID == catalogID {
				return t, nil
			}
		}
	}

	names := make([]string, len(titles))
	for i, t := range titles {
		names[i] = t.Title
	}
	ranked := title.Rank(ref, names)
	if len(ranked) == 0 || ranked[0].Confidence < title.ConfidenceMedium {
		return TrackedTitle{}, fmt.Errorf("%q: %w", ref, ErrNotFound)
	}
	if len(ranked) > 1 && ranked[1].Score == ranked[0].Score && ranked[0].Score < 1 {
		return TrackedTitle{}, fmt.Errorf("%w: %q matches both %q and %q", ErrValidation, ref, ranked[0].Title, ranked[1].Title)
	}
	return titles[ranked[0].Index], nil
}
