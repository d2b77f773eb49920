package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/events"
	"github.com/vmunix/anitrack/internal/library"
)

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) println(args ...any) {
	fmt.Fprintln(p.w, args...)
}

func (p *printer) printJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (p *printer) printTitles(titles []library.TrackedTitle) {
	for _, t := range titles {
		p.printf("  %-8s %-6d %-44s %s\n", shortID(t.ID), t.CatalogID, truncate(t.Title, 44), t.ProgressText())
	}
}

func (p *printer) printPartitions(parts library.Partitions) {
	if parts.Len() == 0 {
		p.println("Your library is empty. Try 'anitrack search <title>'.")
		return
	}
	first := true
	for _, s := range library.Statuses {
		bucket := parts.Of(s)
		if len(bucket) == 0 {
			continue
		}
		if !first {
			p.println()
		}
		first = false
		p.printf("%s (%d)\n", s.Label(), len(bucket))
		p.printTitles(bucket)
	}
}

// trackedLookup reports whether a catalog id is in the library.
type trackedLookup func(catalogID int64) (library.TrackedTitle, bool)

func (p *printer) printCatalog(entries []catalog.Anime, tracked trackedLookup) {
	if len(entries) == 0 {
		p.println("No results.")
		return
	}
	p.printf("  %-6s %-44s %-6s %-5s %-6s %s\n", "ID", "TITLE", "TYPE", "EPS", "SCORE", "LIBRARY")
	p.println("  " + strings.Repeat("-", 86))
	for i := range entries {
		a := &entries[i]
		eps := "?"
		if n, ok := a.EpisodeCount(); ok {
			eps = fmt.Sprint(n)
		}
		score := "-"
		if a.Score != nil {
			score = fmt.Sprintf("%.2f", *a.Score)
		}
		mark := ""
		if t, ok := tracked(a.MalID); ok {
			mark = t.Status.Label()
		}
		p.printf("  %-6d %-44s %-6s %-5s %-6s %s\n", a.MalID, truncate(a.Title, 44), a.Type, eps, score, mark)
	}
}

func (p *printer) printAnime(a *catalog.Anime, tracked trackedLookup) {
	p.printf("%s\n", a.Title)
	if a.TitleEnglish != "" && a.TitleEnglish != a.Title {
		p.printf("  English:   %s\n", a.TitleEnglish)
	}
	p.printf("  ID:        %d\n", a.MalID)
	if a.Type != "" {
		p.printf("  Type:      %s\n", a.Type)
	}
	eps := "unknown"
	if n, ok := a.EpisodeCount(); ok {
		eps = fmt.Sprint(n)
	}
	p.printf("  Episodes:  %s\n", eps)
	if a.Status != "" {
		p.printf("  Airing:    %s\n", a.Status)
	}
	if a.Season != "" && a.Year > 0 {
		p.printf("  Season:    %s %d\n", a.Season, a.Year)
	}
	if a.Score != nil {
		p.printf("  Score:     %.2f\n", *a.Score)
	}
	if genres := a.GenreNames(); genres != "" {
		p.printf("  Genres:    %s\n", genres)
	}
	if t, ok := tracked(a.MalID); ok {
		p.printf("  Library:   %s, %s\n", t.Status.Label(), t.ProgressText())
	} else {
		p.printf("  Library:   not tracked\n")
	}
	if a.Synopsis != "" {
		p.printf("\n%s\n", a.Synopsis)
	}
}

// describeEvent renders one history entry.
func describeEvent(e events.Event) string {
	switch e := e.(type) {
	case *events.TitleAdded:
		return fmt.Sprintf("added %s to %s", e.Title, library.Status(e.Status).Label())
	case *events.TitleUpdated:
		parts := []string{}
		if e.Status != nil {
			parts = append(parts, "moved to "+library.Status(*e.Status).Label())
		}
		if e.Progress != nil {
			parts = append(parts, fmt.Sprintf("progress %d", *e.Progress))
		}
		name := e.Title
		if name == "" {
			name = shortID(e.EntityID())
		}
		return fmt.Sprintf("%s: %s", name, strings.Join(parts, ", "))
	case *events.TitleDeleted:
		name := e.Title
		if name == "" {
			name = shortID(e.EntityID())
		}
		return "removed " + name
	case *events.ProfileTouched:
		return "library modified"
	default:
		return e.EventType()
	}
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
