package ui

import (
	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/search"
)

// searchUpdatedMsg carries the searcher's state after a change.
type searchUpdatedMsg struct {
	result search.Result
}

// searchClosedMsg reports that the searcher stopped publishing.
type searchClosedMsg struct{}

// addedMsg reports the outcome of an add.
type addedMsg struct {
	title library.TrackedTitle
	err   error
}
