// Package ui is the interactive terminal front end: a debounced catalog
// search box whose results can be added to the signed-in user's library.
//
// The model follows the Elm architecture of [tea.Model]. Search results
// arrive as messages read from the searcher's update channel, so the view
// only ever shows the latest query's outcome.
package ui
