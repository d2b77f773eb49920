package ui

import "github.com/charmbracelet/lipgloss"

var styles = newPalette("#7D56F4", "#04B575", "#FF5F5F", "#FFA500", "#626262")

// palette is a small stylesheet of named [lipgloss.Style] fields.
type palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	selected lipgloss.Style
	dim      lipgloss.Style
}

func newPalette(title, ok, errColor, warn, help string) *palette {
	return &palette{
		title:    newBold(title).MarginBottom(1),
		ok:       newBold(ok),
		err:      newBold(errColor),
		warn:     newStyle(warn),
		help:     newStyle(help).Italic(true),
		selected: newBold(title),
		dim:      newStyle(help),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func newBold(fg string) lipgloss.Style {
	return newStyle(fg).Bold(true)
}
