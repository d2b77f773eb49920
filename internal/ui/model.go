package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vmunix/anitrack/internal/catalog"
	"github.com/vmunix/anitrack/internal/library"
	"github.com/vmunix/anitrack/internal/search"
)

// Searcher is the debounced query source the model drives.
type Searcher interface {
	SetQuery(q string)
	State() search.Result
	Updates() <-chan struct{}
}

// Adder writes a catalog entry into the library.
type Adder interface {
	Add(ctx context.Context, entry catalog.Anime, status library.Status) (library.TrackedTitle, error)
}

// Model is the search-and-add screen.
type Model struct {
	ctx      context.Context
	searcher Searcher
	adder    Adder

	input   textinput.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	result search.Result
	cursor int
	status library.Status
	adding bool
	notice string
	err    error
	width  int
}

// NewModel creates the screen. Adds use status until the user cycles it.
func NewModel(ctx context.Context, searcher Searcher, adder Adder, status library.Status) *Model {
	if status == "" {
		status = library.StatusPlanToWatch
	}

	input := textinput.New()
	input.Placeholder = "Search anime"
	input.Prompt = "› "
	input.CharLimit = 100
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:      ctx,
		searcher: searcher,
		adder:    adder,
		input:    input,
		spinner:  sp,
		help:     help.New(),
		keys:     newKeyMap(),
		status:   status,
	}
}

// Init starts the cursor blink, the spinner and the search listener.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForSearch())
}

func (m *Model) waitForSearch() tea.Cmd {
	updates := m.searcher.Updates()
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return searchClosedMsg{}
		}
		return searchUpdatedMsg{result: m.searcher.State()}
	}
}

func (m *Model) addSelected() tea.Cmd {
	entry, ok := m.selected()
	if !ok || m.adding {
		return nil
	}
	m.adding = true
	m.notice = ""
	m.err = nil

	ctx, adder, status := m.ctx, m.adder, m.status
	return func() tea.Msg {
		t, err := adder.Add(ctx, entry, status)
		return addedMsg{title: t, err: err}
	}
}

func (m *Model) selected() (catalog.Anime, bool) {
	if m.result.Phase != search.PhaseResults || m.cursor >= len(m.result.Entries) {
		return catalog.Anime{}, false
	}
	return m.result.Entries[m.cursor], true
}

// Update handles incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case searchUpdatedMsg:
		m.result = msg.result
		if m.cursor >= len(m.result.Entries) {
			m.cursor = 0
		}
		return m, m.waitForSearch()

	case searchClosedMsg:
		return m, tea.Quit

	case addedMsg:
		m.adding = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.notice = fmt.Sprintf("Added %s to %s", msg.title.Title, msg.title.Status.Label())
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, m.keys.down):
		if m.cursor < len(m.result.Entries)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, m.keys.add):
		return m, m.addSelected()
	case key.Matches(msg, m.keys.status):
		m.status = nextStatus(m.status)
		return m, nil
	case key.Matches(msg, m.keys.clear):
		m.input.SetValue("")
		m.searcher.SetQuery("")
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != before {
		m.notice = ""
		m.err = nil
		m.searcher.SetQuery(q)
	}
	return m, cmd
}

func nextStatus(s library.Status) library.Status {
	for i, st := range library.Statuses {
		if st == s {
			return library.Statuses[(i+1)%len(library.Statuses)]
		}
	}
	return library.StatusPlanToWatch
}

// View renders the screen.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Add to library"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch m.result.Phase {
	case search.PhaseIdle:
		b.WriteString(styles.dim.Render("Type at least a few characters to search."))
	case search.PhasePending, search.PhaseLoading:
		b.WriteString(m.spinner.View() + " Searching…")
	case search.PhaseEmpty:
		b.WriteString(styles.warn.Render(fmt.Sprintf("No results for %q.", m.result.Query)))
	case search.PhaseFailed:
		b.WriteString(styles.err.Render("Search failed: " + m.result.Err.Error()))
	case search.PhaseResults:
		for i, a := range m.result.Entries {
			b.WriteString(m.renderEntry(i, a))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")

	b.WriteString("Status: " + styles.selected.Render(m.status.Label()))
	b.WriteString("\n")
	switch {
	case m.adding:
		b.WriteString(m.spinner.View() + " Adding…")
	case m.err != nil:
		b.WriteString(styles.err.Render(addErrorText(m.err)))
	case m.notice != "":
		b.WriteString(styles.ok.Render(m.notice))
	}
	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *Model) renderEntry(i int, a catalog.Anime) string {
	line := a.Title
	meta := []string{}
	if a.Type != "" {
		meta = append(meta, a.Type)
	}
	if n, ok := a.EpisodeCount(); ok {
		meta = append(meta, fmt.Sprintf("%d eps", n))
	}
	if a.Year > 0 {
		meta = append(meta, fmt.Sprint(a.Year))
	}
	if len(meta) > 0 {
		line += " " + styles.dim.Render("("+strings.Join(meta, ", ")+")")
	}
	if i == m.cursor {
		return styles.selected.Render("› ") + line
	}
	return "  " + line
}

func addErrorText(err error) string {
	switch {
	case errors.Is(err, library.ErrDuplicate):
		return "Already in your library."
	case errors.Is(err, library.ErrNotAuthenticated):
		return "Sign in to add titles."
	default:
		return "Add failed: " + err.Error()
	}
}
