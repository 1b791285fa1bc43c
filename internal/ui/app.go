package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/cquery/internal/prefs"
	"github.com/five82/cquery/internal/state"
)

// Invalidator re-fetches prepared queries.
type Invalidator interface {
	Invalidate(key string) error
}

// Options configures the dashboard.
type Options struct {
	Store       *state.Store
	Queries     Invalidator
	RefreshTick time.Duration // how often the store is re-read; zero uses one second
	ThemeName   string
	Now         func() time.Time

	// PrefsPath is where the theme and selection are saved; empty disables
	// saving. SelectKey is the query to select once it appears.
	PrefsPath string
	SelectKey string
}

// Model is the root dashboard state for Bubble Tea.
type Model struct {
	store       *state.Store
	queries     Invalidator
	refreshTick time.Duration
	now         func() time.Time
	prefsPath   string
	selectKey   string

	keys    keyMap
	spinner spinner.Model
	theme   Theme
	width   int
	height  int
	ready   bool

	entries     []state.Entry
	selected    int
	lastRefresh time.Time
	lastErr     error
}

// New creates a dashboard model.
func New(opts Options) Model {
	refreshTick := opts.RefreshTick
	if refreshTick <= 0 {
		refreshTick = time.Second
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		store:       opts.Store,
		queries:     opts.Queries,
		refreshTick: refreshTick,
		now:         now,
		prefsPath:   opts.PrefsPath,
		selectKey:   opts.SelectKey,
		keys:        defaultKeyMap(),
		spinner:     s,
		theme:       GetTheme(opts.ThemeName),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		tickCmd(m.refreshTick),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd(m.refreshTick)}
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.entries = []state.Entry(msg)
		m.lastRefresh = m.now()
		m.applySelectKey()
		m.clampSelection()
		return m, nil

	case invalidatedMsg:
		m.lastErr = msg.err
		if m.store == nil {
			return m, nil
		}
		return m, fetchSnapshotCmd(m.store)

	case prefsSavedMsg:
		if msg.err != nil {
			m.lastErr = msg.err
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	return m.renderMain()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if cmd := m.savePrefsCmd(); cmd != nil {
			return m, tea.Sequence(cmd, tea.Quit)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.entries)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if e, ok := m.selectedEntry(); ok {
			return m, invalidateCmd(m.queries, e.Key)
		}
		return m, nil

	case key.Matches(msg, m.keys.RefreshAll):
		keys := make([]string, 0, len(m.entries))
		for _, e := range m.entries {
			keys = append(keys, e.Key)
		}
		return m, invalidateCmd(m.queries, keys...)

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		return m, m.savePrefsCmd()
	}
	return m, nil
}

func (m Model) selectedEntry() (state.Entry, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return state.Entry{}, false
	}
	return m.entries[m.selected], true
}

// applySelectKey moves the selection to selectKey the first time that
// query shows up in a snapshot.
func (m *Model) applySelectKey() {
	if m.selectKey == "" {
		return
	}
	for i, e := range m.entries {
		if e.Key == m.selectKey {
			m.selected = i
			m.selectKey = ""
			return
		}
	}
}

func (m *Model) clampSelection() {
	if m.selected >= len(m.entries) {
		m.selected = len(m.entries) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg []state.Entry

type invalidatedMsg struct {
	keys []string
	err  error
}

type prefsSavedMsg struct {
	err error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func invalidateCmd(queries Invalidator, keys ...string) tea.Cmd {
	if queries == nil || len(keys) == 0 {
		return nil
	}
	return func() tea.Msg {
		var errs []error
		for _, k := range keys {
			if err := queries.Invalidate(k); err != nil {
				errs = append(errs, err)
			}
		}
		return invalidatedMsg{keys: keys, err: errors.Join(errs...)}
	}
}

func (m Model) savePrefsCmd() tea.Cmd {
	if m.prefsPath == "" {
		return nil
	}
	p := prefs.Prefs{Theme: m.theme.Name}
	if e, ok := m.selectedEntry(); ok {
		p.Selected = e.Key
	}
	path := m.prefsPath
	return func() tea.Msg {
		if err := prefs.Save(path, p); err != nil {
			return prefsSavedMsg{err: fmt.Errorf("save preferences: %w", err)}
		}
		return prefsSavedMsg{}
	}
}

// Run starts the dashboard and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
