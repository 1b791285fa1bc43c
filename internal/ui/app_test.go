package ui

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/google/go-cmp/cmp"

	"github.com/five82/cquery/internal/prefs"
	"github.com/five82/cquery/internal/state"
	"github.com/five82/cquery/query"
)

type fakeQueries struct {
	mu    sync.Mutex
	keys  []string
	fail  map[string]error
	calls chan string
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{calls: make(chan string, 16)}
}

func (f *fakeQueries) Invalidate(key string) error {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	err := f.fail[key]
	f.mu.Unlock()
	f.calls <- key
	return err
}

func (f *fakeQueries) invalidated() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestStore() *state.Store {
	s := &state.Store{}
	s.Track("users", "https://api.example.com/users")
	s.Track("groups", "https://api.example.com/groups")
	s.Track("health", "https://api.example.com/health")
	s.Update("users", query.Snapshot{Data: map[string]any{"n": 2}})
	s.Update("groups", query.Snapshot{Loading: true})
	s.Update("health", query.Snapshot{Err: errors.New("connection refused")})
	return s
}

func loadedModel(t *testing.T, store *state.Store, queries Invalidator) Model {
	t.Helper()
	m := New(Options{Store: store, Queries: queries})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	next, _ = next.(Model).Update(snapshotMsg(store.Snapshot()))
	return next.(Model)
}

func TestEntryStatus(t *testing.T) {
	tests := []struct {
		name  string
		entry state.Entry
		want  string
	}{
		{name: "never notified", entry: state.Entry{}, want: statusIdle},
		{name: "loading", entry: state.Entry{Notifications: 1, Snapshot: query.Snapshot{Loading: true}}, want: statusLoading},
		{name: "loading after failures", entry: state.Entry{Snapshot: query.Snapshot{Loading: true}, ConsecutiveFailures: 3}, want: statusLoading},
		{name: "single error", entry: state.Entry{Notifications: 1, LastError: errors.New("x"), ConsecutiveFailures: 1}, want: statusError},
		{name: "failing", entry: state.Entry{Notifications: 2, LastError: errors.New("x"), ConsecutiveFailures: 2}, want: statusFailing},
		{name: "ready", entry: state.Entry{Notifications: 2, Snapshot: query.Snapshot{Data: 1}}, want: statusReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entryStatus(tt.entry); got != tt.want {
				t.Fatalf("entryStatus = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := New(Options{})
	if got := m.View(); got != "Loading..." {
		t.Fatalf("View() = %q, want Loading...", got)
	}
}

func TestModel_Update_Navigation(t *testing.T) {
	m := loadedModel(t, newTestStore(), nil)

	for _, step := range []struct {
		key  rune
		want int
	}{
		{'j', 1},
		{'j', 2},
		{'j', 2},
		{'k', 1},
		{'k', 0},
		{'k', 0},
	} {
		next, _ := m.Update(runeKey(step.key))
		m = next.(Model)
		if m.selected != step.want {
			t.Fatalf("after %q selected = %d, want %d", step.key, m.selected, step.want)
		}
	}
}

func TestModel_Update_SnapshotClampsSelection(t *testing.T) {
	m := loadedModel(t, newTestStore(), nil)
	m.selected = 2

	next, _ := m.Update(snapshotMsg([]state.Entry{{Key: "users"}}))
	if got := next.(Model).selected; got != 0 {
		t.Fatalf("selected = %d, want 0", got)
	}
}

func TestModel_Update_RefreshInvalidatesSelected(t *testing.T) {
	queries := newFakeQueries()
	m := loadedModel(t, newTestStore(), queries)

	next, _ := m.Update(runeKey('j'))
	_, cmd := next.(Model).Update(runeKey('r'))
	if cmd == nil {
		t.Fatal("refresh returned nil cmd")
	}
	raw := cmd()
	msg, ok := raw.(invalidatedMsg)
	if !ok {
		t.Fatalf("cmd() returned %T, want invalidatedMsg", raw)
	}
	if msg.err != nil {
		t.Fatalf("invalidate error = %v, want nil", msg.err)
	}
	if diff := cmp.Diff([]string{"groups"}, queries.invalidated()); diff != "" {
		t.Fatalf("invalidated mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_Update_RefreshAllJoinsErrors(t *testing.T) {
	queries := newFakeQueries()
	queries.fail = map[string]error{"health": &query.UnknownQueryError{Key: "health"}}
	m := loadedModel(t, newTestStore(), queries)

	_, cmd := m.Update(runeKey('a'))
	msg := cmd().(invalidatedMsg)
	if diff := cmp.Diff([]string{"users", "groups", "health"}, queries.invalidated()); diff != "" {
		t.Fatalf("invalidated mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(msg.err, query.ErrUnknownQuery) {
		t.Fatalf("err = %v, want ErrUnknownQuery", msg.err)
	}

	next, _ := m.Update(msg)
	if view := next.(Model).View(); !strings.Contains(view, "does not exist") {
		t.Fatalf("View() missing invalidate error:\n%s", view)
	}
}

func TestModel_Update_RefreshWithoutQueries(t *testing.T) {
	m := loadedModel(t, &state.Store{}, newFakeQueries())
	if _, cmd := m.Update(runeKey('r')); cmd != nil {
		t.Fatal("refresh on an empty list returned a cmd")
	}
}

func TestModel_Update_CycleTheme(t *testing.T) {
	m := loadedModel(t, newTestStore(), nil)
	if m.theme.Name != "Dracula" {
		t.Fatalf("theme = %q, want Dracula", m.theme.Name)
	}

	var seen []string
	for range ThemeNames() {
		next, _ := m.Update(runeKey('t'))
		m = next.(Model)
		seen = append(seen, m.theme.Name)
	}
	if diff := cmp.Diff([]string{"Slate", "Nord", "Dracula"}, seen); diff != "" {
		t.Fatalf("theme cycle mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_Update_CycleThemeSavesPrefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	store := newTestStore()
	m := New(Options{Store: store, PrefsPath: path})
	next, _ := m.Update(snapshotMsg(store.Snapshot()))
	next, _ = next.(Model).Update(runeKey('j'))

	next, cmd := next.(Model).Update(runeKey('t'))
	if cmd == nil {
		t.Fatal("expected a save command")
	}
	msg := cmd()
	if saved, ok := msg.(prefsSavedMsg); !ok || saved.err != nil {
		t.Fatalf("msg = %#v, want successful prefsSavedMsg", msg)
	}
	next, _ = next.(Model).Update(msg)
	if err := next.(Model).lastErr; err != nil {
		t.Fatalf("lastErr = %v, want nil", err)
	}

	if got := prefs.Load(path); got != (prefs.Prefs{Theme: "Slate", Selected: "groups"}) {
		t.Fatalf("saved prefs = %+v, want Slate/groups", got)
	}
}

func TestModel_Update_CycleThemeWithoutPrefsPath(t *testing.T) {
	m := loadedModel(t, newTestStore(), nil)
	if _, cmd := m.Update(runeKey('t')); cmd != nil {
		t.Fatal("expected no command when preferences are disabled")
	}
}

func TestModel_Update_SelectKeyRestoresSelection(t *testing.T) {
	store := newTestStore()
	m := New(Options{Store: store, SelectKey: "health"})
	next, _ := m.Update(snapshotMsg(store.Snapshot()))
	m = next.(Model)
	if e, ok := m.selectedEntry(); !ok || e.Key != "health" {
		t.Fatalf("selected = %+v, want health", e)
	}

	// Only the first match moves the selection.
	next, _ = m.Update(runeKey('k'))
	next, _ = next.(Model).Update(snapshotMsg(store.Snapshot()))
	if e, _ := next.(Model).selectedEntry(); e.Key != "groups" {
		t.Fatalf("selected = %q after refresh, want groups", e.Key)
	}
}

func TestModel_View_ListsEntries(t *testing.T) {
	m := loadedModel(t, newTestStore(), nil)
	view := m.View()

	for _, want := range []string{"cquery", "3 queries", "1 loading", "1 failing", "users", "groups", "connection refused", "api.example.com/users"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}

func TestModel_View_EmptyStore(t *testing.T) {
	m := loadedModel(t, &state.Store{}, nil)
	if view := m.View(); !strings.Contains(view, "No queries") {
		t.Fatalf("View() = %q, want empty notice", view)
	}
}

func TestThemeLookups(t *testing.T) {
	if got := GetTheme("missing").Name; got != "Dracula" {
		t.Fatalf("GetTheme(missing) = %q, want Dracula", got)
	}
	if got := NextTheme("unknown"); got != "Dracula" {
		t.Fatalf("NextTheme(unknown) = %q, want Dracula", got)
	}
	for _, name := range ThemeNames() {
		th := GetTheme(name)
		for _, status := range []string{statusIdle, statusLoading, statusReady, statusError, statusFailing} {
			if th.StatusColors[status] == "" {
				t.Errorf("theme %s has no color for %s", name, status)
			}
		}
	}
}

func TestHumanizeDuration(t *testing.T) {
	tests := map[time.Duration]string{
		500 * time.Millisecond: "now",
		42 * time.Second:       "42s",
		3 * time.Minute:        "3m",
		5 * time.Hour:          "5h",
	}
	for in, want := range tests {
		if got := humanizeDuration(in); got != want {
			t.Errorf("humanizeDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestModel_Teatest_RefreshAndQuit(t *testing.T) {
	store := newTestStore()
	queries := newFakeQueries()
	m := New(Options{Store: store, Queries: queries, RefreshTick: 50 * time.Millisecond})

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 20))

	teatest.WaitFor(t, tm.Output(), func(b []byte) bool {
		return bytes.Contains(b, []byte("users")) && bytes.Contains(b, []byte("health"))
	}, teatest.WithDuration(2*time.Second))

	tm.Send(runeKey('j'))
	tm.Send(runeKey('r'))

	select {
	case key := <-queries.calls:
		if key != "groups" {
			t.Fatalf("invalidated %q, want groups", key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never invalidated a query")
	}

	tm.Send(runeKey('q'))
	tm.WaitFinished(t, teatest.WithFinalTimeout(2*time.Second))

	final := tm.FinalModel(t).(Model)
	if final.selected != 1 {
		t.Fatalf("selected = %d, want 1", final.selected)
	}
	if len(final.entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(final.entries))
	}
}
