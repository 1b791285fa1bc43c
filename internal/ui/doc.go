// Package ui provides the cquery terminal dashboard.
//
// # Architecture Overview
//
// The dashboard is a Bubble Tea program. It never talks to the query cache
// for data: subscriber callbacks feed a state.Store and the model re-reads
// the store on its own refresh tick. Key presses that act on queries go back
// to the cache through the Invalidator interface, inside a tea.Cmd so a slow
// subscriber never blocks rendering.
//
//	query.Cache ──notify──> state.Store <──tick── Model ──r/a──> Invalidator
//
// # Package Structure
//
//   - app.go: Model, messages, commands and Run
//   - view.go: header, table and footer rendering
//   - theme.go: color palettes and Lipgloss styles
//   - style_helpers.go: BgStyle for gap-free background runs
//   - keys.go: key bindings
//
// # Key Bindings
//
//	j / down    Move selection down
//	k / up      Move selection up
//	r           Invalidate the selected query
//	a           Invalidate every query
//	t           Cycle theme (Dracula, Slate, Nord)
//	q / ctrl+c  Quit
//
// # Preferences
//
// With Options.PrefsPath set, the theme and the selected query are saved
// through package prefs when the theme is cycled and on quit. SelectKey
// restores the selection the first time that query appears.
//
// # Status Column
//
// Each row shows one of idle, loading, ready, error or failing. A query is
// failing once two resolutions in a row reported an error.
package ui
