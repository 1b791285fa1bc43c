// Package app wires the manifest, the query cache and the front ends together.
//
// # Overview
//
// This package is the composition root for cquery. It loads the manifest,
// builds one query.Cache with Prometheus metrics, registers every prepared
// query, subscribes to them and hands the results to a front end.
//
// # Commands
//
//   - Run (cquery watch): subscribe to every query and show the dashboard,
//     or print one line per notification when Plain is set
//   - Get (cquery get): fetch one query once, polling disabled, and print
//     its data as indented JSON
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       │
//	       ├─────> config.Load()        Read the manifest
//	       ├─────> newCache()           Register queries, arm poll timers
//	       ├─────> NewMetricsServer()   Optional /metrics endpoint
//	       ├─────> Subscribe()          store.Subscriber or linePrinter
//	       ├─────> prefs.Load()         Saved theme and selection
//	       └─────> ui.Run()             Dashboard (blocks)
//
// Polling belongs to the cache: each query with an interval re-fetches on
// its own timer, and the dashboard only re-reads the state.Store.
//
// # Error Handling
//
// Fatal errors (returned from Run and Get):
//   - Manifest missing required fields or failing to parse
//   - Metrics address already in use
//   - Unknown query key (Get), matching query.ErrUnknownQuery
//   - Fetch failure or timeout (Get)
//
// Recoverable errors (shown, polling continues):
//   - Fetch failures during watch; they land in the store and the dashboard
//
// ClearAll runs on the way out so no timer outlives the command.
package app
