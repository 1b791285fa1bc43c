// Package state keeps the per-query view that the dashboard renders.
//
// # Overview
//
// The query cache pushes snapshots to subscribers as they happen. The UI wants
// the opposite: a stable picture it can read on its own refresh tick. Store sits
// between the two. Each tracked query gets an Entry, fed by the callback that
// Subscriber returns and read back through Snapshot.
//
//	query.Cache                     UI:
//	┌────────────────┐             ┌─────────────────┐
//	│ notify         │             │ tick            │
//	│   ↓            │             │   ↓             │
//	│ Subscriber(k)  │────────────→│ store.Snapshot()│
//	│   ↓            │  (RWMutex)  │   ↓             │
//	│ store.Update() │             │ render          │
//	└────────────────┘             └─────────────────┘
//
// # Update Semantics
//
//	// Loading pulse: keep the last data, raise the loading flag
//	store.Update(key, query.Snapshot{Loading: true})
//
//	// Error: drop data, record the error, count the failure
//	store.Update(key, query.Snapshot{Err: err})
//
//	// Success: replace the snapshot and reset the failure counter
//	store.Update(key, query.Snapshot{Data: data})
//
// Entries that fail twice in a row report IsFailing so the UI can flag them.
//
// # Copies
//
// Entry and Snapshot return copies, with errors re-wrapped so callers never
// share an error value with the store. Data payloads are shared; the cache
// treats them as immutable once published.
//
// The zero Store is ready to use.
package state
