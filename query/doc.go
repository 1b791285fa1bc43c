// Package query memoizes asynchronous fetches by name and notifies
// subscribers when their state changes.
//
// # Overview
//
// A Cache holds one query per key. A query is registered with a Source (a
// URL plus request options) and is lazy: nothing is fetched until somebody
// subscribes with Subscribe, invalidates it, or asks it to poll.
//
//	cache := query.New(query.Options{})
//	cache.Register("users", query.Source{URL: "https://api.example.com/users"},
//		query.WithInterval(30*time.Second))
//
//	stop, err := cache.Subscribe("users", func(snap query.Snapshot, stop *query.StopHandle) {
//		if snap.Loading {
//			fmt.Println("loading ...")
//			return
//		}
//		fmt.Println(snap.Data, snap.Err)
//	})
//
// # States
//
// Each query moves through
//
//	Idle ──> Loading ──> Success | Error
//	           ^               │
//	           └───────────────┘  (next invalidation or poll tick)
//
// Subscribers see a loading pulse before every engine call, so two result
// sets are always separated by a Snapshot with Loading set. Mocks with
// Loading unset skip that pulse.
//
// # Coalescing
//
// Every fetch increments an in-flight counter and every resolution
// decrements it. With coalescing (the default) a resolution is only
// published when it brings the counter back to zero, so three overlapping
// invalidations produce three loading pulses and one result. Without
// coalescing each resolution is published as it arrives; when engine
// latencies are not monotonic subscribers may then observe superseded data
// after newer data. That is accepted behaviour.
//
// # Polling
//
// WithInterval fetches once immediately and then on every tick. A tick
// re-arms the timer first and is skipped while the query is loading unless
// WithSkipOverlappingPoll(false) was given. Replace and ClearAll always
// cancel the previous timer.
//
// # Engines
//
// An Engine performs the fetch and calls Request.Resolve exactly once.
// HTTPEngine is the default; WithEngine overrides it for one query and
// SetDefaultEngine for the whole cache. WithMock and SetMock bypass the
// engine entirely, which is how tests pin a query to fixed values.
//
// # Concurrency
//
// Records are guarded by one mutex per Cache. Callbacks and engine starts are
// run from a FIFO queue outside that mutex, so callbacks may call back into
// the cache: the work they cause is delivered after they return. When the
// engine resolves synchronously every notification has been delivered by the
// time the public method returns.
//
// # Errors
//
// Operations on unregistered keys return *UnknownQueryError (matching
// ErrUnknownQuery). Engine failures never surface as return values; they are
// stored as a *FetchError in the Error state and delivered to subscribers.
package query
