package querytest

import (
	"sync"

	"github.com/five82/cquery/query"
)

// Recorder is a subscriber that keeps every snapshot it receives.
type Recorder struct {
	// StopAfter, when positive, makes the recorder stop its subscription
	// from inside the callback once it has seen that many notifications.
	StopAfter int

	mu    sync.Mutex
	snaps []query.Snapshot
	ch    chan struct{}
}

// Callback is the query.Callback to subscribe.
func (r *Recorder) Callback(snap query.Snapshot, stop *query.StopHandle) {
	r.mu.Lock()
	r.snaps = append(r.snaps, snap)
	n := len(r.snaps)
	if r.ch == nil {
		r.ch = make(chan struct{}, 1)
	}
	ch := r.ch
	r.mu.Unlock()

	select {
	case ch <- struct{}{}:
	default:
	}
	if r.StopAfter > 0 && n >= r.StopAfter {
		stop.Stop()
	}
}

// Len returns the number of notifications received.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

// Snapshots returns a copy of the received notifications.
func (r *Recorder) Snapshots() []query.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]query.Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

// Last returns the most recent notification.
func (r *Recorder) Last() (query.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return query.Snapshot{}, false
	}
	return r.snaps[len(r.snaps)-1], true
}

// Notified returns a channel that receives after new notifications. Several
// notifications may collapse into one receive.
func (r *Recorder) Notified() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch == nil {
		r.ch = make(chan struct{}, 1)
	}
	return r.ch
}
