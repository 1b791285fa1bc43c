package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/cquery/query"
)

// Entry is the latest view of one query.
type Entry struct {
	Key                 string
	URL                 string
	Snapshot            query.Snapshot
	Notifications       int
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed resolutions
}

// IsFailing returns true when the query has failed on consecutive resolutions.
func (e Entry) IsFailing() bool {
	return e.ConsecutiveFailures >= 2
}

// HasData reports whether the entry holds data from a successful resolution.
func (e Entry) HasData() bool {
	return e.Snapshot.Data != nil
}

// Store coordinates concurrent updates to the per-query entries.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
}

// Track adds key to the store in display order. Tracking a known key updates
// its URL only.
func (s *Store) Track(key, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.URL = url
		return
	}
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}
	s.entries[key] = &Entry{Key: key, URL: url}
	s.order = append(s.order, key)
}

// Update records a notification for key. A loading snapshot keeps the previous
// data visible, an error keeps nothing but the error.
func (s *Store) Update(key string, snap query.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		if s.entries == nil {
			s.entries = make(map[string]*Entry)
		}
		e = &Entry{Key: key}
		s.entries[key] = e
		s.order = append(s.order, key)
	}

	e.Notifications++
	e.LastUpdated = time.Now()

	switch {
	case snap.Loading:
		e.Snapshot.Loading = true
	case snap.Err != nil:
		e.Snapshot = snap
		e.LastError = snap.Err
		e.ConsecutiveFailures++
	default:
		e.Snapshot = snap
		e.LastError = nil
		e.ConsecutiveFailures = 0
	}
}

// Subscriber returns a query callback that feeds notifications for key into
// the store.
func (s *Store) Subscriber(key string) query.Callback {
	return func(snap query.Snapshot, _ *query.StopHandle) {
		s.Update(key, snap)
	}
}

// Entry returns a copy of the entry for key.
func (s *Store) Entry(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(e), true
}

// Snapshot returns copies of all entries in tracking order.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil
	}
	out := make([]Entry, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, cloneEntry(s.entries[key]))
	}
	return out
}

func cloneEntry(e *Entry) Entry {
	dup := *e
	if e.LastError != nil {
		dup.LastError = fmt.Errorf("%w", e.LastError)
	}
	return dup
}
