package query

import (
	"maps"
	"time"
)

// Status enumerates the states of a query.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the committed state of a query. The zero value is Idle. Data is
// only carried by Success and an error only by Error.
type State struct {
	status   Status
	data     any
	err      error
	response any
}

func idleState() State { return State{status: StatusIdle} }

func loadingState() State { return State{status: StatusLoading} }

func successState(data, response any) State {
	return State{status: StatusSuccess, data: data, response: response}
}

func errorState(err error, response any) State {
	return State{status: StatusError, err: err, response: response}
}

// Status returns the state tag.
func (s State) Status() Status { return s.status }

// Data returns the decoded payload of a Success state.
func (s State) Data() any { return s.data }

// Err returns the failure of an Error state.
func (s State) Err() error { return s.err }

// Response returns the engine metadata of a Success or Error state.
func (s State) Response() any { return s.response }

// Snapshot flattens the state into the values handed to subscribers.
func (s State) Snapshot() Snapshot {
	return Snapshot{
		Data:     s.data,
		Loading:  s.status == StatusLoading,
		Err:      s.err,
		Response: s.response,
	}
}

// Snapshot is what a subscriber observes on each notification.
type Snapshot struct {
	Data     any
	Loading  bool
	Err      error
	Response any
}

// Callback receives every notification of a subscription. A panic in a
// callback is logged and the remaining subscribers are still notified.
type Callback func(snap Snapshot, stop *StopHandle)

// RequestOptions tune how an engine performs the request.
type RequestOptions struct {
	Header  map[string]string
	Timeout time.Duration
}

// Source describes what a query fetches.
type Source struct {
	URL     string
	Options RequestOptions
}

func (s Source) clone() Source {
	s.Options.Header = maps.Clone(s.Options.Header)
	return s
}

// Mock is a fixed response that replaces the engine of a query.
type Mock struct {
	Data     any
	Loading  bool
	Err      error
	Response any
}

func (m Mock) snapshot() Snapshot {
	return Snapshot{Data: m.Data, Loading: m.Loading, Err: m.Err, Response: m.Response}
}

type subscription struct {
	cb      Callback
	handle  *StopHandle
	stopped bool
}

// record is the state of one registered key. Every field is guarded by the
// owning Cache mutex.
type record struct {
	key         string
	source      Source
	state       State
	subs        []*subscription
	engine      Engine
	mock        *Mock
	pending     int
	mockPending int // triggers answered by a loading mock; never resolved
	coalesce    bool
	skipOverlap bool
	poll        *poller
	removed     bool
}

// setMock installs m. Triggers still held open by the previous loading mock
// are forgotten, and the query leaves the loading state they caused unless a
// real fetch is still in flight.
func (r *record) setMock(m *Mock) {
	if r.mockPending > 0 {
		r.pending = max(r.pending-r.mockPending, 0)
		r.mockPending = 0
		if r.pending == 0 && r.state.status == StatusLoading {
			r.state = idleState()
		}
	}
	r.mock = m
}

// addSubscription appends without mutating the previous backing array, so a
// dispatch iterating an older slice never observes the change.
func (r *record) addSubscription(s *subscription) {
	subs := make([]*subscription, len(r.subs), len(r.subs)+1)
	copy(subs, r.subs)
	r.subs = append(subs, s)
}

func (r *record) removeSubscription(s *subscription) {
	subs := make([]*subscription, 0, len(r.subs))
	for _, cur := range r.subs {
		if cur != s {
			subs = append(subs, cur)
		}
	}
	r.subs = subs
}
