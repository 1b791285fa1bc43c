package querytest

import (
	"sync"

	"github.com/five82/cquery/query"
)

// Engine holds every request it receives until the test resolves it.
type Engine struct {
	mu       sync.Mutex
	requests []*query.Request
}

var _ query.Engine = (*Engine)(nil)

// Fetch records req.
func (e *Engine) Fetch(req *query.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
}

// Requests returns the requests received so far, oldest first.
func (e *Engine) Requests() []*query.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*query.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// Len returns the number of requests received.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.requests)
}

// Static returns an engine resolving every request at once with data.
func Static(data any) query.Engine {
	return query.EngineFunc(func(req *query.Request) {
		req.Resolve(data, nil, nil)
	})
}

// Failing returns an engine resolving every request at once with err.
func Failing(err error) query.Engine {
	return query.EngineFunc(func(req *query.Request) {
		req.Resolve(nil, err, nil)
	})
}
