package query

import "sync"

// Engine performs the fetch of a query. Fetch must return promptly and call
// req.Resolve exactly once, either before returning or later from any
// goroutine.
type Engine interface {
	Fetch(req *Request)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(req *Request)

// Fetch calls f(req).
func (f EngineFunc) Fetch(req *Request) { f(req) }

// Request is a single fetch handed to an Engine.
type Request struct {
	Key    string
	Source Source

	cache *Cache
	rec   *record
	once  sync.Once
}

// Resolve reports the outcome of the fetch. A non-nil err is wrapped in a
// *FetchError. Only the first call has an effect.
func (r *Request) Resolve(data any, err error, response any) {
	resolved := false
	r.once.Do(func() {
		resolved = true
		r.cache.resolve(r.rec, data, err, response)
	})
	if !resolved {
		r.cache.logger.Warningf("query %q: engine resolved the same request twice, ignoring", r.Key)
	}
}
