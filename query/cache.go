package query

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// Options configure a Cache.
type Options struct {
	Engine  Engine   // nil uses NewHTTPEngine(nil)
	Clock   Clock    // nil uses SystemClock
	Logger  Logger   // nil logs through glog
	Metrics *Metrics // optional
}

// Cache maps keys to queries. All methods are safe for concurrent use.
type Cache struct {
	mu            sync.Mutex
	records       map[string]*record
	defaultEngine Engine
	baseEngine    Engine
	clock         Clock
	logger        Logger
	metrics       *Metrics

	// queue holds callbacks and engine starts that must run outside mu, in
	// order. draining is true while some goroutine is running them.
	queue    []func()
	draining bool
}

// New builds an empty Cache.
func New(opts Options) *Cache {
	c := &Cache{
		records: make(map[string]*record),
		clock:   opts.Clock,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	c.baseEngine = opts.Engine
	if c.baseEngine == nil {
		c.baseEngine = NewHTTPEngine(nil)
	}
	c.defaultEngine = c.baseEngine
	if c.clock == nil {
		c.clock = SystemClock
	}
	if c.logger == nil {
		c.logger = glogLogger{}
	}
	return c
}

// Register prepares a query. It is lazy unless WithInterval is given: nothing
// is fetched until a subscriber or an invalidation asks for it. Registering
// an existing key keeps the original query and logs a warning when src
// differs.
func (c *Cache) Register(key string, src Source, opts ...Option) {
	cfg := newQueryConfig(opts)
	c.do(func() error {
		if rec, ok := c.records[key]; ok {
			if !sameSource(rec.source, src) {
				c.logger.Warningf("query %q already exists with url %s, ignoring %s", key, rec.source.URL, src.URL)
			}
			return nil
		}
		rec := &record{
			key:         key,
			source:      src.clone(),
			state:       idleState(),
			engine:      cfg.engine,
			mock:        cfg.mock,
			coalesce:    cfg.coalesce,
			skipOverlap: cfg.skipOverlap,
		}
		c.records[key] = rec
		if cfg.interval > 0 {
			c.schedule(rec, cfg.interval)
		}
		return nil
	})
}

// Replace swaps the source and settings of an existing query. Mock and poll
// settings are taken from opts only: a missing WithMock drops the mock and a
// missing WithInterval stops polling.
func (c *Cache) Replace(key string, src Source, opts ...Option) error {
	cfg := newQueryConfig(opts)
	return c.do(func() error {
		rec, err := c.lookup(key)
		if err != nil {
			return err
		}
		rec.source = src.clone()
		rec.engine = cfg.engine
		rec.setMock(cfg.mock)
		rec.coalesce = cfg.coalesce
		rec.skipOverlap = cfg.skipOverlap
		if cfg.interval > 0 {
			c.schedule(rec, cfg.interval)
		} else {
			c.cancelPoll(rec)
		}
		return nil
	})
}

// SetMock makes the query answer with the given values from its next fetch on.
func (c *Cache) SetMock(key string, data any, loading bool, err error, response any) error {
	return c.do(func() error {
		rec, lookupErr := c.lookup(key)
		if lookupErr != nil {
			return lookupErr
		}
		rec.setMock(&Mock{Data: data, Loading: loading, Err: err, Response: response})
		return nil
	})
}

// SetDefaultEngine changes the engine used by queries without their own.
// A nil engine restores the one the Cache was built with.
func (c *Cache) SetDefaultEngine(e Engine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e == nil {
		e = c.baseEngine
	}
	c.defaultEngine = e
}

// ClearAll stops every poll timer and forgets every query. Results of fetches
// still in flight are dropped.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

// Reset clears every query and restores the default engine.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
	c.defaultEngine = c.baseEngine
}

// Keys returns the registered keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.records))
}

// State returns the committed state of key.
func (c *Cache) State(key string) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, err := c.lookup(key)
	if err != nil {
		return State{}, err
	}
	return rec.state, nil
}

// Interval returns the poll interval of key, zero when it does not poll.
func (c *Cache) Interval(key string) (time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, err := c.lookup(key)
	if err != nil {
		return 0, err
	}
	if rec.poll == nil {
		return 0, nil
	}
	return rec.poll.interval, nil
}

func (c *Cache) clearLocked() {
	for _, rec := range c.records {
		c.cancelPoll(rec)
		rec.removed = true
	}
	c.records = make(map[string]*record)
	c.metrics.reset()
}

func (c *Cache) lookup(key string) (*record, error) {
	rec, ok := c.records[key]
	if !ok {
		return nil, &UnknownQueryError{Key: key, Known: slices.Sorted(maps.Keys(c.records))}
	}
	return rec, nil
}

// do runs fn under the lock, then delivers whatever fn queued.
func (c *Cache) do(fn func() error) error {
	c.mu.Lock()
	err := fn()
	c.mu.Unlock()
	c.drain()
	return err
}

// enqueue must be called with mu held.
func (c *Cache) enqueue(task func()) {
	c.queue = append(c.queue, task)
}

// drain runs queued tasks until the queue is empty. A call made while another
// goroutine (or an outer frame of this one) is draining returns at once; the
// active drainer picks up the new tasks.
func (c *Cache) drain() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	defer func() {
		c.draining = false
		c.mu.Unlock()
	}()
	for len(c.queue) > 0 {
		task := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()
		func() {
			defer c.mu.Lock()
			defer c.recoverTask("dispatch task")
			task()
		}()
	}
}

// recoverTask keeps a panicking engine or callback from stranding the rest
// of the queue.
func (c *Cache) recoverTask(format string, args ...any) {
	if r := recover(); r != nil {
		c.logger.Warningf(format+" panicked: %v", append(args, r)...)
	}
}

func sameSource(a, b Source) bool {
	return a.URL == b.URL &&
		a.Options.Timeout == b.Options.Timeout &&
		maps.Equal(a.Options.Header, b.Options.Header)
}
