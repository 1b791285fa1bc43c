package query

import (
	"errors"
	"fmt"
)

// Subscribe adds cb to the query and makes sure the query has data: an idle
// query is fetched, otherwise cb is called once with the current state.
func (c *Cache) Subscribe(key string, cb Callback) (*StopHandle, error) {
	return c.subscribe(key, cb, true)
}

// SubscribeLazy adds cb without fetching. cb fires on the next notification
// of the query, or at once when the query already left the idle state.
func (c *Cache) SubscribeLazy(key string, cb Callback) (*StopHandle, error) {
	return c.subscribe(key, cb, false)
}

// Invalidate re-fetches the query. An idle query nobody subscribed to is left
// alone.
func (c *Cache) Invalidate(key string) error {
	return c.do(func() error {
		rec, err := c.lookup(key)
		if err != nil {
			return err
		}
		if rec.state.status == StatusIdle && len(rec.subs) == 0 {
			c.logger.Infof("query %q: nothing to invalidate", key)
			return nil
		}
		c.trigger(rec)
		return nil
	})
}

func (c *Cache) subscribe(key string, cb Callback, eager bool) (*StopHandle, error) {
	var handle *StopHandle
	err := c.do(func() error {
		rec, err := c.lookup(key)
		if err != nil {
			return err
		}
		sub := &subscription{cb: cb}
		sub.handle = &StopHandle{cache: c, rec: rec, sub: sub}
		handle = sub.handle
		rec.addSubscription(sub)
		c.metrics.setSubscribers(key, len(rec.subs))

		if rec.state.status != StatusIdle {
			c.notify(rec, []*subscription{sub}, rec.state.Snapshot())
			return nil
		}
		if eager {
			c.trigger(rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// trigger starts a fetch. Without a mock the query switches to loading and
// subscribers get that pulse before the engine runs. A loading mock only
// publishes its values; any other mock resolves at once.
func (c *Cache) trigger(rec *record) {
	rec.pending++
	c.metrics.fetchStarted(rec.key)

	switch {
	case rec.mock == nil:
		rec.state = loadingState()
		c.notify(rec, rec.subs, rec.state.Snapshot())

		engine := rec.engine
		if engine == nil {
			engine = c.defaultEngine
		}
		req := &Request{Key: rec.key, Source: rec.source.clone(), cache: c, rec: rec}
		c.enqueue(func() {
			if c.isRemoved(rec) {
				return
			}
			defer func() {
				if r := recover(); r != nil {
					c.logger.Warningf("engine of query %q panicked: %v", rec.key, r)
					req.Resolve(nil, fmt.Errorf("engine panicked: %v", r), nil)
				}
			}()
			engine.Fetch(req)
		})
	case rec.mock.Loading:
		rec.mockPending++
		rec.state = loadingState()
		c.notify(rec, rec.subs, rec.mock.snapshot())
	default:
		m := rec.mock
		c.commit(rec, m.Data, m.Err, m.Response)
	}
}

func (c *Cache) resolve(rec *record, data any, err error, response any) {
	c.do(func() error {
		c.commit(rec, data, err, response)
		return nil
	})
}

// commit applies one resolution. With coalescing only the resolution that
// brings the in-flight count to zero is published.
func (c *Cache) commit(rec *record, data any, err error, response any) {
	if rec.removed {
		return
	}
	if rec.pending > 0 {
		rec.pending--
	}
	if rec.pending > 0 && rec.coalesce {
		c.metrics.suppressed(rec.key)
		return
	}

	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Key: rec.key, Err: err}
		}
		rec.state = errorState(err, response)
	} else {
		rec.state = successState(data, response)
	}
	c.metrics.resolved(rec.key, err != nil)
	c.notify(rec, rec.subs, rec.state.Snapshot())
}

// notify queues one dispatch pass over subs. subs is never mutated in place,
// so subscriptions added or stopped meanwhile do not shift the pass.
func (c *Cache) notify(rec *record, subs []*subscription, snap Snapshot) {
	if len(subs) == 0 {
		return
	}
	c.enqueue(func() {
		for _, sub := range subs {
			c.mu.Lock()
			skip := sub.stopped || rec.removed
			c.mu.Unlock()
			if skip {
				continue
			}
			c.invoke(rec.key, sub, snap)
		}
	})
}

func (c *Cache) invoke(key string, sub *subscription, snap Snapshot) {
	defer c.recoverTask("subscriber of query %q", key)
	sub.cb(snap, sub.handle)
}

func (c *Cache) isRemoved(rec *record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return rec.removed
}
