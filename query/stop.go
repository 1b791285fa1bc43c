package query

// StopHandle ends a subscription. It is passed to every callback invocation
// and returned by Subscribe and SubscribeLazy.
type StopHandle struct {
	cache *Cache
	rec   *record
	sub   *subscription
}

// Stop removes the subscription. Calling it from inside the callback does not
// affect the other subscribers of the current dispatch. Stopping twice is a
// no-op.
func (h *StopHandle) Stop() {
	if h == nil || h.cache == nil {
		return
	}
	c := h.cache
	c.mu.Lock()
	defer c.mu.Unlock()
	if h.sub.stopped {
		return
	}
	h.sub.stopped = true
	h.rec.removeSubscription(h.sub)
	c.metrics.setSubscribers(h.rec.key, len(h.rec.subs))
}

// Stopped reports whether Stop has been called.
func (h *StopHandle) Stopped() bool {
	if h == nil || h.cache == nil {
		return true
	}
	h.cache.mu.Lock()
	defer h.cache.mu.Unlock()
	return h.sub.stopped
}
