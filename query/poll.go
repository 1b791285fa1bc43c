package query

import "time"

// Clock arms the poll timers of a Cache.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending call armed by a Clock.
type Timer interface {
	// Stop prevents the call from running. It reports whether the timer was
	// still pending.
	Stop() bool
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock runs timers on the runtime clock.
var SystemClock Clock = systemClock{}

// poller owns the recurring timer of one record.
type poller struct {
	interval time.Duration
	timer    Timer
}

// schedule replaces any timer of rec, polls once now and then every interval.
func (c *Cache) schedule(rec *record, interval time.Duration) {
	c.cancelPoll(rec)
	p := &poller{interval: interval}
	rec.poll = p
	c.tick(rec, p)
}

// tick re-arms before fetching so a slow or failing fetch never stops the
// cycle.
func (c *Cache) tick(rec *record, p *poller) {
	if rec.poll != p || rec.removed {
		return
	}
	p.timer = c.clock.AfterFunc(p.interval, func() {
		c.do(func() error {
			c.tick(rec, p)
			return nil
		})
	})

	if rec.skipOverlap && rec.state.status == StatusLoading {
		c.metrics.pollTick(rec.key, true)
		c.logger.Infof("query %q: skipping poll, previous fetch still loading", rec.key)
		return
	}
	c.metrics.pollTick(rec.key, false)
	c.trigger(rec)
}

func (c *Cache) cancelPoll(rec *record) {
	if rec.poll == nil {
		return
	}
	if rec.poll.timer != nil {
		rec.poll.timer.Stop()
	}
	rec.poll = nil
}
