// Package querytest provides fakes for testing code built on package query.
package querytest

import (
	"sync"
	"time"

	"github.com/five82/cquery/query"
)

// Clock is a manual query.Clock. Timers only fire from Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

var _ query.Clock = (*Clock)(nil)

// NewClock returns a Clock reading now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

// Now returns the simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc arms f to run once the clock has advanced by d.
func (c *Clock) AfterFunc(d time.Duration, f func()) query.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &timer{clock: c, when: c.now.Add(d), seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, running every timer that falls due
// in deadline order. Timers armed by those callbacks run too when they fall
// within the window. Callbacks run on the calling goroutine.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		t := c.popDueLocked(target)
		if t == nil {
			break
		}
		c.now = t.when
		c.mu.Unlock()
		t.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending returns the number of armed timers.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

func (c *Clock) popDueLocked(target time.Time) *timer {
	idx := -1
	for i, t := range c.timers {
		if t.when.After(target) {
			continue
		}
		if idx < 0 || t.when.Before(c.timers[idx].when) ||
			(t.when.Equal(c.timers[idx].when) && t.seq < c.timers[idx].seq) {
			idx = i
		}
	}
	if idx < 0 {
		return nil
	}
	t := c.timers[idx]
	c.removeLocked(idx)
	return t
}

func (c *Clock) removeLocked(idx int) {
	c.timers = append(c.timers[:idx], c.timers[idx+1:]...)
}

type timer struct {
	clock *Clock
	when  time.Time
	seq   int
	fn    func()
}

func (t *timer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.timers {
		if cur == t {
			c.removeLocked(i)
			return true
		}
	}
	return false
}
