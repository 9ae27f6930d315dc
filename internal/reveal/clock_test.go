package reveal_test

import (
	"time"

	"github.com/12008yz/chibox-reveal/internal/reveal"
)

// fakeClock drives scheduled callbacks manually. Tests run single-goroutine:
// Advance fires due timers in time order, synchronously, so callbacks that
// schedule follow-up timers are picked up within the same call.
type fakeClock struct {
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Duration
	f       func()
	fired   bool
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) reveal.Timer {
	t := &fakeTimer{at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	limit := c.now + d
	for {
		next := c.nextDue(limit)
		if next == nil {
			break
		}
		c.now = next.at
		next.fired = true
		next.f()
	}
	c.now = limit
}

func (c *fakeClock) nextDue(limit time.Duration) *fakeTimer {
	var due *fakeTimer
	for _, t := range c.timers {
		if t.fired || t.stopped || t.at > limit {
			continue
		}
		if due == nil || t.at < due.at {
			due = t
		}
	}
	return due
}
