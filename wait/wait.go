// Package wait provides the millisecond time base and the bounded waits used
// while bringing up the chip.
//
// Two kinds of waiting exist. Hardware readiness flags are polled with an
// iteration budget (Poll) since no time base is trusted before the clock tree
// is configured. Settling delays after that use a Clock.
package wait

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrTimeout is returned when a bounded wait runs out of budget.
var ErrTimeout = errors.New("wait: timeout")

// Clock is a millisecond time base.
//
// NowMs wraps at 2^32; use Elapsed to compare two readings.
type Clock interface {
	NowMs() uint32
	SleepMs(ms uint32)
}

// Elapsed returns the milliseconds between start and now, correct across one
// wrap of the counter.
func Elapsed(start, now uint32) uint32 {
	return now - start
}

// Poll calls ready until it returns true, at most budget+1 times.
func Poll(budget uint32, ready func() bool) error {
	for {
		if ready() {
			return nil
		}
		if budget == 0 {
			return ErrTimeout
		}
		budget--
	}
}

// Within calls ready until it returns true or ms milliseconds of c have
// elapsed. The predicate is always evaluated once after the deadline.
func Within(c Clock, ms uint32, ready func() bool) error {
	start := c.NowMs()
	for {
		if ready() {
			return nil
		}
		if Elapsed(start, c.NowMs()) >= ms {
			if ready() {
				return nil
			}
			return ErrTimeout
		}
		c.SleepMs(1)
	}
}

// Ticks is a Clock driven by a periodic 1 ms interrupt calling Tick.
type Ticks struct {
	// Idle, when set, is called on every iteration of SleepMs. On the target
	// it typically waits for the next interrupt.
	Idle func()

	n atomic.Uint32
}

// Tick advances the counter by one millisecond.
func (t *Ticks) Tick() {
	t.n.Add(1)
}

// NowMs returns the number of ticks since start.
func (t *Ticks) NowMs() uint32 {
	return t.n.Load()
}

// SleepMs blocks until ms ticks have elapsed.
func (t *Ticks) SleepMs(ms uint32) {
	start := t.NowMs()
	for Elapsed(start, t.NowMs()) < ms {
		if t.Idle != nil {
			t.Idle()
		}
	}
}

// Wall is a Clock backed by a clockwork.Clock.
type Wall struct {
	c     clockwork.Clock
	start time.Time
}

// NewWall returns a Clock counting milliseconds from now on c.
func NewWall(c clockwork.Clock) *Wall {
	return &Wall{c: c, start: c.Now()}
}

// NowMs returns the milliseconds since NewWall, truncated to 32 bits.
func (w *Wall) NowMs() uint32 {
	return uint32(w.c.Since(w.start) / time.Millisecond)
}

// SleepMs sleeps for ms milliseconds.
func (w *Wall) SleepMs(ms uint32) {
	w.c.Sleep(time.Duration(ms) * time.Millisecond)
}
