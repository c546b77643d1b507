// Package debounce coalesces bursts of calls into one delayed call.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending.
	Stop() bool
}

// Scheduler runs f once after d. Implementations must be safe for
// concurrent use.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// RealScheduler schedules on the runtime timer heap.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer runs the most recently triggered function once the delay has
// elapsed without another trigger. Triggering again cancels the pending call
// and restarts the delay.
type Debouncer struct {
	sched Scheduler
	delay time.Duration

	mu    sync.Mutex
	timer Timer
	fn    func()
	gen   uint64
}

// New returns a Debouncer. A nil scheduler uses RealScheduler.
func New(sched Scheduler, delay time.Duration) *Debouncer {
	if sched == nil {
		sched = RealScheduler{}
	}
	return &Debouncer{sched: sched, delay: delay}
}

func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Trigger schedules f, replacing any pending call.
func (d *Debouncer) Trigger(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.fn = f
	d.timer = d.sched.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending call, if any, and reports whether one existed.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Flush runs the pending call immediately on the caller's goroutine. It
// reports whether a call was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	pending := d.cancelLocked()
	d.mu.Unlock()

	if pending && fn != nil {
		fn()
	}
	return pending
}

func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.fn = nil
	// A timer that already fired but has not taken the lock sees a new
	// generation and does nothing.
	d.gen++
	return true
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.timer == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.timer = nil
	d.fn = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}
