// Package rate provides the throttle and debounce primitives that bound
// outbound request volume. Each value owns independent timer state, so
// wrapping two different operations never makes them interfere.
package rate

import (
	"sync"
	"time"
)

// Throttle enforces a minimum spacing between executions. The first call
// in a window runs immediately; calls landing inside the window are
// coalesced into a single trailing execution at the window boundary,
// keeping only the last submitted function. Arguments travel inside the
// closure, so last-closure-wins is last-arguments-wins.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	timer    *time.Timer
	pending  func()

	// run serializes executions, so Flush returns only after a timer
	// call firing at the same moment has finished.
	run sync.Mutex
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Do runs fn now if the window is open, otherwise schedules it as the
// window's trailing call. A window produces at most one leading and one
// trailing execution; no call is dropped without a later call
// superseding it.
func (t *Throttle) Do(fn func()) {
	t.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(t.last)
	if t.timer == nil && (t.last.IsZero() || elapsed >= t.interval) {
		t.last = now
		t.mu.Unlock()
		t.run.Lock()
		fn()
		t.run.Unlock()
		return
	}
	t.pending = fn
	if t.timer == nil {
		wait := t.interval - elapsed
		if wait < 0 {
			wait = 0
		}
		t.timer = time.AfterFunc(wait, t.fire)
	}
	t.mu.Unlock()
}

func (t *Throttle) fire() {
	t.run.Lock()
	defer t.run.Unlock()
	t.mu.Lock()
	fn := t.pending
	t.pending = nil
	t.timer = nil
	// A Flush may have drained pending already; the window only
	// re-closes when something actually ran.
	if fn != nil {
		t.last = time.Now()
	}
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs a pending trailing call immediately and waits out a timer
// call firing at the same moment.
func (t *Throttle) Flush() {
	t.run.Lock()
	defer t.run.Unlock()
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	fn := t.pending
	t.pending = nil
	t.timer = nil
	if fn != nil {
		t.last = time.Now()
	}
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop discards any pending trailing call.
func (t *Throttle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
	}
	t.pending = nil
	t.timer = nil
	t.mu.Unlock()
}

// Debounce defers execution until a quiet period with no further calls
// has elapsed, keeping only the last submitted function. Used to avoid
// firing a write on every keystroke.
type Debounce struct {
	mu      sync.Mutex
	quiet   time.Duration
	timer   *time.Timer
	pending func()

	// run serializes executions; see Throttle.run.
	run sync.Mutex
}

func NewDebounce(quiet time.Duration) *Debounce {
	return &Debounce{quiet: quiet}
}

// Do resets the quiet-period timer and replaces the pending function.
func (d *Debounce) Do(fn func()) {
	d.mu.Lock()
	d.pending = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.quiet, d.fire)
	d.mu.Unlock()
}

func (d *Debounce) fire() {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Flush runs the pending call now instead of waiting out the quiet
// period, and waits out a timer call firing at the same moment. A
// caller draining a debounce before waiting on work the call spawns can
// rely on the spawn having happened once Flush returns.
func (d *Debounce) Flush() {
	d.run.Lock()
	defer d.run.Unlock()
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Stop discards the pending call.
func (d *Debounce) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()
}
