package evloop

import (
	"math"

	"braces.dev/errtrace"
)

// TimerFn is invoked when a timer's deadline is reached. It runs inline on
// the loop goroutine during the timer drain; it may start, stop or close any
// timer, including its own.
type TimerFn func(*Timer)

// Timer is a deadline handle scheduled on a Loop. The heap linkage lives
// inside the handle itself, so scheduling never allocates; the Loop holds
// only non-owning links into it.
//
// A Timer belongs to a single loop goroutine. It must be stopped before
// being repurposed or dropped while its loop is still running.
type Timer struct {
	noCopy

	loop *Loop
	cb   TimerFn
	node Node[Timer]

	// Absolute deadline and interval in loop-clock milliseconds.
	timeout uint64
	repeat  uint64

	// Tie-break stamp taken from the loop counter at every (re)start, so
	// timers sharing a deadline fire in start order.
	startID uint64

	active  bool
	closing bool
	ref     bool
}

func timerNode(t *Timer) *Node[Timer] {
	return &t.node
}

// timerLess orders by deadline, then by start order among equal deadlines.
func timerLess(a, b *Timer) bool {
	if a.timeout < b.timeout {
		return true
	}
	if b.timeout < a.timeout {
		return false
	}
	return a.startID < b.startID
}

// NewTimer returns an initialized, inactive timer bound to l.
func NewTimer(l *Loop) *Timer {
	t := &Timer{}
	t.Init(l)
	return t
}

// Init binds t to l and resets it to the inactive state. Reinitializing an
// active timer without stopping it first corrupts the loop's heap.
func (t *Timer) Init(l *Loop) {
	t.loop = l
	t.cb = nil
	t.timeout = 0
	t.repeat = 0
	t.startID = 0
	t.active = false
	t.closing = false
	t.ref = true
}

// Start schedules t to fire once timeout milliseconds from now, then every
// repeat milliseconds if repeat is non-zero. An active timer is restarted.
//
// A deadline that would wrap the clock is clamped to the maximum value: a
// huge delay means "effectively never", not "immediately".
func (t *Timer) Start(cb TimerFn, timeout, repeat uint64) error {
	if t.closing {
		return errtrace.Wrap(ErrClosing)
	}
	if cb == nil {
		return errtrace.Wrap(ErrNoCallback)
	}
	if t.active {
		t.Stop()
	}

	clamped := t.loop.time + timeout
	if clamped < timeout {
		clamped = math.MaxUint64
	}

	t.cb = cb
	t.timeout = clamped
	t.repeat = repeat
	t.startID = t.loop.timerCounter
	t.loop.timerCounter++

	t.loop.timers.Insert(t, timerLess)
	t.active = true
	t.loop.startHandle(t)
	return nil
}

// Stop removes t from its loop's schedule. Stopping an inactive timer is a
// no-op.
func (t *Timer) Stop() error {
	if !t.active {
		return nil
	}
	t.loop.timers.Remove(t, timerLess)
	t.active = false
	t.loop.stopHandle(t)
	return nil
}

// Again restarts t using its repeat interval as the delay, measured from the
// loop's current time. Fails if t was never started; does nothing if t is
// one-shot.
func (t *Timer) Again() error {
	if t.cb == nil {
		return errtrace.Wrap(ErrNotStarted)
	}
	if t.repeat != 0 {
		t.Stop()
		return errtrace.Wrap(t.Start(t.cb, t.repeat, t.repeat))
	}
	return nil
}

// SetRepeat sets the repeat interval in milliseconds. It does not reschedule
// a pending deadline; the new interval is picked up after the next fire or
// Again.
func (t *Timer) SetRepeat(repeat uint64) {
	t.repeat = repeat
}

// Repeat returns the repeat interval in milliseconds.
func (t *Timer) Repeat() uint64 {
	return t.repeat
}

// DueIn returns the time until t's deadline in milliseconds, or 0 if the
// deadline has already passed.
func (t *Timer) DueIn() uint64 {
	if t.loop.time >= t.timeout {
		return 0
	}
	return t.timeout - t.loop.time
}

// Active reports whether t is currently scheduled.
func (t *Timer) Active() bool {
	return t.active
}

// Ref marks t as keeping its loop alive while active (the default).
func (t *Timer) Ref() {
	if t.ref {
		return
	}
	t.ref = true
	if t.active {
		t.loop.activeHandles++
	}
}

// Unref marks t as not keeping its loop alive: Run returns even while t is
// pending, and t fires only if something else keeps the loop turning.
func (t *Timer) Unref() {
	if !t.ref {
		return
	}
	t.ref = false
	if t.active {
		t.loop.activeHandles--
	}
}

// Close stops t and marks it closing; any further Start fails with
// ErrClosing. Called by handle teardown.
func (t *Timer) Close() {
	t.Stop()
	t.closing = true
}
