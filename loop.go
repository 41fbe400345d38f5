// Package evloop implements a single-threaded event loop built around an
// intrusive timer heap: timers embed their own heap linkage, the loop polls
// for at most as long as the nearest deadline, and expired timers fire inline
// in deterministic (deadline, start order) sequence.
package evloop

import (
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
)

// Detecting illegal struct copies using `go vet`
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Loop drives timers and the poll wait from a single goroutine. None of its
// methods are safe for concurrent use except Wakeup and Stop, which exist
// precisely to nudge a parked loop from outside.
type Loop struct {
	noCopy

	// Pending timers ordered by (deadline, startID).
	timers Heap[Timer]

	// Stamps startID; monotonically increasing for the life of the loop.
	timerCounter uint64

	// Cached monotonic clock in milliseconds, refreshed once per
	// iteration so every timer drained in one pass sees the same now.
	time  uint64
	clock func() uint64

	// Count of active ref'd handles; the loop runs while it is non-zero.
	activeHandles uint

	pending    []func()
	pendingBuf []func()

	poller poller
	logger *slog.Logger

	lockOSThread bool
	running      bool
	stopFlag     atomic.Bool
}

// NewLoop returns a loop ready to schedule timers and Run.
func NewLoop(opts ...Option) (*Loop, error) {
	o := setOptions(opts...)

	l := &Loop{
		clock:        o.clock,
		logger:       o.logger,
		lockOSThread: o.lockOSThread,
	}
	if l.clock == nil {
		base := time.Now()
		l.clock = func() uint64 {
			return uint64(time.Since(base).Milliseconds())
		}
	}
	l.timers.Init(timerNode)

	p, err := newPoller()
	if err != nil {
		return nil, errtrace.Wrap(err)
	}
	l.poller = p

	l.UpdateTime()
	return l, nil
}

// Now returns the loop's cached monotonic time in milliseconds. It advances
// only when UpdateTime runs, i.e. once per loop iteration.
func (l *Loop) Now() uint64 {
	return l.time
}

// UpdateTime refreshes the cached clock. Run does this at the top of every
// iteration; call it manually only when driving the loop by hand.
func (l *Loop) UpdateTime() {
	l.time = l.clock()
}

// NextTimeout returns how long the loop may block waiting for I/O: 0 if the
// nearest timer is already due, -1 if no timer is pending (block forever),
// otherwise the delay in milliseconds clamped to MaxInt32 so poll backends
// taking a C int are safe.
func (l *Loop) NextTimeout() int {
	min := l.timers.Min()
	if min == nil {
		return -1
	}
	if min.timeout <= l.time {
		return 0
	}
	diff := min.timeout - l.time
	if diff > math.MaxInt32 {
		diff = math.MaxInt32
	}
	return int(diff)
}

// RunTimers fires every timer whose deadline has reached the loop's cached
// time, in (deadline, startID) order. Each due timer is detached from the
// heap and, if repeating, reinserted with a fresh startID before its
// callback runs, so callbacks observe a consistent heap and may freely
// start or stop any handle, including the one firing. A timer stopped by an
// earlier callback in the same pass is simply no longer the heap minimum
// and does not fire.
func (l *Loop) RunTimers() {
	for {
		t := l.timers.Min()
		if t == nil || t.timeout > l.time {
			break
		}

		t.Stop()
		t.Again()
		t.cb(t)
	}
}

// Post queues fn to run at the top of the next iteration, before timers.
// Loop-goroutine only; use Wakeup to rouse the loop from another goroutine.
func (l *Loop) Post(fn func()) {
	l.pending = append(l.pending, fn)
}

func (l *Loop) runPending() {
	if len(l.pending) == 0 {
		return
	}
	q := l.pending
	l.pending = l.pendingBuf[:0]
	for _, fn := range q {
		fn()
	}
	l.pendingBuf = q[:0]
}

// startHandle and stopHandle are the activation bookkeeping shared by all
// handle kinds; only ref'd handles keep Run alive.
func (l *Loop) startHandle(t *Timer) {
	if t.ref {
		l.activeHandles++
	}
}

func (l *Loop) stopHandle(t *Timer) {
	if t.ref {
		l.activeHandles--
	}
}

func (l *Loop) alive() bool {
	return l.activeHandles > 0 || len(l.pending) > 0
}

// Run turns the loop until no ref'd handle remains or Stop is called:
// refresh the clock, drain posted callbacks, fire due timers, then block in
// the poller for at most the next deadline.
func (l *Loop) Run() error {
	if l.running {
		return errtrace.Wrap(ErrLoopRunning)
	}
	if l.lockOSThread {
		// Refer to go doc runtime.LockOSThread
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
	}
	l.running = true
	defer func() { l.running = false }()

	for !l.stopFlag.Load() {
		if !l.RunOnce() {
			break
		}
	}
	l.stopFlag.Store(false)
	return nil
}

// RunOnce performs a single loop iteration and reports whether the loop is
// still alive afterwards.
func (l *Loop) RunOnce() bool {
	l.UpdateTime()
	l.runPending()
	l.RunTimers()
	if !l.alive() {
		return false
	}

	if err := l.poller.wait(l.NextTimeout()); err != nil {
		l.logger.Error("evloop: poll wait failed", "error", err)
		return false
	}
	return true
}

// Stop makes Run return after the current iteration. Safe to call from any
// goroutine.
func (l *Loop) Stop() {
	l.stopFlag.Store(true)
	l.Wakeup()
}

// Wakeup unblocks the loop's poll wait. Safe to call from any goroutine;
// spurious wakeups are harmless.
func (l *Loop) Wakeup() {
	l.poller.wakeup()
}

// Close releases the loop's poller resources. The loop must not be running.
func (l *Loop) Close() error {
	return errtrace.Wrap(l.poller.close())
}
