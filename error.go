package evloop

import "errors"

var (
	// ErrNoCallback is returned by Timer.Start when the callback is nil.
	ErrNoCallback = errors.New("evloop: timer callback is nil")

	// ErrClosing is returned by Timer.Start on a closed handle.
	ErrClosing = errors.New("evloop: handle is closing")

	// ErrNotStarted is returned by Timer.Again on a timer that was never
	// started.
	ErrNotStarted = errors.New("evloop: timer was never started")

	// ErrLoopRunning is returned by Loop.Run when the loop is already
	// running.
	ErrLoopRunning = errors.New("evloop: loop is already running")
)
