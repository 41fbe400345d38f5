package evloop

// The loop blocks between ticks in a platform poller:
//   - Linux: epoll with an eventfd wakeup (poll_linux.go)
//   - elsewhere: a channel park with a deadline (poll_other.go)
//
// The poller carries no I/O registrations of its own here; its job is to
// sleep for at most the next timer deadline and to be interruptible from
// other goroutines via wakeup.
type poller interface {
	// wait blocks for up to msec milliseconds; msec < 0 blocks until
	// woken, msec == 0 polls without blocking.
	wait(msec int) error

	// wakeup unblocks a concurrent wait. Thread-safe, coalescing.
	wakeup()

	close() error
}
