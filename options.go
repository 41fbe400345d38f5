package evloop

import (
	"log/slog"

	"github.com/evkit/evloop/internal/log"
)

// Options holds loop construction parameters.
type Options struct {
	logger       *slog.Logger
	clock        func() uint64
	lockOSThread bool
}

// Option mutates Options.
type Option func(*Options)

func setOptions(optL ...Option) *Options {
	//= default options
	o := &Options{
		logger: log.Noop,
	}
	for _, opt := range optL {
		opt(o)
	}
	return o
}

// Logger sets the loop's logger. The default discards everything; pass
// log.Def/log.Dev style handlers from the embedding application.
func Logger(l *slog.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Clock overrides the loop's monotonic millisecond clock. Mainly for tests
// and for embedding into an outer application that already caches time.
func Clock(fn func() uint64) Option {
	return func(o *Options) {
		o.clock = fn
	}
}

// LockOSThread binds the Run goroutine to its OS thread for the duration of
// the run.
func LockOSThread(v bool) Option {
	return func(o *Options) {
		o.lockOSThread = v
	}
}
