package signalsim

import (
	"io"
	"log/slog"
	"math/rand/v2"
)

// Options holds configuration options shared by [Queue], [Signal],
// [Generator] and [Simulation]. Each component reads the fields it needs.
type Options struct {
	Logger *slog.Logger
	Rand   *rand.Rand
	Hook   QueueHook
}

// Option is a function that configures [Options].
type Option func(*Options)

// WithLogger sets the logger events are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithRand sets the random source used for arrivals.
func WithRand(r *rand.Rand) Option {
	return func(o *Options) {
		o.Rand = r
	}
}

// WithQueueHook sets the hook notified of every push and pop.
func WithQueueHook(hook QueueHook) Option {
	return func(o *Options) {
		o.Hook = hook
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}
