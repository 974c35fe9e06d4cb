package signalsim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// GeneratorConfig holds the arrival parameters of a [Generator].
type GeneratorConfig struct {
	ArrivalMin time.Duration
	ArrivalMax time.Duration
	Mix        CategoryMix
}

// Generator produces randomised arrivals in the background, admitting each
// one to a signal chosen uniformly at random.
type Generator struct {
	cfg     GeneratorConfig
	signals []*Signal
	ids     *IDGenerator
	rand    *rand.Rand
	logger  *slog.Logger

	started   atomic.Bool
	generated atomic.Int64
	done      chan struct{}
}

// NewGenerator creates a new [Generator] feeding the given signals. The
// random source set with [WithRand] is only used by the generator's own
// goroutine.
func NewGenerator(signals []*Signal, ids *IDGenerator, cfg GeneratorConfig, opts ...Option) *Generator {
	o := newOptions(opts)

	r := o.Rand
	if r == nil {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{
		cfg:     cfg,
		signals: signals,
		ids:     ids,
		rand:    r,
		logger:  o.Logger.With("component", "generator"),
		done:    make(chan struct{}),
	}
}

// Generated returns the number of entities admitted so far.
func (g *Generator) Generated() int {
	return int(g.generated.Load())
}

// Done returns a channel that is closed once the generator has stopped.
func (g *Generator) Done() <-chan struct{} { return g.done }

// Run generates arrivals until ctx is cancelled. Nothing is admitted once
// cancellation has been observed. Run may only be called once.
func (g *Generator) Run(ctx context.Context) error {
	if !g.started.CompareAndSwap(false, true) {
		return fmt.Errorf("generator: %w", ErrAlreadyStarted)
	}
	defer close(g.done)

	if len(g.signals) == 0 || g.cfg.Mix.totalWeight() <= 0 {
		return fmt.Errorf("%w: generator needs signals and a weighted category mix", ErrInvalidConfig)
	}

	for {
		timer := time.NewTimer(g.interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			g.logger.Info("generator stopped", "generated", g.Generated())
			return nil
		case <-timer.C:
		}

		// Both cases may have been ready at once.
		if ctx.Err() != nil {
			g.logger.Info("generator stopped", "generated", g.Generated())
			return nil
		}

		cs := g.cfg.Mix.pick(g.rand)
		sig := g.signals[g.rand.IntN(len(g.signals))]
		sig.Admit(g.ids.NewEntity(cs.Category, cs.Priority))
		g.generated.Add(1)
	}
}

// interval draws the pause before the next arrival from
// [ArrivalMin, ArrivalMax].
func (g *Generator) interval() time.Duration {
	spread := g.cfg.ArrivalMax - g.cfg.ArrivalMin
	if spread <= 0 {
		return g.cfg.ArrivalMin
	}
	return g.cfg.ArrivalMin + time.Duration(g.rand.Int64N(int64(spread)+1))
}
