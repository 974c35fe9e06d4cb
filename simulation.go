package signalsim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Report holds the outcome of a [Simulation] run.
type Report struct {
	RunID     uuid.UUID     `json:"run_id"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Generated int           `json:"generated"`
	Abandoned int           `json:"abandoned"`
	Signals   []SignalStats `json:"signals"`
}

// Total returns the number of entities that passed any signal.
func (r Report) Total() int {
	total := 0
	for _, s := range r.Signals {
		total += s.TotalPassed
	}
	return total
}

// Emergencies returns the number of emergency entities that passed any
// signal.
func (r Report) Emergencies() int {
	total := 0
	for _, s := range r.Signals {
		total += s.EmergencyCount
	}
	return total
}

// Simulation starts a set of signals and a generator, runs them for a bounded
// duration, stops them together and reports what they did.
type Simulation struct {
	cfg    Config
	runID  uuid.UUID
	ids    IDGenerator
	logger *slog.Logger

	signals   []*Signal
	byName    map[string]*Signal
	generator *Generator

	started  atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new [Simulation] from a validated copy of cfg.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts)
	runID := uuid.New()

	s := &Simulation{
		cfg:    cfg,
		runID:  runID,
		logger: o.Logger.With("run", runID.String()),
		byName: make(map[string]*Signal, len(cfg.Signals)),
		stopCh: make(chan struct{}),
	}

	sigCfg := SignalConfig{
		IdleTimeout: cfg.IdleTimeout,
		Delay:       cfg.Delay,
		Emergency:   cfg.Emergency,
	}
	for _, name := range cfg.Signals {
		sig := NewSignal(name, sigCfg, WithLogger(s.logger), WithQueueHook(o.Hook))
		s.signals = append(s.signals, sig)
		s.byName[name] = sig
	}

	r := o.Rand
	if r == nil && cfg.RandSeed != 0 {
		r = rand.New(rand.NewPCG(cfg.RandSeed, cfg.RandSeed))
	}
	genCfg := GeneratorConfig{
		ArrivalMin: cfg.ArrivalMin,
		ArrivalMax: cfg.ArrivalMax,
		Mix:        cfg.Mix,
	}
	s.generator = NewGenerator(s.signals, &s.ids, genCfg, WithLogger(s.logger), WithRand(r))

	return s, nil
}

// RunID returns the identifier attached to this run's events and report.
func (s *Simulation) RunID() uuid.UUID { return s.runID }

// Signals returns the simulation's signals in configuration order.
func (s *Simulation) Signals() []*Signal { return s.signals }

// Signal returns the signal with the given name.
func (s *Simulation) Signal(name string) (*Signal, error) {
	sig, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSignal, name)
	}
	return sig, nil
}

// Admit creates an entity of the given category, with its configured
// priority, and queues it at the named signal.
func (s *Simulation) Admit(signal string, category Category) (Entity, error) {
	sig, err := s.Signal(signal)
	if err != nil {
		return Entity{}, err
	}
	priority, ok := s.cfg.Mix.Priority(category)
	if !ok {
		return Entity{}, fmt.Errorf("%w: category %s has no priority", ErrInvalidConfig, category)
	}

	e := s.ids.NewEntity(category, priority)
	sig.Admit(e)
	return e, nil
}

// Stop asks a running simulation to shut down early. It is safe to call any
// number of times from any goroutine.
func (s *Simulation) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Run starts every signal and the generator, seeds the configured entities
// and runs until the configured duration elapses, ctx is cancelled or
// [Simulation.Stop] is called. It then cancels every component and waits for
// them to stop. If any is still running after the shutdown grace period, Run
// returns [ErrShutdownTimeout].
//
// The returned [Report] is read only after every component has stopped.
func (s *Simulation) Run(ctx context.Context) (Report, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Report{}, fmt.Errorf("simulation: %w", ErrAlreadyStarted)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	report := Report{RunID: s.runID, StartedAt: time.Now()}
	s.logger.Info("simulation started", "signals", len(s.signals), "duration", s.cfg.Duration)

	var wg sync.WaitGroup
	wg.Add(len(s.signals) + 1)

	for _, sig := range s.signals {
		go func() {
			defer wg.Done()
			if err := sig.Run(ctx); err != nil {
				s.logger.Error("signal failed", "error", err)
			}
		}()
	}
	go func() {
		defer wg.Done()
		if err := s.generator.Run(ctx); err != nil {
			s.logger.Error("generator failed", "error", err)
		}
	}()

	for _, seed := range s.cfg.Seeds {
		if _, err := s.Admit(seed.Signal, seed.Category); err != nil {
			s.logger.Error("seed rejected", "error", err)
		}
	}

	timer := time.NewTimer(s.cfg.Duration)
	select {
	case <-timer.C:
	case <-ctx.Done():
	case <-s.stopCh:
	}
	timer.Stop()

	s.logger.Info("stopping simulation")
	cancel()

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	grace := time.NewTimer(s.cfg.ShutdownGrace)
	defer grace.Stop()

	select {
	case <-stopped:
	case <-grace.C:
		stuck := s.running()
		s.logger.Error("shutdown grace period exceeded", "running", strings.Join(stuck, ", "))
		return report, fmt.Errorf("%w: %s", ErrShutdownTimeout, strings.Join(stuck, ", "))
	}

	report.Elapsed = time.Since(report.StartedAt)
	report.Generated = s.generator.Generated()
	for _, sig := range s.signals {
		stats, err := sig.Stats()
		if err != nil {
			return report, err
		}
		report.Signals = append(report.Signals, stats)

		for _, e := range sig.Queue().Drain() {
			s.logger.Debug("entity abandoned", "signal", sig.Name(), "entity", e.String())
			report.Abandoned++
		}
	}

	s.logger.Info("simulation stopped",
		"passed", report.Total(),
		"emergencies", report.Emergencies(),
		"abandoned", report.Abandoned,
	)
	return report, nil
}

// running returns the names of the components that have not stopped yet.
func (s *Simulation) running() []string {
	var names []string
	for _, sig := range s.signals {
		select {
		case <-sig.Done():
		default:
			names = append(names, sig.Name())
		}
	}
	select {
	case <-s.generator.Done():
	default:
		names = append(names, "generator")
	}
	return names
}
