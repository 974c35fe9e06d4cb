package signalsim

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a [Signal].
type State int32

const (
	StateIdle State = iota
	StateServicing
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateServicing:
		return "servicing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// SignalStats summarises the work a [Signal] did.
type SignalStats struct {
	Name           string           `json:"name"`
	TotalPassed    int              `json:"total_passed"`
	EmergencyCount int              `json:"emergency_count"`
	ByCategory     map[Category]int `json:"by_category,omitempty"`
}

// SignalConfig holds the dispatch parameters of a [Signal].
type SignalConfig struct {
	IdleTimeout time.Duration
	Delay       DelayPolicy
	Emergency   []Category
}

// Signal drains its own [Queue], one entity at a time, highest priority first.
// Anyone may admit entities; only the signal's dispatch loop consumes them.
type Signal struct {
	name   string
	cfg    SignalConfig
	queue  *Queue
	logger *slog.Logger

	started atomic.Bool
	state   atomic.Int32
	done    chan struct{} // closed once stopped.

	// Written only by the dispatch loop, read only after done is closed.
	totalPassed    int
	emergencyCount int
	byCategory     map[Category]int
}

// NewSignal creates a new [Signal] with an empty queue. Options are passed on
// to the queue.
func NewSignal(name string, cfg SignalConfig, opts ...Option) *Signal {
	o := newOptions(opts)

	return &Signal{
		name:       name,
		cfg:        cfg,
		queue:      NewQueue(opts...),
		logger:     o.Logger.With("signal", name),
		done:       make(chan struct{}),
		byCategory: make(map[Category]int),
	}
}

// Name returns the name of the signal.
func (s *Signal) Name() string { return s.name }

// Queue returns the queue the signal drains.
func (s *Signal) Queue() *Queue { return s.queue }

// State returns the current lifecycle state.
func (s *Signal) State() State { return State(s.state.Load()) }

// Done returns a channel that is closed once the signal has stopped.
func (s *Signal) Done() <-chan struct{} { return s.done }

// Admit queues the entity at this signal.
func (s *Signal) Admit(e Entity) {
	s.queue.Push(e)
	s.logger.Info(fmt.Sprintf("%s entered at %s", e, s.name), "queued", s.queue.Len())
}

// Run executes the dispatch loop until ctx is cancelled. Cancellation also
// interrupts an idle wait or a service in progress; entities still queued
// are abandoned. Run may only be called once.
func (s *Signal) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("signal %q: %w", s.name, ErrAlreadyStarted)
	}
	defer close(s.done)
	defer s.state.Store(int32(StateStopped))

	for ctx.Err() == nil {
		e, ok := s.queue.Pop(ctx, s.cfg.IdleTimeout)
		if !ok {
			if ctx.Err() != nil {
				break
			}
			s.logger.Info(fmt.Sprintf("%s is empty", s.name), "idle", s.cfg.IdleTimeout)
			continue
		}
		s.service(ctx, e)
	}

	s.state.Store(int32(StateStopping))
	s.logger.Info(fmt.Sprintf("%s stopped", s.name),
		"passed", s.totalPassed,
		"emergencies", s.emergencyCount,
		"abandoned", s.queue.Len(),
	)
	return nil
}

// service holds the entity for its service delay. An entity popped before
// cancellation has left the queue, so it is counted even if the delay is cut
// short.
func (s *Signal) service(ctx context.Context, e Entity) {
	s.state.Store(int32(StateServicing))
	defer s.state.Store(int32(StateIdle))

	waited := time.Since(e.ArrivalTime)
	delay := s.cfg.Delay.ServiceDelay(e.Priority)

	timer := time.NewTimer(delay)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	s.totalPassed++
	s.byCategory[e.Category]++
	if s.isEmergency(e.Category) {
		s.emergencyCount++
	}

	s.logger.Info(fmt.Sprintf("%s -> %s passed the signal", s.name, e),
		"wait", waited.Round(time.Millisecond),
		"service", delay,
	)
}

func (s *Signal) isEmergency(c Category) bool {
	return slices.Contains(s.cfg.Emergency, c)
}

// Stats returns the signal's statistics. It fails with [ErrSignalRunning]
// until the signal has stopped, as the counters are owned by the dispatch
// loop until then.
func (s *Signal) Stats() (SignalStats, error) {
	select {
	case <-s.done:
	default:
		return SignalStats{Name: s.name}, fmt.Errorf("signal %q: %w", s.name, ErrSignalRunning)
	}

	return SignalStats{
		Name:           s.name,
		TotalPassed:    s.totalPassed,
		EmergencyCount: s.emergencyCount,
		ByCategory:     maps.Clone(s.byCategory),
	}, nil
}
