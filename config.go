package signalsim

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// CategorySpec describes one kind of arrival: the fixed priority entities of
// that category carry, and how often the [Generator] produces it relative to
// the other categories.
type CategorySpec struct {
	Category Category `json:"category"`
	Priority int      `json:"priority"`
	Weight   int      `json:"weight"`
}

// CategoryMix is the weighted set of categories the [Generator] draws from.
type CategoryMix []CategorySpec

// Priority returns the fixed priority of c.
func (m CategoryMix) Priority(c Category) (int, bool) {
	for _, cs := range m {
		if cs.Category == c {
			return cs.Priority, true
		}
	}
	return 0, false
}

func (m CategoryMix) totalWeight() int {
	total := 0
	for _, cs := range m {
		total += cs.Weight
	}
	return total
}

// pick draws a category with probability proportional to its weight.
func (m CategoryMix) pick(r *rand.Rand) CategorySpec {
	n := r.IntN(m.totalWeight())
	for _, cs := range m {
		if n < cs.Weight {
			return cs
		}
		n -= cs.Weight
	}
	return m[len(m)-1]
}

// Seed is an entity placed directly on a signal when a [Simulation] starts.
type Seed struct {
	Signal   string   `json:"signal"`
	Category Category `json:"category"`
}

// Config holds the parameters of a [Simulation].
type Config struct {
	Signals     []string      // Names of the signals, one worker each
	Duration    time.Duration // How long the simulation runs before cancelling
	IdleTimeout time.Duration // How long a signal waits on an empty queue before reporting idle
	Delay       DelayPolicy   // Service time as a function of priority

	ArrivalMin time.Duration // Shortest pause between generated arrivals
	ArrivalMax time.Duration // Longest pause between generated arrivals
	Mix        CategoryMix   // Categories, priorities and weights of generated arrivals
	Emergency  []Category    // Categories counted as emergencies

	Seeds         []Seed        // Entities placed on signals at startup
	ShutdownGrace time.Duration // How long components get to stop after cancellation
	RandSeed      uint64        // Seed for the arrival random source; zero picks one at random
}

// DefaultConfig returns the configuration of the two-signal intersection
// demo.
func DefaultConfig() Config {
	return Config{
		Signals:     []string{"Signal A", "Signal B"},
		Duration:    20 * time.Second,
		IdleTimeout: 1500 * time.Millisecond,
		Delay: DelayPolicy{
			Min:    200 * time.Millisecond,
			Base:   1000 * time.Millisecond,
			Factor: 150 * time.Millisecond,
		},
		ArrivalMin: 1 * time.Second,
		ArrivalMax: 4 * time.Second,
		Mix: CategoryMix{
			{Category: Categories.Car, Priority: 1, Weight: 40},
			{Category: Categories.Bus, Priority: 2, Weight: 25},
			{Category: Categories.Police, Priority: 3, Weight: 15},
			{Category: Categories.FireTruck, Priority: 4, Weight: 10},
			{Category: Categories.Ambulance, Priority: 5, Weight: 10},
		},
		Emergency: []Category{Categories.Ambulance, Categories.FireTruck, Categories.Police},
		Seeds: []Seed{
			{Signal: "Signal A", Category: Categories.Car},
			{Signal: "Signal A", Category: Categories.Ambulance},
			{Signal: "Signal B", Category: Categories.Bus},
			{Signal: "Signal B", Category: Categories.Car},
		},
		ShutdownGrace: 5 * time.Second,
	}
}

// Validate checks the configuration is usable. Errors wrap
// [ErrInvalidConfig].
func (c Config) Validate() error {
	if len(c.Signals) == 0 {
		return fmt.Errorf("%w: no signals", ErrInvalidConfig)
	}
	for i, name := range c.Signals {
		if name == "" {
			return fmt.Errorf("%w: signal %d has no name", ErrInvalidConfig, i)
		}
		if slices.Index(c.Signals, name) != i {
			return fmt.Errorf("%w: duplicate signal %q", ErrInvalidConfig, name)
		}
	}

	switch {
	case c.Duration <= 0:
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	case c.IdleTimeout <= 0:
		return fmt.Errorf("%w: idle timeout must be positive", ErrInvalidConfig)
	case c.Delay.Min <= 0:
		return fmt.Errorf("%w: minimum service delay must be positive", ErrInvalidConfig)
	case c.Delay.Base < 0 || c.Delay.Factor < 0:
		return fmt.Errorf("%w: service delay base and factor must not be negative", ErrInvalidConfig)
	case c.ArrivalMin <= 0 || c.ArrivalMax < c.ArrivalMin:
		return fmt.Errorf("%w: arrival interval [%s, %s] is invalid", ErrInvalidConfig, c.ArrivalMin, c.ArrivalMax)
	case c.ShutdownGrace <= 0:
		return fmt.Errorf("%w: shutdown grace must be positive", ErrInvalidConfig)
	case len(c.Mix) == 0:
		return fmt.Errorf("%w: empty category mix", ErrInvalidConfig)
	}

	seen := make(map[Category]bool, len(c.Mix))
	for _, cs := range c.Mix {
		if !cs.Category.IsValid() {
			return fmt.Errorf("%w: unknown category in mix", ErrInvalidConfig)
		}
		if seen[cs.Category] {
			return fmt.Errorf("%w: duplicate category %s in mix", ErrInvalidConfig, cs.Category)
		}
		if cs.Weight <= 0 {
			return fmt.Errorf("%w: category %s needs a positive weight", ErrInvalidConfig, cs.Category)
		}
		seen[cs.Category] = true
	}

	for _, cat := range c.Emergency {
		if !cat.IsValid() {
			return fmt.Errorf("%w: unknown emergency category", ErrInvalidConfig)
		}
	}

	for i, seed := range c.Seeds {
		if !slices.Contains(c.Signals, seed.Signal) {
			return fmt.Errorf("%w: seed %d: %w %q", ErrInvalidConfig, i, ErrUnknownSignal, seed.Signal)
		}
		if _, ok := c.Mix.Priority(seed.Category); !ok {
			return fmt.Errorf("%w: seed %d: category %s has no priority", ErrInvalidConfig, i, seed.Category)
		}
	}

	return nil
}
