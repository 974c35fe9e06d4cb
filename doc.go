// Package signalsim implements a concurrent priority-scheduling simulator of
// traffic signals.
//
// Each [Signal] owns a [Queue] of arriving entities and drains it in a
// dedicated goroutine, highest priority first. Service time depends on
// priority: urgent vehicles pass faster, but never instantaneously. A
// [Generator] feeds randomized arrivals to the signals in the background, and
// a [Simulation] starts every component, runs for a bounded duration, cancels
// them together and reports per-signal statistics once they have stopped.
//
// Entities of equal priority are served in arrival order, so a steady stream
// of one category cannot reorder earlier arrivals of the same priority.
package signalsim
