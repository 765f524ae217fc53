// Package pacer converts display clock ticks into fixed-size simulation steps followed by one draw
//
// Time not yet spent on steps is carried between ticks as debt. Elapsed time per tick is clamped so a
// stall (debugger pause, sleep/wake) costs at most MaxSteps catch-up updates instead of a burst.
package pacer

import (
	"errors"
	"fmt"
	"math"
)

// epsilon is the relative slack on the step threshold, so ticks at exact multiples of the step take
// exactly one step each regardless of step size
const epsilon = 1e-9

// Default policy: 60 Hz simulation, at most 4 catch-up steps per tick
const (
	DefaultStep     = 1.0 / 60.0
	DefaultMaxSteps = 4
)

// ErrInvalidConfig is returned by New for a non-positive step or step budget
var ErrInvalidConfig = errors.New("invalid pacer config")

// Config holds the fixed step size and the catch-up clamp
type Config struct {
	Step     float64 // Seconds per simulation step
	MaxSteps int     // Elapsed time per tick is clamped to MaxSteps*Step
}

// DefaultConfig returns the 60 Hz, 4-step clamp policy
func DefaultConfig() Config {
	return Config{Step: DefaultStep, MaxSteps: DefaultMaxSteps}
}

// Validate reports whether the config can drive a pacer
func (c Config) Validate() error {
	if math.IsNaN(c.Step) || math.IsInf(c.Step, 0) || c.Step <= 0 {
		return fmt.Errorf("%w: step %v must be a positive number of seconds", ErrInvalidConfig, c.Step)
	}
	if c.MaxSteps < 1 {
		return fmt.Errorf("%w: max steps %d must be at least 1", ErrInvalidConfig, c.MaxSteps)
	}
	return nil
}

// TickResult describes what a single tick did
type TickResult struct {
	Elapsed  float64 // Seconds credited to debt after validation and clamping
	Updates  int     // Fixed steps taken
	Clamped  bool    // Elapsed exceeded the catch-up budget
	Rejected bool    // Sample was non-finite or did not move forward
	Debt     float64 // Debt remaining after the steps
}

// Pacer holds the time debt and previous timestamp
// Not safe for concurrent use; the owner serializes ticks
type Pacer struct {
	step      float64
	maxSteps  int
	threshold float64 // Debt needed for one step, step scaled by 1-epsilon

	timeDebt float64
	previous float64
	primed   bool
}

// New creates a pacer for the given config
func New(cfg Config) (*Pacer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pacer{
		step:      cfg.Step,
		maxSteps:  cfg.MaxSteps,
		threshold: cfg.Step * (1 - epsilon),
	}, nil
}

// Tick consumes one clock sample, calls update once per fixed step owed, then draw exactly once
// The first sample only establishes the baseline
func (p *Pacer) Tick(timestamp float64, update func(step float64), draw func()) TickResult {
	var res TickResult

	elapsed, ok := p.advance(timestamp)
	res.Rejected = !ok

	if limit := p.step * float64(p.maxSteps); elapsed > limit {
		elapsed = limit
		res.Clamped = true
	}
	res.Elapsed = elapsed
	p.timeDebt += elapsed

	for p.timeDebt >= p.threshold {
		if update != nil {
			update(p.step)
		}
		p.timeDebt -= p.step
		res.Updates++
	}
	if p.timeDebt < 0 {
		p.timeDebt = 0
	}
	res.Debt = p.timeDebt

	if draw != nil {
		draw()
	}
	return res
}

// advance moves the baseline and returns usable elapsed seconds
// Non-finite samples leave the baseline untouched; finite non-forward samples re-baseline with zero elapsed
func (p *Pacer) advance(timestamp float64) (float64, bool) {
	if math.IsNaN(timestamp) || math.IsInf(timestamp, 0) {
		return 0, false
	}
	if !p.primed {
		p.previous = timestamp
		p.primed = true
		return 0, true
	}

	elapsed := timestamp - p.previous
	p.previous = timestamp
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed <= 0 {
		return 0, false
	}
	return elapsed, true
}

// Reset clears debt and forgets the baseline, the next tick re-primes
func (p *Pacer) Reset() {
	p.timeDebt = 0
	p.previous = 0
	p.primed = false
}

// Step returns the fixed step size in seconds
func (p *Pacer) Step() float64 {
	return p.step
}

// MaxSteps returns the catch-up budget per tick
func (p *Pacer) MaxSteps() int {
	return p.maxSteps
}

// Debt returns unspent simulation time in seconds
func (p *Pacer) Debt() float64 {
	return p.timeDebt
}

// Alpha returns debt as a fraction of one step, for interpolating between simulation states
func (p *Pacer) Alpha() float64 {
	a := p.timeDebt / p.step
	if a < 0 {
		return 0
	}
	if a >= 1 {
		return math.Nextafter(1, 0)
	}
	return a
}

// Previous returns the last accepted timestamp and whether a baseline exists
func (p *Pacer) Previous() (float64, bool) {
	return p.previous, p.primed
}
