// Package clock supplies monotonic timestamps in seconds for display links and pacers
package clock

import (
	"sync"
	"time"
)

// Source yields monotonic timestamps in seconds
type Source interface {
	Now() float64
}

// Monotonic reports seconds elapsed since its creation using the runtime monotonic clock
type Monotonic struct {
	start time.Time
}

// NewMonotonic creates a source anchored at the current instant
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Now returns seconds since the source was created
func (m *Monotonic) Now() float64 {
	return time.Since(m.start).Seconds()
}

// Mock provides a controllable time source for testing
type Mock struct {
	mu      sync.RWMutex
	current float64
}

// NewMock creates a mock source starting at the given timestamp
func NewMock(start float64) *Mock {
	return &Mock{current: start}
}

// Now returns the current mocked timestamp
func (m *Mock) Now() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set sets the current timestamp, may move backwards
func (m *Mock) Set(ts float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = ts
}

// Advance moves the timestamp forward by d
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current += d.Seconds()
}

// Interval converts a refresh rate in Hz to a tick interval, non-positive rates fall back to 60 Hz
func Interval(hz float64) time.Duration {
	if hz <= 0 {
		hz = 60
	}
	return time.Duration(float64(time.Second) / hz)
}
