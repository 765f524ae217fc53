// Package displaylink delivers refresh ticks to a callback from a dedicated goroutine
package displaylink

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/starbright/clock"
	"github.com/lixenwraith/starbright/core"
)

// DefaultRefreshRate is used when no rate is configured
const DefaultRefreshRate = 60.0

var (
	ErrAlreadyRunning = errors.New("display link already running")
	ErrNilCallback    = errors.New("display link callback is nil")
)

// TickFunc receives the display clock timestamp in seconds
type TickFunc func(timestamp float64)

// Link is a periodic tick source with explicit start and stop
// After Stop returns no callback is executing and none will be delivered until the next Start
type Link interface {
	Start(fn TickFunc) error
	Stop()
	Running() bool
}

// Ticker is a Link driven by time.Ticker at a fixed refresh rate
type Ticker struct {
	interval time.Duration
	source   clock.Source

	mu       sync.Mutex // Serializes Start/Stop
	stopChan chan struct{}
	wg       sync.WaitGroup
	running  atomic.Bool

	ticks atomic.Uint64
}

// NewTicker creates a ticker link at hz refreshes per second reading timestamps from source
// A nil source uses the monotonic clock
func NewTicker(hz float64, source clock.Source) *Ticker {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	if source == nil {
		source = clock.NewMonotonic()
	}
	return &Ticker{
		interval: clock.Interval(hz),
		source:   source,
	}
}

// Start begins tick delivery on a new goroutine
func (t *Ticker) Start(fn TickFunc) error {
	if fn == nil {
		return ErrNilCallback
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	stop := make(chan struct{})
	t.stopChan = stop
	t.wg.Add(1)
	// Use core.Go for safe execution with centralized crash handling
	core.Go(func() { t.loop(stop, fn) })
	return nil
}

// Stop halts delivery and waits for an in-flight callback to return
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running.CompareAndSwap(true, false) {
		return
	}
	close(t.stopChan)
	t.wg.Wait()
	t.stopChan = nil
}

// Running reports whether ticks are being delivered
func (t *Ticker) Running() bool {
	return t.running.Load()
}

// Interval returns the configured tick period
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Ticks returns the number of callbacks delivered since creation
func (t *Ticker) Ticks() uint64 {
	return t.ticks.Load()
}

func (t *Ticker) loop(stop <-chan struct{}, fn TickFunc) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			// Stop may race a ready tick in select; recheck before delivering
			select {
			case <-stop:
				return
			default:
			}
			fn(t.source.Now())
			t.ticks.Add(1)
		}
	}
}
