package displaylink

import "sync"

// Manual is a Link fired explicitly by the caller, for headless hosts and tests
type Manual struct {
	mu sync.Mutex
	fn TickFunc
}

// NewManual creates a stopped manual link
func NewManual() *Manual {
	return &Manual{}
}

// Start arms the link with the callback
func (m *Manual) Start(fn TickFunc) error {
	if fn == nil {
		return ErrNilCallback
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fn != nil {
		return ErrAlreadyRunning
	}
	m.fn = fn
	return nil
}

// Stop disarms the link, waiting for a concurrent Fire to finish
func (m *Manual) Stop() {
	m.mu.Lock()
	m.fn = nil
	m.mu.Unlock()
}

// Running reports whether the link is armed
func (m *Manual) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Fire delivers one tick synchronously, returns false when stopped
func (m *Manual) Fire(timestamp float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.fn == nil {
		return false
	}
	m.fn(timestamp)
	return true
}
