package view

import "errors"

// State is the view lifecycle position
type State int32

const (
	StateUninitialized State = iota
	StateCreated
	StateRunning
	StateStopped
	StateDestroyed
)

var (
	ErrInvalidTransition = errors.New("invalid view state transition")
	ErrRendererCreate    = errors.New("renderer creation failed")
	ErrNilRenderer       = errors.New("view requires a renderer")
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// live reports whether the renderer exists and may be called
func (s State) live() bool {
	return s == StateCreated || s == StateRunning || s == StateStopped
}
