package core

import (
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// Finalizer releases a device (terminal, audio) that must be restored before the process dies
type Finalizer interface {
	Fini()
}

var (
	crashMu        sync.RWMutex
	crashFinalizer Finalizer
	crashHandler   func(r any)
)

// RegisterCrashFinalizer sets the device finalized by the default crash handler
func RegisterCrashFinalizer(f Finalizer) {
	crashMu.Lock()
	crashFinalizer = f
	crashMu.Unlock()
}

// SetCrashHandler replaces the panic handler used by Go, nil restores the default
func SetCrashHandler(fn func(r any)) {
	crashMu.Lock()
	crashHandler = fn
	crashMu.Unlock()
}

// HandleCrash routes a recovered panic to the installed handler
func HandleCrash(r any) {
	if r == nil {
		return
	}

	crashMu.RLock()
	handler := crashHandler
	fin := crashFinalizer
	crashMu.RUnlock()

	if handler != nil {
		handler(r)
		return
	}

	// Restore terminal first so the trace is readable
	if fin != nil {
		fin.Fini()
	}

	fmt.Fprintf(os.Stderr, "\r\n\x1b[31mCRASH DETECTED: %v\x1b[0m\r\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\r\n%s\r\n", debug.Stack())
	os.Stderr.Sync()

	os.Exit(1)
}

// Go runs a function in a new goroutine with panic recovery.
// Use this instead of the 'go' keyword to ensure terminal cleanup on crash.
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
