// Package log provides module-named leveled loggers over go-logging
// Output is discarded until SetSink is called; the terminal belongs to the renderer
package log

import (
	"io"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is a logging threshold
type Level int

const (
	Error Level = iota
	Warning
	Notice
	Info
	Debug
)

var levelNames = map[string]Level{
	"error":   Error,
	"warning": Warning,
	"warn":    Warning,
	"notice":  Notice,
	"info":    Info,
	"debug":   Debug,
}

var format = logging.MustStringFormatter(
	`[%{time:15:04:05.000}] [%{module}] [%{level}] %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
)

// Logger is the leveled logging surface used across packages
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

func init() {
	SetSink(io.Discard, Info)
}

// New creates a named logger
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink routes all loggers to w at the given threshold
func SetSink(w io.Writer, lvl Level) {
	backend := logging.NewLogBackend(w, "", 0)
	formatted := logging.NewBackendFormatter(backend, format)

	mu.Lock()
	defer mu.Unlock()
	leveledBackend = logging.AddModuleLevel(formatted)
	leveledBackend.SetLevel(toLogging(lvl), "")
	logging.SetBackend(leveledBackend)
}

// SetLevel changes the threshold, optionally for a single module
func SetLevel(lvl Level, module string) {
	mu.Lock()
	defer mu.Unlock()
	leveledBackend.SetLevel(toLogging(lvl), module)
}

// ParseLevel maps a level name to a Level, unknown names resolve to Info with ok=false
func ParseLevel(name string) (Level, bool) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Info, false
	}
	return lvl, true
}

func toLogging(lvl Level) logging.Level {
	switch lvl {
	case Error:
		return logging.ERROR
	case Warning:
		return logging.WARNING
	case Notice:
		return logging.NOTICE
	case Debug:
		return logging.DEBUG
	default:
		return logging.INFO
	}
}
