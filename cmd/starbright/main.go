package main

import (
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"
)

// CLI flags; zero values defer to the config file
type CLI struct {
	Config      string        `help:"Path to TOML config (default: $XDG_CONFIG_HOME/starbright/starbright.toml)." type:"path" placeholder:"FILE"`
	WriteConfig bool          `help:"Write the effective config to the config path and exit."`
	StepHz      float64       `help:"Simulation steps per second." placeholder:"HZ"`
	MaxSteps    int           `help:"Catch-up steps allowed per tick after a stall." placeholder:"N"`
	RefreshHz   float64       `help:"Display link refresh rate." placeholder:"HZ"`
	Stars       int           `help:"Number of stars." placeholder:"N"`
	Seed        int64         `help:"Star field seed."`
	Mute        bool          `help:"Disable audio."`
	NoOverlay   bool          `help:"Hide the status line."`
	LogFile     string        `help:"Append logs to this file." type:"path" placeholder:"FILE"`
	LogLevel    string        `help:"Log level: error, warning, notice, info, debug." placeholder:"LEVEL"`
	Duration    time.Duration `help:"Exit after this long, 0 runs until quit."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("starbright"),
		kong.Description("Fixed-step star field driven by a display link. Keys: p pause/resume, q or Esc quit."),
		kong.UsageOnError(),
	)

	if err := run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "starbright: %v\n", err)
		os.Exit(1)
	}
}
