package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/starbright/audio"
	"github.com/lixenwraith/starbright/clock"
	"github.com/lixenwraith/starbright/config"
	"github.com/lixenwraith/starbright/core"
	"github.com/lixenwraith/starbright/displaylink"
	"github.com/lixenwraith/starbright/log"
	"github.com/lixenwraith/starbright/render"
	"github.com/lixenwraith/starbright/status"
	"github.com/lixenwraith/starbright/view"
)

var logger = log.New("main")

// resolveConfig loads the config file when present and applies flag overrides
func resolveConfig(cli *CLI) (config.Config, string, error) {
	path := cli.Config
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath()
	}

	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, path, err
		}
		cfg = loaded
	} else if explicit && !cli.WriteConfig {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, path, fmt.Errorf("config %s does not exist", path)
		}
		return cfg, path, err
	}

	applyOverrides(&cfg, cli)
	return cfg, path, cfg.Validate()
}

func applyOverrides(cfg *config.Config, cli *CLI) {
	if cli.StepHz != 0 {
		cfg.Pacer.StepHz = cli.StepHz
	}
	if cli.MaxSteps != 0 {
		cfg.Pacer.MaxSteps = cli.MaxSteps
	}
	if cli.RefreshHz != 0 {
		cfg.Display.RefreshHz = cli.RefreshHz
	}
	if cli.Stars != 0 {
		cfg.Render.Stars = cli.Stars
	}
	if cli.Seed != 0 {
		cfg.Render.Seed = cli.Seed
	}
	if cli.Mute {
		cfg.Audio.Enabled = false
	}
	if cli.NoOverlay {
		cfg.Render.ShowOverlay = false
	}
	if cli.LogFile != "" {
		cfg.Log.File = cli.LogFile
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
}

// setupLogging directs logs to the configured file, returns nil when logging stays discarded
func setupLogging(cfg config.LogConfig) (*os.File, error) {
	if cfg.File == "" {
		return nil, nil
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	lvl, ok := log.ParseLevel(cfg.Level)
	log.SetSink(f, lvl)
	if !ok {
		logger.Warningf("unknown log level %q, using info", cfg.Level)
	}
	return f, nil
}

// soundSet holds the effects the host plays around lifecycle changes
type soundSet struct {
	manager *audio.Manager
	click   int
	hum     int
}

// newSoundSet registers the host's effects on a manager
func newSoundSet(cfg config.AudioConfig) (*soundSet, error) {
	m := audio.NewManager(beep.SampleRate(cfg.SampleRate), cfg.MaxStreams)

	click, err := m.Create("click", audio.Click())
	if err != nil {
		return nil, err
	}
	hum, err := m.Create("hum", audio.Tone(110, 2*time.Second))
	if err != nil {
		return nil, err
	}
	if err := m.SetVolume(hum, cfg.Volume*0.3); err != nil {
		return nil, err
	}
	if err := m.SetVolume(click, cfg.Volume); err != nil {
		return nil, err
	}
	return &soundSet{manager: m, click: click, hum: hum}, nil
}

// playClick plays the pause toggle click; a full stream table is expected and only logged
func (s *soundSet) playClick() {
	if err := s.manager.Play(s.click, false); err != nil {
		logger.Debugf("click: %v", err)
	}
}

// buildView wires renderer, link, sounds and metrics into an uncreated view
func buildView(cfg config.Config, screen tcell.Screen, link displaylink.Link, sounds *soundSet) (*view.View, *render.Starfield, error) {
	reg := status.NewRegistry()

	starfield := render.NewStarfield(screen, render.Options{
		Stars: cfg.Render.Stars,
		Speed: cfg.Render.Speed,
		Seed:  cfg.Render.Seed,
	})
	if cfg.Render.ShowOverlay {
		// Runs inside the tick; reads only atomics
		starfield.SetOverlay(reg.Snapshot)
	}

	w, h := screen.Size()
	opts := []view.Option{
		view.WithPacer(cfg.PacerConfig()),
		view.WithLink(link),
		view.WithRegistry(reg),
		view.WithLogger(log.New("view")),
		view.WithSize(w, h),
	}
	if sounds != nil {
		opts = append(opts, view.WithSounds(sounds.manager))
	}

	v, err := view.New(starfield, opts...)
	if err != nil {
		return nil, nil, err
	}
	return v, starfield, nil
}

// togglePause flips the view between running and stopped
func togglePause(v *view.View) error {
	switch v.State() {
	case view.StateRunning:
		return v.Stop()
	case view.StateStopped:
		return v.Start()
	default:
		return nil
	}
}

func run(cli *CLI) error {
	cfg, path, err := resolveConfig(cli)
	if err != nil {
		return err
	}
	if cli.WriteConfig {
		if err := config.Write(path, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	logFile, err := setupLogging(cfg.Log)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	// Normal exit terminal cleanup
	defer screen.Fini()
	core.RegisterCrashFinalizer(screen)

	var sounds *soundSet
	if cfg.Audio.Enabled {
		sounds, err = newSoundSet(cfg.Audio)
		if err != nil {
			return err
		}
		sr := sounds.manager.SampleRate()
		if err := speaker.Init(sr, sr.N(100*time.Millisecond)); err != nil {
			// Non-fatal, runs silent
			logger.Warningf("audio initialization failed: %v", err)
			sounds = nil
		} else {
			speaker.Play(sounds.manager)
			defer speaker.Close()
		}
	}

	link := displaylink.NewTicker(cfg.Display.RefreshHz, clock.NewMonotonic())
	v, _, err := buildView(cfg, screen, link, sounds)
	if err != nil {
		return err
	}
	if err := v.Create(); err != nil {
		return err
	}
	defer v.Destroy()

	if err := v.Start(); err != nil {
		return err
	}
	if sounds != nil {
		if err := sounds.manager.Play(sounds.hum, true); err != nil {
			logger.Warningf("hum: %v", err)
		}
	}
	logger.Infof("running: step=%.1fHz refresh=%.1fHz max_steps=%d", cfg.Pacer.StepHz, cfg.Display.RefreshHz, cfg.Pacer.MaxSteps)

	events := make(chan tcell.Event, 64)
	// Input polling uses core.Go so a crash restores the terminal
	core.Go(func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var deadline <-chan time.Time
	if cli.Duration > 0 {
		deadline = time.After(cli.Duration)
	}

	for {
		select {
		case <-deadline:
			logger.Info("duration elapsed")
			return v.Stop()

		case sig := <-sigs:
			logger.Infof("received %v", sig)
			return v.Stop()

		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				w, h := ev.Size()
				screen.Sync()
				v.Resize(w, h)

			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					(ev.Key() == tcell.KeyRune && ev.Rune() == 'q') {
					return v.Stop()
				}
				if ev.Key() == tcell.KeyRune && ev.Rune() == 'p' {
					if err := togglePause(v); err != nil {
						logger.Errorf("toggle pause: %v", err)
					}
					if sounds != nil {
						sounds.playClick()
					}
				}
			}
		}
	}
}
