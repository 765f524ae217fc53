package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/starbright/audio"
	"github.com/lixenwraith/starbright/config"
	"github.com/lixenwraith/starbright/displaylink"
	"github.com/lixenwraith/starbright/log"
	"github.com/lixenwraith/starbright/view"
)

// MockScreen is a minimal mock for tcell.Screen used in tests
type MockScreen struct {
	tcell.Screen
	width, height int
	row           map[int]rune
}

func (m *MockScreen) Size() (int, int) { return m.width, m.height }
func (m *MockScreen) Clear()           { m.row = make(map[int]rune) }
func (m *MockScreen) Show()            {}
func (m *MockScreen) SetContent(x, y int, mainc rune, combc []rune, style tcell.Style) {
	if y == m.height-1 {
		m.row[x] = mainc
	}
}

func (m *MockScreen) lastRow() string {
	var b strings.Builder
	for x := 0; x < m.width; x++ {
		if r, ok := m.row[x]; ok {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func TestResolveConfigDefaultsAndOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cli := &CLI{StepHz: 120, MaxSteps: 2, Stars: 10, Mute: true, NoOverlay: true, LogLevel: "debug"}
	cfg, path, err := resolveConfig(cli)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPath(), path)
	assert.Equal(t, 120.0, cfg.Pacer.StepHz)
	assert.Equal(t, 2, cfg.Pacer.MaxSteps)
	assert.Equal(t, 10, cfg.Render.Stars)
	assert.False(t, cfg.Audio.Enabled)
	assert.False(t, cfg.Render.ShowOverlay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 60.0, cfg.Display.RefreshHz)
}

func TestResolveConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[display]\nrefresh_hz = 144\n"), 0o644))

	cfg, got, err := resolveConfig(&CLI{Config: path, RefreshHz: 0})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Equal(t, 144.0, cfg.Display.RefreshHz)

	// Flag wins over file
	cfg, _, err = resolveConfig(&CLI{Config: path, RefreshHz: 75})
	require.NoError(t, err)
	assert.Equal(t, 75.0, cfg.Display.RefreshHz)
}

func TestResolveConfigErrors(t *testing.T) {
	_, _, err := resolveConfig(&CLI{Config: filepath.Join(t.TempDir(), "absent.toml")})
	assert.Error(t, err)

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, _, err = resolveConfig(&CLI{StepHz: -1})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	// Writing a new config to a missing explicit path is allowed
	_, _, err = resolveConfig(&CLI{Config: filepath.Join(t.TempDir(), "new.toml"), WriteConfig: true})
	assert.NoError(t, err)
}

// TestBuildViewRunsFrames drives the wired view through a manual link
func TestBuildViewRunsFrames(t *testing.T) {
	cfg := config.Default()
	cfg.Render.Stars = 20
	screen := &MockScreen{width: 60, height: 10, row: map[int]rune{}}
	link := displaylink.NewManual()

	v, starfield, err := buildView(cfg, screen, link, nil)
	require.NoError(t, err)
	require.NoError(t, v.Create())
	require.NoError(t, v.Start())

	for i := 0; i <= 6; i++ {
		link.Fire(float64(i) / 60.0)
	}

	assert.Equal(t, uint64(6), starfield.Updates())
	assert.Equal(t, uint64(7), starfield.Frames())
	assert.Contains(t, screen.lastRow(), "view.ticks=")

	require.NoError(t, togglePause(v))
	assert.Equal(t, view.StateStopped, v.State())
	require.NoError(t, togglePause(v))
	assert.Equal(t, view.StateRunning, v.State())

	require.NoError(t, v.Destroy())
	assert.NoError(t, togglePause(v), "toggle on a destroyed view is ignored")
}

// TestBuildViewWithSounds verifies view stop pauses the hum and start resumes it
func TestBuildViewWithSounds(t *testing.T) {
	cfg := config.Default()
	sounds, err := newSoundSet(cfg.Audio)
	require.NoError(t, err)

	screen := &MockScreen{width: 40, height: 10, row: map[int]rune{}}
	v, _, err := buildView(cfg, screen, displaylink.NewManual(), sounds)
	require.NoError(t, err)
	require.NoError(t, v.Create())
	require.NoError(t, v.Start())

	require.NoError(t, sounds.manager.Play(sounds.hum, true))
	assert.True(t, sounds.manager.IsPlaying(sounds.hum))

	require.NoError(t, v.Stop())
	assert.False(t, sounds.manager.IsPlaying(sounds.hum))

	require.NoError(t, v.Start())
	assert.True(t, sounds.manager.IsPlaying(sounds.hum))

	require.NoError(t, v.Destroy())
	assert.Equal(t, 0, sounds.manager.Count())
}

// TestPlayClickLogsFullStreams verifies a click with no free stream is logged at debug level
func TestPlayClickLogsFullStreams(t *testing.T) {
	var buf strings.Builder
	log.SetSink(&buf, log.Debug)
	defer log.SetSink(io.Discard, log.Info)

	cfg := config.Default()
	cfg.Audio.MaxStreams = 1
	sounds, err := newSoundSet(cfg.Audio)
	require.NoError(t, err)

	sounds.playClick()
	assert.True(t, sounds.manager.IsPlaying(sounds.click))
	assert.Empty(t, buf.String())

	sounds, err = newSoundSet(cfg.Audio)
	require.NoError(t, err)
	require.NoError(t, sounds.manager.Play(sounds.hum, true))

	sounds.playClick()
	assert.False(t, sounds.manager.IsPlaying(sounds.click))
	assert.Contains(t, buf.String(), "click:")
	assert.Contains(t, buf.String(), audio.ErrNoFreeStream.Error())
}

func TestSetupLogging(t *testing.T) {
	f, err := setupLogging(config.LogConfig{})
	require.NoError(t, err)
	assert.Nil(t, f, "no file configured keeps logging discarded")

	path := filepath.Join(t.TempDir(), "starbright.log")
	f, err = setupLogging(config.LogConfig{File: path, Level: "info"})
	require.NoError(t, err)
	require.NotNil(t, f)
	defer func() {
		log.SetSink(io.Discard, log.Info)
		f.Close()
	}()

	logger.Infof("hello %s", "log")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello log")

	_, err = setupLogging(config.LogConfig{File: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}
