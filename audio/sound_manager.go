// Package audio keeps a table of sound effects played through a single beep mixer
//
// Manager is itself the streamer handed to the speaker, so every mixer mutation and every
// Stream call happen under one mutex.
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// Defaults for the speaker-facing mixer
const (
	DefaultSampleRate = beep.SampleRate(48000)
	DefaultMaxStreams = 8
)

var (
	ErrUnknownSound = errors.New("unknown sound id")
	ErrNoFreeStream = errors.New("no free audio stream")
	ErrNilFactory   = errors.New("sound factory is nil")
)

// voice is one active playback
type voice struct {
	ctrl        *beep.Ctrl
	volume      *effects.Volume
	pausedByAll bool
	done        atomic.Bool
}

type sound struct {
	id      int
	name    string
	factory Factory
	volume  float64
	voice   *voice
}

// Manager owns the sound table and the mixer
type Manager struct {
	mu         sync.Mutex
	sr         beep.SampleRate
	maxStreams int
	mixer      *beep.Mixer
	sounds     map[int]*sound
	nextID     int
	allPaused  bool
}

// NewManager creates a manager mixing at sr with at most maxStreams concurrent voices
func NewManager(sr beep.SampleRate, maxStreams int) *Manager {
	if sr <= 0 {
		sr = DefaultSampleRate
	}
	if maxStreams < 1 {
		maxStreams = DefaultMaxStreams
	}
	return &Manager{
		sr:         sr,
		maxStreams: maxStreams,
		mixer:      &beep.Mixer{},
		sounds:     make(map[int]*sound),
		nextID:     1,
	}
}

// SampleRate returns the mixing rate
func (m *Manager) SampleRate() beep.SampleRate {
	return m.sr
}

// Stream implements beep.Streamer, mixing all active voices
func (m *Manager) Stream(samples [][2]float64) (n int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mixer.Stream(samples)
}

// Err implements beep.Streamer
func (m *Manager) Err() error {
	return nil
}

// Create registers a sound and returns its id
func (m *Manager) Create(name string, f Factory) (int, error) {
	if f == nil {
		return 0, ErrNilFactory
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.sounds[id] = &sound{id: id, name: name, factory: f, volume: 1}
	return id, nil
}

// Play starts a sound from the beginning, restarting it if already playing
func (m *Manager) Play(id int, repeating bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}

	m.stopVoice(s)
	if m.activeVoices() >= m.maxStreams {
		return fmt.Errorf("%w: %d of %d in use", ErrNoFreeStream, m.activeVoices(), m.maxStreams)
	}

	var src beep.Streamer
	if repeating {
		src = newRepeater(m.sr, s.factory)
	} else {
		st, err := s.factory(m.sr)
		if err != nil {
			return fmt.Errorf("sound %q: %w", s.name, err)
		}
		src = st
	}

	v := &voice{}
	v.volume = &effects.Volume{Streamer: src, Base: 2}
	applyVolume(v.volume, s.volume)
	v.ctrl = &beep.Ctrl{Streamer: v.volume}

	// Sounds started while everything is paused join the paused set
	if m.allPaused {
		v.ctrl.Paused = true
		v.pausedByAll = true
	}

	s.voice = v
	m.mixer.Add(beep.Seq(v.ctrl, beep.Callback(func() { v.done.Store(true) })))
	return nil
}

// Pause holds a playing sound at its current position
func (m *Manager) Pause(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}
	if s.voice != nil {
		s.voice.ctrl.Paused = true
		s.voice.pausedByAll = false
	}
	return nil
}

// Resume continues a paused sound
func (m *Manager) Resume(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}
	if s.voice != nil {
		s.voice.ctrl.Paused = false
		s.voice.pausedByAll = false
	}
	return nil
}

// IsPlaying reports whether the sound is audible, unpaused and unfinished
func (m *Manager) IsPlaying(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok || s.voice == nil {
		return false
	}
	return !s.voice.done.Load() && !s.voice.ctrl.Paused
}

// SetVolume sets linear gain in [0,1] for the sound and its active voice
func (m *Manager) SetVolume(id int, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}
	s.volume = clampUnit(v)
	if s.voice != nil {
		applyVolume(s.voice.volume, s.volume)
	}
	return nil
}

// Delete stops and forgets a sound
func (m *Manager) Delete(id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sounds[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}
	m.stopVoice(s)
	delete(m.sounds, id)
	return nil
}

// PauseAll pauses every playing voice, remembering which ones to bring back
func (m *Manager) PauseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allPaused = true
	for _, s := range m.sounds {
		if s.voice == nil || s.voice.done.Load() || s.voice.ctrl.Paused {
			continue
		}
		s.voice.ctrl.Paused = true
		s.voice.pausedByAll = true
	}
}

// ResumeAll resumes only voices paused by PauseAll
func (m *Manager) ResumeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allPaused = false
	for _, s := range m.sounds {
		if s.voice == nil || !s.voice.pausedByAll {
			continue
		}
		s.voice.ctrl.Paused = false
		s.voice.pausedByAll = false
	}
}

// Close stops every voice and clears the table
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sounds {
		m.stopVoice(s)
		delete(m.sounds, id)
	}
	m.mixer.Clear()
}

// Count returns the number of registered sounds
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sounds)
}

// stopVoice detaches the active voice; the mixer drops it on its next pass
func (m *Manager) stopVoice(s *sound) {
	if s.voice == nil {
		return
	}
	s.voice.ctrl.Streamer = nil
	s.voice.done.Store(true)
	s.voice = nil
}

func (m *Manager) activeVoices() int {
	n := 0
	for _, s := range m.sounds {
		if s.voice != nil && !s.voice.done.Load() {
			n++
		}
	}
	return n
}

func applyVolume(v *effects.Volume, gain float64) {
	if gain <= 0 {
		v.Silent = true
		return
	}
	v.Silent = false
	v.Volume = math.Log2(gain)
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
