package audio

import (
	"fmt"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

// Factory builds a fresh streamer for one playback of a sound
type Factory func(sr beep.SampleRate) (beep.Streamer, error)

// Tone returns a factory for a sine tone of fixed duration
func Tone(freq float64, d time.Duration) Factory {
	return func(sr beep.SampleRate) (beep.Streamer, error) {
		sine, err := generators.SineTone(sr, freq)
		if err != nil {
			return nil, fmt.Errorf("tone %.1fHz: %w", freq, err)
		}
		return beep.Take(sr.N(d), sine), nil
	}
}

// Click returns a factory for a short percussive tick
func Click() Factory {
	return func(sr beep.SampleRate) (beep.Streamer, error) {
		return newClickGenerator(sr, 1800, 40*time.Millisecond), nil
	}
}

// clickGenerator is an exponentially decaying sine burst
type clickGenerator struct {
	sr    beep.SampleRate
	freq  float64
	pos   int
	total int
}

func newClickGenerator(sr beep.SampleRate, freq float64, d time.Duration) *clickGenerator {
	return &clickGenerator{
		sr:    sr,
		freq:  freq,
		total: sr.N(d),
	}
}

func (g *clickGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if g.pos >= g.total {
			return i, i > 0
		}
		t := float64(g.pos) / float64(g.sr)

		// Fast attack, decay to near silence over the burst
		envelope := math.Exp(-t * 120)
		sample := 0.3 * envelope * math.Sin(2*math.Pi*g.freq*t)

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *clickGenerator) Err() error {
	return nil
}

// repeater replays a factory's output until stopped
type repeater struct {
	sr      beep.SampleRate
	factory Factory
	cur     beep.Streamer
	err     error
}

func newRepeater(sr beep.SampleRate, f Factory) *repeater {
	return &repeater{sr: sr, factory: f}
}

func (r *repeater) Stream(samples [][2]float64) (n int, ok bool) {
	fresh := false
	for n < len(samples) {
		if r.cur == nil {
			s, err := r.factory(r.sr)
			if err != nil {
				r.err = err
				return n, n > 0
			}
			r.cur = s
			fresh = true
		}

		k, more := r.cur.Stream(samples[n:])
		n += k
		if !more {
			r.cur = nil
			// A fresh streamer that yields nothing would spin forever
			if fresh && k == 0 {
				return n, n > 0
			}
		}
		if k > 0 {
			fresh = false
		}
	}
	return n, true
}

func (r *repeater) Err() error {
	return r.err
}
