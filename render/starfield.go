// Package render draws the simulation onto a tcell screen
package render

import (
	"errors"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

// Starfield tuning
const (
	DefaultStarCount = 200
	DefaultSpeed     = 0.35 // Depth units per second
	minDepth         = 0.02
)

var ErrNoScreen = errors.New("starfield has no screen")

// Options configures a Starfield
type Options struct {
	Stars int
	Speed float64
	Seed  int64
}

type star struct {
	x, y, z float64 // x,y in [-1,1], z in (minDepth,1]
}

// Starfield flies through a field of stars projected onto the terminal
// Update and Draw are called from the view's tick, serialized by the view
type Starfield struct {
	screen tcell.Screen
	rng    *rand.Rand
	opts   Options

	stars []star

	width, height int
	overlay       func() string

	updates atomic.Uint64
	frames  atomic.Uint64
}

// NewStarfield creates a renderer bound to screen; star state is built by Create
func NewStarfield(screen tcell.Screen, opts Options) *Starfield {
	if opts.Stars <= 0 {
		opts.Stars = DefaultStarCount
	}
	if opts.Speed <= 0 {
		opts.Speed = DefaultSpeed
	}
	return &Starfield{
		screen: screen,
		opts:   opts,
		rng:    rand.New(rand.NewSource(opts.Seed)),
	}
}

// SetOverlay installs a status line provider drawn on the last row
func (s *Starfield) SetOverlay(fn func() string) {
	s.overlay = fn
}

// Create seeds the star field
func (s *Starfield) Create() error {
	if s.screen == nil {
		return ErrNoScreen
	}
	s.stars = make([]star, s.opts.Stars)
	for i := range s.stars {
		s.stars[i] = s.spawn(s.rng.Float64()*(1-minDepth) + minDepth)
	}
	s.width, s.height = s.screen.Size()
	return nil
}

// Update advances every star toward the viewer by one fixed step
func (s *Starfield) Update(step float64) {
	dz := s.opts.Speed * step
	for i := range s.stars {
		st := &s.stars[i]
		st.z -= dz
		if st.z <= minDepth {
			*st = s.spawn(1)
		}
	}
	s.updates.Add(1)
}

// Resize records the new surface size
func (s *Starfield) Resize(width, height int) {
	s.width, s.height = width, height
}

// Size returns the last surface size seen by Create or Resize
func (s *Starfield) Size() (int, int) {
	return s.width, s.height
}

// Draw projects stars onto a width x height surface and presents it
func (s *Starfield) Draw(width, height int) {
	s.screen.Clear()

	cx := float64(width) / 2
	cy := float64(height) / 2

	for _, st := range s.stars {
		x, y, ok := project(st, cx, cy, width, height)
		if !ok {
			continue
		}
		glyph, style := appearance(st.z)
		s.screen.SetContent(x, y, glyph, nil, style)
	}

	if s.overlay != nil && height > 1 {
		drawText(s.screen, 0, height-1, width, s.overlay(), tcell.StyleDefault.Foreground(tcell.ColorGray))
	}

	s.screen.Show()
	s.frames.Add(1)
}

// Updates returns the number of fixed steps applied
func (s *Starfield) Updates() uint64 {
	return s.updates.Load()
}

// Frames returns the number of frames presented
func (s *Starfield) Frames() uint64 {
	return s.frames.Load()
}

func (s *Starfield) spawn(z float64) star {
	return star{
		x: s.rng.Float64()*2 - 1,
		y: s.rng.Float64()*2 - 1,
		z: z,
	}
}

// project maps a star to a cell, rejecting anything off-surface
func project(st star, cx, cy float64, width, height int) (int, int, bool) {
	sx := cx + st.x/st.z*cx
	sy := cy + st.y/st.z*cy
	if math.IsNaN(sx) || math.IsNaN(sy) || math.IsInf(sx, 0) || math.IsInf(sy, 0) {
		return 0, 0, false
	}
	if sx < 0 || sy < 0 || sx >= float64(width) || sy >= float64(height) {
		return 0, 0, false
	}
	return int(sx), int(sy), true
}

// appearance picks glyph and brightness by depth, near stars are larger and brighter
func appearance(z float64) (rune, tcell.Style) {
	intensity := int32(255 * (1 - z*0.8))
	if intensity > 255 {
		intensity = 255
	}
	if intensity < 40 {
		intensity = 40
	}
	style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(intensity, intensity, intensity))

	switch {
	case z < 0.25:
		return '*', style.Bold(true)
	case z < 0.6:
		return '+', style
	default:
		return '.', style
	}
}

func drawText(screen tcell.Screen, x, y, maxWidth int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			return
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
}
