// Package view hosts a renderer driven by a display link through a fixed-step pacer
//
// Ticks arrive on the display link goroutine while lifecycle and resize calls come from the host.
// A single mutex guards pacer state, surface size and lifecycle state, and is held for a whole tick.
// Lifecycle transitions are additionally serialized so Stop can wait on the link without holding it.
package view

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/starbright/displaylink"
	"github.com/lixenwraith/starbright/log"
	"github.com/lixenwraith/starbright/pacer"
	"github.com/lixenwraith/starbright/status"
)

// Renderer is exclusively owned by the view; no other component may call it
type Renderer interface {
	Create() error
	Update(step float64)
	Draw(width, height int)
}

// Resizer is implemented by renderers that track surface size
type Resizer interface {
	Resize(width, height int)
}

// Destroyer is implemented by renderers holding resources released with the view
type Destroyer interface {
	Destroy()
}

// SoundController is paused and resumed with the view
type SoundController interface {
	PauseAll()
	ResumeAll()
	Close()
}

// Stats is a snapshot of tick accounting
type Stats struct {
	Ticks    uint64
	Updates  uint64
	Draws    uint64
	Clamped  uint64
	Rejected uint64
	Debt     float64
}

// View owns the renderer, pacer and display link for one surface
type View struct {
	renderer Renderer
	link     displaylink.Link
	sounds   SoundController
	logger   log.Logger
	registry *status.Registry

	lifeMu sync.Mutex // Serializes Create/Start/Stop/Destroy

	mu            sync.Mutex // Guards fields below, held for the duration of a tick
	state         State
	pacer         *pacer.Pacer
	width, height int
	stats         Stats

	// Cached metric pointers
	statTicks    *atomic.Int64
	statUpdates  *atomic.Int64
	statDraws    *atomic.Int64
	statClamped  *atomic.Int64
	statRejected *atomic.Int64
	statDebt     *status.AtomicFloat
	statRunning  *atomic.Bool
}

// Option configures a View
type Option func(*config)

type config struct {
	pacer         pacer.Config
	link          displaylink.Link
	sounds        SoundController
	registry      *status.Registry
	logger        log.Logger
	width, height int
}

// WithPacer sets the fixed step and clamp policy
func WithPacer(cfg pacer.Config) Option {
	return func(c *config) { c.pacer = cfg }
}

// WithLink sets the tick source, default is a 60 Hz ticker
func WithLink(l displaylink.Link) Option {
	return func(c *config) { c.link = l }
}

// WithSounds ties a sound controller to the view lifecycle
func WithSounds(s SoundController) Option {
	return func(c *config) { c.sounds = s }
}

// WithRegistry publishes tick metrics to r
func WithRegistry(r *status.Registry) Option {
	return func(c *config) { c.registry = r }
}

// WithLogger sets the logger
func WithLogger(l log.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithSize sets the initial surface size
func WithSize(width, height int) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// New creates an uninitialized view owning renderer
func New(renderer Renderer, opts ...Option) (*View, error) {
	if renderer == nil {
		return nil, ErrNilRenderer
	}

	cfg := config{pacer: pacer.DefaultConfig(), width: 1, height: 1}
	for _, opt := range opts {
		opt(&cfg)
	}

	p, err := pacer.New(cfg.pacer)
	if err != nil {
		return nil, err
	}
	if cfg.link == nil {
		cfg.link = displaylink.NewTicker(displaylink.DefaultRefreshRate, nil)
	}
	if cfg.registry == nil {
		cfg.registry = status.NewRegistry()
	}
	if cfg.logger == nil {
		cfg.logger = log.New("view")
	}

	v := &View{
		renderer: renderer,
		link:     cfg.link,
		sounds:   cfg.sounds,
		logger:   cfg.logger,
		registry: cfg.registry,
		pacer:    p,
		state:    StateUninitialized,

		statTicks:    cfg.registry.Ints.Get("view.ticks"),
		statUpdates:  cfg.registry.Ints.Get("view.updates"),
		statDraws:    cfg.registry.Ints.Get("view.draws"),
		statClamped:  cfg.registry.Ints.Get("pacer.clamped"),
		statRejected: cfg.registry.Ints.Get("pacer.rejected"),
		statDebt:     cfg.registry.Floats.Get("pacer.debt"),
		statRunning:  cfg.registry.Bools.Get("view.running"),
	}
	v.width, v.height = clampSize(cfg.width, cfg.height)
	return v, nil
}

// Create builds the renderer, Uninitialized -> Created
// Repeated calls on a live view are no-ops; a renderer failure leaves the view Uninitialized
func (v *View) Create() error {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()

	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case StateUninitialized:
	case StateDestroyed:
		return fmt.Errorf("%w: create from %s", ErrInvalidTransition, v.state)
	default:
		return nil
	}

	if err := v.renderer.Create(); err != nil {
		v.logger.Errorf("renderer create failed: %v", err)
		return fmt.Errorf("%w: %w", ErrRendererCreate, err)
	}
	if r, ok := v.renderer.(Resizer); ok {
		r.Resize(v.width, v.height)
	}

	v.state = StateCreated
	v.logger.Infof("view created %dx%d step=%.5fs", v.width, v.height, v.pacer.Step())
	return nil
}

// Start begins tick delivery, Created/Stopped -> Running
func (v *View) Start() error {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()

	v.mu.Lock()
	prev := v.state
	switch prev {
	case StateRunning:
		v.mu.Unlock()
		return nil
	case StateCreated, StateStopped:
	default:
		v.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, prev)
	}
	// Running before the link starts so the first tick is not dropped
	v.state = StateRunning
	v.mu.Unlock()

	if err := v.link.Start(func(ts float64) { v.Tick(ts) }); err != nil {
		v.mu.Lock()
		v.state = prev
		v.mu.Unlock()
		return fmt.Errorf("start display link: %w", err)
	}

	if v.sounds != nil {
		v.sounds.ResumeAll()
	}
	v.statRunning.Store(true)
	v.logger.Infof("view started from %s", prev)
	return nil
}

// Stop ends tick delivery, Running -> Stopped
// On return no tick is executing or will be delivered; pacer state is preserved
func (v *View) Stop() error {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()

	v.mu.Lock()
	switch v.state {
	case StateStopped:
		v.mu.Unlock()
		return nil
	case StateRunning:
	default:
		st := v.state
		v.mu.Unlock()
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, st)
	}
	v.state = StateStopped
	v.mu.Unlock()

	// Link must be stopped without holding mu, its in-flight tick needs it
	v.link.Stop()

	if v.sounds != nil {
		v.sounds.PauseAll()
	}
	v.statRunning.Store(false)
	v.logger.Infof("view stopped, debt=%.5fs", v.Debt())
	return nil
}

// Destroy releases the link, sounds and renderer, from Created/Running/Stopped
func (v *View) Destroy() error {
	v.lifeMu.Lock()
	defer v.lifeMu.Unlock()

	v.mu.Lock()
	prev := v.state
	switch prev {
	case StateDestroyed:
		v.mu.Unlock()
		return nil
	case StateUninitialized:
		v.mu.Unlock()
		return fmt.Errorf("%w: destroy from %s", ErrInvalidTransition, prev)
	}
	v.state = StateDestroyed
	v.mu.Unlock()

	if prev == StateRunning {
		v.link.Stop()
	}
	if v.sounds != nil {
		v.sounds.Close()
	}

	v.mu.Lock()
	if d, ok := v.renderer.(Destroyer); ok {
		d.Destroy()
	}
	v.mu.Unlock()

	v.statRunning.Store(false)
	v.logger.Infof("view destroyed from %s", prev)
	return nil
}

// Tick is the display link callback: fixed-step updates then one draw
// Returns false when the view is not running and the tick was ignored
func (v *View) Tick(timestamp float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateRunning {
		return false
	}

	w, h := v.width, v.height
	res := v.pacer.Tick(timestamp, v.renderer.Update, func() { v.renderer.Draw(w, h) })

	v.stats.Ticks++
	v.stats.Updates += uint64(res.Updates)
	v.stats.Draws++
	v.stats.Debt = res.Debt

	v.statTicks.Add(1)
	v.statUpdates.Add(int64(res.Updates))
	v.statDraws.Add(1)
	v.statDebt.Set(res.Debt)

	if res.Clamped {
		v.stats.Clamped++
		v.statClamped.Add(1)
		v.logger.Debugf("tick at %.4f clamped to %d steps", timestamp, res.Updates)
	}
	if res.Rejected {
		v.stats.Rejected++
		v.statRejected.Add(1)
		v.logger.Debugf("tick at %.4f rejected, clock did not advance", timestamp)
	}
	return true
}

// Update runs one fixed step outside the display link, for hosts driving frames manually
func (v *View) Update() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.state.live() {
		return fmt.Errorf("%w: update in %s", ErrInvalidTransition, v.state)
	}
	v.renderer.Update(v.pacer.Step())
	v.stats.Updates++
	v.statUpdates.Add(1)
	return nil
}

// Draw renders one frame outside the display link
func (v *View) Draw() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.state.live() {
		return fmt.Errorf("%w: draw in %s", ErrInvalidTransition, v.state)
	}
	v.renderer.Draw(v.width, v.height)
	v.stats.Draws++
	v.statDraws.Add(1)
	return nil
}

// Resize sets the surface size, clamped to at least 1x1
func (v *View) Resize(width, height int) {
	width, height = clampSize(width, height)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state == StateDestroyed {
		return
	}
	v.width, v.height = width, height
	if r, ok := v.renderer.(Resizer); ok && v.state.live() {
		r.Resize(width, height)
	}
}

// Size returns the clamped surface size
func (v *View) Size() (int, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.width, v.height
}

// State returns the lifecycle state
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Stats returns a snapshot of tick accounting
func (v *View) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stats
}

// Debt returns the pacer's unspent simulation time
func (v *View) Debt() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pacer.Debt()
}

// Registry returns the metrics registry the view publishes to
func (v *View) Registry() *status.Registry {
	return v.registry
}

func clampSize(width, height int) (int, int) {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return width, height
}
