package pacer

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dt = 1.0 / 60.0

// counter records update and draw calls for a sequence of ticks
type counter struct {
	updates int
	draws   int
	steps   []float64
}

func (c *counter) update(step float64) {
	c.updates++
	c.steps = append(c.steps, step)
}

func (c *counter) draw() { c.draws++ }

func newPacer(t *testing.T, maxSteps int) *Pacer {
	t.Helper()
	p, err := New(Config{Step: dt, MaxSteps: maxSteps})
	require.NoError(t, err)
	return p
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cases := []Config{
		{Step: 0, MaxSteps: 4},
		{Step: -dt, MaxSteps: 4},
		{Step: math.NaN(), MaxSteps: 4},
		{Step: math.Inf(1), MaxSteps: 4},
		{Step: dt, MaxSteps: 0},
	}
	for _, cfg := range cases {
		_, err := New(cfg)
		require.Error(t, err, "config %+v", cfg)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	}

	p, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultStep, p.Step())
	assert.Equal(t, DefaultMaxSteps, p.MaxSteps())
}

// TestSteadySixtyHertz ticks at 0, 1/60, 2/60: first tick primes, each later tick takes one step
func TestSteadySixtyHertz(t *testing.T) {
	p := newPacer(t, 4)
	c := &counter{}

	res := p.Tick(0, c.update, c.draw)
	assert.Equal(t, 0, res.Updates)
	assert.False(t, res.Rejected)

	for i := 1; i <= 2; i++ {
		res = p.Tick(float64(i)/60.0, c.update, c.draw)
		assert.Equal(t, 1, res.Updates, "tick %d", i)
		assert.InDelta(t, 0, p.Debt(), 1e-9)
	}

	assert.Equal(t, 2, c.updates)
	assert.Equal(t, 3, c.draws)
	for _, s := range c.steps {
		assert.Equal(t, dt, s)
	}
}

// TestStallIsClamped jumps one second in a single tick and expects the clamp, not 60 updates
func TestStallIsClamped(t *testing.T) {
	p := newPacer(t, 4)
	c := &counter{}

	p.Tick(0, c.update, c.draw)
	res := p.Tick(1, c.update, c.draw)

	assert.True(t, res.Clamped)
	assert.Equal(t, 4, res.Updates)
	assert.Equal(t, 4, c.updates)
	assert.Equal(t, 2, c.draws)
	assert.InDelta(t, 4*dt, res.Elapsed, 1e-12)
	assert.Less(t, p.Debt(), dt)
}

// TestDrawWithoutUpdate verifies a short tick still draws exactly once and banks the time
func TestDrawWithoutUpdate(t *testing.T) {
	p := newPacer(t, 4)
	c := &counter{}

	p.Tick(0, c.update, c.draw)
	res := p.Tick(dt/3, c.update, c.draw)
	assert.Equal(t, 0, res.Updates)
	assert.Equal(t, 2, c.draws)
	assert.InDelta(t, dt/3, p.Debt(), 1e-12)

	// Two more thirds complete one step
	p.Tick(2*dt/3, c.update, c.draw)
	res = p.Tick(dt, c.update, c.draw)
	assert.Equal(t, 1, res.Updates)
	assert.Equal(t, 1, c.updates)
	assert.Equal(t, 4, c.draws)
}

// TestBackwardClockLeavesDebt verifies non-forward samples produce no updates and keep debt intact
func TestBackwardClockLeavesDebt(t *testing.T) {
	p := newPacer(t, 4)
	c := &counter{}

	p.Tick(1, c.update, c.draw)
	p.Tick(1+dt*1.5, c.update, c.draw)
	require.Equal(t, 1, c.updates)
	debt := p.Debt()

	for _, ts := range []float64{1 + dt*1.5, 0.5, -3} {
		res := p.Tick(ts, c.update, c.draw)
		assert.True(t, res.Rejected, "timestamp %v", ts)
		assert.Equal(t, 0, res.Updates)
		assert.Equal(t, debt, p.Debt())
	}
	assert.Equal(t, 1, c.updates)
	assert.Equal(t, 5, c.draws)

	// Re-baselined at -3, so time resumes from there
	prev, ok := p.Previous()
	require.True(t, ok)
	assert.Equal(t, -3.0, prev)

	res := p.Tick(-3+dt, c.update, c.draw)
	assert.Equal(t, 1, res.Updates)
}

// TestTinyStepNonForwardTick verifies the step tolerance scales with the step, so zero elapsed never updates
func TestTinyStepNonForwardTick(t *testing.T) {
	for _, step := range []float64{5e-10, 1e-9, 1e-12} {
		p, err := New(Config{Step: step, MaxSteps: 4})
		require.NoError(t, err)
		c := &counter{}

		p.Tick(1, c.update, c.draw)
		res := p.Tick(1, c.update, c.draw)
		assert.True(t, res.Rejected, "step %v", step)
		assert.Equal(t, 0, res.Updates, "step %v", step)
		assert.Equal(t, 0.0, res.Debt, "step %v", step)

		res = p.Tick(0.5, c.update, c.draw)
		assert.Equal(t, 0, res.Updates, "step %v", step)
		assert.Equal(t, 0, c.updates, "step %v", step)
		assert.Equal(t, 3, c.draws, "step %v", step)
	}
}

// TestNonFiniteSamples verifies NaN and Inf are treated as zero elapsed without moving the baseline
func TestNonFiniteSamples(t *testing.T) {
	p := newPacer(t, 4)
	c := &counter{}

	p.Tick(2, c.update, c.draw)
	for _, ts := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		res := p.Tick(ts, c.update, c.draw)
		assert.True(t, res.Rejected)
		assert.Equal(t, 0, res.Updates)
		assert.Zero(t, p.Debt())
	}

	prev, _ := p.Previous()
	assert.Equal(t, 2.0, prev)
	assert.Equal(t, 4, c.draws)

	// NaN as the very first sample must not prime the baseline
	fresh := newPacer(t, 4)
	fresh.Tick(math.NaN(), nil, nil)
	_, ok := fresh.Previous()
	assert.False(t, ok)
}

// TestUpdateCountTracksElapsed checks total updates over jittery ticks against floor((tLast-t0)/dt)
func TestUpdateCountTracksElapsed(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		p := newPacer(t, 4)
		c := &counter{}

		t0 := rng.Float64() * 100
		ts := t0
		p.Tick(ts, c.update, c.draw)

		ticks := 1 + rng.Intn(500)
		for i := 0; i < ticks; i++ {
			// Gaps stay under the clamp so every second is credited
			ts += rng.Float64() * 3 * dt
			res := p.Tick(ts, c.update, c.draw)
			require.GreaterOrEqual(t, p.Debt(), 0.0)
			require.Less(t, p.Debt(), dt)
			require.False(t, res.Clamped)
		}

		want := int(math.Floor((ts - t0) / dt))
		assert.InDelta(t, want, c.updates, 1, "trial %d", trial)
		assert.Equal(t, ticks+1, c.draws)
	}
}

// TestDebtInvariantUnderStalls mixes stalls, reversals and NaN and checks the debt bounds after every tick
func TestDebtInvariantUnderStalls(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newPacer(t, 3)

	ts := 0.0
	for i := 0; i < 2000; i++ {
		switch rng.Intn(10) {
		case 0:
			ts -= rng.Float64()
		case 1:
			ts += rng.Float64() * 5
		case 2:
			res := p.Tick(math.NaN(), nil, nil)
			require.True(t, res.Rejected)
			continue
		default:
			ts += rng.Float64() * 2 * dt
		}

		res := p.Tick(ts, nil, nil)
		require.LessOrEqual(t, res.Updates, 3)
		require.GreaterOrEqual(t, p.Debt(), 0.0)
		require.Less(t, p.Debt(), dt)
		require.GreaterOrEqual(t, p.Alpha(), 0.0)
		require.Less(t, p.Alpha(), 1.0)
	}
}

func TestReset(t *testing.T) {
	p := newPacer(t, 4)
	p.Tick(0, nil, nil)
	p.Tick(dt*1.5, nil, nil)
	require.NotZero(t, p.Debt())

	p.Reset()
	assert.Zero(t, p.Debt())
	_, ok := p.Previous()
	assert.False(t, ok)

	// Next sample primes again regardless of value
	res := p.Tick(1000, nil, nil)
	assert.Equal(t, 0, res.Updates)
	assert.False(t, res.Clamped)
}

func TestAlpha(t *testing.T) {
	p := newPacer(t, 4)
	p.Tick(0, nil, nil)
	p.Tick(dt*0.25, nil, nil)
	assert.InDelta(t, 0.25, p.Alpha(), 1e-9)
}
