package tiles

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_ResolveIsIdempotent(t *testing.T) {
	h := newHarness()
	tile := Tile{X: 3, Y: 4, Zoom: 5}

	first := h.cache.Resolve(tile)
	second := h.cache.Resolve(tile)
	assert.Same(t, first, second)
	assert.Equal(t, 1, h.cache.Len())
	assert.Len(t, h.runner.tasks, 1, "one fetch per key")

	other := h.cache.Resolve(Tile{X: 3, Y: 4, Zoom: 6})
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, h.cache.Len())
	assert.Equal(t, []Key{"x=3&y=4&z=5", "x=3&y=4&z=6"}, h.cache.Keys())
}

func TestCache_LoadThenPaint(t *testing.T) {
	h := newHarness()
	tile := Tile{X: 1, Y: 2, Zoom: 3}
	key := KeyOf(tile)
	h.cache.SetWanted([]Key{key})

	e := h.cache.Resolve(tile)
	e.UpdatePosition(image.Point{X: -10, Y: 20})
	assert.Equal(t, Pending, e.State())
	assert.Empty(t, h.surface.draws, "nothing painted before the bitmap arrives")
	assert.Equal(t, 1, h.cache.Pending())

	h.settle()
	require.Equal(t, Loaded, e.State())
	assert.Equal(t, 0, h.cache.Pending())
	require.Len(t, h.surface.draws, 1)
	assert.Equal(t, drawCall{key: key, at: image.Point{X: -10, Y: 20}, opacity: 1}, h.surface.draws[0])

	e.UpdatePosition(image.Point{X: 5, Y: 5})
	require.Len(t, h.surface.draws, 2)
	assert.Equal(t, image.Point{X: 5, Y: 5}, h.surface.draws[1].at)
	assert.Equal(t, 1, h.provider.calls[key])
}

func TestCache_SuppressesStalePaint(t *testing.T) {
	h := newHarness()
	tile := Tile{X: 10, Y: 10, Zoom: 10}
	key := KeyOf(tile)

	h.cache.SetWanted([]Key{key})
	e := h.cache.Resolve(tile)
	e.UpdatePosition(image.Point{})

	// the viewport moves on while the fetch is in flight
	h.cache.SetWanted([]Key{KeyOf(Tile{X: 99, Y: 99, Zoom: 10})})
	h.settle()

	assert.Equal(t, Loaded, e.State())
	assert.Empty(t, h.surface.drawsOf(key))
	assert.False(t, e.paintIfWanted())

	got, ok := h.cache.Lookup(key)
	require.True(t, ok, "entry stays cached")
	assert.Same(t, e, got)

	// panning back paints the cached bitmap without fetching again
	h.cache.SetWanted([]Key{key})
	h.cache.Resolve(tile).UpdatePosition(image.Point{X: 1, Y: 1})
	assert.Len(t, h.surface.drawsOf(key), 1)
	assert.Equal(t, 1, h.provider.calls[key])
	assert.Empty(t, h.runner.tasks)
}

func TestCache_FailedFetchNeverPaints(t *testing.T) {
	h := newHarness()
	tile := Tile{X: 0, Y: 0, Zoom: 4}
	key := KeyOf(tile)
	h.provider.fail[key] = true

	h.cache.SetWanted([]Key{key})
	e := h.cache.Resolve(tile)
	h.settle()

	assert.Equal(t, Failed, e.State())
	assert.ErrorIs(t, e.Err(), errNotFound)
	e.UpdatePosition(image.Point{X: 3})
	assert.Empty(t, h.surface.draws)
	assert.Equal(t, 0, h.cache.Pending())
}

func TestCache_PermanentlyPendingFetchNeverPaints(t *testing.T) {
	h := newHarness()
	tile := Tile{X: 0, Y: 0, Zoom: 4}
	h.cache.SetWanted([]Key{KeyOf(tile)})
	e := h.cache.Resolve(tile)
	for i := 0; i < 3; i++ {
		e.UpdatePosition(image.Point{X: i})
	}
	h.queue.Drain()
	assert.Equal(t, Pending, e.State())
	assert.Empty(t, h.surface.draws)
}

func TestEntry_FadeIn(t *testing.T) {
	anim := &manualAnimator{}
	h := newHarness(WithAnimator(anim))
	tile := Tile{X: 1, Y: 1, Zoom: 3}
	key := KeyOf(tile)
	h.cache.SetWanted([]Key{key})

	e := h.cache.Resolve(tile)
	h.settle()
	require.Len(t, anim.steps, 1, "first paint starts the fade")
	assert.Equal(t, float32(0), h.surface.draws[0].opacity)

	step := anim.steps[0]
	samples := []time.Duration{0, 50 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond, 399 * time.Millisecond}
	last := e.Opacity()
	for _, elapsed := range samples {
		assert.False(t, step(elapsed))
		assert.GreaterOrEqual(t, e.Opacity(), last)
		last = e.Opacity()

		// repositioning mid fade neither restarts nor rewinds it
		e.UpdatePosition(image.Point{X: int(elapsed.Milliseconds())})
		assert.Equal(t, last, e.Opacity())
		assert.Len(t, anim.steps, 1)
	}
	assert.InDelta(t, 0.5, fadeOpacity(0, 200*time.Millisecond), 1e-9)

	assert.True(t, step(FadeDuration))
	assert.Equal(t, 1.0, e.Opacity())
	assert.True(t, step(2*FadeDuration), "clamped")
	assert.Equal(t, 1.0, e.Opacity())

	e.UpdatePosition(image.Point{X: 1000})
	assert.Len(t, anim.steps, 1, "an opaque tile never fades again")
	assert.Equal(t, float32(1), h.surface.draws[len(h.surface.draws)-1].opacity)

	for i := 1; i < len(h.surface.draws); i++ {
		assert.GreaterOrEqual(t, h.surface.draws[i].opacity, h.surface.draws[i-1].opacity)
	}
}

func TestEntry_FadeStepsSkipUnwantedTiles(t *testing.T) {
	anim := &manualAnimator{}
	h := newHarness(WithAnimator(anim))
	tile := Tile{X: 2, Y: 2, Zoom: 3}
	key := KeyOf(tile)
	h.cache.SetWanted([]Key{key})
	e := h.cache.Resolve(tile)
	h.settle()
	require.Len(t, anim.steps, 1)
	draws := len(h.surface.draws)

	h.cache.SetWanted(nil)
	assert.False(t, anim.steps[0](100*time.Millisecond))
	assert.Len(t, h.surface.draws, draws)
	assert.InDelta(t, 0.25, e.Opacity(), 1e-9, "fade keeps running")
}

func TestFrameAnimator(t *testing.T) {
	a := NewFrameAnimator()
	start := time.Unix(100, 0)

	var seen []time.Duration
	a.Animate(func(elapsed time.Duration) bool {
		seen = append(seen, elapsed)
		return elapsed >= 30*time.Millisecond
	})
	assert.Equal(t, 1, a.Active())

	assert.True(t, a.Tick(start.Add(5*time.Millisecond)))
	assert.True(t, a.Tick(start.Add(20*time.Millisecond)))

	// a run started later has its own clock
	var late []time.Duration
	a.Animate(func(elapsed time.Duration) bool {
		late = append(late, elapsed)
		return true
	})
	assert.False(t, a.Tick(start.Add(35*time.Millisecond)))

	assert.Equal(t, []time.Duration{0, 15 * time.Millisecond, 30 * time.Millisecond}, seen)
	assert.Equal(t, []time.Duration{0}, late)
	assert.Equal(t, 0, a.Active())
	assert.False(t, a.Tick(start.Add(time.Second)))
}

func TestFrameAnimator_StepStartsAnimation(t *testing.T) {
	a := NewFrameAnimator()
	now := time.Unix(0, 0)
	a.Animate(func(time.Duration) bool {
		a.Animate(func(time.Duration) bool { return true })
		return true
	})
	assert.True(t, a.Tick(now))
	assert.Equal(t, 1, a.Active())
	assert.False(t, a.Tick(now))
}
