package tiles

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/olablt/gio-amap/tiles/worker"
)

type drawCall struct {
	key     Key
	at      image.Point
	opacity float32
}

type recordingSurface struct {
	draws  []drawCall
	clears int
	size   image.Point
}

func (s *recordingSurface) Clear() { s.clears++ }
func (s *recordingSurface) Resize(size image.Point) { s.size = size }
func (s *recordingSurface) DrawImage(key Key, _ image.Image, at image.Point, opacity float32) {
	s.draws = append(s.draws, drawCall{key: key, at: at, opacity: opacity})
}

func (s *recordingSurface) drawsOf(key Key) []drawCall {
	var out []drawCall
	for _, d := range s.draws {
		if d.key == key {
			out = append(out, d)
		}
	}
	return out
}

// manualRunner keeps submitted tasks until the test runs them
type manualRunner struct {
	tasks []worker.Task
}

func (r *manualRunner) Submit(task worker.Task) {
	r.tasks = append(r.tasks, task)
}

func (r *manualRunner) runAll() {
	tasks := r.tasks
	r.tasks = nil
	for _, t := range tasks {
		_ = t.Work(t.Context())
	}
}

func (r *manualRunner) run(name Key) bool {
	for i, t := range r.tasks {
		if t.Name == name.String() {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			_ = t.Work(t.Context())
			return true
		}
	}
	return false
}

var errNotFound = errors.New("tile not found")

// stubProvider returns a blank tile, or errNotFound for keys in fail
type stubProvider struct {
	mu    sync.Mutex
	calls map[Key]int
	fail  map[Key]bool
}

func newStubProvider() *stubProvider {
	return &stubProvider{calls: map[Key]int{}, fail: map[Key]bool{}}
}

func (p *stubProvider) GetTile(_ context.Context, tile Tile) (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := KeyOf(tile)
	p.calls[key]++
	if p.fail[key] {
		return nil, errNotFound
	}
	return image.NewRGBA(image.Rect(0, 0, TileSize, TileSize)), nil
}

// manualAnimator records steps so tests can feed chosen elapsed times
type manualAnimator struct {
	steps []func(time.Duration) bool
}

func (a *manualAnimator) Animate(step func(time.Duration) bool) {
	a.steps = append(a.steps, step)
}

type harness struct {
	surface  *recordingSurface
	runner   *manualRunner
	queue    *Queue
	provider *stubProvider
	cache    *Cache
}

func newHarness(opts ...Option) *harness {
	h := &harness{
		surface:  &recordingSurface{},
		runner:   &manualRunner{},
		queue:    NewQueue(nil),
		provider: newStubProvider(),
	}
	opts = append([]Option{WithRunner(h.runner)}, opts...)
	h.cache = NewCache(h.provider, h.surface, h.queue, opts...)
	return h
}

// settle runs every fetch and applies the completions
func (h *harness) settle() {
	h.runner.runAll()
	h.queue.Drain()
}
