package tiles

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/olablt/gio-amap/logger"
	"github.com/olablt/gio-amap/metrics"
	"github.com/olablt/gio-amap/tiles/worker"
)

// Runner executes tile fetches away from the goroutine owning the cache
type Runner interface {
	Submit(task worker.Task)
}

// WantedChecker answers whether a tile is part of the current render pass
type WantedChecker interface {
	IsWanted(key Key) bool
}

// Cache holds one Entry per tile key for the lifetime of the viewer, together
// with the set of keys wanted by the latest render pass. It must only be used
// from the goroutine that drains its Dispatcher.
type Cache struct {
	provider   TileProvider
	surface    Surface
	dispatcher Dispatcher
	runner     Runner
	animator   Animator
	ctx        context.Context
	log        *slog.Logger

	entries map[Key]*Entry
	wanted  map[Key]struct{}
}

type Option func(*Cache)

// WithRunner sets where fetches run. By default each fetch gets its own goroutine.
func WithRunner(r Runner) Option {
	return func(c *Cache) { c.runner = r }
}

// WithAnimator enables fade-in. Without one tiles are painted fully opaque.
func WithAnimator(a Animator) Option {
	return func(c *Cache) { c.animator = a }
}

// WithContext sets the parent context of every fetch
func WithContext(ctx context.Context) Option {
	return func(c *Cache) { c.ctx = ctx }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache returns an empty cache. Fetch completions are posted to dispatcher
// and applied when its owner runs them.
func NewCache(provider TileProvider, surface Surface, dispatcher Dispatcher, opts ...Option) *Cache {
	c := &Cache{
		provider:   provider,
		surface:    surface,
		dispatcher: dispatcher,
		runner:     goRunner{},
		ctx:        context.Background(),
		entries:    make(map[Key]*Entry),
		wanted:     make(map[Key]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.L()
	}
	return c
}

// Resolve returns the entry for tile, creating it and starting its fetch on
// first demand
func (c *Cache) Resolve(tile Tile) *Entry {
	key := KeyOf(tile)
	if e, ok := c.entries[key]; ok {
		return e
	}

	e := &Entry{
		tile:  tile,
		key:   key,
		cache: c,
	}
	c.entries[key] = e
	metrics.CacheEntries.Set(float64(len(c.entries)))
	c.load(e)
	return e
}

// Lookup returns the entry for key without creating it
func (c *Cache) Lookup(key Key) (*Entry, bool) {
	e, ok := c.entries[key]
	return e, ok
}

// SetWanted replaces the wanted set
func (c *Cache) SetWanted(keys []Key) {
	c.wanted = make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		c.wanted[k] = struct{}{}
	}
}

func (c *Cache) IsWanted(key Key) bool {
	_, ok := c.wanted[key]
	return ok
}

// Len returns the number of entries, wanted or not
func (c *Cache) Len() int {
	return len(c.entries)
}

// Pending returns how many wanted tiles are still waiting for their bitmap
func (c *Cache) Pending() int {
	n := 0
	for k := range c.wanted {
		if e, ok := c.entries[k]; ok && e.state == Pending {
			n++
		}
	}
	return n
}

// Keys returns the keys of all entries in sorted order
func (c *Cache) Keys() []Key {
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (c *Cache) load(e *Entry) {
	metrics.TilesRequested.Inc()
	tile := e.tile
	c.runner.Submit(worker.Task{
		Ctx:  c.ctx,
		Name: e.key.String(),
		Work: func(ctx context.Context) error {
			start := time.Now()
			img, err := c.provider.GetTile(ctx, tile)
			metrics.TileFetchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
			c.dispatcher.Post(func() {
				if err != nil {
					e.onLoadFailed(err)
					return
				}
				e.onLoadComplete(img)
			})
			return err
		},
	})
}

type goRunner struct{}

func (goRunner) Submit(task worker.Task) {
	go task.Work(task.Context())
}
