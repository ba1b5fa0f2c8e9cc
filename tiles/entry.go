package tiles

import (
	"image"
	"time"

	"github.com/olablt/gio-amap/metrics"
)

type State int

const (
	Pending State = iota
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Entry is one tile of the cache: its bitmap once fetched, its fade progress
// and where it was last placed on the surface.
type Entry struct {
	tile  Tile
	key   Key
	cache *Cache

	state   State
	img     image.Image
	err     error
	at      image.Point
	opacity float64
	fading  bool
}

func (e *Entry) Tile() Tile { return e.tile }
func (e *Entry) Key() Key { return e.key }
func (e *Entry) State() State { return e.state }
func (e *Entry) Err() error { return e.err }
func (e *Entry) Opacity() float64 { return e.opacity }
func (e *Entry) Position() image.Point { return e.at }

// UpdatePosition moves the tile and repaints it if it is loaded and wanted
func (e *Entry) UpdatePosition(at image.Point) {
	e.at = at
	e.paintIfWanted()
}

func (e *Entry) onLoadComplete(img image.Image) {
	e.img = img
	e.state = Loaded
	metrics.TilesLoaded.Inc()
	e.cache.log.Debug("tile_loaded", "key", e.key)
	e.paintIfWanted()
}

func (e *Entry) onLoadFailed(err error) {
	e.err = err
	e.state = Failed
	metrics.TilesFailed.Inc()
	e.cache.log.Warn("tile_load_failed", "key", e.key, "error", err)
}

// paintIfWanted draws the tile when its bitmap is there and the current
// render pass still wants it
func (e *Entry) paintIfWanted() bool {
	if e.state != Loaded {
		return false
	}
	if !e.cache.IsWanted(e.key) {
		metrics.PaintsSuppressed.Inc()
		return false
	}
	if e.cache.animator == nil {
		e.opacity = 1
	}
	e.draw()
	e.fadeIn()
	return true
}

// fadeIn starts the single fade run of this entry
func (e *Entry) fadeIn() {
	if e.opacity >= 1 || e.fading {
		return
	}
	e.fading = true
	base := e.opacity
	e.cache.animator.Animate(func(elapsed time.Duration) bool {
		e.opacity = fadeOpacity(base, elapsed)
		if e.cache.IsWanted(e.key) {
			e.draw()
		}
		if e.opacity >= 1 {
			e.fading = false
			return true
		}
		return false
	})
}

func (e *Entry) draw() {
	e.cache.surface.DrawImage(e.key, e.img, e.at, float32(e.opacity))
}
