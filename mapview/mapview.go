package mapview

import (
	"context"
	"image"
	"log/slog"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"

	"github.com/olablt/gio-amap/logger"
	"github.com/olablt/gio-amap/maps"
	"github.com/olablt/gio-amap/tiles"
	"github.com/olablt/gio-amap/tiles/worker"
)

// MapView is a Gio widget showing a draggable, scroll zoomable tile map
type MapView struct {
	ctrl  *maps.Controller
	cache *tiles.Cache
	layer *Layer
	anim  *tiles.FrameAnimator
	queue *tiles.Queue
	pool  *worker.Pool
	log   *slog.Logger

	size        image.Point
	dragging    bool
	lastDragPos f32.Point
}

// New builds a map view over provider. refresh receives a value whenever a
// tile fetch completes and the window should be invalidated.
func New(ctx context.Context, cfg maps.Config, provider tiles.TileProvider, refresh chan<- struct{}) (*MapView, error) {
	log := logger.L()
	mv := &MapView{
		layer: NewLayer(),
		anim:  tiles.NewFrameAnimator(),
		pool:  worker.NewPool(cfg.Workers),
		log:   log,
	}
	mv.queue = tiles.NewQueue(func() {
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	mv.cache = tiles.NewCache(provider, mv.layer, mv.queue,
		tiles.WithRunner(mv.pool),
		tiles.WithAnimator(mv.anim),
		tiles.WithContext(ctx),
		tiles.WithLogger(log),
	)

	ctrl, err := maps.New(cfg, mv.layer, mv.cache, maps.WithLogger(log))
	if err != nil {
		mv.pool.Shutdown()
		return nil, err
	}
	mv.ctrl = ctrl
	return mv, nil
}

// Controller exposes the view state for programmatic navigation
func (mv *MapView) Controller() *maps.Controller {
	return mv.ctrl
}

// Close stops the fetch workers
func (mv *MapView) Close() {
	mv.pool.Shutdown()
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	tag := mv

	// apply fetch completions before anything reads the cache
	mv.queue.Drain()

	// Update size if changed
	if mv.size != gtx.Constraints.Max {
		mv.size = gtx.Constraints.Max
		mv.ctrl.Resize(mv.size)
	}

	// process events
	var drag f32.Point
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			drag = mv.handlePointer(x, drag)
		}
	}
	mv.flushDrag(drag)

	if mv.anim.Tick(gtx.Now) {
		gtx.Execute(op.InvalidateCmd{})
	}

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)
	mv.layer.Paint(gtx.Ops)

	return layout.Dimensions{Size: mv.size}
}

// handlePointer applies one pointer event. Drag movement is accumulated into
// drag and applied once per frame.
func (mv *MapView) handlePointer(x pointer.Event, drag f32.Point) f32.Point {
	switch x.Kind {
	case pointer.Press:
		mv.dragging = true
		mv.lastDragPos = x.Position
	case pointer.Drag:
		if !mv.dragging {
			break
		}
		drag = drag.Add(x.Position.Sub(mv.lastDragPos))
		mv.lastDragPos = x.Position
	case pointer.Release, pointer.Cancel:
		mv.dragging = false
	case pointer.Scroll:
		// pending movement happened at the old zoom
		mv.flushDrag(drag)
		drag = f32.Point{}

		sign := 0
		if x.Scroll.Y < 0 {
			sign = 1
		} else if x.Scroll.Y > 0 {
			sign = -1
		}
		// Get mouse position relative to screen center
		ax := float64(x.Position.X) - float64(mv.size.X)/2
		ay := float64(x.Position.Y) - float64(mv.size.Y)/2
		if err := mv.ctrl.ApplyZoomAtPoint(sign, ax, ay); err != nil {
			mv.log.Debug("zoom_ignored", "error", err)
		}
	}
	return drag
}

func (mv *MapView) flushDrag(drag f32.Point) {
	if drag == (f32.Point{}) {
		return
	}
	mv.ctrl.ApplyPanDelta(float64(drag.X), float64(drag.Y))
}
