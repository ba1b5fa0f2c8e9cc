package render

import (
	"context"
	"fmt"
	"image/png"
	"io"

	"github.com/olablt/gio-amap/maps"
	"github.com/olablt/gio-amap/tiles"
)

// Snapshot renders the controller's current view and applies fetch
// completions from queue until no wanted tile is pending. It fails once ctx
// is done. The result is whatever the controller's surface holds by then.
func Snapshot(ctx context.Context, ctrl *maps.Controller, queue *tiles.Queue) error {
	ctrl.Render()
	cache := ctrl.Cache()
	for {
		queue.Drain()
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("snapshot with %d tiles pending: %w", cache.Pending(), err)
		}
		if cache.Pending() == 0 {
			return nil
		}
		if err := queue.Wait(ctx); err != nil {
			return fmt.Errorf("snapshot with %d tiles pending: %w", cache.Pending(), err)
		}
	}
}

// WritePNG encodes the canvas bitmap to w
func WritePNG(w io.Writer, c *Canvas) error {
	return png.Encode(w, c.Image())
}
