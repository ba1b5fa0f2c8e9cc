package maps

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/go-spatial/geom"

	"github.com/olablt/gio-amap/logger"
	"github.com/olablt/gio-amap/metrics"
	"github.com/olablt/gio-amap/tiles"
)

var ErrZoomOutOfRange = errors.New("zoom out of range")

// Controller owns the view state of a map and repaints it through the tile
// cache whenever that state changes. The view position is kept in projected
// plane meters; the geographic centre is derived from it.
//
// A Controller is not safe for concurrent use. It must run on the goroutine
// that drains the cache's dispatcher.
type Controller struct {
	cache     *tiles.Cache
	surface   tiles.Surface
	log       *slog.Logger
	draggable bool

	position   geom.Point
	zoom       int
	resolution float64
	size       image.Point

	placements []tiles.Placement
}

type ControllerOption func(*Controller)

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// New sets up a controller from cfg without rendering. The first render
// happens on Resize, once the host knows the surface size.
func New(cfg Config, surface tiles.Surface, cache *tiles.Cache, opts ...ControllerOption) (*Controller, error) {
	if cache == nil || surface == nil {
		return nil, fmt.Errorf("a surface and a tile cache are required")
	}
	c := &Controller{
		cache:      cache,
		surface:    surface,
		draggable:  cfg.Draggable,
		zoom:       tiles.DefaultZoom,
		resolution: tiles.Resolution(tiles.DefaultZoom),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.L()
	}

	// an invalid zoom only warns and keeps the default
	_ = c.setZoom(cfg.Zoom, false)
	c.setCenter(cfg.Center, false)
	return c, nil
}

// SetCenter moves the view to ll. Undefined (NaN) coordinates are ignored.
func (c *Controller) SetCenter(ll tiles.LngLat) {
	c.setCenter(ll, true)
}

func (c *Controller) setCenter(ll tiles.LngLat, render bool) {
	if math.IsNaN(ll.Lng) || math.IsNaN(ll.Lat) {
		c.log.Warn("center_rejected", "lng", ll.Lng, "lat", ll.Lat)
		return
	}
	c.position = tiles.GeoToPlane(ll)
	if render {
		c.Render()
	}
}

// SetZoom changes the zoom level. Levels outside 3..18 are rejected, the
// current zoom is kept and ErrZoomOutOfRange returned.
func (c *Controller) SetZoom(zoom int) error {
	return c.setZoom(zoom, true)
}

func (c *Controller) setZoom(zoom int, render bool) error {
	if zoom < tiles.MinZoom || zoom > tiles.MaxZoom {
		c.log.Warn("zoom_rejected", "zoom", zoom, "min", tiles.MinZoom, "max", tiles.MaxZoom, "kept", c.zoom)
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrZoomOutOfRange, zoom, tiles.MinZoom, tiles.MaxZoom)
	}
	c.zoom = zoom
	c.resolution = tiles.Resolution(zoom)
	if render {
		c.Render()
	}
	return nil
}

// ApplyPanDelta moves the map with a drag of (dx, dy) screen pixels
func (c *Controller) ApplyPanDelta(dx, dy float64) {
	if !c.draggable {
		return
	}
	c.position = geom.Point{
		c.position.X() - dx*c.resolution,
		c.position.Y() + dy*c.resolution,
	}
	c.Render()
}

// ApplyZoomAtPoint zooms in (sign > 0) or out (sign < 0) by one level keeping
// the plane point under the anchor fixed. The anchor is an offset in screen
// pixels from the surface centre.
func (c *Controller) ApplyZoomAtPoint(sign int, ax, ay float64) error {
	if sign == 0 {
		return nil
	}
	anchor := c.PlaneAt(ax, ay)

	zoom := c.zoom - 1
	if sign > 0 {
		zoom = c.zoom + 1
	}
	err := c.setZoom(zoom, false)

	// re-centre so the same plane point maps back under the anchor
	c.position = geom.Point{
		anchor.X() - ax*c.resolution,
		anchor.Y() + ay*c.resolution,
	}
	c.Render()
	return err
}

// Resize updates the surface size and repaints
func (c *Controller) Resize(size image.Point) {
	c.size = size
	c.surface.Resize(size)
	c.Render()
}

// Render repaints the view. The wanted set is rebuilt in full before any
// tile is positioned, so a tile only ever paints for the current pass.
func (c *Controller) Render() {
	metrics.Renders.Inc()
	c.placements = tiles.Plan(c.position, c.zoom, c.resolution, c.size)
	c.surface.Clear()

	keys := make([]tiles.Key, len(c.placements))
	for i, p := range c.placements {
		keys[i] = p.Key
	}
	c.cache.SetWanted(keys)

	for _, p := range c.placements {
		c.cache.Resolve(p.Tile).UpdatePosition(p.At)
	}
	c.log.Debug("render", "zoom", c.zoom, "tiles", len(c.placements), "cached", c.cache.Len())
}

// PlaneAt returns the plane coordinate under a screen offset from the centre
func (c *Controller) PlaneAt(ax, ay float64) geom.Point {
	return geom.Point{
		c.position.X() + ax*c.resolution,
		c.position.Y() - ay*c.resolution,
	}
}

func (c *Controller) Center() tiles.LngLat { return tiles.PlaneToGeo(c.position) }
func (c *Controller) Position() geom.Point { return c.position }
func (c *Controller) Zoom() int { return c.zoom }
func (c *Controller) Resolution() float64 { return c.resolution }
func (c *Controller) Size() image.Point { return c.size }
func (c *Controller) Draggable() bool { return c.draggable }
func (c *Controller) Cache() *tiles.Cache { return c.cache }
func (c *Controller) Placements() []tiles.Placement { return c.placements }

// Bounds returns the projected plane extent currently on the surface
func (c *Controller) Bounds() geom.Extent {
	return tiles.Bounds(c.position, c.resolution, c.size)
}
