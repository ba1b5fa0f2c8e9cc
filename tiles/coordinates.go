package tiles

import (
	"image"
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/slippy"
)

const (
	TileSize           = 256
	EarthRadius        = 6378137.0
	EarthCircumference = 2 * math.Pi * EarthRadius // meters, projected plane perimeter

	MinZoom     = 3
	MaxZoom     = 18
	DefaultZoom = 16
)

// Tile represents a map tile coordinates. X is the column, Y the row.
// Indices are not clamped, negative values are ordinary tile identities.
type Tile struct {
	X, Y, Zoom int
}

// LngLat represents a geographical point in degrees
type LngLat struct {
	Lng float64 `json:"lng" validate:"gt=-180,lt=180"`
	Lat float64 `json:"lat" validate:"gt=-90,lt=90"`
}

// Resolution returns the meters per pixel at the given zoom level
func Resolution(zoom int) float64 {
	return EarthCircumference / (math.Pow(2, float64(zoom)) * TileSize)
}

// GeoToPlane converts geographical coordinates to web mercator meters.
// y diverges as the latitude approaches ±90.
func GeoToPlane(ll LngLat) geom.Point {
	x := radians(ll.Lng) * EarthRadius
	sin := math.Sin(radians(ll.Lat))
	y := (EarthRadius / 2) * math.Log((1+sin)/(1-sin))
	return geom.Point{x, y}
}

// PlaneToGeo converts web mercator meters back to geographical coordinates
func PlaneToGeo(pt geom.Point) LngLat {
	lng := degrees(pt.X() / EarthRadius)
	lat := degrees(2*math.Atan(math.Exp(pt.Y()/EarthRadius)) - math.Pi/2)
	return LngLat{Lng: lng, Lat: lat}
}

// PlaneToPixel converts plane meters to global pixel coordinates, origin at the
// north west corner of the plane and rows growing southwards
func PlaneToPixel(pt geom.Point, resolution float64) image.Point {
	px := math.Floor((EarthCircumference/2 + pt.X()) / resolution)
	py := math.Floor((EarthCircumference/2 - pt.Y()) / resolution)
	return image.Point{X: int(px), Y: int(py)}
}

// PixelToPlane is the unfloored inverse of PlaneToPixel
func PixelToPlane(px, py, resolution float64) geom.Point {
	return geom.Point{
		px*resolution - EarthCircumference/2,
		EarthCircumference/2 - py*resolution,
	}
}

// PixelToTile returns the tile containing the global pixel px at zoom
func PixelToTile(px image.Point, zoom int) Tile {
	return Tile{
		X:    floorDiv(px.X, TileSize),
		Y:    floorDiv(px.Y, TileSize),
		Zoom: zoom,
	}
}

// InWorld reports whether the tile lies inside the 2^zoom x 2^zoom quad-tree grid
func (t Tile) InWorld() bool {
	if t.Zoom < 0 || t.X < 0 || t.Y < 0 {
		return false
	}
	n := 1 << uint(t.Zoom)
	return t.X < n && t.Y < n
}

// Slippy converts an in-world tile to its slippy map counterpart
func (t Tile) Slippy() (*slippy.Tile, bool) {
	if !t.InWorld() {
		return nil, false
	}
	return slippy.NewTile(uint(t.Zoom), uint(t.X), uint(t.Y)), true
}

func radians(deg float64) float64 {
	return deg * (math.Pi / 180)
}

func degrees(rad float64) float64 {
	return rad * (180 / math.Pi)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
