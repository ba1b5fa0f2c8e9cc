package tiles

import (
	"image"
	"math"

	"github.com/go-spatial/geom"
)

// Placement is a tile the viewport needs and where to paint it. At is the
// top left corner of the tile relative to the centre of the surface.
type Placement struct {
	Tile Tile
	Key  Key
	At   image.Point
}

// Plan calculates which tiles cover a surface of the given size centred on
// center. The grid always has an odd number of columns and rows and contains
// the centre tile, even for surfaces smaller than a tile.
func Plan(center geom.Point, zoom int, resolution float64, size image.Point) []Placement {
	centerPx := PlaneToPixel(center, resolution)
	centerTile := PixelToTile(centerPx, zoom)

	// offset of the centre pixel from the centre tile's top left corner
	offset := centerPx.Sub(image.Point{X: centerTile.X * TileSize, Y: centerTile.Y * TileSize})

	colCount := halfExtent(size.X)
	rowCount := halfExtent(size.Y)

	placements := make([]Placement, 0, (2*colCount+1)*(2*rowCount+1))
	for colIndex := -colCount; colIndex <= colCount; colIndex++ {
		for rowIndex := -rowCount; rowIndex <= rowCount; rowIndex++ {
			tile := Tile{
				X:    centerTile.X + colIndex,
				Y:    centerTile.Y + rowIndex,
				Zoom: zoom,
			}
			placements = append(placements, Placement{
				Tile: tile,
				Key:  KeyOf(tile),
				At: image.Point{
					X: colIndex*TileSize - offset.X,
					Y: rowIndex*TileSize - offset.Y,
				},
			})
		}
	}
	return placements
}

// Bounds returns the projected plane extent visible on a surface of the given size
func Bounds(center geom.Point, resolution float64, size image.Point) geom.Extent {
	// unfloored global pixel of the centre
	cx := (EarthCircumference/2 + center.X()) / resolution
	cy := (EarthCircumference/2 - center.Y()) / resolution
	halfW := float64(size.X) / 2
	halfH := float64(size.Y) / 2

	northWest := PixelToPlane(cx-halfW, cy-halfH, resolution)
	southEast := PixelToPlane(cx+halfW, cy+halfH, resolution)
	return geom.Extent{
		northWest.X(),
		southEast.Y(),
		southEast.X(),
		northWest.Y(),
	}
}

func halfExtent(px int) int {
	if px <= 0 {
		return 0
	}
	return int(math.Ceil(float64(px) / TileSize / 2))
}
