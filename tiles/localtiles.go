package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/muesli/reflow/truncate"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelPadding = 10

// LocalTileProvider draws debug tiles labelled with their index. Tiles
// outside the quad-tree grid get a grey background.
type LocalTileProvider struct{}

func NewLocalTileProvider() *LocalTileProvider {
	return &LocalTileProvider{}
}

func (p *LocalTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))

	bgColor := color.RGBA{200, 220, 255, 255}
	if !tile.InWorld() {
		bgColor = color.RGBA{210, 210, 210, 255}
	}
	draw.Draw(img, img.Bounds(), &image.Uniform{bgColor}, image.Point{}, draw.Src)

	drawLabel(img, tileLabel(tile))

	borderColor := color.RGBA{100, 100, 100, 255}
	borders := []image.Rectangle{
		image.Rect(0, 0, TileSize, 1),                 // Top
		image.Rect(0, TileSize-1, TileSize, TileSize), // Bottom
		image.Rect(0, 0, 1, TileSize),                 // Left
		image.Rect(TileSize-1, 0, TileSize, TileSize), // Right
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{borderColor}, image.Point{}, draw.Src)
	}
	return img, nil
}

func tileLabel(tile Tile) string {
	if st, ok := tile.Slippy(); ok {
		return fmt.Sprintf("%d/%d/%d", st.Z, st.X, st.Y)
	}
	return fmt.Sprintf("%d/%d/%d (off grid)", tile.Zoom, tile.X, tile.Y)
}

// maxLabelChars is how many basicfont glyphs fit inside the padded tile
var maxLabelChars = uint((TileSize - 4*labelPadding) / basicfont.Face7x13.Advance)

func drawLabel(img *image.RGBA, text string) {
	text = truncate.StringWithTail(text, maxLabelChars, "~")

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Round()
	textHeight := face.Metrics().Height.Round()
	mid := TileSize / 2

	textBgRect := image.Rect(
		(TileSize-textWidth)/2-labelPadding,
		mid-textHeight/2-labelPadding,
		(TileSize+textWidth)/2+labelPadding,
		mid+textHeight/2+labelPadding,
	)
	textBgColor := color.RGBA{255, 255, 255, 220}
	draw.Draw(img, textBgRect, &image.Uniform{textBgColor}, image.Point{}, draw.Over)

	d.Dot = fixed.Point26_6{
		X: fixed.I((TileSize - textWidth) / 2),
		Y: fixed.I(mid + textHeight/2),
	}
	d.DrawString(text)
}
