package render

import (
	"image"
	"image/color"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/olablt/gio-amap/tiles"
)

// Canvas is an immediate mode tiles.Surface backed by an RGBA bitmap. Draw
// positions are relative to the bitmap centre.
type Canvas struct {
	img        *image.RGBA
	background color.Color
}

func NewCanvas(size image.Point, background color.Color) *Canvas {
	c := &Canvas{background: background}
	c.Resize(size)
	return c
}

func (c *Canvas) Image() *image.RGBA {
	return c.img
}

func (c *Canvas) Resize(size image.Point) {
	if c.img != nil && c.img.Bounds().Size() == size {
		return
	}
	c.img = image.NewRGBA(image.Rectangle{Max: size})
	c.Clear()
}

func (c *Canvas) Clear() {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
}

func (c *Canvas) DrawImage(_ tiles.Key, img image.Image, at image.Point, opacity float32) {
	if opacity <= 0 {
		return
	}
	size := c.img.Bounds().Size()
	origin := image.Point{X: size.X / 2, Y: size.Y / 2}.Add(at)
	dst := img.Bounds().Sub(img.Bounds().Min).Add(origin)

	if opacity >= 1 {
		xdraw.Draw(c.img, dst, img, img.Bounds().Min, xdraw.Over)
		return
	}
	mask := image.NewUniform(color.Alpha{A: uint8(opacity*255 + 0.5)})
	xdraw.DrawMask(c.img, dst, img, img.Bounds().Min, mask, image.Point{}, xdraw.Over)
}
