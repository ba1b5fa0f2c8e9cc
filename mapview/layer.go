package mapview

import (
	"image"

	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/olablt/gio-amap/tiles"
)

// Layer is a retained tiles.Surface for Gio. It keeps the latest draw of
// every tile in draw order and replays them each frame.
type Layer struct {
	sprites  *orderedmap.OrderedMap[tiles.Key, *sprite]
	imageOps map[tiles.Key]cachedOp
	size     image.Point
}

type sprite struct {
	op      paint.ImageOp
	size    image.Point
	at      image.Point
	opacity float32
}

// cachedOp keeps the ImageOp of a bitmap alive across clears, so the GPU
// texture of a tile is uploaded once
type cachedOp struct {
	src image.Image
	op  paint.ImageOp
}

func NewLayer() *Layer {
	return &Layer{
		sprites:  orderedmap.New[tiles.Key, *sprite](),
		imageOps: make(map[tiles.Key]cachedOp),
	}
}

func (l *Layer) Clear() {
	l.sprites = orderedmap.New[tiles.Key, *sprite]()
}

func (l *Layer) Resize(size image.Point) {
	l.size = size
}

func (l *Layer) DrawImage(key tiles.Key, img image.Image, at image.Point, opacity float32) {
	if s, ok := l.sprites.Get(key); ok {
		s.at = at
		s.opacity = opacity
		return
	}
	l.sprites.Set(key, &sprite{
		op:      l.imageOp(key, img),
		size:    img.Bounds().Size(),
		at:      at,
		opacity: opacity,
	})
}

func (l *Layer) imageOp(key tiles.Key, img image.Image) paint.ImageOp {
	if c, ok := l.imageOps[key]; ok && c.src == img {
		return c.op
	}
	imgOp := paint.NewImageOp(img)
	l.imageOps[key] = cachedOp{src: img, op: imgOp}
	return imgOp
}

// Len returns the number of tiles on the layer
func (l *Layer) Len() int {
	return l.sprites.Len()
}

// Paint adds the layer to ops with tile positions relative to the layer centre
func (l *Layer) Paint(ops *op.Ops) {
	defer op.Offset(image.Point{X: l.size.X / 2, Y: l.size.Y / 2}).Push(ops).Pop()

	for pair := l.sprites.Oldest(); pair != nil; pair = pair.Next() {
		s := pair.Value
		transform := op.Offset(s.at).Push(ops)
		area := clip.Rect{Max: s.size}.Push(ops)
		opacity := paint.PushOpacity(ops, s.opacity)

		s.op.Add(ops)
		paint.PaintOp{}.Add(ops)

		opacity.Pop()
		area.Pop()
		transform.Pop()
	}
}
