package tiles

import "image"

// Surface is the drawing target tiles are painted on. Positions are relative
// to the centre of the surface. Retained surfaces replace an earlier draw of
// the same key, immediate ones simply composite.
type Surface interface {
	Clear()
	DrawImage(key Key, img image.Image, at image.Point, opacity float32)
	Resize(size image.Point)
}
