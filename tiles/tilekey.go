package tiles

import "fmt"

// Key identifies a tile in the cache. It is the query string form of the
// tile index, so it can be concatenated straight into a tile URL.
type Key string

// KeyOf returns the unique key for a tile
func KeyOf(tile Tile) Key {
	return Key(fmt.Sprintf("x=%d&y=%d&z=%d", tile.X, tile.Y, tile.Zoom))
}

func (k Key) String() string {
	return string(k)
}
