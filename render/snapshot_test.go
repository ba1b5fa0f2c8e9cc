package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/gio-amap/maps"
	"github.com/olablt/gio-amap/tiles"
)

type blockingProvider struct{}

func (blockingProvider) GetTile(ctx context.Context, _ tiles.Tile) (image.Image, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func setup(t *testing.T, ctx context.Context, provider tiles.TileProvider) (*Canvas, *maps.Controller, *tiles.Queue) {
	t.Helper()
	cfg, err := maps.NewConfig(maps.DefaultCenter)
	require.NoError(t, err)

	canvas := NewCanvas(image.Pt(400, 300), color.Black)
	queue := tiles.NewQueue(nil)
	cache := tiles.NewCache(provider, canvas, queue, tiles.WithContext(ctx))
	ctrl, err := maps.New(cfg, canvas, cache)
	require.NoError(t, err)
	ctrl.Resize(canvas.Image().Bounds().Size())
	return canvas, ctrl, queue
}

func TestSnapshot(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	canvas, ctrl, queue := setup(t, ctx, tiles.NewLocalTileProvider())
	require.NoError(t, Snapshot(ctx, ctrl, queue))
	assert.Zero(t, ctrl.Cache().Pending())

	// the centre pixel falls on the centre tile background, below its label
	assert.Equal(t, color.RGBA{200, 220, 255, 255}, canvas.Image().RGBAAt(200, 150))

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, canvas))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Pt(400, 300), decoded.Bounds().Size())
}

func TestSnapshot_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, ctrl, queue := setup(t, ctx, blockingProvider{})
	err := Snapshot(ctx, ctrl, queue)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
