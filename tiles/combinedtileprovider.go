package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/olablt/gio-amap/logger"
)

// CombinedTileProvider serves the fallback bitmap when the primary provider
// fails, so broken tiles show a placeholder instead of a hole
type CombinedTileProvider struct {
	primary  TileProvider
	fallback TileProvider
	log      *slog.Logger
}

func NewCombinedTileProvider(primary, fallback TileProvider) *CombinedTileProvider {
	return &CombinedTileProvider{
		primary:  primary,
		fallback: fallback,
		log:      logger.L(),
	}
}

func (p *CombinedTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	img, err := p.primary.GetTile(ctx, tile)
	if err == nil {
		return img, nil
	}
	if isCanceled(ctx, err) {
		return nil, err
	}
	p.log.Warn("tile_fallback", "tile", KeyOf(tile), "error", err)

	fallbackImg, ferr := p.fallback.GetTile(ctx, tile)
	if ferr != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %w", err)
	}
	return fallbackImg, nil
}

// isCanceled reports whether err was caused by the fetch being abandoned
func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
