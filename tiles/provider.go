package tiles

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math/rand"
	"net/http"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/olablt/gio-amap/logger"
)

type TileProvider interface {
	GetTile(ctx context.Context, tile Tile) (image.Image, error)
}

// URLTemplate builds tile URLs of the form
// {scheme}://{subdomain}.{host}/appmaptile?x={col}&y={row}&z={zoom}&{query}
type URLTemplate struct {
	Scheme     string
	Host       string
	Subdomains []string
	Query      string
	// Intn picks a subdomain, math/rand when nil
	Intn func(n int) int
}

// DefaultURLTemplate serves AMap road tiles from webrd01 to webrd04
func DefaultURLTemplate() *URLTemplate {
	return &URLTemplate{
		Scheme:     "https",
		Host:       "is.autonavi.com",
		Subdomains: []string{"webrd01", "webrd02", "webrd03", "webrd04"},
		Query:      "lang=zh_cn&size=1&scale=1&style=8",
	}
}

// URL returns the URL of a tile. The subdomain only spreads load across
// servers, every subdomain serves the same bitmap.
func (u *URLTemplate) URL(tile Tile) string {
	host := u.Host
	if n := len(u.Subdomains); n > 0 {
		intn := u.Intn
		if intn == nil {
			intn = rand.Intn
		}
		host = u.Subdomains[intn(n)] + "." + host
	}
	url := fmt.Sprintf("%s://%s/appmaptile?%s", u.Scheme, host, KeyOf(tile))
	if u.Query != "" {
		url += "&" + u.Query
	}
	return url
}

// StatusError is returned when a tile server answers with anything but 200
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.Code, e.URL)
}

// HTTPTileProvider fetches tiles from a tile server
type HTTPTileProvider struct {
	client *http.Client
	urls   *URLTemplate
	log    *slog.Logger
}

func NewHTTPTileProvider(urls *URLTemplate, client *http.Client) *HTTPTileProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTileProvider{
		client: client,
		urls:   urls,
		log:    logger.L(),
	}
}

func (p *HTTPTileProvider) GetTile(ctx context.Context, tile Tile) (image.Image, error) {
	url := p.urls.URL(tile)
	p.log.Debug("tile_request", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for tile %v: %w", tile, err)
	}

	// Add browser-like headers
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/115.0")
	req.Header.Set("Accept", "image/webp,image/png,image/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching tile %v: %w", tile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding tile %v (%s): %w", tile, resp.Header.Get("Content-Type"), err)
	}
	p.log.Debug("tile_fetched", "url", url, "format", format)
	return normalize(img), nil
}

// normalize scales bitmaps that are not TileSize x TileSize, e.g. retina tiles
func normalize(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() == TileSize && b.Dy() == TileSize {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
