package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"time"

	"gioui.org/app"
	"gioui.org/op"
	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/olablt/gio-amap/logger"
	"github.com/olablt/gio-amap/mapview"
	"github.com/olablt/gio-amap/maps"
	"github.com/olablt/gio-amap/metrics"
	"github.com/olablt/gio-amap/render"
	"github.com/olablt/gio-amap/tiles"
	"github.com/olablt/gio-amap/tiles/worker"
)

const (
	CENTER      = `center`
	ZOOM        = `zoom`
	DRAGGABLE   = `draggable`
	CONFIG      = `config`
	PROVIDER    = `provider`
	FALLBACK    = `fallback`
	WORKERS     = `workers`
	SNAPSHOT    = `snapshot`
	WIDTH       = `width`
	HEIGHT      = `height`
	TIMEOUT     = `timeout`
	METRICSADDR = `metrics-addr`
)

var background = color.RGBA{242, 239, 233, 255}

func main() {
	_ = godotenv.Load()
	log := logger.Setup()

	if err := newApp().Run(os.Args); err != nil {
		log.Error("amap_failed", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "amap"
	app.Usage = "A Gio slippy map viewer for AMap tiles"
	app.Version = versioninfo.Short()

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    CENTER,
			Aliases: []string{"c"},
			Usage:   `Map centre as a JSON array [lng, lat]. E.g.: [120.005627, 31.790637]`,
			EnvVars: []string{strcase.ToScreamingSnake(CENTER)},
		},
		&cli.IntFlag{
			Name:    ZOOM,
			Aliases: []string{"z"},
			Usage:   "Initial zoom level, 3 to 18",
			Value:   tiles.DefaultZoom,
			EnvVars: []string{strcase.ToScreamingSnake(ZOOM)},
		},
		&cli.BoolFlag{
			Name:    DRAGGABLE,
			Usage:   "Whether dragging moves the map",
			Value:   true,
			EnvVars: []string{strcase.ToScreamingSnake(DRAGGABLE)},
		},
		&cli.StringFlag{
			Name:    CONFIG,
			Usage:   "JSON config file. Flags given explicitly override its values",
			EnvVars: []string{strcase.ToScreamingSnake(CONFIG)},
		},
		&cli.StringFlag{
			Name:    PROVIDER,
			Aliases: []string{"p"},
			Usage:   "Tile provider: amap or local",
			Value:   "amap",
			EnvVars: []string{strcase.ToScreamingSnake(PROVIDER)},
		},
		&cli.BoolFlag{
			Name:    FALLBACK,
			Usage:   "Draw local debug tiles where the provider fails",
			EnvVars: []string{strcase.ToScreamingSnake(FALLBACK)},
		},
		&cli.IntFlag{
			Name:    WORKERS,
			Aliases: []string{"w"},
			Usage:   "Concurrent tile fetches",
			Value:   6,
			EnvVars: []string{strcase.ToScreamingSnake(WORKERS)},
		},
		&cli.StringFlag{
			Name:    SNAPSHOT,
			Aliases: []string{"o"},
			Usage:   "Render one view to this PNG file instead of opening a window",
			EnvVars: []string{strcase.ToScreamingSnake(SNAPSHOT)},
		},
		&cli.IntFlag{
			Name:    WIDTH,
			Usage:   "Snapshot width in pixels",
			Value:   800,
			EnvVars: []string{strcase.ToScreamingSnake(WIDTH)},
		},
		&cli.IntFlag{
			Name:    HEIGHT,
			Usage:   "Snapshot height in pixels",
			Value:   600,
			EnvVars: []string{strcase.ToScreamingSnake(HEIGHT)},
		},
		&cli.DurationFlag{
			Name:    TIMEOUT,
			Usage:   "How long a snapshot waits for its tiles",
			Value:   30 * time.Second,
			EnvVars: []string{strcase.ToScreamingSnake(TIMEOUT)},
		},
		&cli.StringFlag{
			Name:    METRICSADDR,
			Usage:   "Serve prometheus metrics on this address. E.g.: :9090",
			EnvVars: []string{strcase.ToScreamingSnake(METRICSADDR)},
		},
	}

	app.Action = func(c *cli.Context) error {
		cfg, err := buildConfig(c)
		if err != nil {
			return err
		}
		provider, err := newProvider(c.String(PROVIDER), c.Bool(FALLBACK))
		if err != nil {
			return err
		}
		if addr := c.String(METRICSADDR); addr != "" {
			serveMetrics(addr)
		}

		if path := c.String(SNAPSHOT); path != "" {
			size := image.Pt(c.Int(WIDTH), c.Int(HEIGHT))
			return snapshot(c.Context, cfg, provider, path, size, c.Duration(TIMEOUT))
		}
		return window(c.Context, cfg, provider)
	}
	return app
}

// buildConfig starts from the config file, or the defaults, and applies the
// flags that were given explicitly
func buildConfig(c *cli.Context) (maps.Config, error) {
	var cfg maps.Config
	var err error
	if path := c.String(CONFIG); path != "" {
		cfg, err = maps.LoadConfig(path)
	} else {
		cfg, err = maps.NewConfig(maps.DefaultCenter)
	}
	if err != nil {
		return cfg, err
	}

	if c.IsSet(CENTER) {
		if cfg.Center, err = maps.ParseCenter(c.String(CENTER)); err != nil {
			return cfg, err
		}
	}
	if c.IsSet(ZOOM) {
		cfg.Zoom = c.Int(ZOOM)
	}
	if c.IsSet(DRAGGABLE) {
		cfg.Draggable = c.Bool(DRAGGABLE)
	}
	if c.IsSet(WORKERS) {
		cfg.Workers = c.Int(WORKERS)
	}
	return cfg, cfg.Validate()
}

func newProvider(name string, fallback bool) (tiles.TileProvider, error) {
	var provider tiles.TileProvider
	switch name {
	case "amap":
		provider = tiles.NewHTTPTileProvider(tiles.DefaultURLTemplate(), nil)
	case "local":
		provider = tiles.NewLocalTileProvider()
	default:
		return nil, fmt.Errorf("unknown tile provider %q, want amap or local", name)
	}
	if fallback {
		provider = tiles.NewCombinedTileProvider(provider, tiles.NewLocalTileProvider())
	}
	return provider, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.L().Error("metrics_server_stopped", "addr", addr, "error", err)
		}
	}()
	logger.L().Info("metrics_server_started", "addr", addr)
}

func snapshot(ctx context.Context, cfg maps.Config, provider tiles.TileProvider, path string, size image.Point, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	pool := worker.NewPool(cfg.Workers)
	defer pool.Shutdown()
	defer cancel()

	canvas := render.NewCanvas(size, background)
	queue := tiles.NewQueue(nil)
	cache := tiles.NewCache(provider, canvas, queue,
		tiles.WithRunner(pool),
		tiles.WithContext(ctx),
	)
	ctrl, err := maps.New(cfg, canvas, cache)
	if err != nil {
		return err
	}
	ctrl.Resize(size)

	// a partial map is still written
	if err := render.Snapshot(ctx, ctrl, queue); err != nil {
		logger.L().Warn("snapshot_incomplete", "error", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := render.WritePNG(f, canvas); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	logger.L().Info("snapshot_written", "path", path, "tiles", len(ctrl.Placements()))
	return f.Close()
}

func window(ctx context.Context, cfg maps.Config, provider tiles.TileProvider) error {
	refresh := make(chan struct{}, 1)
	mv, err := mapview.New(ctx, cfg, provider, refresh)
	if err != nil {
		return err
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("amap"))

		var ops op.Ops
		go func() {
			for range refresh {
				w.Invalidate()
			}
		}()
		for {
			switch e := w.Event().(type) {
			case app.DestroyEvent:
				mv.Close()
				if e.Err != nil {
					logger.L().Error("window_closed", "error", e.Err)
					os.Exit(1)
				}
				os.Exit(0)
			case app.FrameEvent:
				gtx := app.NewContext(&ops, e)
				mv.Layout(gtx)
				e.Frame(gtx.Ops)
			}
		}
	}()
	app.Main()
	return nil
}
