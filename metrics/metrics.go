package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TilesRequested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amap_tiles_requested_total",
		Help: "Total number of tile fetches started",
	})
	TilesLoaded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amap_tiles_loaded_total",
		Help: "Total number of tile fetches that produced a bitmap",
	})
	TilesFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amap_tiles_failed_total",
		Help: "Total number of tile fetches that failed",
	})
	PaintsSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amap_paints_suppressed_total",
		Help: "Paints skipped because the tile was no longer wanted",
	})
	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "amap_cache_entries",
		Help: "Number of tile entries held by the cache",
	})
	TileFetchDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "amap_tile_fetch_duration_ms",
		Help:    "Tile fetch duration in milliseconds",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
	Renders = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "amap_renders_total",
		Help: "Total number of render passes",
	})
)

func init() {
	prometheus.MustRegister(TilesRequested)
	prometheus.MustRegister(TilesLoaded)
	prometheus.MustRegister(TilesFailed)
	prometheus.MustRegister(PaintsSuppressed)
	prometheus.MustRegister(CacheEntries)
	prometheus.MustRegister(TileFetchDurationMs)
	prometheus.MustRegister(Renders)
}

// Handler exposes the registered metrics for scraping
func Handler() http.Handler { return promhttp.Handler() }
