package maps

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/olablt/gio-amap/logger"
	"github.com/olablt/gio-amap/tiles"
)

var ErrMissingCenter = errors.New(`missing key "center"`)

// DefaultCenter is used by the CLI when no centre is given
var DefaultCenter = tiles.LngLat{Lng: 120.005627, Lat: 31.790637}

// Config is what a map is constructed with
type Config struct {
	// Geographic centre of the view
	Center tiles.LngLat `json:"-"`
	// Initial zoom, rejected with a warning when outside 3..18
	Zoom int `default:"16" json:"zoom"`
	// Whether pan deltas move the map
	Draggable bool `default:"true" json:"draggable"`
	// Concurrent tile fetches
	Workers int `default:"6" validate:"min=1,max=64" json:"workers"`
}

// NewConfig returns a config with defaults applied and the given centre
func NewConfig(center tiles.LngLat) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return cfg, err
	}
	cfg.Center = center
	return cfg, cfg.Validate()
}

func (cfg *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig reads a JSON config file such as
// {"center": [120.005627, 31.790637], "zoom": 16, "draggable": true}
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err = json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("loading config %s: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) UnmarshalJSON(data []byte) error {
	err := defaults.Set(cfg)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, cfg, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	// Center
	rawCenter, ok := specials["center"]
	if !ok {
		return ErrMissingCenter
	}
	cfg.Center, err = unmarshalCenter(rawCenter)
	if err != nil {
		return err
	}
	delete(specials, "center")

	if len(specials) > 0 {
		unknown := make([]string, 0, len(specials))
		for k := range specials {
			unknown = append(unknown, k)
		}
		sort.Strings(unknown)
		logger.L().Warn("config_unknown_keys", "keys", unknown)
	}

	return cfg.Validate()
}

// unmarshalCenter accepts [lng, lat] or {"lng": .., "lat": ..}
func unmarshalCenter(raw interface{}) (tiles.LngLat, error) {
	var ll tiles.LngLat
	switch v := raw.(type) {
	case []interface{}:
		if len(v) != 2 {
			return ll, fmt.Errorf("center must be [lng, lat], got %d values", len(v))
		}
		lng, okLng := v[0].(float64)
		lat, okLat := v[1].(float64)
		if !okLng || !okLat {
			return ll, fmt.Errorf("center must hold numbers, got %v", v)
		}
		return tiles.LngLat{Lng: lng, Lat: lat}, nil
	case map[string]interface{}:
		lng, okLng := v["lng"].(float64)
		lat, okLat := v["lat"].(float64)
		if !okLng || !okLat {
			return ll, fmt.Errorf(`center must have numeric "lng" and "lat", got %v`, v)
		}
		return tiles.LngLat{Lng: lng, Lat: lat}, nil
	}
	return ll, fmt.Errorf("unsupported center %v", raw)
}

// ParseCenter parses a JSON centre such as [120.005627, 31.790637]
func ParseCenter(s string) (tiles.LngLat, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return tiles.LngLat{}, fmt.Errorf("parsing center %q: %w", s, err)
	}
	return unmarshalCenter(raw)
}
