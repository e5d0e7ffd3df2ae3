// Package config loads process-wide defaults from a TOML file.
//
// Configuration never reaches the diagram engine as global state. The CLI and
// the HTTP server load a [Config] once and hand the values it builds
// ([Config.Table], [Config.LayoutParams], [Config.CollectorOptions]) to
// each call explicitly.
//
// Example config.toml:
//
//	[layout]
//	leaf_size = 48
//	canvas_max_width = 2000
//
//	[taxonomy]
//	generic_icon = "img/lib/azure2/general/Resource.svg"
//
//	[taxonomy.icons]
//	"microsoft.example/widgets" = "img/custom/widget.svg"
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/azdiagram/pkg/cache"
	"github.com/matzehuels/azdiagram/pkg/collector"
	"github.com/matzehuels/azdiagram/pkg/errors"
	"github.com/matzehuels/azdiagram/pkg/layout"
	"github.com/matzehuels/azdiagram/pkg/taxonomy"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// Config is the decoded configuration file.
type Config struct {
	Layout    LayoutConfig    `toml:"layout"`
	Taxonomy  TaxonomyConfig  `toml:"taxonomy"`
	Collector CollectorConfig `toml:"collector"`
	Cache     CacheConfig     `toml:"cache"`
	History   HistoryConfig   `toml:"history"`
	Server    ServerConfig    `toml:"server"`
}

// LayoutConfig overrides layout parameters. Zero values keep the defaults.
type LayoutConfig struct {
	LeafSize        float64 `toml:"leaf_size"`
	ShrunkLeafSize  float64 `toml:"shrunk_leaf_size"`
	ShrinkThreshold int     `toml:"shrink_threshold"`
	Gap             float64 `toml:"gap"`
	LabelBand       float64 `toml:"label_band"`
	Header          float64 `toml:"header"`
	SmallGroupWidth float64 `toml:"small_group_width"`
	CanvasMaxWidth  float64 `toml:"canvas_max_width"`
	CanvasMaxHeight float64 `toml:"canvas_max_height"`
}

// TaxonomyConfig extends the built-in type tables.
type TaxonomyConfig struct {
	Icons       map[string]string `toml:"icons"`
	Order       []string          `toml:"order"`
	GenericIcon string            `toml:"generic_icon"`
}

// CollectorConfig bounds the collector's best-effort lookups.
type CollectorConfig struct {
	Limit    int      `toml:"limit"`
	MaxRefs  int      `toml:"max_refs"`
	MaxVNets int      `toml:"max_vnets"`
	Timeout  Duration `toml:"timeout"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	// TTL bounds how long a collected graph is reused.
	TTL Duration `toml:"ttl"`
}

// HistoryConfig selects the generation history store.
// DSN forms: a directory path, "sqlite://path" or "mongodb://...".
type HistoryConfig struct {
	DSN string `toml:"dsn"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration decoded from a TOML string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Collector: CollectorConfig{
			Limit:    collector.DefaultLimit,
			MaxRefs:  collector.DefaultMaxRefs,
			MaxVNets: collector.DefaultMaxVNets,
			Timeout:  Duration{2 * time.Minute},
		},
		Cache: CacheConfig{
			Backend: CacheFile,
			TTL:     Duration{cache.TTLCollect},
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Load decodes the TOML file at path over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if os.IsNotExist(err) {
		return Config{}, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file not found: %s", path)
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// LoadDefault loads the config file from the default location, or returns
// the defaults when no file exists there.
func LoadDefault() (Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return Default(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath returns $XDG_CONFIG_HOME/azdiagram/config.toml (or the
// platform equivalent).
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "azdiagram", "config.toml"), nil
}

// Validate checks the values that cannot be clamped silently.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_url is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q (use file, redis or none)", c.Cache.Backend)
	}
	if c.Collector.Limit < 0 || c.Collector.MaxRefs < 0 || c.Collector.MaxVNets < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "collector limits must not be negative")
	}
	return nil
}

// Table builds the type table: the defaults plus configured overrides.
func (c Config) Table() *taxonomy.Table {
	t := taxonomy.Default()
	if len(c.Taxonomy.Order) > 0 {
		t = t.WithOrder(c.Taxonomy.Order)
	}
	if len(c.Taxonomy.Icons) > 0 {
		t = t.WithIcons(c.Taxonomy.Icons)
	}
	t.GenericIcon = c.Taxonomy.GenericIcon
	return t
}

// LayoutParams builds layout parameters: the defaults with every non-zero
// configured value applied.
func (c Config) LayoutParams() layout.Params {
	p := layout.DefaultParams()
	l := c.Layout
	setF := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setF(&p.LeafSize, l.LeafSize)
	setF(&p.ShrunkLeafSize, l.ShrunkLeafSize)
	setF(&p.Gap, l.Gap)
	setF(&p.LabelBand, l.LabelBand)
	setF(&p.Header, l.Header)
	setF(&p.SmallGroupWidth, l.SmallGroupWidth)
	setF(&p.CanvasMaxWidth, l.CanvasMaxWidth)
	setF(&p.CanvasMaxHeight, l.CanvasMaxHeight)
	if l.ShrinkThreshold > 0 {
		p.ShrinkThreshold = l.ShrinkThreshold
	}
	return p
}

// CollectorOptions builds collector options from the [collector] section.
func (c Config) CollectorOptions() collector.Options {
	return collector.Options{
		Limit:    c.Collector.Limit,
		MaxRefs:  c.Collector.MaxRefs,
		MaxVNets: c.Collector.MaxVNets,
	}
}
