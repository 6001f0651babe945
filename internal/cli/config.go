package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/matzehuels/stipple/pkg/cache"
	stipplerrors "github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

// =============================================================================
// Preset File
// =============================================================================

// Config is the preset file layout.
//
//	[stipple]
//	points = 6000
//	gamma = 1.4
//	relax = 0.8
//
//	[render]
//	formats = ["svg", "png"]
//	dot_color = "#1d3557"
//
//	[server]
//	addr = ":8080"
//	[server.redis]
//	addr = "localhost:6379"
type Config struct {
	Stipple StippleConfig `toml:"stipple"`
	Render  RenderConfig  `toml:"render"`
	Server  ServerConfig  `toml:"server"`
	Cache   CacheConfig   `toml:"cache"`

	path string
}

// StippleConfig holds relaxation settings. Zero values keep the defaults.
type StippleConfig struct {
	MaxDim          int     `toml:"max_dim"`
	Points          int     `toml:"points"`
	Gamma           float64 `toml:"gamma"`
	Invert          bool    `toml:"invert"`
	SamplesPerPoint int     `toml:"samples_per_point"`
	Seed            uint64  `toml:"seed"`

	// Iterations and Relax are pointers so that an explicit 0 is
	// distinguishable from unset.
	Iterations *int     `toml:"iterations"`
	Relax      *float64 `toml:"relax"`
}

// RenderConfig holds output settings. Zero values keep the defaults.
type RenderConfig struct {
	Formats    []string `toml:"formats"`
	DotSize    float64  `toml:"dot_size"`
	DotColor   string   `toml:"dot_color"`
	Background string   `toml:"background"`
	ShowSource bool     `toml:"show_source"`
	Scale      float64  `toml:"scale"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Addr           string            `toml:"addr"`
	KeyPrefix      string            `toml:"key_prefix"`
	RequestTimeout time.Duration     `toml:"request_timeout"`
	Redis          cache.RedisConfig `toml:"redis"`
}

// CacheConfig configures the local artifact cache.
type CacheConfig struct {
	Dir      string `toml:"dir"`
	Disabled bool   `toml:"disabled"`
}

// defaultConfigPath returns the preset path under configDir, or "" when no
// home directory can be determined.
func defaultConfigPath() string {
	dir, err := configDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, configFile)
}

// loadConfig decodes the preset file at path. A missing file is only an
// error when the path was given explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	cfg.path = path
	return cfg, nil
}

// Options returns pipeline defaults overlaid with the preset values.
func (c Config) Options() pipeline.Options {
	o := pipeline.DefaultOptions()
	s, r := c.Stipple, c.Render

	if s.MaxDim != 0 {
		o.MaxDim = s.MaxDim
	}
	if s.Points != 0 {
		o.Points = s.Points
	}
	if s.Iterations != nil {
		o.Iterations = *s.Iterations
	}
	if s.Gamma != 0 {
		o.Gamma = s.Gamma
	}
	if s.SamplesPerPoint != 0 {
		o.SamplesPerPoint = s.SamplesPerPoint
	}
	if s.Seed != 0 {
		o.Seed = s.Seed
	}
	if s.Relax != nil {
		o.Relax = *s.Relax
	}
	o.Invert = s.Invert

	if len(r.Formats) > 0 {
		o.Formats = r.Formats
	}
	if r.DotSize != 0 {
		o.DotSize = r.DotSize
	}
	if r.DotColor != "" {
		o.DotColor = r.DotColor
	}
	if r.Background != "" {
		o.Background = r.Background
	}
	if r.Scale != 0 {
		o.Scale = r.Scale
	}
	o.ShowSource = r.ShowSource
	return o
}

// =============================================================================
// Stippling Flags
// =============================================================================

// optionFlags binds the pipeline options shared by render, watch, and serve.
type optionFlags struct {
	opts    pipeline.Options
	formats string
}

// register adds the option flags to fs. withRender adds the output flags.
func (f *optionFlags) register(fs *pflag.FlagSet, withRender bool) {
	d := pipeline.DefaultOptions()
	fs.IntVar(&f.opts.Points, "points", d.Points, "number of stipple points")
	fs.IntVar(&f.opts.Iterations, "iterations", d.Iterations, "relaxation steps")
	fs.Float64Var(&f.opts.Gamma, "gamma", d.Gamma, "density curve exponent (> 0)")
	fs.BoolVar(&f.opts.Invert, "invert", false, "place dots on light regions instead of dark")
	fs.Float64Var(&f.opts.Relax, "relax", d.Relax, "centroid blend per step, 0..1")
	fs.IntVar(&f.opts.SamplesPerPoint, "spp", d.SamplesPerPoint, "samples per point per step")
	fs.Uint64Var(&f.opts.Seed, "seed", d.Seed, "random seed")
	fs.IntVar(&f.opts.MaxDim, "max-dim", d.MaxDim, "longest image side after fitting")
	if !withRender {
		return
	}
	fs.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), png, json (comma-separated)")
	fs.Float64Var(&f.opts.DotSize, "dot-size", d.DotSize, "dot diameter in pixels")
	fs.StringVar(&f.opts.DotColor, "dot-color", d.DotColor, "dot color (#rgb or #rrggbb)")
	fs.StringVar(&f.opts.Background, "background", "", "background color (default transparent SVG, white PNG)")
	fs.BoolVar(&f.opts.ShowSource, "show-source", false, "draw the source image under the dots (PNG)")
	fs.Float64Var(&f.opts.Scale, "scale", d.Scale, "PNG scale factor")
}

// apply overlays every flag the user set on base. Flags whose zero value
// would be mistaken for "unset" must be positive when given.
func (f *optionFlags) apply(fs *pflag.FlagSet, base pipeline.Options) (pipeline.Options, error) {
	o := base
	var err error
	set := func(name string, fn func()) {
		if fl := fs.Lookup(name); fl != nil && fl.Changed {
			fn()
		}
	}
	positive := func(name string, v float64) {
		if fl := fs.Lookup(name); err == nil && fl != nil && fl.Changed && !(v > 0) {
			err = stipplerrors.New(stipplerrors.ErrCodeInvalidParameter, "--%s must be positive, got %v", name, v)
		}
	}
	set("points", func() { o.Points = f.opts.Points })
	set("iterations", func() { o.Iterations = f.opts.Iterations })
	set("gamma", func() { o.Gamma = f.opts.Gamma })
	set("invert", func() { o.Invert = f.opts.Invert })
	set("relax", func() { o.Relax = f.opts.Relax })
	set("spp", func() { o.SamplesPerPoint = f.opts.SamplesPerPoint })
	set("seed", func() { o.Seed = f.opts.Seed })
	set("max-dim", func() { o.MaxDim = f.opts.MaxDim })
	set("format", func() { o.Formats = parseFormats(f.formats) })
	set("dot-size", func() { o.DotSize = f.opts.DotSize })
	set("dot-color", func() { o.DotColor = f.opts.DotColor })
	set("background", func() { o.Background = f.opts.Background })
	set("show-source", func() { o.ShowSource = f.opts.ShowSource })
	set("scale", func() { o.Scale = f.opts.Scale })

	positive("points", float64(f.opts.Points))
	positive("gamma", f.opts.Gamma)
	positive("spp", float64(f.opts.SamplesPerPoint))
	positive("max-dim", float64(f.opts.MaxDim))
	positive("dot-size", f.opts.DotSize)
	positive("scale", f.opts.Scale)
	return o, err
}
