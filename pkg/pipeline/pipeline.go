// Package pipeline provides the stippling pipeline shared by the CLI and the
// HTTP server.
//
// Running the same steps from every entry point keeps behavior, defaults, and
// caching consistent.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Prepare: fit the source image and extract its pixels
//  2. Relax: build the density field and run weighted Lloyd relaxation
//  3. Render: produce SVG, PNG, and JSON artifacts
//
// Rendered artifacts are cached by image content and options, so repeating a
// run skips the relaxation entirely.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Points = 6000
//	opts.Formats = []string{"svg", "png"}
//	result, err := runner.Execute(ctx, img, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/relax"
	"github.com/matzehuels/stipple/pkg/render"
	"github.com/matzehuels/stipple/pkg/session"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultMaxDim is the longest image side after fitting.
	DefaultMaxDim = 800

	// DefaultPoints is the number of stipple points.
	DefaultPoints = session.DefaultPointCount

	// DefaultIterations is the number of relaxation steps per run.
	DefaultIterations = 30

	// DefaultGamma is the density curve exponent.
	DefaultGamma = session.DefaultGamma

	// DefaultRelax is the centroid blend factor.
	DefaultRelax = session.DefaultRelax

	// DefaultSamplesPerPoint scales the per-step sample budget.
	DefaultSamplesPerPoint = session.DefaultSamplesPerPoint

	// DefaultSeed is the default random seed for reproducibility.
	DefaultSeed = uint64(session.DefaultSeed)

	// DefaultScale is the PNG scale factor.
	DefaultScale = 1.0
)

// Limits on request-controlled work.
const (
	MaxPoints     = 100000
	MaxIterations = 1000
	MaxDim        = 4096
)

// Format constants for output formats.
const (
	FormatSVG  = render.FormatSVG
	FormatPNG  = render.FormatPNG
	FormatJSON = render.FormatJSON
)

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a stippling run.
// It is JSON-tagged for the HTTP API and TOML-tagged for preset files.
type Options struct {
	// Image options
	MaxDim int `json:"max_dim,omitempty" toml:"max_dim"`

	// Relaxation options
	Points          int     `json:"points,omitempty" toml:"points"`
	Iterations      int     `json:"iterations,omitempty" toml:"iterations"`
	Gamma           float64 `json:"gamma,omitempty" toml:"gamma"`
	Invert          bool    `json:"invert,omitempty" toml:"invert"`
	Relax           float64 `json:"relax" toml:"relax"`
	SamplesPerPoint int     `json:"samples_per_point,omitempty" toml:"samples_per_point"`
	Seed            uint64  `json:"seed,omitempty" toml:"seed"`

	// Render options
	Formats    []string `json:"formats,omitempty" toml:"formats"`
	DotSize    float64  `json:"dot_size,omitempty" toml:"dot_size"`
	DotColor   string   `json:"dot_color,omitempty" toml:"dot_color"`
	Background string   `json:"background,omitempty" toml:"background"`
	ShowSource bool     `json:"show_source,omitempty" toml:"show_source"`
	Scale      float64  `json:"scale,omitempty" toml:"scale"`

	// Refresh skips the artifact cache lookup. Results are still stored.
	Refresh bool `json:"refresh,omitempty" toml:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger         `json:"-" toml:"-"`
	OnStep func(session.Stats) `json:"-" toml:"-"`
}

// DefaultOptions returns options with every field at its default, including
// Relax and Iterations (which SetDefaults leaves alone since zero is valid
// for both).
func DefaultOptions() Options {
	o := Options{Relax: DefaultRelax, Iterations: DefaultIterations}
	o.SetDefaults()
	return o
}

// SetDefaults fills zero-valued fields. Relax, Iterations, Invert, and
// ShowSource keep their values because their zero values are meaningful:
// zero iterations renders the initial draw.
func (o *Options) SetDefaults() {
	if o.MaxDim == 0 {
		o.MaxDim = DefaultMaxDim
	}
	if o.Points == 0 {
		o.Points = DefaultPoints
	}
	if o.Gamma == 0 {
		o.Gamma = DefaultGamma
	}
	if o.SamplesPerPoint == 0 {
		o.SamplesPerPoint = DefaultSamplesPerPoint
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.DotSize == 0 {
		o.DotSize = render.DefaultDotSize
	}
	if o.DotColor == "" {
		o.DotColor = render.DefaultDotColor
	}
	if o.Scale == 0 {
		o.Scale = DefaultScale
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// Validate checks every option. Call SetDefaults first.
func (o *Options) Validate() error {
	if o.MaxDim < 1 || o.MaxDim > MaxDim {
		return errors.New(errors.ErrCodeInvalidParameter, "max_dim must be within [1, %d], got %d", MaxDim, o.MaxDim)
	}
	if o.Points < 1 || o.Points > MaxPoints {
		return errors.New(errors.ErrCodeInvalidParameter, "points must be within [1, %d], got %d", MaxPoints, o.Points)
	}
	if o.Iterations < 0 || o.Iterations > MaxIterations {
		return errors.New(errors.ErrCodeInvalidParameter, "iterations must be within [0, %d], got %d", MaxIterations, o.Iterations)
	}
	if o.SamplesPerPoint < 1 {
		return errors.New(errors.ErrCodeInvalidParameter, "samples_per_point must be at least 1, got %d", o.SamplesPerPoint)
	}
	if err := errors.ValidatePositive("gamma", o.Gamma); err != nil {
		return err
	}
	if err := errors.ValidateUnit("relax", o.Relax); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := errors.ValidatePositive("scale", o.Scale); err != nil {
		return err
	}
	return o.Style().Validate()
}

// ValidateAndSetDefaults applies defaults and validates in one call.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// ValidateFormats checks that all formats are supported.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := errors.ValidateFormat(f, render.Formats...); err != nil {
			return err
		}
	}
	return nil
}

// Params returns the session parameters for the options.
func (o *Options) Params() session.Params {
	return session.Params{
		PointCount:      o.Points,
		Gamma:           o.Gamma,
		Invert:          o.Invert,
		Relax:           o.Relax,
		SamplesPerPoint: o.SamplesPerPoint,
		Seed:            o.Seed,
	}
}

// Style returns the dot style for the options.
func (o *Options) Style() render.Style {
	return render.Style{
		DotSize:    o.DotSize,
		DotColor:   o.DotColor,
		Background: o.Background,
	}
}

// ArtifactKeyOpts returns cache key options for one artifact format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Format:          format,
		MaxDim:          o.MaxDim,
		PointCount:      o.Points,
		Iterations:      o.Iterations,
		Gamma:           o.Gamma,
		Invert:          o.Invert,
		Relax:           o.Relax,
		SamplesPerPoint: o.SamplesPerPoint,
		Seed:            o.Seed,
		DotSize:         o.DotSize,
		DotColor:        o.DotColor,
		Background:      o.Background,
	}
	if format == FormatPNG {
		k.ShowSource = o.ShowSource
		k.Scale = o.Scale
	}
	return k
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs, JSON output, and response headers.
	RunID uuid.UUID

	// Width and Height are the fitted image dimensions.
	Width, Height int

	// ImageHash is the content hash of the fitted pixels.
	ImageHash string

	// Points holds the relaxed positions. It is nil on a cache hit.
	Points []relax.Point

	// Stats describes the final relaxation state. Zero on a cache hit.
	Stats session.Stats

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Timing contains per-stage durations.
	Timing Timing

	// CacheHit reports whether all artifacts came from cache.
	CacheHit bool
}

// Timing contains per-stage durations of a run.
type Timing struct {
	PrepareTime time.Duration
	RelaxTime   time.Duration
	RenderTime  time.Duration
}

// Total returns the summed duration of all stages.
func (t Timing) Total() time.Duration {
	return t.PrepareTime + t.RelaxTime + t.RenderTime
}
