package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/observability"
	"github.com/matzehuels/stipple/pkg/render"
)

// Runner encapsulates pipeline execution with caching.
//
// The Runner is stateless except for the cache and logger; it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete prepare → relax → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{RunID: uuid.New()}
	logger := opts.Logger.With("run", result.RunID.String()[:8])
	opts.Logger = logger

	// Stage 1: Prepare
	prepStart := time.Now()
	in := Prepare(img, opts)
	result.Width, result.Height = in.Pixels.Width, in.Pixels.Height
	result.ImageHash = in.Hash
	result.Timing.PrepareTime = time.Since(prepStart)

	logger.Debug("prepared image",
		"width", result.Width,
		"height", result.Height,
		"hash", in.Hash[:12])

	if !opts.Refresh {
		if artifacts, ok := r.lookup(ctx, in.Hash, opts); ok {
			result.Artifacts = artifacts
			result.CacheHit = true
			logger.Info("using cached artifacts", "formats", opts.Formats)
			return result, nil
		}
	}

	// Stage 2: Relax
	relaxStart := time.Now()
	s, err := Relax(ctx, in, opts)
	if err != nil {
		return nil, fmt.Errorf("relax: %w", err)
	}
	result.Timing.RelaxTime = time.Since(relaxStart)
	frame := render.FrameOf(s)
	result.Points = frame.Points
	result.Stats = frame.Stats

	logger.Info("relaxed points",
		"points", result.Stats.PointCount,
		"iterations", result.Stats.Iteration,
		"duration", result.Timing.RelaxTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, err := Render(ctx, frame, in.Image, result.RunID, opts)
	result.Timing.RenderTime = time.Since(renderStart)
	observability.Relax().OnRenderComplete(ctx, opts.Formats, result.Timing.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Timing.RenderTime)

	r.store(ctx, in.Hash, opts, artifacts)
	return result, nil
}

// lookup returns cached artifacts when every requested format is present.
func (r *Runner) lookup(ctx context.Context, imageHash string, opts Options) (map[string][]byte, bool) {
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(imageHash, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			opts.Logger.Warn("cache lookup failed", "format", format, "error", err)
		}
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, "artifact")
			return nil, false
		}
		hooks.OnCacheHit(ctx, "artifact")
		artifacts[format] = data
	}
	return artifacts, true
}

// store writes artifacts to the cache. Failures are logged, not returned.
func (r *Runner) store(ctx context.Context, imageHash string, opts Options, artifacts map[string][]byte) {
	hooks := observability.Cache()
	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(imageHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
			opts.Logger.Warn("cache store failed", "format", format, "error", err)
			continue
		}
		hooks.OnCacheSet(ctx, "artifact", len(data))
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
