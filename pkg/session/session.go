// Package session drives an interactive stippling run.
//
// A [Session] owns one density field, one point set, the random source and
// the tunable parameters. It replaces any ambient "current image" state:
// everything a run needs hangs off the Session value, and reinitialization
// is an explicit call.
//
// # Usage
//
//	s, err := session.New(pixels, session.Params{PointCount: 4000, Gamma: 1.2, Relax: 1})
//	if err != nil {
//	    return err
//	}
//	err = s.Run(ctx, 40, func(st session.Stats) {
//	    log.Info("step", "iteration", st.Iteration)
//	})
//
// Parameter setters take effect on the next step. Changing the point count
// or the density mapping re-initializes the points because their previous
// positions no longer describe the field.
//
// A Session is not safe for concurrent use; callers serialize access (the
// interactive driver runs every step on its own goroutine and hands results
// back as messages).
package session

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/matzehuels/stipple/pkg/density"
	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/relax"
)

// Default parameter values.
const (
	DefaultPointCount      = 4000
	DefaultGamma           = 1.0
	DefaultRelax           = 1.0
	DefaultSamplesPerPoint = 30
	DefaultSeed            = 42
)

// Params configures a Session.
type Params struct {
	PointCount      int
	Gamma           float64
	Invert          bool
	Relax           float64
	SamplesPerPoint int
	Seed            uint64
}

// SetDefaults fills zero fields with package defaults. Relax and Invert are
// left alone since their zero values are meaningful.
func (p *Params) SetDefaults() {
	if p.PointCount == 0 {
		p.PointCount = DefaultPointCount
	}
	if p.Gamma == 0 {
		p.Gamma = DefaultGamma
	}
	if p.SamplesPerPoint == 0 {
		p.SamplesPerPoint = DefaultSamplesPerPoint
	}
	if p.Seed == 0 {
		p.Seed = DefaultSeed
	}
}

// Stats summarizes the state of a Session after its most recent step.
type Stats struct {
	Iteration    int           `json:"iteration"`
	PointCount   int           `json:"point_count"`
	TotalDensity float64       `json:"total_density"`
	Degenerate   bool          `json:"degenerate"`
	Samples      int           `json:"samples_per_step"`
	LastStep     time.Duration `json:"last_step_ns"`

	// Orphans counts the points that received no sample in the last step
	// and were re-drawn from the field.
	Orphans int `json:"orphans"`
}

// LastStepMs returns the duration of the last step in milliseconds.
func (s Stats) LastStepMs() float64 {
	return float64(s.LastStep) / float64(time.Millisecond)
}

// Session is a stippling run over one image.
type Session struct {
	pixels density.PixelBuffer
	params Params
	rng    *rand.Rand

	field    *density.Field
	points   *relax.PointSet
	lastStep time.Duration
}

// New builds the density field for pixels and draws the initial points.
// Zero-valued params take package defaults (see [Params.SetDefaults]).
func New(pixels density.PixelBuffer, params Params) (*Session, error) {
	params.SetDefaults()
	if params.PointCount < 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "point count must be positive, got %d", params.PointCount)
	}

	s := &Session{
		pixels: pixels,
		params: params,
		rng:    rand.New(rand.NewPCG(params.Seed, params.Seed^0xdeadbeef)),
	}
	if err := s.rebuild(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) rebuild() error {
	f, err := density.Build(s.pixels, s.params.Gamma, s.params.Invert)
	if err != nil {
		return err
	}
	s.field = f
	return s.reinitialize()
}

func (s *Session) reinitialize() error {
	pts, err := relax.Initialize(s.field, s.params.PointCount, s.rng)
	if err != nil {
		return err
	}
	s.points = pts
	s.lastStep = 0
	return nil
}

// Step performs one relaxation step and returns the resulting stats.
func (s *Session) Step() Stats {
	start := time.Now()
	s.points.Step(s.field, s.params.SamplesPerPoint, s.params.Relax, s.rng)
	s.lastStep = time.Since(start)
	return s.Stats()
}

// Run steps until the iteration count reaches target, calling onStep (if
// non-nil) after each step. The context is checked between steps; a
// cancelled run returns ctx.Err() and keeps the points reached so far.
func (s *Session) Run(ctx context.Context, target int, onStep func(Stats)) error {
	for s.points.Iteration() < target {
		if err := ctx.Err(); err != nil {
			return err
		}
		st := s.Step()
		if onStep != nil {
			onStep(st)
		}
	}
	return nil
}

// Reset rebuilds the field and redraws every point with the current
// parameters. The random stream continues; it is not reseeded.
func (s *Session) Reset() error {
	return s.rebuild()
}

// Reseed restarts the random stream from seed and resets the run.
func (s *Session) Reseed(seed uint64) error {
	s.params.Seed = seed
	s.rng = rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	return s.rebuild()
}

// SetPointCount re-initializes the run with n points. The field is kept.
func (s *Session) SetPointCount(n int) error {
	if n <= 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "point count must be positive, got %d", n)
	}
	s.params.PointCount = n
	return s.reinitialize()
}

// SetDensity changes the density mapping, rebuilding the field and
// re-initializing the points. On error the previous state is kept.
func (s *Session) SetDensity(gamma float64, invert bool) error {
	f, err := density.Build(s.pixels, gamma, invert)
	if err != nil {
		return err
	}
	s.params.Gamma, s.params.Invert = gamma, invert
	s.field = f
	return s.reinitialize()
}

// SetRelax sets the blend factor used by subsequent steps.
func (s *Session) SetRelax(r float64) {
	s.params.Relax = r
}

// SetSamplesPerPoint sets the per-point sample budget of subsequent steps.
func (s *Session) SetSamplesPerPoint(n int) {
	s.params.SamplesPerPoint = max(1, n)
}

// Stats reports the current state.
func (s *Session) Stats() Stats {
	st := Stats{
		Iteration:    s.points.Iteration(),
		PointCount:   s.points.Len(),
		TotalDensity: s.field.Total,
		Degenerate:   s.field.Degenerate,
		Samples:      relax.SampleBudget(s.params.SamplesPerPoint, s.points.Len()),
		LastStep:     s.lastStep,
	}
	if st.Iteration > 0 {
		for _, c := range s.points.Counts() {
			if c == 0 {
				st.Orphans++
			}
		}
	}
	return st
}

// Points returns a copy of the current point positions.
func (s *Session) Points() []relax.Point { return s.points.Points() }

// Field returns the density field. Callers must not modify it.
func (s *Session) Field() *density.Field { return s.field }

// Params returns the active parameters.
func (s *Session) Params() Params { return s.params }

// Width returns the image width in pixels.
func (s *Session) Width() int { return s.field.Width }

// Height returns the image height in pixels.
func (s *Session) Height() int { return s.field.Height }
