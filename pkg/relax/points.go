// Package relax spreads stipple points over a density field by repeated
// weighted Lloyd relaxation.
//
// A [PointSet] starts from independent draws of the field. Each [PointSet.Step]
// draws a batch of weighted samples, hands every sample to its nearest point,
// and moves each point toward the centroid of the samples it received. Points
// that received nothing are re-drawn from the field so none stay stranded in
// empty regions.
//
// The nearest-point search is a linear scan. It is O(samples × points) per step
// and dominates the run time; for the point counts this package targets
// (hundreds to a few thousand) the scan beats the setup cost of a spatial
// index. Ties go to the lowest index.
//
// A PointSet is not safe for concurrent use. Several PointSets may share one
// [density.Field] because steps only read it.
package relax

import (
	"math"
	"math/rand/v2"

	"github.com/matzehuels/stipple/pkg/density"
	"github.com/matzehuels/stipple/pkg/errors"
)

// Sample budget bounds for a single step.
const (
	MinSamples = 2000
	MaxSamples = 220000
)

// Point is a position in continuous image space.
type Point struct {
	X, Y float64
}

// PointSet holds N point positions and the scratch accumulators one
// relaxation step needs. N is fixed for the lifetime of the set.
type PointSet struct {
	x, y []float64

	// Per-step scratch, reset at the start of every Step.
	sumX, sumY []float64
	count      []uint32

	iteration int
}

// Initialize draws n points from f. It fails with INVALID_PARAMETER when
// n <= 0 or f is nil.
func Initialize(f *density.Field, n int, rng *rand.Rand) (*PointSet, error) {
	if n <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "point count must be positive, got %d", n)
	}
	if f == nil {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "density field is required")
	}

	p := &PointSet{
		x:     make([]float64, n),
		y:     make([]float64, n),
		sumX:  make([]float64, n),
		sumY:  make([]float64, n),
		count: make([]uint32, n),
	}
	for i := range p.x {
		p.x[i], p.y[i] = f.Sample(rng)
	}
	return p, nil
}

// SampleBudget returns the number of samples a step draws for n points.
func SampleBudget(samplesPerPoint, n int) int {
	return min(MaxSamples, max(MinSamples, samplesPerPoint*n))
}

// Step performs one relaxation iteration against f.
//
// relax blends each point toward its sample centroid: 1 moves it all the way
// (a plain Lloyd step), 0 leaves it in place. Values outside [0, 1] are
// clamped and samplesPerPoint below 1 counts as 1. A point that received no
// sample is replaced by a fresh draw regardless of relax.
func (p *PointSet) Step(f *density.Field, samplesPerPoint int, relax float64, rng *rand.Rand) {
	n := len(p.x)
	relax = clampUnit(relax)
	budget := SampleBudget(max(1, samplesPerPoint), n)

	clear(p.sumX)
	clear(p.sumY)
	clear(p.count)

	xs, ys := p.x, p.y
	for s := 0; s < budget; s++ {
		sx, sy := f.Sample(rng)
		best := nearest(xs, ys, sx, sy)
		p.sumX[best] += sx
		p.sumY[best] += sy
		p.count[best]++
	}

	for i := 0; i < n; i++ {
		if c := p.count[i]; c > 0 {
			cx := p.sumX[i] / float64(c)
			cy := p.sumY[i] / float64(c)
			xs[i] += (cx - xs[i]) * relax
			ys[i] += (cy - ys[i]) * relax
			continue
		}
		xs[i], ys[i] = f.Sample(rng)
	}
	p.iteration++
}

// nearest returns the index of the point closest to (sx, sy).
// Strict comparison keeps the first index on ties.
func nearest(xs, ys []float64, sx, sy float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i := range xs {
		dx := sx - xs[i]
		dy := sy - ys[i]
		if d := dx*dx + dy*dy; d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return max(0, min(1, v))
}

// Len returns the number of points.
func (p *PointSet) Len() int {
	return len(p.x)
}

// Iteration returns the number of steps applied since Initialize.
func (p *PointSet) Iteration() int {
	return p.iteration
}

// Points returns a copy of all positions.
func (p *PointSet) Points() []Point {
	pts := make([]Point, len(p.x))
	for i := range pts {
		pts[i] = Point{X: p.x[i], Y: p.y[i]}
	}
	return pts
}

// Counts returns a copy of the per-point sample counts of the last step.
// It is all zeros before the first step.
func (p *PointSet) Counts() []uint32 {
	return append([]uint32(nil), p.count...)
}
