package density

import (
	"math"

	"github.com/matzehuels/stipple/pkg/errors"
)

// DegenerateThreshold is the total weight at or below which a field is
// replaced by the uniform distribution.
const DegenerateThreshold = 1e-6

// Field is a per-pixel weight map and its cumulative distribution.
type Field struct {
	// Width and Height are the dimensions of the source image.
	Width, Height int

	// Weight holds one weight per pixel, row-major.
	Weight []float64

	// Cumulative[i] is the sum of Weight[0..i]. It is non-decreasing.
	Cumulative []float64

	// Total equals Cumulative[len-1].
	Total float64

	// Degenerate is set when the computed weights summed to at most
	// DegenerateThreshold and the field was replaced by a uniform one.
	Degenerate bool

	// Gamma and Invert record the parameters the field was built with.
	Gamma  float64
	Invert bool
}

// Build computes the density field of px.
//
// It fails with INVALID_PARAMETER when the buffer is empty, when its pixel
// slice does not match its dimensions, or when gamma is not a positive
// finite number. All validation happens before any allocation.
func Build(px PixelBuffer, gamma float64, invert bool) (*Field, error) {
	if px.Width <= 0 || px.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter,
			"pixel buffer must not be empty, got %dx%d", px.Width, px.Height)
	}
	n := px.Len()
	if len(px.Pix) != n*3 {
		return nil, errors.New(errors.ErrCodeInvalidParameter,
			"pixel buffer holds %d bytes, want %d for %dx%d", len(px.Pix), n*3, px.Width, px.Height)
	}
	if err := errors.ValidatePositive("gamma", gamma); err != nil {
		return nil, err
	}

	f := &Field{
		Width:      px.Width,
		Height:     px.Height,
		Weight:     make([]float64, n),
		Cumulative: make([]float64, n),
		Gamma:      gamma,
		Invert:     invert,
	}

	var total float64
	for i := 0; i < n; i++ {
		lum := px.Luminance(i)
		d := 1 - lum
		if invert {
			d = lum
		}
		d = math.Pow(math.Max(0, d), gamma)
		f.Weight[i] = d
		total += d
		f.Cumulative[i] = total
	}

	if total <= DegenerateThreshold {
		f.makeUniform()
		return f, nil
	}
	f.Total = total
	return f, nil
}

func (f *Field) makeUniform() {
	for i := range f.Weight {
		f.Weight[i] = 1
		f.Cumulative[i] = float64(i + 1)
	}
	f.Total = float64(len(f.Weight))
	f.Degenerate = true
}

// Len returns the number of pixels covered by the field.
func (f *Field) Len() int {
	return len(f.Weight)
}

// WeightAt returns the weight of pixel (x, y), or 0 out of bounds.
func (f *Field) WeightAt(x, y int) float64 {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0
	}
	return f.Weight[y*f.Width+x]
}

// Centroid returns the weighted centre of mass in continuous image space.
// Each pixel's weight sits at the pixel centre, which is also the mean of
// the jittered samples drawn from it.
func (f *Field) Centroid() (x, y float64) {
	if f.Total <= 0 {
		return float64(f.Width) / 2, float64(f.Height) / 2
	}
	var wx, wy float64
	for i, w := range f.Weight {
		if w == 0 {
			continue
		}
		wx += w * (float64(i%f.Width) + 0.5)
		wy += w * (float64(i/f.Width) + 0.5)
	}
	return wx / f.Total, wy / f.Total
}

// Contains reports whether (x, y) lies inside [0,Width) x [0,Height).
func (f *Field) Contains(x, y float64) bool {
	return x >= 0 && y >= 0 && x < float64(f.Width) && y < float64(f.Height)
}
