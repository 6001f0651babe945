package density

import (
	"math/rand/v2"
	"sort"
)

// Sample draws one point from the field using rng.
//
// The pixel is chosen by inverting the cumulative distribution: the smallest
// index whose cumulative weight reaches a uniform target in [0, Total). The
// result adds uniform jitter in [0, 1) to the pixel's x and y so repeated
// draws from one pixel do not coincide.
//
// A field with no mass (Total <= 0) yields a uniform point over the image.
func (f *Field) Sample(rng *rand.Rand) (x, y float64) {
	w, h := float64(f.Width), float64(f.Height)
	if f.Total <= 0 {
		return rng.Float64() * w, rng.Float64() * h
	}

	idx := f.search(rng.Float64() * f.Total)
	x = float64(idx%f.Width) + rng.Float64()
	y = float64(idx/f.Width) + rng.Float64()
	return x, y
}

// search returns the smallest i with Cumulative[i] >= target.
func (f *Field) search(target float64) int {
	i := sort.SearchFloat64s(f.Cumulative, target)
	// Rounding can leave the last prefix sum a hair below target.
	if i >= len(f.Cumulative) {
		i = len(f.Cumulative) - 1
	}
	return i
}
