// Package density turns pixel intensities into a sampling distribution.
//
// # Overview
//
// A [Field] holds one non-negative weight per pixel together with the running
// (prefix) sum of those weights. The prefix sum is what makes the field a
// distribution: drawing a uniform value in [0, Total) and binary-searching the
// cumulative array yields a pixel with probability proportional to its weight.
//
// # Weights
//
// Each weight is derived from the pixel's Rec. 709 luminance:
//
//	lum    = (0.2126·R + 0.7152·G + 0.0722·B) / 255
//	weight = max(0, invert ? lum : 1-lum) ^ gamma
//
// By default dark pixels get heavy weights, so stipples crowd into shadows.
// Setting invert favors highlights instead. A gamma above 1 sharpens the
// contrast between sparse and dense regions; below 1 flattens it.
//
// # Degenerate Images
//
// When the weights sum to at most 1e-6 (a solid white image, or a solid
// black one with invert set) [Build] replaces the field with a uniform one
// and reports it through [Field.Degenerate]. Sampling therefore never
// divides by zero or starves.
//
// # Sampling
//
// [Field.Sample] draws a continuous point: the selected pixel's integer
// coordinates plus independent sub-pixel jitter in [0, 1) on each axis.
// The random source is always passed in explicitly so runs are reproducible:
//
//	rng := rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
//	f, err := density.Build(density.FromImage(img), 1.0, false)
//	x, y := f.Sample(rng)
//
// A Field is immutable after Build and safe for concurrent reads, so several
// relaxation runs may share one.
package density
