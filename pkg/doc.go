// Package pkg provides the libraries behind the stipple tool.
//
// # Overview
//
// Stipple turns an image into a stipple drawing: a set of dots whose local
// density follows the darkness of the image, spread evenly by weighted Lloyd
// relaxation. The pkg directory is organized into these areas:
//
//  1. [density] - Pixel buffers, the density field, and weighted sampling
//  2. [relax] - Point sets and the relaxation step
//  3. [session] - An interactive run owning one field and one point set
//  4. [render] - SVG, PNG, and JSON output
//  5. [pipeline] - Orchestration (prepare → relax → render) with caching
//  6. [cache], [io], [errors], [observability], [buildinfo] - Supporting infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Image file or upload
//	         ↓
//	    [io] package (decode + fit to max dimension)
//	         ↓
//	    [density] package (luminance → weights → cumulative table)
//	         ↓
//	    [relax] package (initial draws + Lloyd steps)
//	         ↓
//	    [render] package
//	         ↓
//	    SVG/PNG/JSON output
//
// # Quick Start
//
//	img, _ := io.Load("cat.jpg")
//	runner := pipeline.NewRunner(nil, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Points = 6000
//	result, err := runner.Execute(ctx, img, opts)
//	if err != nil {
//	    return err
//	}
//	os.WriteFile("cat.svg", result.Artifacts["svg"], 0644)
//
// Driving a run step by step:
//
//	s, _ := session.New(density.FromImage(img), session.Params{PointCount: 4000, Relax: 1})
//	for s.Stats().Iteration < 40 {
//	    st := s.Step()
//	    fmt.Println(st.Iteration, st.LastStepMs())
//	}
//
// [density]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/density
// [relax]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/relax
// [session]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/session
// [render]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/cache
// [io]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/io
// [errors]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/stipple/pkg/buildinfo
package pkg
