// Package render turns relaxed point sets into output artifacts.
//
// Every renderer takes a [Frame] (image size, point positions, run stats)
// and functional options:
//
//	svg := render.RenderSVG(frame, render.WithStyle(style))
//	png, err := render.RenderPNG(frame, render.WithPNGStyle(style), render.WithScale(2))
//	js, err := render.RenderJSON(frame, render.WithRunID(id))
//
// A [Style] sets the dot diameter, dot color, and optional background. Dot
// size is a diameter in image pixels; circles are drawn with half of it as
// radius. Colors are hex strings ("#000", "#1a1a1a").
//
// # Formats
//
//   - SVG: one <circle> per point inside a single filled group, coordinates
//     in image space with two decimals. Scales losslessly.
//   - PNG: rasterized with fogleman/gg, optionally over a faded copy of the
//     source image ([WithSource]).
//   - JSON: dimensions, radius, stats, and raw positions for further
//     processing.
package render
