package render_test

import (
	"fmt"

	"github.com/matzehuels/stipple/pkg/relax"
	"github.com/matzehuels/stipple/pkg/render"
)

func ExampleRenderSVG() {
	frame := render.Frame{
		Width:  10,
		Height: 10,
		Points: []relax.Point{{X: 2.5, Y: 7.25}},
	}
	fmt.Print(string(render.RenderSVG(frame, render.WithStyle(render.Style{DotSize: 1.5, DotColor: "#222"}))))
	// Output:
	// <?xml version="1.0" encoding="UTF-8"?>
	// <svg xmlns="http://www.w3.org/2000/svg" width="10" height="10" viewBox="0 0 10 10">
	// <g fill="#222" stroke="none">
	// <circle cx="2.50" cy="7.25" r="0.75"/>
	// </g>
	// </svg>
}
