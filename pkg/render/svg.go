package render

import (
	"bytes"
	"fmt"
	"html"
)

// SVGOption configures SVG rendering.
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	style Style
}

// WithStyle sets dot size, color, and background.
func WithStyle(s Style) SVGOption { return func(r *svgRenderer) { r.style = s } }

// RenderSVG renders the frame as a standalone SVG document sized to the
// source image.
func RenderSVG(f Frame, opts ...SVGOption) []byte {
	r := svgRenderer{style: DefaultStyle()}
	for _, opt := range opts {
		opt(&r)
	}
	st := r.style.withDefaults()

	var buf bytes.Buffer
	buf.Grow(96 + 48*len(f.Points))
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		f.Width, f.Height, f.Width, f.Height)

	if st.Background != "" {
		fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", html.EscapeString(st.Background))
	}

	fmt.Fprintf(&buf, `<g fill="%s" stroke="none">`+"\n", html.EscapeString(st.DotColor))
	radius := st.Radius()
	for _, p := range f.Points {
		fmt.Fprintf(&buf, `<circle cx="%.2f" cy="%.2f" r="%.2f"/>`+"\n", p.X, p.Y, radius)
	}
	buf.WriteString("</g>\n</svg>\n")
	return buf.Bytes()
}
