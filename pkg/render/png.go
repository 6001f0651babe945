package render

import (
	"bytes"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/matzehuels/stipple/pkg/errors"
)

// SourceOpacity is the opacity of the source underlay drawn by WithSource.
const SourceOpacity = 0.35

// MaxPNGPixels bounds the raster size of a PNG render.
const MaxPNGPixels = 64 << 20

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	style  Style
	scale  float64
	source image.Image
}

// WithPNGStyle sets dot size, color, and background.
func WithPNGStyle(s Style) PNGOption { return func(r *pngRenderer) { r.style = s } }

// WithScale sets the output scale factor (default 1). A 400x300 frame at
// scale 2 produces an 800x600 PNG.
func WithScale(s float64) PNGOption { return func(r *pngRenderer) { r.scale = s } }

// WithSource draws img, faded to SourceOpacity, under the dots.
func WithSource(img image.Image) PNGOption { return func(r *pngRenderer) { r.source = img } }

// RenderPNG rasterizes the frame. Without a configured background the canvas
// is white.
func RenderPNG(f Frame, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{style: DefaultStyle(), scale: 1}
	for _, opt := range opts {
		opt(&r)
	}
	st := r.style.withDefaults()
	if err := errors.ValidatePositive("scale", r.scale); err != nil {
		return nil, err
	}

	w := max(1, int(math.Round(float64(f.Width)*r.scale)))
	h := max(1, int(math.Round(float64(f.Height)*r.scale)))
	if w*h > MaxPNGPixels {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "png of %dx%d exceeds the %d pixel limit", w, h, MaxPNGPixels)
	}

	bg := color.Color(color.White)
	if st.Background != "" {
		c, err := parseColor(st.Background)
		if err != nil {
			return nil, err
		}
		bg = c
	}
	dot, err := parseColor(st.DotColor)
	if err != nil {
		return nil, err
	}

	canvas := imaging.New(w, h, bg)
	if r.source != nil {
		under := imaging.Resize(r.source, w, h, imaging.Linear)
		canvas = imaging.Overlay(canvas, under, image.Point{}, SourceOpacity)
	}

	dc := gg.NewContextForImage(canvas)
	dc.SetColor(dot)
	radius := st.Radius() * r.scale
	for _, p := range f.Points {
		dc.DrawCircle(p.X*r.scale, p.Y*r.scale, radius)
	}
	dc.Fill()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}
