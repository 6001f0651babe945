package render

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/relax"
	"github.com/matzehuels/stipple/pkg/session"
)

// Formats supported by the renderers.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatJSON = "json"
)

// Formats lists every supported output format.
var Formats = []string{FormatSVG, FormatPNG, FormatJSON}

// Frame is a snapshot of a stippling run.
type Frame struct {
	Width  int
	Height int
	Points []relax.Point
	Stats  session.Stats
}

// FrameOf captures the current state of s.
func FrameOf(s *session.Session) Frame {
	return Frame{
		Width:  s.Width(),
		Height: s.Height(),
		Points: s.Points(),
		Stats:  s.Stats(),
	}
}

// Style controls how dots are drawn.
type Style struct {
	DotSize    float64 `json:"dot_size" toml:"dot_size"`
	DotColor   string  `json:"dot_color" toml:"dot_color"`
	Background string  `json:"background,omitempty" toml:"background"`
}

// Default style values.
const (
	DefaultDotSize  = 2.0
	DefaultDotColor = "#111111"
)

// DefaultStyle returns near-black dots of the default size without background.
func DefaultStyle() Style {
	return Style{DotSize: DefaultDotSize, DotColor: DefaultDotColor}
}

// Radius returns the circle radius for the style.
func (s Style) Radius() float64 {
	return s.DotSize * 0.5
}

// Validate checks dot size and colors.
func (s Style) Validate() error {
	if err := errors.ValidatePositive("dot size", s.DotSize); err != nil {
		return err
	}
	if err := errors.ValidateColor(s.DotColor); err != nil {
		return err
	}
	if s.Background != "" {
		return errors.ValidateColor(s.Background)
	}
	return nil
}

func (s Style) withDefaults() Style {
	if s.DotSize <= 0 {
		s.DotSize = DefaultDotSize
	}
	if s.DotColor == "" {
		s.DotColor = DefaultDotColor
	}
	return s
}

// parseColor converts a hex color into an opaque color.Color.
func parseColor(hex string) (color.Color, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidColor, err, "invalid color %q", hex)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
