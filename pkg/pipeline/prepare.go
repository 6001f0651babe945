package pipeline

import (
	"image"

	"github.com/matzehuels/stipple/pkg/cache"
	"github.com/matzehuels/stipple/pkg/density"
	stippleio "github.com/matzehuels/stipple/pkg/io"
)

// Input is a source image ready for relaxation.
type Input struct {
	// Image is the fitted source image, kept for PNG underlays.
	Image image.Image

	// Pixels holds the RGB samples of Image.
	Pixels density.PixelBuffer

	// Hash is the content hash of Pixels.
	Hash string
}

// Prepare fits img to opts.MaxDim and extracts its pixels.
func Prepare(img image.Image, opts Options) Input {
	fitted := stippleio.Fit(img, opts.MaxDim)
	px := density.FromImage(fitted)
	return Input{
		Image:  fitted,
		Pixels: px,
		Hash:   cache.HashPixels(px.Width, px.Height, px.Pix),
	}
}
