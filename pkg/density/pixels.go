package density

import (
	"image"

	"golang.org/x/image/draw"
)

// PixelBuffer is a decoded RGB image handed to [Build].
// Pix holds 3 bytes per pixel in row-major order; the pixel at (x, y)
// starts at Pix[(y*Width+x)*3].
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer returns a zeroed (black) buffer of the given size.
func NewPixelBuffer(w, h int) PixelBuffer {
	if w < 0 || h < 0 {
		w, h = 0, 0
	}
	return PixelBuffer{Width: w, Height: h, Pix: make([]uint8, w*h*3)}
}

// Len returns the number of pixels.
func (p PixelBuffer) Len() int {
	return p.Width * p.Height
}

// Set stores an RGB value at (x, y). Out-of-bounds writes are ignored.
func (p PixelBuffer) Set(x, y int, r, g, b uint8) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	i := (y*p.Width + x) * 3
	p.Pix[i], p.Pix[i+1], p.Pix[i+2] = r, g, b
}

// Luminance returns the normalized luminance of pixel i in [0, 1].
func (p PixelBuffer) Luminance(i int) float64 {
	o := i * 3
	return Luminance(p.Pix[o], p.Pix[o+1], p.Pix[o+2])
}

// Luminance weighs 8-bit channels with the Rec. 709 coefficients.
func Luminance(r, g, b uint8) float64 {
	return (0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)) / 255
}

// FromImage copies img into a PixelBuffer. Colors are read unpremultiplied,
// so a half-transparent white pixel counts as white. Fully transparent
// pixels read as black.
func FromImage(img image.Image) PixelBuffer {
	r := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Rect.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
		draw.Draw(nrgba, nrgba.Rect, img, r.Min, draw.Src)
	}

	p := NewPixelBuffer(r.Dx(), r.Dy())
	for y := 0; y < p.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := 0; x < p.Width; x++ {
			s := row[x*4:]
			if s[3] == 0 {
				continue
			}
			p.Set(x, y, s[0], s[1], s[2])
		}
	}
	return p
}
