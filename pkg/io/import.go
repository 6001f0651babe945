package io

import (
	"bufio"
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/matzehuels/stipple/pkg/errors"
)

const (
	// MaxUploadBytes bounds how much Decode reads from a stream.
	MaxUploadBytes = 32 << 20

	// MaxDecodePixels bounds the raster Decode allocates. A small compressed
	// file can declare a huge canvas, so the header is checked first.
	MaxDecodePixels = 1 << 25
)

// Load opens and decodes the image at path.
func Load(path string) (image.Image, error) {
	if err := errors.ValidatePath(path, false); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "image %s not found", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open %s", path)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "load %s", path)
	}
	return img, nil
}

// Decode reads one image from r. At most MaxUploadBytes are consumed, and
// images declaring more than MaxDecodePixels pixels are rejected before
// their pixels are decoded.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(io.LimitReader(r, MaxUploadBytes))

	var header bytes.Buffer
	cfg, format, err := image.DecodeConfig(io.TeeReader(br, &header))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode image")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidImage, "%s image has no pixels", format)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxDecodePixels {
		return nil, errors.New(errors.ErrCodeInvalidImage,
			"%s image is %dx%d, larger than %d pixels", format, cfg.Width, cfg.Height, MaxDecodePixels)
	}

	img, _, err := image.Decode(io.MultiReader(&header, br))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidImage, err, "decode image")
	}
	return img, nil
}

// Fit scales img so that neither side exceeds maxDim, keeping the aspect
// ratio. Images already within bounds are returned unchanged, and maxDim <= 0
// disables scaling. Each side of the result is at least one pixel.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}

	nw, nh := FitSize(w, h, maxDim)
	return imaging.Resize(img, nw, nh, imaging.CatmullRom)
}

// FitSize returns the dimensions Fit would produce for a w x h image.
func FitSize(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	scale := float64(maxDim) / float64(max(w, h))
	nw := max(1, int(float64(w)*scale+0.5))
	nh := max(1, int(float64(h)*scale+0.5))
	return min(nw, maxDim), min(nh, maxDim)
}
