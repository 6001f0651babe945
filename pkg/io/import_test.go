package io

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/matzehuels/stipple/pkg/errors"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: 64, B: uint8(y * 255 / h), A: 255})
		}
	}
	return img
}

func TestDecode(t *testing.T) {
	src := testImage(12, 8)

	encoders := map[string]func(*bytes.Buffer) error{
		"png":  func(b *bytes.Buffer) error { return png.Encode(b, src) },
		"jpeg": func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) },
		"bmp":  func(b *bytes.Buffer) error { return bmp.Encode(b, src) },
	}
	for name, enc := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := enc(&buf); err != nil {
				t.Fatal(err)
			}
			img, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if b := img.Bounds(); b.Dx() != 12 || b.Dy() != 8 {
				t.Errorf("bounds = %v, want 12x8", b)
			}
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := Decode(strings.NewReader("definitely not an image"))
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Errorf("Decode(garbage) = %v, want INVALID_IMAGE", err)
	}
}

// pngHeader returns the signature and IHDR chunk of an 8-bit RGB PNG
// declaring w x h pixels. It carries no pixel data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth
	ihdr[9] = 2 // truecolor

	var b bytes.Buffer
	b.WriteString("\x89PNG\r\n\x1a\n")
	binary.Write(&b, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	b.Write(chunk)
	binary.Write(&b, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return b.Bytes()
}

func TestDecodeTooManyPixels(t *testing.T) {
	_, err := Decode(bytes.NewReader(pngHeader(12000, 12000)))
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Fatalf("Decode(12000x12000) = %v, want INVALID_IMAGE", err)
	}
	if !strings.Contains(err.Error(), "12000x12000") {
		t.Errorf("error %q should name the declared size", err)
	}
}

func TestDecodeAfterHeaderCheck(t *testing.T) {
	// The header is read twice; a full decode must still see every byte.
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(300, 200)); err != nil {
		t.Fatal(err)
	}
	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := img.At(299, 199); got == (color.RGBA{}) {
		t.Errorf("last pixel = %v, want decoded data", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.png")
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(5, 4)); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 5 || b.Dy() != 4 {
		t.Errorf("bounds = %v", b)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("nope"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing", filepath.Join(dir, "missing.png"), errors.ErrCodeFileNotFound},
		{"undecodable", bad, errors.ErrCodeInvalidImage},
		{"empty path", "", errors.ErrCodeInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			if !errors.Is(err, tt.code) {
				t.Errorf("Load(%q) = %v, want %s", tt.path, err, tt.code)
			}
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxDim int
		wantW, wantH int
	}{
		{"landscape", 1000, 500, 100, 100, 50},
		{"portrait", 300, 900, 300, 100, 300},
		{"already fits", 80, 60, 100, 80, 60},
		{"disabled", 500, 500, 0, 500, 500},
		{"thin strip", 1000, 2, 100, 100, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testImage(tt.w, tt.h)
			got := Fit(src, tt.maxDim)
			if b := got.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("Fit() size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
			if tt.w <= tt.maxDim && tt.h <= tt.maxDim && got != image.Image(src) {
				t.Error("Fit should return images within bounds unchanged")
			}
		})
	}
}

func TestFitNeverUpscales(t *testing.T) {
	src := testImage(10, 10)
	if got := Fit(src, 1000); got.Bounds().Dx() != 10 {
		t.Errorf("Fit upscaled to %v", got.Bounds())
	}
}
