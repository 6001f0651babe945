// Package io loads source images and writes rendered artifacts.
//
// # Import
//
// [Load] reads an image from a file path and [Decode] reads one from any
// io.Reader (for example an HTTP upload). PNG, JPEG, GIF, BMP, TIFF, and WebP
// are recognized by their content, not their extension:
//
//	img, err := io.Load("portrait.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	img = io.Fit(img, 800)
//
// [Fit] scales an image down so its longest side is at most a given size.
// Relaxation cost grows with the sample budget, not the pixel count, but the
// density field is built per pixel, so large photos are fitted first.
//
// Errors carry codes from pkg/errors: a missing file is FILE_NOT_FOUND and
// content that no decoder accepts is INVALID_IMAGE.
//
// # Export
//
// [WriteFile] writes an artifact, creating parent directories as needed.
// [OutputPath] derives an output file name from an input path and format.
package io
