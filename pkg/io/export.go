package io

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/stipple/pkg/errors"
)

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if err := errors.ValidatePath(path, false); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// OutputPath derives an artifact path for input and format.
//
// With an empty out the artifact goes next to the input ("cat.jpg" becomes
// "cat.svg"). When out names a directory (existing, or ending in a path
// separator) the artifact goes inside it. Otherwise out is used as is for a
// single format and gets its extension replaced when several formats are
// written.
func OutputPath(input, out, format string, multi bool) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + "." + format
	switch {
	case out == "":
		return filepath.Join(filepath.Dir(input), base)
	case strings.HasSuffix(out, string(filepath.Separator)) || isDir(out):
		return filepath.Join(out, base)
	case multi:
		return strings.TrimSuffix(out, filepath.Ext(out)) + "." + format
	default:
		return out
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
