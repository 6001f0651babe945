package io

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.svg")

	if err := WriteFile(path, []byte("<svg/>")); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "<svg/>" {
		t.Errorf("content = %q", got)
	}

	if err := WriteFile("", nil); err == nil {
		t.Error("WriteFile with empty path should fail")
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	sep := string(filepath.Separator)

	tests := []struct {
		name               string
		input, out, format string
		multi              bool
		want               string
	}{
		{"next to input", filepath.Join("photos", "cat.jpg"), "", "svg", false, filepath.Join("photos", "cat.svg")},
		{"existing dir", "cat.jpg", dir, "png", false, filepath.Join(dir, "cat.png")},
		{"trailing separator", "cat.jpg", "out" + sep, "json", true, filepath.Join("out", "cat.json")},
		{"explicit file", "cat.jpg", "art.svg", "svg", false, "art.svg"},
		{"explicit file multi", "cat.jpg", "art.svg", "png", true, "art.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputPath(tt.input, tt.out, tt.format, tt.multi); got != tt.want {
				t.Errorf("OutputPath() = %q, want %q", got, tt.want)
			}
		})
	}
}
