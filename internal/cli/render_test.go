package cli

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/stipple/pkg/observability"
)

// writeTestPNG writes a w x h horizontal gradient to dir/name.
func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(255 * x / max(1, w-1))})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// isolate points the XDG directories at temp dirs and resets global hooks.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Cleanup(observability.Reset)
}

// execute runs the root command with args and returns its error.
func execute(t *testing.T, args ...string) error {
	t.Helper()
	var logs bytes.Buffer
	c := New(&logs, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.Execute()
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty defaults to svg", "", []string{"svg"}},
		{"single format", "png", []string{"png"}},
		{"multiple formats", "svg,png,json", []string{"svg", "png", "json"}},
		{"spaces and case", " SVG , Json ", []string{"svg", "json"}},
		{"only separators", ",,", []string{"svg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormats(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("parseFormats(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i, v := range got {
				if v != tt.want[i] {
					t.Errorf("parseFormats(%q)[%d] = %q, want %q", tt.input, i, v, tt.want[i])
				}
			}
		})
	}
}

func TestAsDir(t *testing.T) {
	sep := string(filepath.Separator)
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"out", "out" + sep},
		{"out" + sep, "out" + sep},
	}
	for _, tt := range tests {
		if got := asDir(tt.in); got != tt.want {
			t.Errorf("asDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderCommandSingle(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeTestPNG(t, dir, "ramp.png", 40, 20)

	err := execute(t, "render", input, "-f", "svg,json", "--points", "60", "--iterations", "3", "--no-cache")
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	svg, err := os.ReadFile(filepath.Join(dir, "ramp.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(svg), "<circle"); got != 60 {
		t.Errorf("svg has %d circles, want 60", got)
	}

	data, err := os.ReadFile(filepath.Join(dir, "ramp.json"))
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Width  int          `json:"width"`
		Points [][2]float64 `json:"points"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Width != 40 || len(doc.Points) != 60 {
		t.Errorf("json width=%d points=%d, want 40 and 60", doc.Width, len(doc.Points))
	}
}

func TestRenderCommandOutputPath(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeTestPNG(t, dir, "ramp.png", 16, 16)
	out := filepath.Join(dir, "nested", "dots.svg")

	if err := execute(t, "render", input, "-o", out, "--points", "10", "--iterations", "1", "--no-cache"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("expected output at %s: %v", out, err)
	}
}

func TestRenderCommandBatch(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	a := writeTestPNG(t, dir, "a.png", 20, 10)
	b := writeTestPNG(t, dir, "b.png", 10, 20)
	out := filepath.Join(dir, "out")

	err := execute(t, "render", a, b, "-o", out, "--points", "20", "--iterations", "2", "--jobs", "2")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, name := range []string{"a.svg", "b.svg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
}

func TestRenderCommandBatchReportsFailures(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	good := writeTestPNG(t, dir, "good.png", 12, 12)
	missing := filepath.Join(dir, "missing.png")

	err := execute(t, "render", good, missing, "--points", "5", "--iterations", "1", "--no-cache")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 images failed") {
		t.Fatalf("err = %v, want one failure reported", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.svg")); err != nil {
		t.Errorf("good image should still be rendered: %v", err)
	}
}

func TestRenderCommandInvalidOptions(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	input := writeTestPNG(t, dir, "ramp.png", 8, 8)

	tests := [][]string{
		{"--gamma", "-1"},
		{"--relax", "1.5"},
		{"-f", "gif"},
		{"--points", "-1"},
		{"--points", "0"},
		{"--gamma", "0"},
		{"--spp", "0"},
		{"--dot-color", "blue"},
	}
	for _, extra := range tests {
		args := append([]string{"render", input, "--no-cache"}, extra...)
		if err := execute(t, args...); err == nil {
			t.Errorf("render %v: expected error", extra)
		}
	}
}

func TestCheckOutputs(t *testing.T) {
	sep := string(filepath.Separator)
	a := filepath.Join("a", "cat.jpg")
	b := filepath.Join("b", "cat.jpg")
	still := filepath.Join("a", "cat.png")

	tests := []struct {
		name    string
		inputs  []string
		outDir  string
		formats []string
		wantErr bool
	}{
		{"next to inputs", []string{a, b}, "", []string{"svg"}, false},
		{"same name into one dir", []string{a, b}, "out" + sep, []string{"svg"}, true},
		{"same stem next to input", []string{a, still}, "", []string{"svg", "png"}, true},
		{"listed twice", []string{a, a}, "", []string{"svg"}, true},
		{"distinct names", []string{a, filepath.Join("b", "dog.jpg")}, "out" + sep, []string{"svg", "json"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkOutputs(tt.inputs, tt.outDir, tt.formats)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkOutputs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRenderCommandBatchOutputCollision(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0755); err != nil {
			t.Fatal(err)
		}
	}
	a := writeTestPNG(t, filepath.Join(dir, "a"), "cat.png", 10, 10)
	b := writeTestPNG(t, filepath.Join(dir, "b"), "cat.png", 10, 10)
	out := filepath.Join(dir, "out")

	err := execute(t, "render", a, b, "-o", out, "--points", "5", "--iterations", "1", "--no-cache")
	if err == nil || !strings.Contains(err.Error(), "would both write") {
		t.Fatalf("err = %v, want output collision", err)
	}
	if _, err := os.Stat(filepath.Join(out, "cat.svg")); !os.IsNotExist(err) {
		t.Errorf("nothing should be written on collision, stat err = %v", err)
	}
}
