package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	stipplerrors "github.com/matzehuels/stipple/pkg/errors"
	"github.com/matzehuels/stipple/pkg/pipeline"
)

const presetTOML = `
[stipple]
points = 6000
gamma = 1.5
relax = 0.0
seed = 7

[render]
formats = ["svg", "png"]
dot_color = "#1d3557"
show_source = true

[server]
addr = ":9000"
request_timeout = "30s"

[server.redis]
addr = "localhost:6379"
db = 2

[cache]
disabled = true
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), configFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, presetTOML)
	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Stipple.Points != 6000 || cfg.Stipple.Gamma != 1.5 || cfg.Stipple.Seed != 7 {
		t.Errorf("stipple section = %+v", cfg.Stipple)
	}
	if cfg.Stipple.Relax == nil || *cfg.Stipple.Relax != 0 {
		t.Errorf("relax = %v, want explicit 0", cfg.Stipple.Relax)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("server section = %+v", cfg.Server)
	}
	if cfg.Server.Redis.Addr != "localhost:6379" || cfg.Server.Redis.DB != 2 {
		t.Errorf("redis section = %+v", cfg.Server.Redis)
	}
	if !cfg.Cache.Disabled {
		t.Error("cache.disabled not decoded")
	}
	if cfg.path != path {
		t.Errorf("path = %q, want %q", cfg.path, path)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Errorf("missing default config should not fail: %v", err)
	}
	if cfg.path != "" {
		t.Errorf("path = %q, want empty", cfg.path)
	}

	if _, err := loadConfig(missing, true); err == nil {
		t.Error("missing explicit config should fail")
	}
	if _, err := loadConfig("", false); err != nil {
		t.Errorf("empty path should not fail: %v", err)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "[stipple\npoints = 1"},
		{"unknown key", "[stipple]\ndots = 5\n"},
		{"wrong type", "[stipple]\npoints = \"many\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.content), false); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestConfigOptions(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, presetTOML), true)
	if err != nil {
		t.Fatal(err)
	}
	o := cfg.Options()

	if o.Points != 6000 || o.Gamma != 1.5 || o.Seed != 7 {
		t.Errorf("options = %+v", o)
	}
	if o.Relax != 0 {
		t.Errorf("Relax = %v, want 0 from preset", o.Relax)
	}
	if len(o.Formats) != 2 || o.Formats[1] != "png" {
		t.Errorf("Formats = %v", o.Formats)
	}
	if o.DotColor != "#1d3557" || !o.ShowSource {
		t.Errorf("render options not applied: %+v", o)
	}
	// Untouched fields keep pipeline defaults.
	if o.Iterations != pipeline.DefaultIterations || o.MaxDim != pipeline.DefaultMaxDim {
		t.Errorf("defaults lost: iterations=%d max_dim=%d", o.Iterations, o.MaxDim)
	}
}

func TestConfigOptionsEmpty(t *testing.T) {
	got := Config{}.Options()
	want := pipeline.DefaultOptions()
	if got.Points != want.Points || got.Relax != want.Relax || got.Gamma != want.Gamma {
		t.Errorf("empty config options = %+v, want defaults", got)
	}
}

func TestOptionFlagsOverride(t *testing.T) {
	base := pipeline.DefaultOptions()
	base.Points = 6000
	base.Gamma = 1.5

	var f optionFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs, true)
	if err := fs.Parse([]string{"--gamma", "2", "--relax", "0", "-f", "png,json"}); err != nil {
		t.Fatal(err)
	}
	o, err := f.apply(fs, base)
	if err != nil {
		t.Fatal(err)
	}

	if o.Points != 6000 {
		t.Errorf("Points = %d, preset value should survive unset flag", o.Points)
	}
	if o.Gamma != 2 {
		t.Errorf("Gamma = %v, want flag value 2", o.Gamma)
	}
	if o.Relax != 0 {
		t.Errorf("Relax = %v, want explicit 0", o.Relax)
	}
	if len(o.Formats) != 2 || o.Formats[0] != "png" {
		t.Errorf("Formats = %v", o.Formats)
	}
}

func TestOptionFlagsWithoutRender(t *testing.T) {
	var f optionFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs, false)
	if fs.Lookup("dot-color") != nil {
		t.Error("render flags registered without withRender")
	}
	if fs.Lookup("points") == nil {
		t.Error("points flag missing")
	}
}

func TestOptionFlagsRejectExplicitZero(t *testing.T) {
	for _, name := range []string{"points", "gamma", "spp", "max-dim", "dot-size", "scale"} {
		t.Run(name, func(t *testing.T) {
			var f optionFlags
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f.register(fs, true)
			if err := fs.Parse([]string{"--" + name, "0"}); err != nil {
				t.Fatal(err)
			}
			_, err := f.apply(fs, pipeline.DefaultOptions())
			if !stipplerrors.Is(err, stipplerrors.ErrCodeInvalidParameter) {
				t.Errorf("--%s 0: err = %v, want INVALID_PARAMETER", name, err)
			}
		})
	}
}

func TestConfigExplicitZeroIterations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zero.toml")
	if err := os.WriteFile(path, []byte("[stipple]\niterations = 0\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if o := cfg.Options(); o.Iterations != 0 {
		t.Errorf("Iterations = %d, want explicit 0 from preset", o.Iterations)
	}
}
