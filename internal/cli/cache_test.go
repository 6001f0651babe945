package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/stipple/pkg/cache"
)

func TestNewCache(t *testing.T) {
	ch, err := newCache(true, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.(cache.NullCache); !ok {
		t.Errorf("newCache(noCache) = %T, want NullCache", ch)
	}

	dir := t.TempDir()
	ch, err = newCache(false, dir)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := ch.(*cache.FileCache)
	if !ok {
		t.Fatalf("newCache(dir) = %T, want *FileCache", ch)
	}
	if fc.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", fc.Dir(), dir)
	}
}

func TestCachePathCommand(t *testing.T) {
	isolate(t)
	var out bytes.Buffer
	c := New(&bytes.Buffer{}, LogInfo)
	root := c.RootCommand()
	root.SetArgs([]string{"cache", "path"})
	root.SetOut(&out)
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}

	want, _ := cacheDir()
	if got := strings.TrimSpace(out.String()); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestCacheClearCommand(t *testing.T) {
	isolate(t)
	dir, _ := cacheDir()
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, key := range []string{"artifact:a", "artifact:b"} {
		if err := fc.Set(ctx, key, []byte("x"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if _, hit, _ := fc.Get(ctx, "artifact:a"); hit {
		t.Error("entry survived cache clear")
	}
}

func TestCacheDirFromConfig(t *testing.T) {
	c := &CLI{Config: Config{Cache: CacheConfig{Dir: filepath.Join("var", "stipple")}}}
	got, err := c.cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join("var", "stipple") {
		t.Errorf("cacheDir() = %q, want configured dir", got)
	}
}
