package cli

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/matzehuels/segmenter/pkg/cache"
	"github.com/matzehuels/segmenter/pkg/config"
)

func TestCacheDirXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CACHE_HOME is only honored on Linux")
	}
	custom := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", custom)

	dir, err := cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if want := filepath.Join(custom, appName); dir != want {
		t.Errorf("cacheDir() = %q, want %q", dir, want)
	}
}

func TestCacheLocation(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = "/tmp/segmenter-test"
	if got, _ := cacheLocation(cfg); got != cfg.Cache.Dir {
		t.Errorf("cacheLocation(file) = %q, want %q", got, cfg.Cache.Dir)
	}

	cfg.Cache.Backend = config.CacheRedis
	cfg.Cache.RedisURL = "redis://localhost:6379/0"
	if got, _ := cacheLocation(cfg); got != cfg.Cache.RedisURL {
		t.Errorf("cacheLocation(redis) = %q, want %q", got, cfg.Cache.RedisURL)
	}

	cfg.Cache.Backend = config.CacheNone
	if got, _ := cacheLocation(cfg); got != "" {
		t.Errorf("cacheLocation(none) = %q, want empty", got)
	}
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Cache.Dir = t.TempDir()

	fc, err := cache.NewFileCache(cfg.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"segments:a", "artifact:b"} {
		if err := fc.Set(ctx, key, []byte("{}"), time.Hour); err != nil {
			t.Fatal(err)
		}
	}

	if err := clearCache(ctx, cfg); err != nil {
		t.Fatalf("clearCache() error: %v", err)
	}
	if n, _ := fc.Len(); n != 0 {
		t.Errorf("Len() after clear = %d, want 0", n)
	}

	// Clearing an empty cache is not an error.
	if err := clearCache(ctx, cfg); err != nil {
		t.Errorf("clearCache() on empty cache error: %v", err)
	}
}

func TestOpenCacheNone(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Cache.Backend = config.CacheNone

	c, err := openCache(context.Background(), cfg)
	if err != nil {
		t.Fatalf("openCache() error: %v", err)
	}
	if _, hit, _ := c.Get(context.Background(), "any"); hit {
		t.Error("null cache reported a hit")
	}
}
