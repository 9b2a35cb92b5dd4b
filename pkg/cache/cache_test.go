package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/observability"
)

var errPermanent = errors.New("permanent")

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	sk1 := k.SegmentKey("abc", SegmentKeyOpts{MinimumSegmentSize: 2})
	sk2 := k.SegmentKey("abc", SegmentKeyOpts{MinimumSegmentSize: 3})
	if sk1 == sk2 {
		t.Error("Different SegmentKeyOpts should produce different keys")
	}
	if !strings.HasPrefix(sk1, KeyTypeSegments+":") {
		t.Errorf("SegmentKey should carry its type prefix: %s", sk1)
	}

	// Op and node lists are compared as sets.
	a := k.SegmentKey("abc", SegmentKeyOpts{CandidateOps: []string{"Relu", "MatMul"}, ExcludeNodes: []string{"x", "y"}})
	b := k.SegmentKey("abc", SegmentKeyOpts{CandidateOps: []string{"MatMul", "Relu", "Relu"}, ExcludeNodes: []string{"y", "x"}})
	if a != b {
		t.Errorf("SegmentKey should ignore list order: %s != %s", a, b)
	}

	if k.SegmentKey("abc", SegmentKeyOpts{}) == k.SegmentKey("abd", SegmentKeyOpts{}) {
		t.Error("Different graph hashes should produce different keys")
	}

	ak1 := k.ArtifactKey(sk1, ArtifactKeyOpts{Format: "svg"})
	ak2 := k.ArtifactKey(sk1, ArtifactKeyOpts{Format: "dot"})
	if ak1 == ak2 {
		t.Error("Different ArtifactKeyOpts should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "staging:")

	key := scoped.SegmentKey("abc", SegmentKeyOpts{})
	if key != "staging:"+inner.SegmentKey("abc", SegmentKeyOpts{}) {
		t.Errorf("ScopedKeyer SegmentKey unexpected: %s", key)
	}
	if got := keyType(key); got != KeyTypeSegments {
		t.Errorf("keyType(%q) = %q, want %q", key, got, KeyTypeSegments)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	// Should use DefaultKeyer when inner is nil
	scoped := NewScopedKeyer(nil, "prefix:")
	key := scoped.ArtifactKey("k", ArtifactKeyOpts{Format: "svg"})
	if key != "prefix:"+NewDefaultKeyer().ArtifactKey("k", ArtifactKeyOpts{Format: "svg"}) {
		t.Errorf("Unexpected key with nil inner: %s", key)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "segments:a"); hit || err != nil {
		t.Fatalf("Get on empty cache = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "segments:a", []byte("one"), time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set(ctx, "segments:b", []byte("two"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	data, hit, err := c.Get(ctx, "segments:a")
	if err != nil || !hit || string(data) != "one" {
		t.Errorf("Get = %q, %v, %v; want one, true, nil", data, hit, err)
	}
	if n, err := c.Len(); err != nil || n != 2 {
		t.Errorf("Len() = %d, %v; want 2", n, err)
	}

	if err := c.Delete(ctx, "segments:a"); err != nil {
		t.Errorf("Delete: %v", err)
	}
	if err := c.Delete(ctx, "segments:a"); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "segments:a"); hit {
		t.Error("Get after Delete should miss")
	}

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d, want 0", n)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v; want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestNewFileCacheEmptyDir(t *testing.T) {
	if _, err := NewFileCache(""); !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("NewFileCache(\"\") error = %v, want INVALID_CONFIG", err)
	}
}

type recordingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets []string
	bytes              int
}

func (h *recordingHooks) OnCacheHit(_ context.Context, k string)  { h.hits = append(h.hits, k) }
func (h *recordingHooks) OnCacheMiss(_ context.Context, k string) { h.misses = append(h.misses, k) }
func (h *recordingHooks) OnCacheSet(_ context.Context, k string, n int) {
	h.sets = append(h.sets, k)
	h.bytes += n
}

func TestInstrument(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	fc, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	c := Instrument(fc)

	key := NewDefaultKeyer().SegmentKey("abc", SegmentKeyOpts{})
	_, _, _ = c.Get(ctx, key)
	_ = c.Set(ctx, key, []byte("1234"), 0)
	_, _, _ = c.Get(ctx, key)

	if len(hooks.misses) != 1 || hooks.misses[0] != KeyTypeSegments {
		t.Errorf("misses = %v", hooks.misses)
	}
	if len(hooks.hits) != 1 || hooks.hits[0] != KeyTypeSegments {
		t.Errorf("hits = %v", hooks.hits)
	}
	if hooks.bytes != 4 {
		t.Errorf("bytes = %d, want 4", hooks.bytes)
	}

	if err := c.(Clearer).Clear(ctx); err != nil {
		t.Errorf("Clear through instrumented cache: %v", err)
	}
	if n, _ := fc.Len(); n != 0 {
		t.Errorf("Len() after Clear = %d", n)
	}
}

func TestKeyType(t *testing.T) {
	tests := map[string]string{
		"segments:abc":       "segments",
		"scope:artifact:abc": "artifact",
		"plain":              "unknown",
	}
	for key, want := range tests {
		if got := keyType(key); got != want {
			t.Errorf("keyType(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestRedisCacheInvalidURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "http://localhost:6379")
	if !errs.Is(err, errs.ErrCodeInvalidConfig) {
		t.Errorf("NewRedisCache(http://...) error = %v, want INVALID_CONFIG", err)
	}
}

func TestRedisCacheUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisCache(ctx, "redis://127.0.0.1:1/0")
	if !errs.Is(err, errs.ErrCodeNetwork) {
		t.Errorf("NewRedisCache(unreachable) error = %v, want NETWORK_ERROR", err)
	}
}

func TestRetryableError(t *testing.T) {
	// Retryable(nil) returns nil
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}

	// Non-nil error is wrapped
	err := Retryable(ErrNetwork)
	if err == nil {
		t.Fatal("Retryable should return wrapped error")
	}
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}

	// Error message is preserved
	if err.Error() != ErrNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}

	// Non-wrapped errors are not retryable
	if IsRetryable(errPermanent) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	// Success on first try
	calls := 0
	err := RetryWithBackoff(ctx, func() error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should call once: %d", calls)
	}

	// Non-retryable error stops immediately
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		return errPermanent
	})
	if err != errPermanent {
		t.Errorf("Should return non-retryable error: %v", err)
	}
	if calls != 1 {
		t.Errorf("Should not retry non-retryable error: %d", calls)
	}

	// Retryable error triggers retries
	calls = 0
	err = RetryWithBackoff(ctx, func() error {
		calls++
		if calls < 2 {
			return Retryable(ErrNetwork)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Should succeed after retry: %v", err)
	}
	if calls != 2 {
		t.Errorf("Should retry once: %d", calls)
	}
}

func TestRetryWithBackoffContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	err := RetryWithBackoff(ctx, func() error {
		return Retryable(ErrNetwork)
	})
	if err != context.Canceled {
		t.Errorf("Should return context error: %v", err)
	}
}
