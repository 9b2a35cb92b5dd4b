package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/segment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, segment.DefaultMinimumSegmentSize, cfg.Segment.MinimumSegmentSize)
	assert.Equal(t, segment.DefaultDevicePrefix, cfg.Segment.DevicePrefix)
	assert.Equal(t, DefaultMaxBatchSize, cfg.Pass.MaxBatchSize)
	assert.Equal(t, int64(2<<30), cfg.Pass.MaxWorkspaceSizeBytes)
	assert.Equal(t, FP32, cfg.Pass.PrecisionMode)
	assert.Equal(t, CacheFile, cfg.Cache.Backend)
	assert.Equal(t, DefaultServerAddr, cfg.Server.Addr)
	require.NoError(t, cfg.Validate())

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, DefaultCacheTTL, ttl)
}

func TestParse_TOML(t *testing.T) {
	doc := `
[segment]
minimum_segment_size = 3
exclude_nodes = ["loss"]

[policy]
candidate_ops = ["MatMul", "Relu"]
weak_ops = ["Identity"]

[pass]
max_batch_size = 8
precision_mode = "fp16"
`
	cfg, err := Parse([]byte(doc), true)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Segment.MinimumSegmentSize)
	assert.Equal(t, []string{"loss"}, cfg.Segment.ExcludeNodes)
	assert.Equal(t, segment.DefaultDevicePrefix, cfg.Segment.DevicePrefix, "default filled in")
	assert.Equal(t, []string{"MatMul", "Relu"}, cfg.Policy.CandidateOps)
	assert.Equal(t, 8, cfg.Pass.MaxBatchSize)
	assert.Equal(t, FP16, cfg.Pass.PrecisionMode, "normalized to upper case")
	assert.Equal(t, DefaultMaxWorkspaceSizeBytes, cfg.Pass.MaxWorkspaceSizeBytes)
}

func TestParse_YAML(t *testing.T) {
	doc := `
segment:
  device_prefix: "/device:TPU:"
policy:
  candidate_ops: [Conv2D]
  mandatory_ops: [Conv2D]
pass:
  precision_mode: INT8
cache:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 1h
`
	cfg, err := Parse([]byte(doc), false)
	require.NoError(t, err)

	assert.Equal(t, "/device:TPU:", cfg.Segment.DevicePrefix)
	assert.Equal(t, INT8, cfg.Pass.PrecisionMode)
	assert.Equal(t, CacheRedis, cfg.Cache.Backend)

	ttl, err := cfg.CacheTTL()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		toml bool
		code errs.Code
	}{
		{"malformed toml", "[segment", true, errs.ErrCodeInvalidConfig},
		{"malformed yaml", "segment: [", false, errs.ErrCodeInvalidConfig},
		{"negative size", "segment:\n  minimum_segment_size: -1\n", false, errs.ErrCodeInvalidConfig},
		{"bad prefix", "segment:\n  device_prefix: \"a b\"\n", false, errs.ErrCodeInvalidConfig},
		{"bad op", "policy:\n  candidate_ops: [\"1x\"]\n", false, errs.ErrCodeInvalidConfig},
		{"unknown precision", "pass:\n  precision_mode: FP64\n", false, errs.ErrCodeInvalidArgument},
		{"unknown backend", "cache:\n  backend: memcached\n", false, errs.ErrCodeInvalidConfig},
		{"redis without url", "cache:\n  backend: redis\n", false, errs.ErrCodeInvalidConfig},
		{"bad ttl", "cache:\n  ttl: soon\n", false, errs.ErrCodeInvalidConfig},
		{"negative batch", "[pass]\nmax_batch_size = -4\n", true, errs.ErrCodeInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), tt.toml)
			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestParsePrecisionMode(t *testing.T) {
	tests := []struct {
		in    string
		want  PrecisionMode
		level int
	}{
		{"FP32", FP32, 0},
		{"fp16", FP16, 1},
		{" Int8 ", INT8, 2},
	}
	for _, tt := range tests {
		got, err := ParsePrecisionMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.level, got.Level())
	}

	_, err := ParsePrecisionMode("BF16")
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument))
	assert.Equal(t, -1, PrecisionMode("BF16").Level())
}

func TestFromParameters(t *testing.T) {
	cfg, err := FromParameters(map[string]any{
		ParamMinimumSegmentSize:    3,
		ParamMaxBatchSize:          int64(16),
		ParamMaxWorkspaceSizeBytes: float64(1 << 20),
		ParamPrecisionMode:         "int8",
		"unrelated":                true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Segment.MinimumSegmentSize)
	assert.Equal(t, 16, cfg.Pass.MaxBatchSize)
	assert.Equal(t, int64(1<<20), cfg.Pass.MaxWorkspaceSizeBytes)
	assert.Equal(t, INT8, cfg.Pass.PrecisionMode)
}

func TestFromParameters_Nil(t *testing.T) {
	cfg, err := FromParameters(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxWorkspaceSizeBytes, cfg.Pass.MaxWorkspaceSizeBytes)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestFromParameters_Errors(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
	}{
		{"unknown precision", map[string]any{ParamPrecisionMode: "fp64"}},
		{"precision not a string", map[string]any{ParamPrecisionMode: 1}},
		{"fractional size", map[string]any{ParamMinimumSegmentSize: 2.5}},
		{"size as string", map[string]any{ParamMinimumSegmentSize: "2"}},
		{"zero size", map[string]any{ParamMinimumSegmentSize: 0}},
		{"negative workspace", map[string]any{ParamMaxWorkspaceSizeBytes: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromParameters(tt.params)
			require.Error(t, err)
			assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument), "got %v", err)
		})
	}
}

func TestSegmentOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Segment.ExcludeNodes = []string{"a", "b"}
	cfg.Segment.MinimumSegmentSize = 4

	opts := cfg.SegmentOptions()
	assert.Equal(t, segment.Options{
		MinimumSegmentSize: 4,
		ExcludeNodeList:    []string{"a", "b"},
		DevicePrefix:       segment.DefaultDevicePrefix,
	}, opts)

	opts.ExcludeNodeList[0] = "z"
	assert.Equal(t, "a", cfg.Segment.ExcludeNodes[0], "options do not alias the config")
}

func TestLoadFromPath(t *testing.T) {
	dir := t.TempDir()

	t.Run("toml by extension", func(t *testing.T) {
		path := filepath.Join(dir, "pass.toml")
		require.NoError(t, os.WriteFile(path, []byte("[segment]\nminimum_segment_size = 5\n"), 0o644))

		cfg, got, err := LoadFromPath(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
		assert.Equal(t, 5, cfg.Segment.MinimumSegmentSize)
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := LoadFromPath(filepath.Join(dir, "missing.yaml"))
		assert.True(t, errs.Is(err, errs.ErrCodeFileNotFound), "got %v", err)
	})
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.toml", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			cfg := DefaultConfig()
			cfg.Policy.CandidateOps = []string{"MatMul"}
			cfg.Pass.PrecisionMode = FP16
			require.NoError(t, cfg.Save(path))

			loaded, _, err := LoadFromPath(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestFindConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Setenv("HOME", filepath.Join(dir, "home"))
	t.Setenv(EnvConfigPath, "")

	assert.Empty(t, FindConfigPath())

	xdg := filepath.Join(dir, "xdg", ConfigDirName, "config.yaml")
	require.NoError(t, EnsureConfigDir(xdg))
	require.NoError(t, os.WriteFile(xdg, nil, 0o644))
	assert.Equal(t, xdg, FindConfigPath())

	require.NoError(t, os.WriteFile("segmenter.toml", nil, 0o644))
	got := FindConfigPath()
	assert.Equal(t, "segmenter.toml", filepath.Base(got), "working directory wins over XDG")

	explicit := filepath.Join(dir, "explicit.yaml")
	require.NoError(t, os.WriteFile(explicit, nil, 0o644))
	t.Setenv(EnvConfigPath, explicit)
	assert.Equal(t, explicit, FindConfigPath())

	cfg, path, err := Load()
	require.NoError(t, err)
	assert.Equal(t, explicit, path)
	assert.Equal(t, DefaultConfig(), cfg, "empty file yields defaults")
}
