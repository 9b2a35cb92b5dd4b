// Package config loads segmenter pass configuration.
//
// A configuration file is TOML or YAML, chosen by extension. Without an
// explicit path, Load looks in these locations in order:
//  1. $SEGMENTER_CONFIG
//  2. ./segmenter.toml, then ./segmenter.yaml
//  3. $XDG_CONFIG_HOME/segmenter/config.{toml,yaml}
//  4. ~/.config/segmenter/config.{toml,yaml}
//  5. /etc/segmenter/config.{toml,yaml}
//
// Missing values are filled with defaults, so an empty file is a valid
// configuration.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/segment"
)

const (
	// DefaultMaxBatchSize is the batch size used when none is configured.
	DefaultMaxBatchSize = 1

	// DefaultMaxWorkspaceSizeBytes is the accelerator scratch space budget.
	DefaultMaxWorkspaceSizeBytes int64 = 2 << 30

	// DefaultCacheTTL is how long cached results stay valid.
	DefaultCacheTTL = 24 * time.Hour

	// DefaultServerAddr is the listen address of the HTTP API.
	DefaultServerAddr = ":8080"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config is the full segmenter configuration.
type Config struct {
	Segment SegmentConfig `toml:"segment" yaml:"segment" json:"segment"`
	Policy  PolicyConfig  `toml:"policy" yaml:"policy" json:"policy"`
	Pass    PassConfig    `toml:"pass" yaml:"pass" json:"pass"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache" json:"cache"`
	Server  ServerConfig  `toml:"server" yaml:"server" json:"server"`
}

// SegmentConfig holds the partitioning options.
type SegmentConfig struct {
	MinimumSegmentSize int      `toml:"minimum_segment_size" yaml:"minimum_segment_size" json:"minimum_segment_size"`
	ExcludeNodes       []string `toml:"exclude_nodes,omitempty" yaml:"exclude_nodes,omitempty" json:"exclude_nodes,omitempty"`
	DevicePrefix       string   `toml:"device_prefix" yaml:"device_prefix" json:"device_prefix"`
}

// PolicyConfig lists op types by role. An op in CandidateOps may be
// offloaded. MandatoryOps and WeakOps refine candidates. DenyOps are op types
// the accelerator rejects outright; meeting one during classification fails
// the run with UNIMPLEMENTED.
type PolicyConfig struct {
	CandidateOps []string `toml:"candidate_ops,omitempty" yaml:"candidate_ops,omitempty" json:"candidate_ops,omitempty"`
	MandatoryOps []string `toml:"mandatory_ops,omitempty" yaml:"mandatory_ops,omitempty" json:"mandatory_ops,omitempty"`
	WeakOps      []string `toml:"weak_ops,omitempty" yaml:"weak_ops,omitempty" json:"weak_ops,omitempty"`
	DenyOps      []string `toml:"deny_ops,omitempty" yaml:"deny_ops,omitempty" json:"deny_ops,omitempty"`
}

// PassConfig holds the parameters the optimization pass is initialized with.
type PassConfig struct {
	MaxBatchSize          int           `toml:"max_batch_size" yaml:"max_batch_size" json:"max_batch_size"`
	MaxWorkspaceSizeBytes int64         `toml:"max_workspace_size_bytes" yaml:"max_workspace_size_bytes" json:"max_workspace_size_bytes"`
	PrecisionMode         PrecisionMode `toml:"precision_mode" yaml:"precision_mode" json:"precision_mode"`
}

// CacheConfig selects the result cache backend.
type CacheConfig struct {
	Backend  string `toml:"backend" yaml:"backend" json:"backend"`
	Dir      string `toml:"dir,omitempty" yaml:"dir,omitempty" json:"dir,omitempty"`
	RedisURL string `toml:"redis_url,omitempty" yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	TTL      string `toml:"ttl" yaml:"ttl" json:"ttl"`
	// Prefix scopes every cache key, for deployments sharing one backend.
	Prefix string `toml:"prefix,omitempty" yaml:"prefix,omitempty" json:"prefix,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `toml:"addr" yaml:"addr" json:"addr"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Segment.MinimumSegmentSize == 0 {
		c.Segment.MinimumSegmentSize = segment.DefaultMinimumSegmentSize
	}
	if c.Segment.DevicePrefix == "" {
		c.Segment.DevicePrefix = segment.DefaultDevicePrefix
	}
	if c.Pass.MaxBatchSize == 0 {
		c.Pass.MaxBatchSize = DefaultMaxBatchSize
	}
	if c.Pass.MaxWorkspaceSizeBytes == 0 {
		c.Pass.MaxWorkspaceSizeBytes = DefaultMaxWorkspaceSizeBytes
	}
	if c.Pass.PrecisionMode == "" {
		c.Pass.PrecisionMode = FP32
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheFile
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = DefaultCacheTTL.String()
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
}

// Validate checks every value that defaults cannot repair.
func (c *Config) Validate() error {
	if c.Segment.MinimumSegmentSize < 1 {
		return errs.New(errs.ErrCodeInvalidConfig,
			"segment.minimum_segment_size must be at least 1, got %d", c.Segment.MinimumSegmentSize)
	}
	if err := errs.ValidateDevicePrefix(c.Segment.DevicePrefix); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidConfig, err, "segment.device_prefix %q", c.Segment.DevicePrefix)
	}
	for _, ops := range [][]string{c.Policy.CandidateOps, c.Policy.MandatoryOps, c.Policy.WeakOps, c.Policy.DenyOps} {
		for _, op := range ops {
			if op == "" {
				return errs.New(errs.ErrCodeInvalidConfig, "policy op names must not be empty")
			}
			if err := errs.ValidateOpName(op); err != nil {
				return errs.Wrap(errs.ErrCodeInvalidConfig, err, "policy op %q", op)
			}
		}
	}
	if c.Pass.MaxBatchSize < 1 {
		return errs.New(errs.ErrCodeInvalidConfig, "pass.max_batch_size must be positive, got %d", c.Pass.MaxBatchSize)
	}
	if c.Pass.MaxWorkspaceSizeBytes < 1 {
		return errs.New(errs.ErrCodeInvalidConfig,
			"pass.max_workspace_size_bytes must be positive, got %d", c.Pass.MaxWorkspaceSizeBytes)
	}
	pm, err := ParsePrecisionMode(string(c.Pass.PrecisionMode))
	if err != nil {
		return err
	}
	c.Pass.PrecisionMode = pm

	switch c.Cache.Backend {
	case CacheNone, CacheFile:
	case CacheRedis:
		if err := errs.ValidateURL(c.Cache.RedisURL); err != nil {
			return err
		}
	default:
		return errs.New(errs.ErrCodeInvalidConfig,
			"cache.backend must be one of %s, %s, %s; got %q", CacheNone, CacheFile, CacheRedis, c.Cache.Backend)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// CacheTTL parses Cache.TTL.
func (c *Config) CacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidConfig, err, "cache.ttl %q", c.Cache.TTL)
	}
	if d <= 0 {
		return 0, errs.New(errs.ErrCodeInvalidConfig, "cache.ttl must be positive, got %s", d)
	}
	return d, nil
}

// SegmentOptions converts the segment section into partitioning options.
func (c *Config) SegmentOptions() segment.Options {
	return segment.Options{
		MinimumSegmentSize: c.Segment.MinimumSegmentSize,
		ExcludeNodeList:    append([]string(nil), c.Segment.ExcludeNodes...),
		DevicePrefix:       c.Segment.DevicePrefix,
	}
}

// Load finds and loads the config file, or returns defaults if none is found.
// The returned path is empty when defaults are used.
func Load() (*Config, string, error) {
	path := FindConfigPath()
	if path == "" {
		return DefaultConfig(), "", nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. Files ending in .toml are
// parsed as TOML, everything else as YAML.
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, path, errs.Wrap(errs.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, isTOML(path))
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// Parse decodes a configuration document, applies defaults and validates it.
func Parse(data []byte, asTOML bool) (*Config, error) {
	var cfg Config
	if asTOML {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "parse config")
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path, as TOML or YAML by extension.
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(c); err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
