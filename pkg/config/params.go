package config

import (
	"math"
	"strings"

	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// PrecisionMode is the numeric precision the accelerator engine builds with.
type PrecisionMode string

const (
	FP32 PrecisionMode = "FP32"
	FP16 PrecisionMode = "FP16"
	INT8 PrecisionMode = "INT8"
)

// Level returns the engine's integer encoding of the mode: 0 for FP32, 1 for
// FP16, 2 for INT8 and -1 for anything else.
func (p PrecisionMode) Level() int {
	switch p {
	case FP32:
		return 0
	case FP16:
		return 1
	case INT8:
		return 2
	default:
		return -1
	}
}

// ParsePrecisionMode parses a mode name case-insensitively.
func ParsePrecisionMode(s string) (PrecisionMode, error) {
	pm := PrecisionMode(strings.ToUpper(strings.TrimSpace(s)))
	if pm.Level() < 0 {
		return "", errs.New(errs.ErrCodeInvalidArgument,
			"unknown precision mode %q, valid values are FP32, FP16, INT8", s)
	}
	return pm, nil
}

// Pass parameter names accepted by FromParameters.
const (
	ParamMinimumSegmentSize    = "minimum_segment_size"
	ParamMaxBatchSize          = "max_batch_size"
	ParamMaxWorkspaceSizeBytes = "max_workspace_size_bytes"
	ParamPrecisionMode         = "precision_mode"
)

// FromParameters builds a configuration from a pass parameter map, the way
// an optimizer registry hands parameters to a custom pass. Absent keys keep
// their defaults and unknown keys are ignored. A nil map yields the default
// configuration.
//
// Integer parameters accept any Go integer type as well as integral float64
// values, so maps decoded from JSON work unchanged.
func FromParameters(params map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	if params == nil {
		return cfg, nil
	}

	if v, ok := params[ParamMinimumSegmentSize]; ok {
		n, err := intParam(ParamMinimumSegmentSize, v)
		if err != nil {
			return nil, err
		}
		cfg.Segment.MinimumSegmentSize = int(n)
	}
	if v, ok := params[ParamMaxBatchSize]; ok {
		n, err := intParam(ParamMaxBatchSize, v)
		if err != nil {
			return nil, err
		}
		cfg.Pass.MaxBatchSize = int(n)
	}
	if v, ok := params[ParamMaxWorkspaceSizeBytes]; ok {
		n, err := intParam(ParamMaxWorkspaceSizeBytes, v)
		if err != nil {
			return nil, err
		}
		cfg.Pass.MaxWorkspaceSizeBytes = n
	}
	if v, ok := params[ParamPrecisionMode]; ok {
		s, isString := v.(string)
		if !isString {
			return nil, errs.New(errs.ErrCodeInvalidArgument, "parameter %s must be a string, got %T", ParamPrecisionMode, v)
		}
		pm, err := ParsePrecisionMode(s)
		if err != nil {
			return nil, err
		}
		cfg.Pass.PrecisionMode = pm
	}

	if err := cfg.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArgument, err, "invalid pass parameters")
	}
	return cfg, nil
}

func intParam(name string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt64 {
			return 0, errs.New(errs.ErrCodeInvalidArgument, "parameter %s must be an integer, got %v", name, n)
		}
		return int64(n), nil
	default:
		return 0, errs.New(errs.ErrCodeInvalidArgument, "parameter %s must be an integer, got %T", name, v)
	}
}
