// Package pipeline runs graph segmentation end to end for the CLI and the
// HTTP API.
//
// # Architecture
//
// A run has three stages:
//
//  1. Load: build the dataflow graph from its definition and hash it
//  2. Segment: classify nodes with the op policy and partition the graph
//  3. Render: produce the requested artifacts (segments JSON, the graph
//     definition with devices assigned, DOT, SVG, PNG, PDF)
//
// Segment and Render results are cached by content hash, so running the
// same graph with the same options twice only partitions it once.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, logger)
//	opts := pipeline.OptionsFromConfig(cfg)
//	opts.Graph = def
//	opts.Formats = []string{pipeline.FormatJSON, pipeline.FormatSVG}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Every stage emits observability hooks and an OpenTelemetry span.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/segmenter/pkg/cache"
	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/graphdef"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// Format constants for output artifacts.
const (
	FormatJSON  = "json"  // segments as JSON
	FormatGraph = "graph" // graph definition with segment devices assigned, JSON
	FormatDOT   = "dot"
	FormatSVG   = "svg"
	FormatPNG   = "png"
	FormatPDF   = "pdf"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:  true,
	FormatGraph: true,
	FormatDOT:   true,
	FormatSVG:   true,
	FormatPNG:   true,
	FormatPDF:   true,
}

// PNGScale is the scale factor used for PNG artifacts.
const PNGScale = 2.0

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Input
	Graph         *graphdef.GraphDef `json:"graph"`
	Source        string             `json:"source,omitempty"` // label for logs and hooks
	DropBackEdges bool               `json:"drop_back_edges,omitempty"`

	// Segment options
	MinimumSegmentSize int                 `json:"minimum_segment_size,omitempty"`
	ExcludeNodes       []string            `json:"exclude_nodes,omitempty"`
	DevicePrefix       string              `json:"device_prefix,omitempty"`
	Policy             config.PolicyConfig `json:"policy"`
	Refresh            bool                `json:"refresh,omitempty"`

	// Render options
	Formats  []string `json:"formats,omitempty"`
	Detailed bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// OptionsFromConfig seeds options with the segment and policy sections of
// cfg. The graph and formats are left for the caller.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MinimumSegmentSize: cfg.Segment.MinimumSegmentSize,
		ExcludeNodes:       append([]string(nil), cfg.Segment.ExcludeNodes...),
		DevicePrefix:       cfg.Segment.DevicePrefix,
		Policy:             cfg.Policy,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs and API responses.
	RunID string

	// Graph is the loaded dataflow graph.
	Graph *dag.DAG

	// GraphHash is the content hash of the graph definition.
	GraphHash string

	// Segments is the partition, in result order.
	Segments []segment.Segment

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount    int
	EdgeCount    int
	SegmentCount int
	CoveredCount int // nodes placed in some segment
	LoadTime     time.Duration
	SegmentTime  time.Duration
	RenderTime   time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	SegmentHit bool // Whether the partition came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errs.New(errs.ErrCodeInvalidArgument,
			"invalid format: %q (must be one of: json, graph, dot, svg, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Graph == nil {
		return errs.New(errs.ErrCodeInvalidArgument, "graph is required")
	}
	if o.MinimumSegmentSize == 0 {
		o.MinimumSegmentSize = segment.DefaultMinimumSegmentSize
	}
	if o.DevicePrefix == "" {
		o.DevicePrefix = segment.DefaultDevicePrefix
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Source == "" {
		o.Source = o.Graph.Name
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SegmentOptions returns the partitioning options.
func (o *Options) SegmentOptions() segment.Options {
	return segment.Options{
		MinimumSegmentSize: o.MinimumSegmentSize,
		ExcludeNodeList:    o.ExcludeNodes,
		DevicePrefix:       o.DevicePrefix,
	}
}

// SegmentKeyOpts returns cache key options for partitioning.
func (o *Options) SegmentKeyOpts() cache.SegmentKeyOpts {
	return cache.SegmentKeyOpts{
		MinimumSegmentSize: o.MinimumSegmentSize,
		ExcludeNodes:       o.ExcludeNodes,
		DevicePrefix:       o.DevicePrefix,
		CandidateOps:       o.Policy.CandidateOps,
		MandatoryOps:       o.Policy.MandatoryOps,
		WeakOps:            o.Policy.WeakOps,
		DenyOps:            o.Policy.DenyOps,
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:   format,
		Detailed: o.Detailed,
	}
}

func (o *Options) String() string {
	return fmt.Sprintf("min_size=%d exclude=%v prefix=%s candidates=%v",
		o.MinimumSegmentSize, o.ExcludeNodes, o.DevicePrefix, o.Policy.CandidateOps)
}
