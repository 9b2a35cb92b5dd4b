package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/segmenter/pkg/cache"
	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/graphdef"
	"github.com/matzehuels/segmenter/pkg/observability"
	"github.com/matzehuels/segmenter/pkg/policy"
	"github.com/matzehuels/segmenter/pkg/segment"
)

var tracer = otel.Tracer("segmenter.pipeline")

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    config.DefaultCacheTTL,
	}
}

// Execute runs the complete load → segment → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.NewString()}
	logger := opts.Logger.With("run", result.RunID[:8])

	ctx, span := tracer.Start(ctx, "pipeline.Execute", trace.WithAttributes(
		attribute.String("run.id", result.RunID),
		attribute.String("graph.source", opts.Source),
	))
	defer span.End()

	// Stage 1: Load
	loadStart := time.Now()
	g, hash, err := r.Load(ctx, opts)
	if err != nil {
		return nil, fail(span, err)
	}
	result.Graph = g
	result.GraphHash = hash
	result.Stats.LoadTime = time.Since(loadStart)
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.EdgeCount()

	logger.Info("loaded graph",
		"source", opts.Source,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"duration", result.Stats.LoadTime)

	// Stage 2: Segment
	segStart := time.Now()
	segs, segHit, err := r.SegmentWithCacheInfo(ctx, g, hash, opts)
	if err != nil {
		return nil, fail(span, err)
	}
	result.Segments = segs
	result.Stats.SegmentTime = time.Since(segStart)
	result.Stats.SegmentCount = len(segs)
	result.Stats.CoveredCount = len(segment.Covered(segs))
	result.CacheInfo.SegmentHit = segHit

	logger.Info("segmented graph",
		"segments", len(segs),
		"covered", result.Stats.CoveredCount,
		"cached", segHit,
		"duration", result.Stats.SegmentTime)

	// Stage 3: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, g, segs, hash, opts)
	if err != nil {
		return nil, fail(span, err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	span.SetAttributes(
		attribute.Int("graph.nodes", result.Stats.NodeCount),
		attribute.Int("segments.count", result.Stats.SegmentCount),
	)
	return result, nil
}

// Load builds the graph from opts.Graph and returns it with its content hash.
func (r *Runner) Load(ctx context.Context, opts Options) (*dag.DAG, string, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, "", err
	}
	_, span := tracer.Start(ctx, "pipeline.Load")
	defer span.End()

	start := time.Now()
	observability.Pipeline().OnLoadStart(ctx, opts.Source)

	g, err := graphdef.Build(opts.Graph, graphdef.BuildOptions{DropBackEdges: opts.DropBackEdges})
	var nodes int
	if g != nil {
		nodes = g.NodeCount()
	}
	observability.Pipeline().OnLoadComplete(ctx, opts.Source, nodes, time.Since(start), err)
	if err != nil {
		return nil, "", fail(span, err)
	}
	if n, ok := g.Meta()[graphdef.DroppedBackEdgesKey].(int); ok && n > 0 {
		opts.Logger.Warn("dropped back edges to break cycles", "count", n)
	}

	hash, err := HashGraph(opts.Graph, opts.DropBackEdges)
	if err != nil {
		return nil, "", fail(span, err)
	}
	return g, hash, nil
}

// HashGraph returns the content hash of a graph definition. The lenient
// build flag is part of the hash because it changes the graph.
func HashGraph(def *graphdef.GraphDef, dropBackEdges bool) (string, error) {
	var buf bytes.Buffer
	if err := graphdef.Write(&buf, def, graphdef.FormatJSON); err != nil {
		return "", errs.Wrap(errs.ErrCodeInternal, err, "serialize graph for hashing")
	}
	if dropBackEdges {
		buf.WriteString("\x00drop_back_edges")
	}
	return cache.Hash(buf.Bytes()), nil
}

// SegmentWithCacheInfo partitions g with caching and returns cache hit info.
func (r *Runner) SegmentWithCacheInfo(ctx context.Context, g *dag.DAG, graphHash string, opts Options) ([]segment.Segment, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	ctx, span := tracer.Start(ctx, "pipeline.Segment")
	defer span.End()

	cacheKey := r.Keyer.SegmentKey(graphHash, opts.SegmentKeyOpts())

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var segs []segment.Segment
			if err := json.Unmarshal(data, &segs); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				return segs, true, nil
			}
		} else if err != nil {
			opts.Logger.Warn("cache lookup failed", "error", err)
		}
	}

	segs, err := Segment(ctx, g, opts)
	if err != nil {
		return nil, false, fail(span, err)
	}

	if data, err := json.Marshal(segs); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.TTL); err != nil {
			opts.Logger.Warn("cache write failed", "error", err)
		}
	}
	return segs, false, nil
}

// Segment partitions g with the policy and options in opts, without caching.
func Segment(ctx context.Context, g *dag.DAG, opts Options) ([]segment.Segment, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	p := policy.New(opts.Policy)
	if p.Empty() {
		opts.Logger.Warn("policy has no candidate ops; no segments will be formed")
	}

	start := time.Now()
	observability.Pipeline().OnSegmentStart(ctx, g.NodeCount())
	segs, err := segment.SegmentGraph(g, p.Candidate, opts.SegmentOptions(),
		append(p.Options(), segment.WithLogger(opts.Logger))...)
	observability.Pipeline().OnSegmentComplete(ctx, len(segs), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	dumpRun(opts.Logger, g, opts, segs)
	return segs, nil
}

// dumpRun logs the inputs and outputs of a partitioning call at debug level.
func dumpRun(logger *log.Logger, g *dag.DAG, opts Options, segs []segment.Segment) {
	if logger.GetLevel() > log.DebugLevel {
		return
	}
	logger.Debug("graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"sources", len(g.Sources()),
		"sinks", len(g.Sinks()))
	logger.Debug("options", "opts", opts.String())
	for _, s := range segs {
		logger.Debug("segment",
			"device", s.Device,
			"affinity", s.Affinity,
			"nodes", s.Nodes,
			"entering", len(s.Entering),
			"exiting", len(s.Exiting))
	}
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *dag.DAG, segs []segment.Segment, graphHash string, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	ctx, span := tracer.Start(ctx, "pipeline.Render",
		trace.WithAttributes(attribute.StringSlice("formats", opts.Formats)))
	defer span.End()

	segKey := r.Keyer.SegmentKey(graphHash, opts.SegmentKeyOpts())

	artifacts := make(map[string][]byte, len(opts.Formats))
	if !opts.Refresh {
		for _, format := range opts.Formats {
			data, hit, err := r.Cache.Get(ctx, r.Keyer.ArtifactKey(segKey, opts.ArtifactKeyOpts(format)))
			if err != nil || !hit {
				break
			}
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, true, nil
		}
	}

	start := time.Now()
	observability.Pipeline().OnRenderStart(ctx, opts.Formats)
	rendered, err := Render(ctx, g, segs, opts)
	observability.Pipeline().OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, fail(span, err)
	}

	for format, data := range rendered {
		key := r.Keyer.ArtifactKey(segKey, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			opts.Logger.Warn("cache write failed", "format", format, "error", err)
		}
	}
	return rendered, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, errs.UserMessage(err))
	return err
}
