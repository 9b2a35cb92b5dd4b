package segment

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/graphdef"
)

const (
	// DefaultMinimumSegmentSize is the size floor used by DefaultOptions.
	DefaultMinimumSegmentSize = 2

	// DefaultDevicePrefix is prepended to the segment index to form its device label.
	DefaultDevicePrefix = "/device:ACCEL:"
)

// Options controls a partitioning call.
type Options struct {
	// MinimumSegmentSize is the smallest number of non-weak members a
	// segment may have. Must be at least 1.
	MinimumSegmentSize int

	// ExcludeNodeList names nodes that never join a segment, whatever the
	// candidate predicate says. Unknown names are ignored.
	ExcludeNodeList []string

	// DevicePrefix is the device label prefix. Empty means DefaultDevicePrefix.
	DevicePrefix string
}

// DefaultOptions returns options with a minimum segment size of 2 and the
// default device prefix.
func DefaultOptions() Options {
	return Options{
		MinimumSegmentSize: DefaultMinimumSegmentSize,
		DevicePrefix:       DefaultDevicePrefix,
	}
}

// Segment is a set of nodes to be offloaded as one unit.
type Segment struct {
	// Nodes lists the member IDs in graph insertion order.
	Nodes []string `json:"nodes"`

	// Device is the assigned label, DevicePrefix followed by the segment's
	// position in the result.
	Device string `json:"device"`

	// Affinity is the device label the members were already assigned to,
	// empty if none of them had one.
	Affinity string `json:"affinity,omitempty"`

	// Entering lists the edges from outside into the segment, by consumer
	// in graph order then slot.
	Entering []dag.Edge `json:"entering"`

	// Exiting lists the edges from the segment to outside, by producer in
	// graph order then output insertion order.
	Exiting []dag.Edge `json:"exiting"`
}

// Contains reports whether the node is a member of the segment.
func (s Segment) Contains(id string) bool {
	for _, n := range s.Nodes {
		if n == id {
			return true
		}
	}
	return false
}

// NodeSet is a segment reduced to its node names and device label.
type NodeSet struct {
	Names  map[string]struct{}
	Device string
}

// Names reduces segments to their name sets, keeping order.
func Names(segs []Segment) []NodeSet {
	out := make([]NodeSet, len(segs))
	for i, s := range segs {
		names := make(map[string]struct{}, len(s.Nodes))
		for _, n := range s.Nodes {
			names[n] = struct{}{}
		}
		out[i] = NodeSet{Names: names, Device: s.Device}
	}
	return out
}

// Option configures optional behavior of SegmentGraph.
type Option func(*settings)

type settings struct {
	mandatory NodeTagFunc
	weak      NodeTagFunc
	logger    *log.Logger
}

// WithMandatory marks nodes that must be placed in a segment. Defaults to
// marking none.
func WithMandatory(f NodeTagFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.mandatory = f
		}
	}
}

// WithWeak marks nodes that do not count toward the minimum segment size.
// Defaults to marking none.
func WithWeak(f NodeTagFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.weak = f
		}
	}
}

// WithLogger sets the logger for debug output. Defaults to discarding.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// SegmentGraph partitions g into segments of candidate nodes.
//
// Candidate nodes are merged greedily along edges while contracting every
// cluster keeps the graph acyclic. Clusters with fewer than
// opts.MinimumSegmentSize non-weak members are dropped. The result is a pure
// function of g's insertion order, the predicates and opts.
//
// g is read, never modified. On error no segments are returned.
func SegmentGraph(g *dag.DAG, candidate CandidateFunc, opts Options, fns ...Option) ([]Segment, error) {
	if g == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "graph is nil")
	}
	if candidate == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "candidate predicate is nil")
	}
	opts, err := validateOptions(opts)
	if err != nil {
		return nil, err
	}

	if err := g.Validate(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArgument, err, "input graph is not acyclic")
	}

	c, cfg := newClassifier(candidate, opts, fns)
	status, err := c.classifyAll(g)
	if err != nil {
		return nil, err
	}

	store, err := newClusterStore(g)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidArgument, err, "input graph is not acyclic")
	}

	engine := newContraction(g, status, store, cfg.logger)
	roots := engine.run()
	if err := store.verify(); err != nil {
		return nil, err
	}

	asm := &assembler{g: g, status: status, store: store, opts: opts, logger: cfg.logger}
	segs, err := asm.assemble(roots)
	if err != nil {
		return nil, err
	}

	cfg.logger.Debug("segmented graph",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"candidates", countClustered(status),
		"merges", engine.merges,
		"rejected", len(engine.rejected),
		"clusters", len(roots),
		"dropped", asm.dropped,
		"segments", len(segs))
	return segs, nil
}

// SegmentGraphDef builds the graph described by def and partitions it with
// SegmentGraph. Definitions with back edges are rejected.
func SegmentGraphDef(def *graphdef.GraphDef, candidate CandidateFunc, opts Options, fns ...Option) ([]Segment, error) {
	if def == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "graph definition is nil")
	}
	g, err := graphdef.Build(def, graphdef.BuildOptions{})
	if err != nil {
		return nil, err
	}
	return SegmentGraph(g, candidate, opts, fns...)
}

func newClassifier(candidate CandidateFunc, opts Options, fns []Option) (*classifier, settings) {
	cfg := settings{mandatory: never, weak: never, logger: log.New(io.Discard)}
	for _, fn := range fns {
		fn(&cfg)
	}
	c := &classifier{
		candidate: candidate,
		mandatory: cfg.mandatory,
		weak:      cfg.weak,
		exclude:   make(map[string]bool, len(opts.ExcludeNodeList)),
		logger:    cfg.logger,
	}
	for _, id := range opts.ExcludeNodeList {
		c.exclude[id] = true
	}
	return c, cfg
}

func validateOptions(opts Options) (Options, error) {
	if opts.MinimumSegmentSize < 1 {
		return opts, errs.New(errs.ErrCodeInvalidArgument,
			"minimum segment size must be at least 1, got %d", opts.MinimumSegmentSize)
	}
	if opts.DevicePrefix == "" {
		opts.DevicePrefix = DefaultDevicePrefix
	}
	if err := errs.ValidateDevicePrefix(opts.DevicePrefix); err != nil {
		return opts, err
	}
	return opts, nil
}

func countClustered(status []Status) int {
	n := 0
	for _, s := range status {
		if s.Clustered() {
			n++
		}
	}
	return n
}

// Statuses reports the eligibility status of every node of g, keyed by node
// ID, using the same rules as SegmentGraph.
func Statuses(g *dag.DAG, candidate CandidateFunc, opts Options, fns ...Option) (map[string]Status, error) {
	if g == nil || candidate == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "graph and candidate predicate are required")
	}
	c, _ := newClassifier(candidate, opts, fns)
	status, err := c.classifyAll(g)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Status, len(status))
	for i, s := range status {
		out[g.At(i).ID] = s
	}
	return out, nil
}

// Covered returns the IDs of all nodes placed in some segment, sorted.
func Covered(segs []Segment) []string {
	var ids []string
	for _, s := range segs {
		ids = append(ids, s.Nodes...)
	}
	sort.Strings(ids)
	return ids
}
