package cache

import (
	"slices"
)

// Key types, used as key prefixes and as the keyType reported to hooks.
const (
	KeyTypeSegments = "segments"
	KeyTypeArtifact = "artifact"
)

// Keyer derives cache keys.
type Keyer interface {
	// SegmentKey is the key of a partitioning result.
	SegmentKey(graphHash string, opts SegmentKeyOpts) string

	// ArtifactKey is the key of a rendering of a partitioning result.
	ArtifactKey(segmentKey string, opts ArtifactKeyOpts) string
}

// SegmentKeyOpts lists every input besides the graph that changes a
// partitioning result.
type SegmentKeyOpts struct {
	MinimumSegmentSize int      `json:"min_size"`
	ExcludeNodes       []string `json:"exclude,omitempty"`
	DevicePrefix       string   `json:"device_prefix"`
	CandidateOps       []string `json:"candidate_ops,omitempty"`
	MandatoryOps       []string `json:"mandatory_ops,omitempty"`
	WeakOps            []string `json:"weak_ops,omitempty"`
	DenyOps            []string `json:"deny_ops,omitempty"`
}

// ArtifactKeyOpts identifies a rendering.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// SegmentKey hashes the graph hash with normalized options: op and node
// lists are sorted so their order does not matter.
func (DefaultKeyer) SegmentKey(graphHash string, opts SegmentKeyOpts) string {
	norm := opts
	norm.ExcludeNodes = sorted(opts.ExcludeNodes)
	norm.CandidateOps = sorted(opts.CandidateOps)
	norm.MandatoryOps = sorted(opts.MandatoryOps)
	norm.WeakOps = sorted(opts.WeakOps)
	norm.DenyOps = sorted(opts.DenyOps)
	return hashKey(KeyTypeSegments, graphHash, norm)
}

// ArtifactKey hashes the segment key with the rendering options.
func (DefaultKeyer) ArtifactKey(segmentKey string, opts ArtifactKeyOpts) string {
	return hashKey(KeyTypeArtifact, segmentKey, opts)
}

func sorted(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := slices.Clone(s)
	slices.Sort(out)
	return slices.Compact(out)
}
