package domain

import (
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// Regions splits g into the domains delimited by markers of the given kind.
//
// Regions are seeded in node insertion order: the first node that is not a
// stop node and not covered by an earlier region starts the next one. Every
// non-stop node ends up in exactly one region.
func Regions(g *dag.DAG, kind string) ([]*Domain, error) {
	stop := Markers(kind)
	covered := make([]bool, g.NodeCount())

	var regions []*Domain
	for i, n := range g.Nodes() {
		if covered[i] || stop(n) {
			continue
		}
		d, err := Reach(g, []string{n.ID}, stop)
		if err != nil {
			return nil, err
		}
		for _, id := range d.ReachSet {
			covered[g.Index(id)] = true
		}
		regions = append(regions, d)
	}
	return regions, nil
}

// Normalize applies meta to every region of g delimited by markers of the
// given kind and returns the regions, each holding its own clone of meta.
//
// A marker that carries metadata of its own must match meta. Mismatching
// markers and, for metadata implementing [Checker], conflicting instructions
// are reported before any node is modified.
func Normalize(g *dag.DAG, kind string, meta Metadata) ([]*Domain, error) {
	if meta == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "nil metadata for domain kind %q", kind)
	}
	if meta.Kind() != kind {
		return nil, errs.New(errs.ErrCodeInvalidArgument,
			"metadata kind %q does not match domain kind %q", meta.Kind(), kind)
	}

	regions, err := Regions(g, kind)
	if err != nil {
		return nil, err
	}

	checker, _ := meta.(Checker)
	for _, d := range regions {
		if err := checkMarkers(g, d, meta); err != nil {
			return nil, err
		}
		if checker == nil {
			continue
		}
		if err := checker.CheckInstructions(d); err != nil {
			return nil, err
		}
	}
	for _, d := range regions {
		d.Metadata = meta.Clone()
		if err := d.Metadata.NormalizeInstructions(d); err != nil {
			return nil, err
		}
	}
	return regions, nil
}

func checkMarkers(g *dag.DAG, d *Domain, meta Metadata) error {
	for _, ids := range [][]string{d.EnterDomains, d.ExitDomains} {
		for _, id := range ids {
			n, _ := g.Node(id)
			own := MarkerMetadata(n)
			if own != nil && !meta.Matches(own) {
				return errs.New(errs.ErrCodeInvalidArgument,
					"marker %q carries %s, domain requires %s", id, own, meta)
			}
		}
	}
	return nil
}
