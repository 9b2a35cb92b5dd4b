package segment

import (
	"slices"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
	"github.com/matzehuels/segmenter/pkg/domain"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

type assembler struct {
	g      *dag.DAG
	status []Status
	store  *clusterStore
	opts   Options
	logger *log.Logger

	dropped int
}

// assemble turns the clusters rooted at roots into segments, in the given
// order. Clusters with fewer non-weak members than the minimum are dropped;
// dropping a cluster that holds a mandatory node fails the whole call.
func (a *assembler) assemble(roots []int) ([]Segment, error) {
	var segs []Segment
	for _, r := range roots {
		members := a.store.nodes(r)

		size, mandatory := 0, -1
		for _, v := range members {
			switch a.status[v] {
			case Weak:
				continue
			case Mandatory:
				if mandatory < 0 {
					mandatory = v
				}
			}
			size++
		}

		if size < a.opts.MinimumSegmentSize {
			if mandatory >= 0 {
				return nil, errs.New(errs.ErrCodeInvalidArgument,
					"mandatory node %q ended in a cluster of size %d, below the minimum segment size %d",
					a.g.At(mandatory).ID, size, a.opts.MinimumSegmentSize)
			}
			a.dropped++
			a.logger.Debug("dropping cluster below minimum size",
				"root", a.g.At(r).ID, "members", len(members), "size", size, "minimum", a.opts.MinimumSegmentSize)
			continue
		}

		seg, err := a.build(r, members, len(segs))
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
	}

	if err := a.checkAcyclic(segs); err != nil {
		return nil, err
	}
	return segs, nil
}

func (a *assembler) build(root int, members []int, index int) (Segment, error) {
	ids := make([]string, len(members))
	for i, v := range members {
		ids[i] = a.g.At(v).ID
	}

	inside := func(n *dag.Node) bool { return a.store.find(a.g.Index(n.ID)) == root }
	d, err := domain.Reach(a.g, ids, func(n *dag.Node) bool { return !inside(n) })
	if err != nil {
		return Segment{}, err
	}

	seg := Segment{
		Nodes:    ids,
		Device:   a.opts.DevicePrefix + strconv.Itoa(index),
		Affinity: a.affinity(ids),
		Entering: d.EnterEdges,
		Exiting:  d.ExitEdges,
	}
	a.logger.Debug("segment", "device", seg.Device, "nodes", len(seg.Nodes),
		"entering", len(seg.Entering), "exiting", len(seg.Exiting))
	return seg, nil
}

// affinity returns the device label shared by the members. With several
// distinct labels it warns and picks the lexicographically first.
func (a *assembler) affinity(ids []string) string {
	var devices []string
	for _, id := range ids {
		n, _ := a.g.Node(id)
		if n.Device != "" && !slices.Contains(devices, n.Device) {
			devices = append(devices, n.Device)
		}
	}
	if len(devices) == 0 {
		return ""
	}
	slices.Sort(devices)
	if len(devices) > 1 {
		a.logger.Warn("multiple device assignments in segment", "devices", devices, "using", devices[0])
	}
	return devices[0]
}

func (a *assembler) checkAcyclic(segs []Segment) error {
	groups := make([][]string, len(segs))
	for i, s := range segs {
		groups[i] = s.Nodes
	}
	ok, err := transform.QuotientIsAcyclic(a.g, groups)
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "invalid segment node sets")
	}
	if !ok {
		return errs.New(errs.ErrCodeInternal, "contracting the segments creates a cycle")
	}
	return nil
}
