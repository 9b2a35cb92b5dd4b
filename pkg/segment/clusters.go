package segment

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// clusterStore is a union-find over dense node indices.
//
// Every node starts as its own cluster, clustered or not: unclustered nodes
// stay singletons but are still points of the quotient graph. Member,
// ancestor and descendant sets are only valid at roots. anc[r] holds every
// node outside cluster r from which r is reachable in the quotient graph and
// desc[r] every node outside r reachable from r. Both are always unions of
// whole clusters.
type clusterStore struct {
	g       *dag.DAG
	parent  []int
	size    []int
	members []*bitset.BitSet
	anc     []*bitset.BitSet
	desc    []*bitset.BitSet
}

// newClusterStore builds singleton clusters with ancestor and descendant sets
// equal to the transitive closure of g. g must be acyclic.
func newClusterStore(g *dag.DAG) (*clusterStore, error) {
	order, err := transform.TopologicalOrder(g)
	if err != nil {
		return nil, err
	}

	n := g.NodeCount()
	s := &clusterStore{
		g:       g,
		parent:  make([]int, n),
		size:    make([]int, n),
		members: make([]*bitset.BitSet, n),
		anc:     make([]*bitset.BitSet, n),
		desc:    make([]*bitset.BitSet, n),
	}
	for i := 0; i < n; i++ {
		s.parent[i] = i
		s.size[i] = 1
		s.members[i] = bitset.New(uint(n)).Set(uint(i))
	}

	for _, v := range order {
		anc := bitset.New(uint(n))
		for _, e := range g.Inputs(g.At(v).ID) {
			p := g.Index(e.From)
			anc.Set(uint(p))
			anc.InPlaceUnion(s.anc[p])
		}
		s.anc[v] = anc
	}
	for i := len(order) - 1; i >= 0; i-- {
		v := order[i]
		desc := bitset.New(uint(n))
		for _, e := range g.Outputs(g.At(v).ID) {
			c := g.Index(e.To)
			desc.Set(uint(c))
			desc.InPlaceUnion(s.desc[c])
		}
		s.desc[v] = desc
	}
	return s, nil
}

// find returns the root of v's cluster, compressing the path on the way.
func (s *clusterStore) find(v int) int {
	root := v
	for s.parent[root] != root {
		root = s.parent[root]
	}
	for s.parent[v] != root {
		next := s.parent[v]
		s.parent[v] = root
		v = next
	}
	return root
}

// canMerge reports whether contracting the clusters of a and b together keeps
// the quotient graph acyclic. That fails exactly when one cluster reaches the
// other through a third cluster, i.e. some node outside both is a descendant
// of one and an ancestor of the other. desc[r] and anc[r] never hold members
// of r, so the intersection alone decides it.
func (s *clusterStore) canMerge(a, b int) bool {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return true
	}
	return s.desc[ra].IntersectionCardinality(s.anc[rb]) == 0 &&
		s.desc[rb].IntersectionCardinality(s.anc[ra]) == 0
}

// merge unions the clusters of a and b and returns the new root. The larger
// cluster's root survives; on a tie a's root does.
//
// The merged cluster M inherits the union of both ancestor and descendant
// sets, minus its own members. New quotient paths all run through M, so only
// clusters related to exactly one side gain anything: a descendant of one
// side now also descends from the other side and its ancestors, and
// symmetrically for ancestors.
func (s *clusterStore) merge(a, b int) int {
	ra, rb := s.find(a), s.find(b)
	if ra == rb {
		return ra
	}
	if s.size[ra] < s.size[rb] {
		ra, rb = rb, ra
	}

	ma, mb := s.members[ra], s.members[rb]
	newDesc := oneSided(s.desc[ra], s.desc[rb], ma, mb)
	newAnc := oneSided(s.anc[ra], s.anc[rb], ma, mb)

	s.parent[rb] = ra
	s.size[ra] += s.size[rb]
	ma.InPlaceUnion(mb)
	s.anc[ra].InPlaceUnion(s.anc[rb])
	s.anc[ra].InPlaceDifference(ma)
	s.desc[ra].InPlaceUnion(s.desc[rb])
	s.desc[ra].InPlaceDifference(ma)
	s.members[rb], s.anc[rb], s.desc[rb] = nil, nil, nil

	s.eachRoot(newDesc, func(d int) {
		s.anc[d].InPlaceUnion(ma)
		s.anc[d].InPlaceUnion(s.anc[ra])
	})
	s.eachRoot(newAnc, func(u int) {
		s.desc[u].InPlaceUnion(ma)
		s.desc[u].InPlaceUnion(s.desc[ra])
	})
	return ra
}

// oneSided returns the nodes in exactly one of x and y, excluding both
// clusters' members.
func oneSided(x, y, ma, mb *bitset.BitSet) *bitset.BitSet {
	out := x.SymmetricDifference(y)
	out.InPlaceDifference(ma)
	out.InPlaceDifference(mb)
	return out
}

// eachRoot calls fn for the root of every cluster in set. set must be a
// union of whole clusters.
func (s *clusterStore) eachRoot(set *bitset.BitSet, fn func(r int)) {
	for v, ok := set.NextSet(0); ok; v, ok = set.NextSet(v + 1) {
		if s.parent[v] == int(v) {
			fn(int(v))
		}
	}
}

// nodes returns the member indices of root r in ascending (graph) order.
func (s *clusterStore) nodes(r int) []int {
	m := s.members[r]
	out := make([]int, 0, m.Count())
	for v, ok := m.NextSet(0); ok; v, ok = m.NextSet(v + 1) {
		out = append(out, int(v))
	}
	return out
}

// verify checks that no cluster is its own ancestor.
func (s *clusterStore) verify() error {
	for r := range s.parent {
		if s.parent[r] != r {
			continue
		}
		if s.anc[r].IntersectionCardinality(s.members[r]) > 0 ||
			s.desc[r].IntersectionCardinality(s.members[r]) > 0 {
			return errs.New(errs.ErrCodeInternal,
				"cluster of node %q is its own ancestor", s.g.At(r).ID)
		}
	}
	return nil
}
