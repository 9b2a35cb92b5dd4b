package domain

import (
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// StopFunc reports whether the walk must stop at a node. Stop nodes are
// never part of a Domain's reach set; they delimit it.
type StopFunc func(*dag.Node) bool

// Domain is the region of a graph reachable from a start set without crossing
// a stop node, together with the stop nodes and edges that delimit it.
//
// All slices are in BFS discovery order, which is a pure function of the
// graph's insertion order and the start set.
type Domain struct {
	// ReachSet holds every node visited by the walk, markers of other kinds
	// included.
	ReachSet []string

	// Instructions is ReachSet without marker nodes of any kind.
	Instructions []string

	// EnterDomains are stop nodes that feed the region.
	EnterDomains []string

	// ExitDomains are stop nodes that consume data produced in the region.
	ExitDomains []string

	// EnterEdges are the edges from a stop node into the region.
	EnterEdges []dag.Edge

	// ExitEdges are the edges from the region to a stop node.
	ExitEdges []dag.Edge

	// Metadata is the region's own copy of the metadata it was normalized
	// with. Nil until [Normalize] runs.
	Metadata Metadata

	graph  *dag.DAG
	member map[string]bool
}

// Contains reports whether id is part of the reach set.
func (d *Domain) Contains(id string) bool { return d.member[id] }

// Nodes returns the instruction nodes of the domain, in Instructions order.
// The nodes belong to the graph the domain was computed on.
func (d *Domain) Nodes() []*dag.Node {
	nodes := make([]*dag.Node, 0, len(d.Instructions))
	for _, id := range d.Instructions {
		n, _ := d.graph.Node(id)
		nodes = append(nodes, n)
	}
	return nodes
}

// Reach computes the Domain of g reachable from start without entering a node
// for which stop returns true.
//
// The walk is a breadth-first search over both edge directions. Nodes are
// dequeued in FIFO order starting with start (duplicates ignored); for each
// node the input edges are visited in slot order, then the output edges in
// insertion order. An input edge from a stop node is an entering boundary, an
// output edge to a stop node an exiting one. A nil stop never stops.
//
// Reach returns an INVALID_ARGUMENT error if a start node is unknown or is
// itself a stop node.
func Reach(g *dag.DAG, start []string, stop StopFunc) (*Domain, error) {
	if stop == nil {
		stop = func(*dag.Node) bool { return false }
	}

	d := &Domain{graph: g, member: make(map[string]bool)}
	queue := make([]string, 0, len(start))
	for _, id := range start {
		n, ok := g.Node(id)
		if !ok {
			return nil, errs.New(errs.ErrCodeInvalidArgument, "unknown start node %q", id)
		}
		if stop(n) {
			return nil, errs.New(errs.ErrCodeInvalidArgument, "start node %q is a stop node", id)
		}
		if !d.member[id] {
			d.member[id] = true
			queue = append(queue, id)
		}
	}

	entered := make(map[string]bool)
	exited := make(map[string]bool)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		d.ReachSet = append(d.ReachSet, curr)

		for _, e := range g.Inputs(curr) {
			p, _ := g.Node(e.From)
			switch {
			case stop(p):
				d.EnterEdges = append(d.EnterEdges, e)
				if !entered[p.ID] {
					entered[p.ID] = true
					d.EnterDomains = append(d.EnterDomains, p.ID)
				}
			case !d.member[p.ID]:
				d.member[p.ID] = true
				queue = append(queue, p.ID)
			}
		}

		for _, e := range g.Outputs(curr) {
			c, _ := g.Node(e.To)
			switch {
			case stop(c):
				d.ExitEdges = append(d.ExitEdges, e)
				if !exited[c.ID] {
					exited[c.ID] = true
					d.ExitDomains = append(d.ExitDomains, c.ID)
				}
			case !d.member[c.ID]:
				d.member[c.ID] = true
				queue = append(queue, c.ID)
			}
		}
	}

	for _, id := range d.ReachSet {
		n, _ := g.Node(id)
		if !IsMarker(n) {
			d.Instructions = append(d.Instructions, id)
		}
	}
	return d, nil
}
