package segment

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/segmenter/pkg/dag"
)

// Status is the eligibility of a node for clustering.
type Status int

const (
	// Excluded nodes are listed in Options.ExcludeNodeList. They never join a cluster.
	Excluded Status = iota
	// Ineligible nodes were rejected by the candidate predicate.
	Ineligible
	// Eligible nodes may join a segment and count toward its size.
	Eligible
	// Mandatory nodes must end up in a surviving segment.
	Mandatory
	// Weak nodes may join a segment but do not count toward its size.
	Weak
)

func (s Status) String() string {
	switch s {
	case Excluded:
		return "excluded"
	case Ineligible:
		return "ineligible"
	case Eligible:
		return "eligible"
	case Mandatory:
		return "mandatory"
	case Weak:
		return "weak"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Clustered reports whether nodes with this status take part in contraction.
func (s Status) Clustered() bool {
	return s == Eligible || s == Mandatory || s == Weak
}

// CandidateFunc decides whether a node can run on the accelerator. A returned
// error aborts the call and reaches the caller with its code intact, so a
// predicate can report UNIMPLEMENTED for configurations it does not support.
type CandidateFunc func(*dag.Node) (bool, error)

// NodeTagFunc marks nodes as mandatory or weak.
type NodeTagFunc func(*dag.Node) bool

// Tag adapts an infallible predicate into a CandidateFunc.
func Tag(f NodeTagFunc) CandidateFunc {
	return func(n *dag.Node) (bool, error) { return f(n), nil }
}

func never(*dag.Node) bool { return false }

type classifier struct {
	candidate CandidateFunc
	mandatory NodeTagFunc
	weak      NodeTagFunc
	exclude   map[string]bool
	logger    *log.Logger
}

// classify returns the status of a single node. The exclude list is checked
// before the candidate predicate; mandatory and weak only refine candidates,
// and mandatory wins when both are set.
func (c *classifier) classify(n *dag.Node) (Status, error) {
	if c.exclude[n.ID] {
		return Excluded, nil
	}
	ok, err := c.candidate(n)
	if err != nil {
		return Ineligible, fmt.Errorf("candidate predicate for node %q: %w", n.ID, err)
	}
	if !ok {
		return Ineligible, nil
	}

	mandatory, weak := c.mandatory(n), c.weak(n)
	switch {
	case mandatory && weak:
		c.logger.Debug("node is both mandatory and weak, treating as mandatory", "node", n.ID)
		return Mandatory, nil
	case mandatory:
		return Mandatory, nil
	case weak:
		return Weak, nil
	}
	return Eligible, nil
}

// classifyAll computes the status of every node, indexed by dense node index.
func (c *classifier) classifyAll(g *dag.DAG) ([]Status, error) {
	status := make([]Status, g.NodeCount())
	for i, n := range g.Nodes() {
		s, err := c.classify(n)
		if err != nil {
			return nil, err
		}
		status[i] = s
	}
	return status, nil
}
