package graphdef

import (
	"maps"
	"strconv"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// BuildOptions controls how a GraphDef is turned into a DAG.
type BuildOptions struct {
	// DropBackEdges removes the edges that close cycles (loop constructs)
	// instead of rejecting the graph. The number of dropped edges is stored
	// in the graph metadata under DroppedBackEdgesKey.
	DropBackEdges bool
}

// DroppedBackEdgesKey is the graph metadata key set by Build with DropBackEdges.
const DroppedBackEdgesKey = "dropped_back_edges"

// Build materializes def as a DAG.
//
// Nodes are added in definition order; inputs may reference nodes defined
// later. The k-th input of a node becomes an edge with Slot k. Node attributes
// become node metadata.
//
// Build returns an INVALID_NODE error for bad names, an INVALID_INPUT error
// for references to unknown nodes and an INVALID_ARGUMENT error if the graph
// has a cycle and DropBackEdges is off.
func Build(def *GraphDef, opts BuildOptions) (*dag.DAG, error) {
	if def == nil {
		return nil, errs.New(errs.ErrCodeInvalidArgument, "graph definition is nil")
	}

	meta := dag.Metadata{}
	if def.Name != "" {
		meta["name"] = def.Name
	}

	edges, err := edgesOf(def)
	if err != nil {
		return nil, err
	}

	g, err := assemble(def, meta, edges, nil)
	if err != nil {
		return nil, err
	}
	err = g.Validate()
	if err == nil {
		return g, nil
	}
	if !opts.DropBackEdges {
		return nil, errs.Wrap(errs.ErrCodeInvalidArgument, err, "graph %q", def.Name)
	}

	back := transform.BackEdges(g)
	skip := make(map[dag.Edge]bool, len(back))
	for _, e := range back {
		skip[e] = true
	}
	meta[DroppedBackEdgesKey] = len(back)
	return assemble(def, meta, edges, skip)
}

func edgesOf(def *GraphDef) ([]dag.Edge, error) {
	var edges []dag.Edge
	for _, n := range def.Nodes {
		for slot, ref := range n.Input {
			in, err := ParseInput(ref)
			if err != nil {
				return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "node %q input %d", n.Name, slot)
			}
			edges = append(edges, dag.Edge{From: in.Node, To: n.Name, Port: in.Port, Slot: slot})
		}
	}
	return edges, nil
}

func assemble(def *GraphDef, meta dag.Metadata, edges []dag.Edge, skip map[dag.Edge]bool) (*dag.DAG, error) {
	g := dag.New(meta)
	for _, n := range def.Nodes {
		if err := errs.ValidateNodeName(n.Name); err != nil {
			return nil, err
		}
		if err := errs.ValidateOpName(n.Op); err != nil {
			return nil, err
		}
		node := dag.Node{ID: n.Name, Op: n.Op, Device: n.Device, Meta: dag.Metadata(maps.Clone(n.Attr))}
		if err := g.AddNode(node); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidNode, err, "node %q", n.Name)
		}
	}
	for _, e := range edges {
		if skip[e] {
			continue
		}
		if err := g.AddEdge(e); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "edge %s->%s", e.From, e.To)
		}
	}
	return g, nil
}

// FromDAG converts g back into a GraphDef. Inputs are written in slot order
// with explicit ports where non-zero.
func FromDAG(g *dag.DAG) *GraphDef {
	def := &GraphDef{Nodes: make([]NodeDef, 0, g.NodeCount())}
	if name, ok := g.Meta()["name"].(string); ok {
		def.Name = name
	}
	for _, n := range g.Nodes() {
		nd := NodeDef{Name: n.ID, Op: n.Op, Device: n.Device}
		if len(n.Meta) > 0 {
			nd.Attr = map[string]any(n.Meta)
		}
		for _, e := range g.Inputs(n.ID) {
			nd.Input = append(nd.Input, FormatInput(e.From, e.Port))
		}
		def.Nodes = append(def.Nodes, nd)
	}
	return def
}

// FormatInput is the inverse of ParseInput for data inputs.
func FormatInput(node string, port int) string {
	if port == 0 {
		return node
	}
	return node + ":" + strconv.Itoa(port)
}
