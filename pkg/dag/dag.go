package dag

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	// All nodes must have non-empty identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the same
	// ID already exists in the graph. Node IDs must be unique.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// (the producer) does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// (the consumer) does not exist in the graph.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidPort is returned by [DAG.AddEdge] when Port or Slot is negative.
	ErrInvalidPort = errors.New("edge port and slot must not be negative")

	// ErrGraphHasCycle is returned by [DAG.Validate] when a cycle is detected.
	// Cycles are detected using depth-first search with white/gray/black coloring.
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// Metadata stores arbitrary key-value pairs attached to nodes or the graph.
// It carries op attributes (shapes, dtypes) or domain annotations such as
// "domain_kind". Metadata maps are never nil after AddNode.
type Metadata map[string]any

// Node is one operation in the dataflow graph.
//
// The zero value is not usable - ID must be set before adding to a DAG.
type Node struct {
	ID     string   // Unique, stable name
	Op     string   // Operation type (e.g. "MatMul", "Relu")
	Device string   // Device affinity label, empty when unassigned
	Meta   Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed dataflow connection from a producer to a consumer.
//
// Port is the producer's output index and Slot the consumer's input index.
// Several edges may connect the same pair of nodes (multi-output or
// multi-input operations).
type Edge struct {
	From string `json:"from"` // Producer node ID
	To   string `json:"to"`   // Consumer node ID
	Port int    `json:"port"` // Producer output index
	Slot int    `json:"slot"` // Consumer input index
}

// DAG is a directed dataflow graph with stable, insertion-ordered node
// enumeration and ordered operand (input) and user (output) edge lists.
//
// Every node has a dense index in [0, NodeCount()) equal to its insertion
// position; algorithms that need arena-style tables key them by that index.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes []*Node
	index map[string]int
	edges []Edge
	in    [][]int // node index -> edge indices, ordered by slot
	out   [][]int // node index -> edge indices, insertion order
	meta  Metadata
}

// New creates an empty DAG with optional graph-level metadata.
// The metadata parameter can be nil, in which case an empty map is created.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		index: make(map[string]int),
		meta:  meta,
	}
}

// Meta returns the graph-level metadata map.
// The returned map is never nil and can be safely modified.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode appends a node to the graph. Returns ErrInvalidNodeID if the node
// ID is empty, or ErrDuplicateNodeID if a node with the same ID already
// exists. The node's Meta field is initialized to an empty map if nil.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.index[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.index[n.ID] = len(d.nodes)
	d.nodes = append(d.nodes, &n)
	d.in = append(d.in, nil)
	d.out = append(d.out, nil)
	return nil
}

// AddEdge adds a directed edge between two existing nodes.
// Returns ErrUnknownSourceNode if the From node doesn't exist,
// ErrUnknownTargetNode if the To node doesn't exist, or ErrInvalidPort for
// negative ports. Multiple edges between the same nodes are allowed.
//
// The consumer's input list stays sorted by Slot; edges with equal slots keep
// insertion order.
func (d *DAG) AddEdge(e Edge) error {
	from, ok := d.index[e.From]
	if !ok {
		return ErrUnknownSourceNode
	}
	to, ok := d.index[e.To]
	if !ok {
		return ErrUnknownTargetNode
	}
	if e.Port < 0 || e.Slot < 0 {
		return ErrInvalidPort
	}

	ei := len(d.edges)
	d.edges = append(d.edges, e)
	d.out[from] = append(d.out[from], ei)

	pos := len(d.in[to])
	for pos > 0 && d.edges[d.in[to][pos-1]].Slot > e.Slot {
		pos--
	}
	d.in[to] = slices.Insert(d.in[to], pos, ei)
	return nil
}

// Nodes returns all nodes in insertion order.
// The returned slice is a copy, but it holds pointers to the actual node
// structs, so modifications to a node affect the graph.
func (d *DAG) Nodes() []*Node { return slices.Clone(d.nodes) }

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	i, ok := d.index[id]
	if !ok {
		return nil, false
	}
	return d.nodes[i], true
}

// Index returns the dense insertion index of the node, or -1 if not found.
func (d *DAG) Index(id string) int {
	if i, ok := d.index[id]; ok {
		return i
	}
	return -1
}

// At returns the node at dense index i. It panics if i is out of range.
func (d *DAG) At(i int) *Node { return d.nodes[i] }

// Inputs returns the edges feeding the node, ordered by consumer slot.
// Returns nil if the node has no inputs or doesn't exist.
func (d *DAG) Inputs(id string) []Edge {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.collect(d.in[i])
}

// Outputs returns the edges leaving the node in insertion order.
// Returns nil if the node has no outputs or doesn't exist.
func (d *DAG) Outputs(id string) []Edge {
	i, ok := d.index[id]
	if !ok {
		return nil
	}
	return d.collect(d.out[i])
}

func (d *DAG) collect(idx []int) []Edge {
	if len(idx) == 0 {
		return nil
	}
	out := make([]Edge, len(idx))
	for k, ei := range idx {
		out[k] = d.edges[ei]
	}
	return out
}

// Operands returns the IDs of the producers feeding the node, one entry per
// input edge in slot order. A producer feeding several slots appears several times.
func (d *DAG) Operands(id string) []string {
	edges := d.Inputs(id)
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.From
	}
	return ids
}

// Users returns the IDs of the consumers of the node, one entry per output
// edge in insertion order.
func (d *DAG) Users(id string) []string {
	edges := d.Outputs(id)
	ids := make([]string, len(edges))
	for i, e := range edges {
		ids[i] = e.To
	}
	return ids
}

// InDegree returns the number of incoming edges to the node.
// Returns 0 if the node doesn't exist.
func (d *DAG) InDegree(id string) int {
	if i, ok := d.index[id]; ok {
		return len(d.in[i])
	}
	return 0
}

// OutDegree returns the number of outgoing edges from the node.
// Returns 0 if the node doesn't exist.
func (d *DAG) OutDegree(id string) int {
	if i, ok := d.index[id]; ok {
		return len(d.out[i])
	}
	return 0
}

// Sources returns nodes with no incoming edges in insertion order.
func (d *DAG) Sources() []*Node {
	var sources []*Node
	for i, n := range d.nodes {
		if len(d.in[i]) == 0 {
			sources = append(sources, n)
		}
	}
	return sources
}

// Sinks returns nodes with no outgoing edges in insertion order.
func (d *DAG) Sinks() []*Node {
	var sinks []*Node
	for i, n := range d.nodes {
		if len(d.out[i]) == 0 {
			sinks = append(sinks, n)
		}
	}
	return sinks
}

// Validate checks that the graph is acyclic and returns ErrGraphHasCycle
// otherwise. Self loops count as cycles.
//
// Cycle detection runs in O(N+E) time using depth-first search.
func (d *DAG) Validate() error {
	return d.detectCycles()
}

func (d *DAG) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(d.nodes))
	var hasCycle bool

	var dfs func(i int)
	dfs = func(i int) {
		color[i] = gray
		for _, ei := range d.out[i] {
			child := d.index[d.edges[ei].To]
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				hasCycle = true
			}
			if hasCycle {
				return
			}
		}
		color[i] = black
	}

	for i := range d.nodes {
		if color[i] == white {
			dfs(i)
			if hasCycle {
				return ErrGraphHasCycle
			}
		}
	}
	return nil
}

// PosMap creates a position lookup map from a slice of node IDs.
// The returned map maps each ID to its index in the slice.
// Returns an empty map for a nil or empty slice.
func PosMap(ids []string) map[string]int {
	m := make(map[string]int, len(ids))
	for i, id := range ids {
		m[id] = i
	}
	return m
}

// NodeIDs extracts the ID from each node in a slice.
// Returns a new slice containing the IDs in the same order as the input.
func NodeIDs(nodes []*Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
