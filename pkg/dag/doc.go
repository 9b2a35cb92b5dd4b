// Package dag provides the read-only dataflow graph view consumed by the
// segmenter.
//
// # Overview
//
// A dataflow graph is a set of operations (nodes) connected by producer to
// consumer edges. The segmenter groups eligible operations into segments that
// are offloaded to an accelerator; this package only models the graph and
// never knows about segments.
//
// # Basic Usage
//
// Create a new graph with [New], add nodes with [DAG.AddNode], and edges with
// [DAG.AddEdge]. Nodes must have unique IDs:
//
//	g := dag.New(nil)
//	g.AddNode(dag.Node{ID: "input", Op: "Placeholder"})
//	g.AddNode(dag.Node{ID: "relu", Op: "Relu"})
//	g.AddEdge(dag.Edge{From: "input", To: "relu"})
//
// # Ordering
//
// Every query returns results in a stable order so that algorithms built on
// top of the graph are reproducible:
//
//   - [DAG.Nodes] enumerates nodes in insertion order, and [DAG.Index] returns
//     a node's dense insertion index
//   - [DAG.Inputs] returns a node's operand edges sorted by consumer slot
//   - [DAG.Outputs] returns a node's user edges in insertion order
//
// Multiple edges between the same pair of nodes are legal: an operation may
// read two outputs of the same producer, or the same output twice.
//
// # Validation
//
// [DAG.Validate] reports [ErrGraphHasCycle] when the graph is not acyclic.
// The segmenter rejects cyclic graphs, since a cycle at the node level can
// never be contracted safely.
//
// # Concurrency
//
// DAG instances are not safe for concurrent use. A graph may be shared
// read-only between passes that run one after another.
//
// # Related Packages
//
// The [transform] subpackage provides topological ordering, quotient-graph
// acyclicity checks and cycle breaking.
//
// [transform]: github.com/matzehuels/segmenter/pkg/dag/transform
package dag
