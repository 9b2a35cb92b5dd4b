// Package transform provides whole-graph algorithms over a dataflow DAG.
//
// # Overview
//
// The segmenter needs a handful of global views of a graph before and after
// partitioning it. This package collects them so that the segment, domain and
// render packages share one deterministic implementation of each:
//
//   - [TopologicalOrder] orders nodes producers-first, ties broken by
//     insertion index
//   - [Layers] assigns each node its longest-path depth from the sources
//   - [BackEdges] finds the edges that close cycles, for lenient import of
//     graphs with loop constructs
//   - [QuotientIsAcyclic] checks that contracting groups of nodes keeps the
//     graph acyclic
//
// # Determinism
//
// Every function here is a pure function of the graph's insertion order. Two
// graphs built by the same sequence of AddNode/AddEdge calls produce
// identical results, which keeps segment numbering and rendered output
// stable across runs.
//
// # Quotient Checks
//
// Contracting a set of nodes into one point is only legal if no path leaves
// the set and re-enters it through an outside node. [QuotientIsAcyclic]
// verifies that property for many groups at once:
//
//	ok, err := transform.QuotientIsAcyclic(g, [][]string{{"a", "b"}, {"d", "e"}})
//
// The segment package runs it as a final sanity check over every emitted
// segment.
//
// # Usage
//
// Call the functions individually; none of them modifies the graph:
//
//	order, err := transform.TopologicalOrder(g)
//	layers, err := transform.Layers(g)
//	back := transform.BackEdges(g)
package transform
