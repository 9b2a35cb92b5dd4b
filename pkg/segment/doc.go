// Package segment partitions a dataflow graph into segments that can be
// offloaded to an accelerator as single units.
//
// # Overview
//
// A segment is a set of nodes accepted by a caller-supplied candidate
// predicate. Segments are disjoint, and contracting each of them to a single
// node keeps the graph acyclic, so a downstream pass can replace every
// segment with one fused operation without introducing a dependency loop.
//
//	segs, err := segment.SegmentGraph(g, isSupported, segment.DefaultOptions())
//
// # Eligibility
//
// Every node gets a [Status] before contraction:
//
//   - Excluded: listed in [Options].ExcludeNodeList, checked first
//   - Ineligible: the candidate predicate returned false
//   - Mandatory: a candidate marked by [WithMandatory]
//   - Weak: a candidate marked by [WithWeak]
//   - Eligible: any other candidate
//
// Mandatory and weak only refine candidates. A node marked both is treated as
// mandatory. An error from the candidate predicate aborts the call and keeps
// its code, so a predicate may report UNIMPLEMENTED.
//
// # Contraction
//
// Clusters start as single nodes and are merged greedily along edges: nodes
// are visited in insertion order, each node's inputs in slot order, and the
// producer's cluster is merged into the consumer's unless some path leaves one
// cluster and re-enters the other through a third. Rejected edges are never
// retried. Passes repeat until nothing merges.
//
// Cycle checks use exact ancestor and descendant sets over the contracted
// graph, kept as bitsets over dense node indices. A merge check is two set
// intersections, and a merge only updates clusters related to one side.
//
// # Assembly
//
// A cluster survives if it holds at least [Options].MinimumSegmentSize
// non-weak members. Dropping a cluster that contains a mandatory node fails
// the call with INVALID_ARGUMENT. Survivors become segments in the order
// their clusters were first merged (clusters never merged follow, in node
// order), each labeled DevicePrefix plus its index and carrying its entering
// and exiting boundary edges.
//
// # Determinism
//
// The result depends only on the graph's insertion order, the predicates and
// the options. Two calls on the same input return equal segment lists.
//
// # Concurrency
//
// SegmentGraph reads the graph and never modifies it. It takes no lock; the
// caller must not modify the graph during the call.
package segment
