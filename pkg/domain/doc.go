// Package domain computes marker-delimited regions of a dataflow graph.
//
// A domain is the maximal set of nodes reachable from a start set, walking
// both operand and user edges, without crossing a stop node. The stop nodes
// adjacent to the region on its input side are the domains data enters from;
// those on its output side are the domains data exits to.
//
// [Reach] is the primitive. The segment package calls it with a "not in this
// cluster" stop predicate to find a segment's boundary edges. [Regions] and
// [Normalize] use it with [Markers] to walk every region delimited by marker
// nodes (op "Domain", metadata key "domain_kind") and apply [Metadata] such
// as [DeviceMetadata] to the instructions inside.
//
// Output order is deterministic: slices follow BFS discovery order, which
// depends only on the start order and the graph's insertion order.
package domain
