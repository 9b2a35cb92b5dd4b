// Package nodelink renders partitioned dataflow graphs as node-link diagrams.
//
// # Overview
//
// Nodes appear as boxes connected by arrows. Every segment is drawn as a
// Graphviz cluster labeled with its device, so the partition can be checked
// at a glance: boundary edges are bold and edges inside a segment take the
// segment's color.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, segs, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)
//
// # Options
//
//   - Detailed: node labels include op, layer, device and metadata; edges
//     carry producer port and consumer slot numbers
//   - Statuses: eligibility per node, used to shade nodes left outside
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
