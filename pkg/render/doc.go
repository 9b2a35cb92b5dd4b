// Package render turns partitioned graphs into pictures.
//
// The [nodelink] subpackage emits Graphviz DOT in which every segment is a
// cluster subgraph, and renders it to SVG in-process. [ToPDF] and [ToPNG]
// convert that SVG with the external rsvg-convert tool (from librsvg).
//
//	dot := nodelink.ToDOT(g, segs, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(svg)
//
// [nodelink]: github.com/matzehuels/segmenter/pkg/render/nodelink
package render
