package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
	"github.com/matzehuels/segmenter/pkg/domain"
	"github.com/matzehuels/segmenter/pkg/render"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds op, layer and metadata to node labels and port/slot
	// numbers to edges. When false, only the node ID is shown.
	Detailed bool

	// Statuses, when set, shades nodes outside any segment by their
	// eligibility: excluded nodes dashed, rejected candidates grey.
	Statuses map[string]segment.Status
}

// palette cycles through segment cluster colors: fill, border.
var palette = [][2]string{
	{"#e8f0fe", "#4285f4"},
	{"#e6f4ea", "#34a853"},
	{"#fef7e0", "#fbbc04"},
	{"#fce8e6", "#ea4335"},
	{"#f3e8fd", "#a142f4"},
	{"#e4f7fb", "#24c1e0"},
}

// ToDOT converts a partitioned graph to Graphviz DOT. Each segment becomes a
// cluster subgraph labeled with its device; nodes outside segments are drawn
// at top level. Within each group, nodes are emitted by layer and then by
// insertion order so producers come first.
//
// Domain marker nodes are drawn as diamonds. Edges crossing a segment
// boundary are bold.
func ToDOT(g *dag.DAG, segs []segment.Segment, opts Options) string {
	// nil on a cyclic graph; groups then keep insertion order.
	layers, _ := transform.Layers(g)

	owner := make(map[string]int, g.NodeCount())
	for i, s := range segs {
		for _, id := range s.Nodes {
			owner[id] = i
		}
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=18, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i, s := range segs {
		colors := palette[i%len(palette)]
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", clusterLabel(s))
		buf.WriteString("    style=\"rounded,filled\";\n")
		fmt.Fprintf(&buf, "    fillcolor=%q;\n", colors[0])
		fmt.Fprintf(&buf, "    color=%q;\n", colors[1])
		for _, n := range byLayer(g, layers, s.Nodes) {
			fmt.Fprintf(&buf, "    %q [%s];\n", n.ID, strings.Join(fmtAttrs(n, layers, g, opts), ", "))
		}
		buf.WriteString("  }\n")
	}

	var outside []string
	for _, n := range g.Nodes() {
		if _, ok := owner[n.ID]; !ok {
			outside = append(outside, n.ID)
		}
	}
	if len(outside) > 0 {
		buf.WriteString("\n")
	}
	for _, n := range byLayer(g, layers, outside) {
		attrs := fmtAttrs(n, layers, g, opts)
		attrs = append(attrs, statusAttrs(opts.Statuses[n.ID])...)
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		var attrs []string
		from, fromIn := owner[e.From]
		to, toIn := owner[e.To]
		switch {
		case fromIn && toIn && from == to:
			attrs = append(attrs, fmt.Sprintf("color=%q", palette[from%len(palette)][1]))
		case fromIn || toIn:
			attrs = append(attrs, "penwidth=2")
		}
		if opts.Detailed {
			attrs = append(attrs,
				fmt.Sprintf("taillabel=%q", strconv.Itoa(e.Port)),
				fmt.Sprintf("headlabel=%q", strconv.Itoa(e.Slot)),
				"fontsize=10")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.From, e.To, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func clusterLabel(s segment.Segment) string {
	if s.Affinity == "" {
		return s.Device
	}
	return s.Device + " (was " + s.Affinity + ")"
}

// byLayer resolves ids to nodes ordered by layer, then insertion index.
func byLayer(g *dag.DAG, layers []int, ids []string) []*dag.Node {
	nodes := make([]*dag.Node, 0, len(ids))
	for _, id := range ids {
		if n, ok := g.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	if layers == nil {
		return nodes
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		li, lj := layers[g.Index(nodes[i].ID)], layers[g.Index(nodes[j].ID)]
		if li != lj {
			return li < lj
		}
		return g.Index(nodes[i].ID) < g.Index(nodes[j].ID)
	})
	return nodes
}

func fmtLabel(n *dag.Node, layers []int, g *dag.DAG, detailed bool) string {
	if !detailed {
		return n.ID
	}

	var parts []string
	if n.Op != "" {
		parts = append(parts, "op: "+n.Op)
	}
	if layers != nil {
		parts = append(parts, fmt.Sprintf("layer: %d", layers[g.Index(n.ID)]))
	}
	if n.Device != "" {
		parts = append(parts, "device: "+n.Device)
	}
	for _, k := range slices.Sorted(maps.Keys(n.Meta)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Meta[k]))
	}
	if len(parts) == 0 {
		return n.ID
	}
	return n.ID + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *dag.Node, layers []int, g *dag.DAG, opts Options) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, layers, g, opts.Detailed))}
	if domain.IsMarker(n) {
		attrs = append(attrs, "shape=diamond", "style=filled", "fillcolor=khaki")
	}
	return attrs
}

func statusAttrs(s segment.Status) []string {
	switch s {
	case segment.Excluded:
		return []string{"style=\"rounded,filled,dashed\"", "fillcolor=lightgrey"}
	case segment.Eligible, segment.Mandatory, segment.Weak:
		return []string{"fillcolor=whitesmoke"}
	default:
		return nil
	}
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
