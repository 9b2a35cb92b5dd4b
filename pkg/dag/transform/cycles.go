package transform

import "github.com/matzehuels/segmenter/pkg/dag"

// BackEdges returns the edges that close a cycle during a depth-first search
// started from the sources of g and then from every remaining node, both in
// insertion order. Removing the returned edges leaves an acyclic graph.
//
// Dataflow graphs with loop constructs carry such edges (an iteration feeding
// the next one); importers use BackEdges to drop them before segmenting.
// An acyclic graph yields nil.
func BackEdges(g *dag.DAG) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, g.NodeCount())
	var backEdges []dag.Edge

	var dfs func(node string)
	dfs = func(node string) {
		color[node] = gray
		for _, e := range g.Outputs(node) {
			switch color[e.To] {
			case white:
				dfs(e.To)
			case gray:
				backEdges = append(backEdges, e)
			}
		}
		color[node] = black
	}

	for _, n := range g.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	for _, n := range g.Nodes() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}

	return backEdges
}
