package transform

import (
	"fmt"

	"github.com/matzehuels/segmenter/pkg/dag"
)

// QuotientIsAcyclic reports whether the graph obtained by contracting each
// group of node IDs to a single point is still acyclic.
//
// Nodes not listed in any group stay as singleton points. Edges inside a
// group disappear; edges between two points become a single quotient edge.
// An error is returned if a group references an unknown node or if a node
// appears in more than one group.
//
// # Algorithm
//
// Every node is mapped to a point id (group index, or V + node index for
// ungrouped nodes). The quotient adjacency is built from g's edges and
// checked with a white/gray/black depth-first search.
//
// # Performance
//
// Time complexity is O(V + E).
func QuotientIsAcyclic(g *dag.DAG, groups [][]string) (bool, error) {
	n := g.NodeCount()
	point := make([]int, n)
	for i := range point {
		point[i] = len(groups) + i
	}
	for gi, group := range groups {
		for _, id := range group {
			i := g.Index(id)
			if i < 0 {
				return false, fmt.Errorf("group %d: unknown node %q", gi, id)
			}
			if point[i] < len(groups) {
				return false, fmt.Errorf("node %q appears in groups %d and %d", id, point[i], gi)
			}
			point[i] = gi
		}
	}

	adj := make([][]int, len(groups)+n)
	for _, e := range g.Edges() {
		from, to := point[g.Index(e.From)], point[g.Index(e.To)]
		if from != to {
			adj[from] = append(adj[from], to)
		}
	}

	return !hasCycle(adj), nil
}

func hasCycle(adj [][]int) bool {
	const (
		white = iota
		gray
		black
	)

	color := make([]int, len(adj))
	found := false

	var dfs func(v int)
	dfs = func(v int) {
		color[v] = gray
		for _, w := range adj[v] {
			switch color[w] {
			case white:
				dfs(w)
			case gray:
				found = true
			}
			if found {
				return
			}
		}
		color[v] = black
	}

	for v := range adj {
		if color[v] == white {
			dfs(v)
			if found {
				return true
			}
		}
	}
	return false
}
