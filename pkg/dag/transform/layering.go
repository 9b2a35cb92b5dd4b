package transform

import "github.com/matzehuels/segmenter/pkg/dag"

// Layers assigns each node a layer equal to the length of the longest path
// from any source to it, indexed by dense node index.
//
// Layers uses a longest-path pass over [TopologicalOrder]. Each node is placed
// at one plus the maximum layer of any of its producers, ensuring that:
//   - Source nodes (no incoming edges) are at layer 0
//   - Every producer sits strictly above its consumers
//
// Renderers use the result to rank nodes so that dataflow reads top to bottom.
//
// # Cycles
//
// If g contains a cycle, Layers returns [dag.ErrGraphHasCycle].
//
// # Performance
//
// Time complexity is O((V + E) log V), dominated by the topological order.
func Layers(g *dag.DAG) ([]int, error) {
	order, err := TopologicalOrder(g)
	if err != nil {
		return nil, err
	}

	layers := make([]int, g.NodeCount())
	for _, curr := range order {
		for _, e := range g.Outputs(g.At(curr).ID) {
			child := g.Index(e.To)
			if layer := layers[curr] + 1; layer > layers[child] {
				layers[child] = layer
			}
		}
	}
	return layers, nil
}

// LayerCount returns one plus the largest layer in layers, or 0 when empty.
func LayerCount(layers []int) int {
	count := 0
	for _, l := range layers {
		if l+1 > count {
			count = l + 1
		}
	}
	return count
}
