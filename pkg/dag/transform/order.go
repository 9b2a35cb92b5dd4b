package transform

import (
	"container/heap"

	"github.com/matzehuels/segmenter/pkg/dag"
)

// TopologicalOrder returns the dense node indices of g in a topological order.
//
// TopologicalOrder uses Kahn's algorithm. Ties between ready nodes are broken
// by insertion index (smallest first), so the order is a pure function of the
// graph and identical across runs:
//  1. Initialize every node with in-degree 0 as ready
//  2. Pop the ready node with the smallest index and emit it
//  3. Decrement the in-degree of each consumer; push newly zero-degree nodes
//  4. Repeat until no node is ready
//
// # Cycles
//
// If g contains a cycle, the nodes on (or behind) the cycle never become ready
// and TopologicalOrder returns [dag.ErrGraphHasCycle] with a nil order.
//
// # Performance
//
// Time complexity is O((V + E) log V) because of the ready heap. Space
// complexity is O(V).
func TopologicalOrder(g *dag.DAG) ([]int, error) {
	n := g.NodeCount()
	inDegree := make([]int, n)
	ready := &intHeap{}

	for i := 0; i < n; i++ {
		inDegree[i] = g.InDegree(g.At(i).ID)
		if inDegree[i] == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	order := make([]int, 0, n)
	for ready.Len() > 0 {
		curr := heap.Pop(ready).(int)
		order = append(order, curr)

		for _, e := range g.Outputs(g.At(curr).ID) {
			child := g.Index(e.To)
			inDegree[child]--
			if inDegree[child] == 0 {
				heap.Push(ready, child)
			}
		}
	}

	if len(order) != n {
		return nil, dag.ErrGraphHasCycle
	}
	return order, nil
}

type intHeap []int

func (h intHeap) Len() int           { return len(h) }
func (h intHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
