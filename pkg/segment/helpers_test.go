package segment

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
)

var randomOps = []string{"MatMul", "Relu", "Host", "Cast", "Conv", "Add"}

// randomGraph builds an acyclic graph of n nodes. Nodes are inserted in a
// shuffled order while edges only go from lower to higher rank, so insertion
// order and topological order differ.
func randomGraph(seed int64, n int, p float64) *dag.DAG {
	rng := rand.New(rand.NewSource(seed))

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%02d", i)
	}

	g := dag.New(nil)
	for _, rank := range rng.Perm(n) {
		op := randomOps[rng.Intn(len(randomOps))]
		_ = g.AddNode(dag.Node{ID: ids[rank], Op: op})
	}

	slots := make(map[string]int)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if rng.Float64() >= p {
				continue
			}
			_ = g.AddEdge(dag.Edge{From: ids[i], To: ids[j], Slot: slots[ids[j]]})
			slots[ids[j]]++
		}
	}
	return g
}

func assertAcyclic(t *testing.T, g *dag.DAG, segs []Segment) {
	t.Helper()
	groups := make([][]string, len(segs))
	for i, s := range segs {
		groups[i] = s.Nodes
	}
	ok, err := transform.QuotientIsAcyclic(g, groups)
	require.NoError(t, err)
	assert.True(t, ok, "contracting segments %v creates a cycle", groups)
}

func assertBoundary(t *testing.T, g *dag.DAG, s Segment) {
	t.Helper()
	in := make(map[string]bool, len(s.Nodes))
	for _, id := range s.Nodes {
		in[id] = true
	}

	var entering, exiting []dag.Edge
	for _, e := range g.Edges() {
		switch {
		case !in[e.From] && in[e.To]:
			entering = append(entering, e)
		case in[e.From] && !in[e.To]:
			exiting = append(exiting, e)
		}
	}
	assert.ElementsMatch(t, entering, s.Entering, "entering edges of %v", s.Nodes)
	assert.ElementsMatch(t, exiting, s.Exiting, "exiting edges of %v", s.Nodes)
}
