package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

// buildRegionGraph builds
//
//	in -> enter -> a -> s -> b -> exit -> out
//	               a ---------> b
//
// where enter and exit are device markers and s is a marker of another kind.
func buildRegionGraph(t *testing.T) *dag.DAG {
	r := require.New(t)
	g := dag.New(nil)

	marker := func(id, kind string) dag.Node {
		return dag.Node{ID: id, Op: MarkerOp, Meta: dag.Metadata{KindKey: kind}}
	}
	r.NoError(g.AddNode(dag.Node{ID: "in", Op: "Placeholder"}))
	r.NoError(g.AddNode(marker("enter", DeviceKind)))
	r.NoError(g.AddNode(dag.Node{ID: "a", Op: "MatMul"}))
	r.NoError(g.AddNode(marker("s", "sharding")))
	r.NoError(g.AddNode(dag.Node{ID: "b", Op: "Add"}))
	r.NoError(g.AddNode(marker("exit", DeviceKind)))
	r.NoError(g.AddNode(dag.Node{ID: "out", Op: "Identity"}))

	for _, e := range []dag.Edge{
		{From: "in", To: "enter"},
		{From: "enter", To: "a"},
		{From: "a", To: "s"},
		{From: "s", To: "b"},
		{From: "b", To: "exit"},
		{From: "exit", To: "out"},
		{From: "a", To: "b", Slot: 1},
	} {
		r.NoError(g.AddEdge(e))
	}
	return g
}

func TestReach(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	d, err := Reach(g, []string{"a"}, Markers(DeviceKind))
	r.NoError(err)

	r.Equal([]string{"a", "s", "b"}, d.ReachSet)
	r.Equal([]string{"a", "b"}, d.Instructions)
	r.Equal([]string{"enter"}, d.EnterDomains)
	r.Equal([]string{"exit"}, d.ExitDomains)
	r.Equal([]dag.Edge{{From: "enter", To: "a"}}, d.EnterEdges)
	r.Equal([]dag.Edge{{From: "b", To: "exit"}}, d.ExitEdges)

	r.True(d.Contains("s"))
	r.False(d.Contains("enter"))
	r.Equal([]string{"a", "b"}, dag.NodeIDs(d.Nodes()))
}

func TestReach_StartOrderDeterminesVisitOrder(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	d, err := Reach(g, []string{"b", "a", "b"}, Markers(DeviceKind))
	r.NoError(err)
	r.Equal([]string{"b", "a", "s"}, d.ReachSet)

	again, err := Reach(g, []string{"b", "a", "b"}, Markers(DeviceKind))
	r.NoError(err)
	r.Equal(d.ReachSet, again.ReachSet)
	r.Equal(d.ExitEdges, again.ExitEdges)
}

func TestReach_NilStopCoversComponent(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	d, err := Reach(g, []string{"out"}, nil)
	r.NoError(err)
	r.Len(d.ReachSet, g.NodeCount())
	r.Equal([]string{"in", "a", "b", "out"}, sortedByGraph(g, d.Instructions))
	r.Empty(d.EnterEdges)
	r.Empty(d.ExitEdges)
}

func TestReach_InvalidStart(t *testing.T) {
	g := buildRegionGraph(t)

	_, err := Reach(g, []string{"missing"}, nil)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument))

	_, err = Reach(g, []string{"enter"}, Markers(DeviceKind))
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument))
}

func TestReach_ClusterBoundary(t *testing.T) {
	r := require.New(t)

	// a -> b -> c -> d with a double edge b => c
	g := dag.New(nil)
	for _, id := range []string{"a", "b", "c", "d"} {
		r.NoError(g.AddNode(dag.Node{ID: id}))
	}
	r.NoError(g.AddEdge(dag.Edge{From: "a", To: "b"}))
	r.NoError(g.AddEdge(dag.Edge{From: "b", To: "c"}))
	r.NoError(g.AddEdge(dag.Edge{From: "b", To: "c", Port: 1, Slot: 1}))
	r.NoError(g.AddEdge(dag.Edge{From: "c", To: "d"}))

	in := map[string]bool{"b": true, "c": true}
	d, err := Reach(g, []string{"b", "c"}, func(n *dag.Node) bool { return !in[n.ID] })
	r.NoError(err)

	r.Equal([]string{"b", "c"}, d.ReachSet)
	r.Equal([]dag.Edge{{From: "a", To: "b"}}, d.EnterEdges)
	r.Equal([]dag.Edge{{From: "c", To: "d"}}, d.ExitEdges)
}

func TestMarkers(t *testing.T) {
	g := buildRegionGraph(t)
	enter, _ := g.Node("enter")
	s, _ := g.Node("s")
	a, _ := g.Node("a")

	assert.True(t, Markers(DeviceKind)(enter))
	assert.False(t, Markers(DeviceKind)(s))
	assert.False(t, Markers(DeviceKind)(a))

	kind, ok := MarkerKind(s)
	assert.True(t, ok)
	assert.Equal(t, "sharding", kind)

	_, ok = MarkerKind(a)
	assert.False(t, ok)
}

func TestRegions(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	regions, err := Regions(g, DeviceKind)
	r.NoError(err)
	r.Len(regions, 3)

	r.Equal([]string{"in"}, regions[0].ReachSet)
	r.Equal([]string{"enter"}, regions[0].ExitDomains)
	r.Empty(regions[0].EnterDomains)

	r.Equal([]string{"a", "s", "b"}, regions[1].ReachSet)

	r.Equal([]string{"out"}, regions[2].ReachSet)
	r.Equal([]string{"exit"}, regions[2].EnterDomains)
	r.Empty(regions[2].ExitDomains)
}

func TestNormalize(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	meta := &DeviceMetadata{Device: "/device:GPU:0"}
	regions, err := Normalize(g, DeviceKind, meta)
	r.NoError(err)
	r.Len(regions, 3)
	for _, d := range regions {
		r.True(meta.Matches(d.Metadata))
		r.NotSame(meta, d.Metadata, "each region owns a clone")
	}

	for _, id := range []string{"in", "a", "b", "out"} {
		n, _ := g.Node(id)
		r.Equal("/device:GPU:0", n.Device, id)
	}
	for _, id := range []string{"enter", "s", "exit"} {
		n, _ := g.Node(id)
		r.Empty(n.Device, id)
	}
}

func TestNormalize_ConflictLeavesGraphUntouched(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	b, _ := g.Node("b")
	b.Device = "/device:CPU:0"

	_, err := Normalize(g, DeviceKind, &DeviceMetadata{Device: "/device:GPU:0"})
	r.Error(err)
	r.True(errs.Is(err, errs.ErrCodeInvalidArgument))

	for _, id := range []string{"in", "a", "out"} {
		n, _ := g.Node(id)
		r.Empty(n.Device, id)
	}
}

func TestNormalize_KindMismatch(t *testing.T) {
	g := buildRegionGraph(t)

	_, err := Normalize(g, "sharding", &DeviceMetadata{Device: "/device:GPU:0"})
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument))

	_, err = Normalize(g, DeviceKind, nil)
	assert.True(t, errs.Is(err, errs.ErrCodeInvalidArgument))
}

func TestNormalize_MarkerMetadata(t *testing.T) {
	r := require.New(t)
	g := buildRegionGraph(t)

	enter, _ := g.Node("enter")
	enter.Device = "/device:GPU:1"
	r.Equal(&DeviceMetadata{Device: "/device:GPU:1"}, MarkerMetadata(enter))
	s, _ := g.Node("s")
	r.Nil(MarkerMetadata(s), "other kinds carry no device metadata")

	_, err := Normalize(g, DeviceKind, &DeviceMetadata{Device: "/device:GPU:0"})
	r.True(errs.Is(err, errs.ErrCodeInvalidArgument), "got %v", err)
	for _, id := range []string{"in", "a", "b", "out"} {
		n, _ := g.Node(id)
		r.Empty(n.Device, id)
	}

	_, err = Normalize(g, DeviceKind, &DeviceMetadata{Device: "/device:GPU:1"})
	r.NoError(err)
	a, _ := g.Node("a")
	r.Equal("/device:GPU:1", a.Device)
}

func TestDeviceMetadata(t *testing.T) {
	m := &DeviceMetadata{Device: "/device:GPU:0"}

	c := m.Clone()
	assert.True(t, m.Matches(c))
	assert.Equal(t, "{device=/device:GPU:0}", c.String())

	c.(*DeviceMetadata).Device = "/device:GPU:1"
	assert.False(t, m.Matches(c))
	assert.Equal(t, "/device:GPU:0", m.Device)
}

func sortedByGraph(g *dag.DAG, ids []string) []string {
	pos := make([]bool, g.NodeCount())
	for _, id := range ids {
		pos[g.Index(id)] = true
	}
	var out []string
	for i, ok := range pos {
		if ok {
			out = append(out, g.At(i).ID)
		}
	}
	return out
}
