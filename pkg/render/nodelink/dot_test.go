package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/segment"
)

func chain(t *testing.T) *dag.DAG {
	t.Helper()
	g := dag.New(nil)
	for _, n := range []dag.Node{
		{ID: "in", Op: "Placeholder"},
		{ID: "a", Op: "MatMul"},
		{ID: "b", Op: "Relu"},
		{ID: "out", Op: "Print"},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range [][2]string{{"in", "a"}, {"a", "b"}, {"b", "out"}} {
		if err := g.AddEdge(dag.Edge{From: e[0], To: e[1]}); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

func TestToDOT(t *testing.T) {
	g := chain(t)
	segs := []segment.Segment{{Nodes: []string{"a", "b"}, Device: "/device:ACCEL:0"}}

	dot := ToDOT(g, segs, Options{})

	for _, want := range []string{
		"digraph G {",
		"subgraph cluster_0 {",
		`label="/device:ACCEL:0";`,
		`"a" [label="a"];`,
		`"in" -> "a" [penwidth=2];`,
		`"a" -> "b" [color="#4285f4"];`,
		`"b" -> "out" [penwidth=2];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}

	cluster := dot[strings.Index(dot, "subgraph"):strings.Index(dot, "  }\n")]
	if strings.Contains(cluster, `"in"`) || strings.Contains(cluster, `"out"`) {
		t.Errorf("nodes outside the segment drawn inside the cluster:\n%s", cluster)
	}
}

func TestToDOT_Detailed(t *testing.T) {
	g := chain(t)
	segs := []segment.Segment{{Nodes: []string{"a", "b"}, Device: "/device:ACCEL:0", Affinity: "/gpu:1"}}

	dot := ToDOT(g, segs, Options{
		Detailed: true,
		Statuses: map[string]segment.Status{"in": segment.Excluded},
	})

	for _, want := range []string{
		`label="/device:ACCEL:0 (was /gpu:1)";`,
		`op: MatMul\nlayer: 1`,
		`taillabel="0"`,
		`headlabel="0"`,
		`fillcolor=lightgrey`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q\n%s", want, dot)
		}
	}
}

func TestToDOT_LayerOrder(t *testing.T) {
	// Inserted consumer first; the DOT still lists the producer first.
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "late"})
	_ = g.AddNode(dag.Node{ID: "early"})
	_ = g.AddEdge(dag.Edge{From: "early", To: "late"})

	dot := ToDOT(g, nil, Options{})
	if strings.Index(dot, `"early" [`) > strings.Index(dot, `"late" [`) {
		t.Errorf("producer not emitted before consumer:\n%s", dot)
	}
}

func TestToDOT_Markers(t *testing.T) {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "m", Op: "Domain", Meta: dag.Metadata{"domain_kind": "device"}})

	dot := ToDOT(g, nil, Options{})
	if !strings.Contains(dot, "shape=diamond") {
		t.Errorf("marker not drawn as diamond:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.40 200.00"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.40 200.00" width="100" height="200"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}

	plain := []byte(`<svg><g/></svg>`)
	if got := normalizeViewBox(plain); string(got) != string(plain) {
		t.Errorf("normalizeViewBox() changed svg without viewBox: %s", got)
	}
}
