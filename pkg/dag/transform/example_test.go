package transform_test

import (
	"fmt"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/dag/transform"
)

func ExampleTopologicalOrder() {
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "relu", Op: "Relu"})
	_ = g.AddNode(dag.Node{ID: "x", Op: "Placeholder"})
	_ = g.AddNode(dag.Node{ID: "matmul", Op: "MatMul"})
	_ = g.AddEdge(dag.Edge{From: "x", To: "matmul"})
	_ = g.AddEdge(dag.Edge{From: "matmul", To: "relu"})

	order, _ := transform.TopologicalOrder(g)
	for _, i := range order {
		fmt.Println(g.At(i).ID)
	}
	// Output:
	// x
	// matmul
	// relu
}

func ExampleLayers() {
	// x → a → b, x → b
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "x"})
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddEdge(dag.Edge{From: "x", To: "a"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "x", To: "b", Slot: 1})

	layers, _ := transform.Layers(g)
	fmt.Println(layers)
	fmt.Println("layers:", transform.LayerCount(layers))
	// Output:
	// [0 1 2]
	// layers: 3
}

func ExampleBackEdges() {
	// An iteration loop: body feeds next, next feeds body again.
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "enter"})
	_ = g.AddNode(dag.Node{ID: "body"})
	_ = g.AddNode(dag.Node{ID: "next"})
	_ = g.AddEdge(dag.Edge{From: "enter", To: "body"})
	_ = g.AddEdge(dag.Edge{From: "body", To: "next"})
	_ = g.AddEdge(dag.Edge{From: "next", To: "body", Slot: 1})

	for _, e := range transform.BackEdges(g) {
		fmt.Printf("%s -> %s\n", e.From, e.To)
	}
	// Output:
	// next -> body
}

func ExampleQuotientIsAcyclic() {
	// a → b → c: contracting {a, c} would need b both after and before it.
	g := dag.New(nil)
	_ = g.AddNode(dag.Node{ID: "a"})
	_ = g.AddNode(dag.Node{ID: "b"})
	_ = g.AddNode(dag.Node{ID: "c"})
	_ = g.AddEdge(dag.Edge{From: "a", To: "b"})
	_ = g.AddEdge(dag.Edge{From: "b", To: "c"})

	ok, _ := transform.QuotientIsAcyclic(g, [][]string{{"a", "b"}})
	fmt.Println("{a, b}:", ok)
	ok, _ = transform.QuotientIsAcyclic(g, [][]string{{"a", "c"}})
	fmt.Println("{a, c}:", ok)
	// Output:
	// {a, b}: true
	// {a, c}: false
}
