// Package graphdef reads and writes serialized dataflow graph definitions.
//
// # Overview
//
// A graph definition lists nodes in order, each naming its op, its inputs
// and optionally a device and free-form attributes. The same structure is
// accepted as JSON, YAML or TOML:
//
//	{
//	  "name": "mlp",
//	  "node": [
//	    {"name": "x", "op": "Placeholder"},
//	    {"name": "w", "op": "Const"},
//	    {"name": "matmul", "op": "MatMul", "input": ["x", "w"]},
//	    {"name": "relu", "op": "Relu", "input": ["matmul"], "device": "/device:GPU:0"}
//	  ]
//	}
//
// In TOML every node is a [[node]] table; in YAML "node" is a sequence.
//
// # Inputs
//
// An input names its producer, optionally followed by the producer output
// port: "split:1". A leading '^' marks a control input; it becomes an edge
// like any other. The position of an input in the list is the edge's slot.
//
// # Building
//
// [Build] turns a definition into a [dag.DAG]. Inputs may reference nodes
// defined later. Graphs with loops are rejected unless
// [BuildOptions].DropBackEdges is set, in which case the edges that close
// cycles are removed (see [transform.BackEdges]):
//
//	def, err := graphdef.Import("model.yaml")
//	g, err := graphdef.Build(def, graphdef.BuildOptions{})
//
// # Export
//
// [FromDAG] converts a graph back; [Write] and [Export] encode it. [Assign]
// returns a copy of a definition with segment devices applied, which is what
// a downstream substitution pass consumes.
//
// [dag.DAG]: github.com/matzehuels/segmenter/pkg/dag.DAG
// [transform.BackEdges]: github.com/matzehuels/segmenter/pkg/dag/transform.BackEdges
package graphdef
