// Package pkg holds the libraries behind segmenter.
//
// Segmenter partitions a dataflow graph into segments: maximal groups of
// accelerator-eligible nodes that can be handed to an accelerator backend as
// one unit without creating a cycle between segments. Everything outside a
// segment stays on the general-purpose executor.
//
// # Layout
//
//   - [dag]: ordered dataflow graph with ports and slots; [dag/transform] has
//     topological order, layering, back edges and the quotient acyclicity check
//   - [graphdef]: serialized graph definitions (JSON, YAML, TOML) and
//     conversion to and from [dag]
//   - [segment]: eligibility classification, the union-find cluster store,
//     contraction to a fixed point and segment assembly
//   - [domain]: regions delimited by domain marker nodes and their metadata
//   - [policy]: op-based candidate, mandatory and weak predicates from config
//   - [config]: TOML/YAML configuration and pass parameter maps
//   - [pipeline]: load, segment and render with caching and tracing
//   - [cache]: null, file and Redis result caches
//   - [render]: Graphviz diagrams with one cluster per segment
//   - [observability]: hooks and their Prometheus implementation
//   - [server]: the HTTP API
//
// # Quick Start
//
//	def, _ := graphdef.Import("model.json")
//	p := policy.New(config.PolicyConfig{CandidateOps: []string{"MatMul", "Relu"}})
//	segs, err := segment.SegmentGraphDef(def, p.Candidate, segment.DefaultOptions(), p.Options()...)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range segs {
//	    fmt.Println(s.Device, s.Nodes)
//	}
//
// [dag]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/dag
// [dag/transform]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/dag/transform
// [graphdef]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/graphdef
// [segment]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/segment
// [domain]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/domain
// [policy]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/policy
// [config]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/config
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/cache
// [render]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/render
// [observability]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/observability
// [server]: https://pkg.go.dev/github.com/matzehuels/segmenter/pkg/server
package pkg
