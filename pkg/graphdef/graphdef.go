package graphdef

import (
	"maps"
	"slices"
	"strconv"
	"strings"
)

// GraphDef is the serialized form of a dataflow graph.
type GraphDef struct {
	Name  string    `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Nodes []NodeDef `json:"node" yaml:"node" toml:"node"`
}

// NodeDef is one serialized node. Inputs reference producers by name, with an
// optional output port ("matmul:1"); a leading '^' marks a control input.
type NodeDef struct {
	Name   string         `json:"name" yaml:"name" toml:"name"`
	Op     string         `json:"op" yaml:"op" toml:"op"`
	Input  []string       `json:"input,omitempty" yaml:"input,omitempty" toml:"input,omitempty"`
	Device string         `json:"device,omitempty" yaml:"device,omitempty" toml:"device,omitempty"`
	Attr   map[string]any `json:"attr,omitempty" yaml:"attr,omitempty" toml:"attr,omitempty"`
}

// Input is a parsed input reference.
type Input struct {
	Node    string
	Port    int
	Control bool
}

// ParseInput splits an input reference into producer name and port.
// "x" is port 0 of x, "x:2" port 2, "^x" a control input from x.
func ParseInput(ref string) (Input, error) {
	in := Input{Node: ref}
	if strings.HasPrefix(ref, "^") {
		in.Node = ref[1:]
		in.Control = true
		return in, nil
	}
	name, port, ok := strings.Cut(ref, ":")
	if !ok {
		return in, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 {
		return in, &inputError{ref: ref}
	}
	in.Node, in.Port = name, p
	return in, nil
}

type inputError struct{ ref string }

func (e *inputError) Error() string { return "malformed input reference " + strconv.Quote(e.ref) }

// Clone returns a deep copy of def. Attribute values are copied shallowly.
func (def *GraphDef) Clone() *GraphDef {
	out := &GraphDef{Name: def.Name, Nodes: make([]NodeDef, len(def.Nodes))}
	for i, n := range def.Nodes {
		n.Input = slices.Clone(n.Input)
		n.Attr = maps.Clone(n.Attr)
		out.Nodes[i] = n
	}
	return out
}

// Assign returns a copy of def where every node named in devices has its
// device replaced and the assignment recorded in the "_segment_device"
// attribute. Nodes not in devices are unchanged.
func Assign(def *GraphDef, devices map[string]string) *GraphDef {
	out := def.Clone()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		d, ok := devices[n.Name]
		if !ok {
			continue
		}
		n.Device = d
		if n.Attr == nil {
			n.Attr = map[string]any{}
		}
		n.Attr[SegmentDeviceAttr] = d
	}
	return out
}

// SegmentDeviceAttr is the attribute Assign records the segment device under.
const SegmentDeviceAttr = "_segment_device"
