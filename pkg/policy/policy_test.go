package policy

import (
	"testing"

	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/segment"
)

func TestPolicy(t *testing.T) {
	p := New(config.PolicyConfig{
		CandidateOps: []string{"MatMul"},
		MandatoryOps: []string{"Conv2D"},
		WeakOps:      []string{"Identity"},
		DenyOps:      []string{"PyFunc"},
	})

	tests := []struct {
		op        string
		candidate bool
		mand      bool
		weak      bool
	}{
		{"MatMul", true, false, false},
		{"Conv2D", true, true, false},
		{"Identity", true, false, true},
		{"Print", false, false, false},
		{"", false, false, false},
	}
	for _, tt := range tests {
		n := &dag.Node{ID: "n", Op: tt.op}
		got, err := p.Candidate(n)
		if err != nil {
			t.Fatalf("Candidate(%q) error: %v", tt.op, err)
		}
		if got != tt.candidate {
			t.Errorf("Candidate(%q) = %v, want %v", tt.op, got, tt.candidate)
		}
		if got := p.Mandatory(n); got != tt.mand {
			t.Errorf("Mandatory(%q) = %v, want %v", tt.op, got, tt.mand)
		}
		if got := p.Weak(n); got != tt.weak {
			t.Errorf("Weak(%q) = %v, want %v", tt.op, got, tt.weak)
		}
	}

	if got, want := p.Ops(), []string{"Conv2D", "Identity", "MatMul"}; len(got) != len(want) {
		t.Errorf("Ops() = %v, want %v", got, want)
	} else {
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Ops()[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	}
}

func TestPolicy_Deny(t *testing.T) {
	p := New(config.PolicyConfig{CandidateOps: []string{"MatMul"}, DenyOps: []string{"PyFunc"}})

	_, err := p.Candidate(&dag.Node{ID: "f", Op: "PyFunc"})
	if !errs.Is(err, errs.ErrCodeUnimplemented) {
		t.Fatalf("Candidate(PyFunc) error = %v, want UNIMPLEMENTED", err)
	}
}

func TestPolicy_Empty(t *testing.T) {
	var zero Policy
	if ok, err := zero.Candidate(&dag.Node{ID: "a", Op: "MatMul"}); ok || err != nil {
		t.Errorf("zero Policy Candidate = %v, %v, want false, nil", ok, err)
	}
	if !New(config.PolicyConfig{}).Empty() {
		t.Error("Empty() = false for empty config")
	}
	if New(config.PolicyConfig{WeakOps: []string{"Identity"}}).Empty() {
		t.Error("Empty() = true with weak ops")
	}
}

func TestPolicy_SegmentGraph(t *testing.T) {
	// in -> a(MatMul) -> b(Identity) -> c(PyFunc)
	g := dag.New(nil)
	for _, n := range []dag.Node{
		{ID: "in", Op: "Placeholder"},
		{ID: "a", Op: "MatMul"},
		{ID: "b", Op: "Identity"},
		{ID: "c", Op: "PyFunc"},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	for _, e := range [][2]string{{"in", "a"}, {"a", "b"}, {"b", "c"}} {
		if err := g.AddEdge(dag.Edge{From: e[0], To: e[1]}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.Policy = config.PolicyConfig{CandidateOps: []string{"MatMul"}, WeakOps: []string{"Identity"}}
	p := FromConfig(cfg)

	segs, err := segment.SegmentGraph(g, p.Candidate, cfg.SegmentOptions(), p.Options()...)
	if err != nil {
		t.Fatalf("SegmentGraph() error: %v", err)
	}
	if len(segs) != 0 {
		t.Errorf("SegmentGraph() = %v, want none: the weak Identity does not count", segs)
	}

	cfg.Segment.MinimumSegmentSize = 1
	segs, err = segment.SegmentGraph(g, p.Candidate, cfg.SegmentOptions(), p.Options()...)
	if err != nil {
		t.Fatalf("SegmentGraph() error: %v", err)
	}
	if len(segs) != 1 || len(segs[0].Nodes) != 2 {
		t.Fatalf("SegmentGraph() = %v, want one segment [a b]", segs)
	}

	cfg.Policy.DenyOps = []string{"PyFunc"}
	p = FromConfig(cfg)
	_, err = segment.SegmentGraph(g, p.Candidate, cfg.SegmentOptions(), p.Options()...)
	if !errs.Is(err, errs.ErrCodeUnimplemented) {
		t.Errorf("SegmentGraph() error = %v, want UNIMPLEMENTED", err)
	}
}
