// Package policy builds segmentation predicates from op type lists.
//
// A Policy answers three questions about a node by its op type: may it be
// offloaded (candidate), must it be offloaded (mandatory), and does it count
// toward the minimum segment size (weak). Ops on the deny list make the
// candidate predicate fail with UNIMPLEMENTED, which aborts partitioning.
package policy

import (
	"sort"

	"github.com/matzehuels/segmenter/pkg/config"
	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// Policy holds op type sets. The zero value accepts nothing.
type Policy struct {
	candidate map[string]bool
	mandatory map[string]bool
	weak      map[string]bool
	deny      map[string]bool
}

// New builds a policy from the policy section of a configuration.
// Mandatory and weak ops are implicitly candidates.
func New(cfg config.PolicyConfig) *Policy {
	p := &Policy{
		candidate: toSet(cfg.CandidateOps),
		mandatory: toSet(cfg.MandatoryOps),
		weak:      toSet(cfg.WeakOps),
		deny:      toSet(cfg.DenyOps),
	}
	for op := range p.mandatory {
		p.candidate[op] = true
	}
	for op := range p.weak {
		p.candidate[op] = true
	}
	return p
}

// FromConfig is New(cfg.Policy).
func FromConfig(cfg *config.Config) *Policy {
	return New(cfg.Policy)
}

func toSet(ops []string) map[string]bool {
	m := make(map[string]bool, len(ops))
	for _, op := range ops {
		m[op] = true
	}
	return m
}

// Candidate is the candidate predicate.
func (p *Policy) Candidate(n *dag.Node) (bool, error) {
	if p.deny[n.Op] {
		return false, errs.New(errs.ErrCodeUnimplemented, "op %s of node %s is not supported by the accelerator", n.Op, n.ID)
	}
	return p.candidate[n.Op], nil
}

// Mandatory reports whether the node must be placed in a segment.
func (p *Policy) Mandatory(n *dag.Node) bool { return p.mandatory[n.Op] }

// Weak reports whether the node is excluded from segment size counts.
func (p *Policy) Weak(n *dag.Node) bool { return p.weak[n.Op] }

// Options returns the segment options wiring Mandatory and Weak.
func (p *Policy) Options() []segment.Option {
	return []segment.Option{
		segment.WithMandatory(p.Mandatory),
		segment.WithWeak(p.Weak),
	}
}

// Ops returns the sorted candidate op types.
func (p *Policy) Ops() []string {
	ops := make([]string, 0, len(p.candidate))
	for op := range p.candidate {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// Empty reports whether the policy accepts no op at all.
func (p *Policy) Empty() bool {
	return len(p.candidate) == 0
}
