package domain

import (
	"fmt"

	"github.com/matzehuels/segmenter/pkg/dag"
	errs "github.com/matzehuels/segmenter/pkg/errors"
)

const (
	// MarkerOp is the op type of domain marker nodes.
	MarkerOp = "Domain"

	// KindKey is the node metadata key holding a marker's domain kind.
	KindKey = "domain_kind"

	// DeviceKind is the kind handled by [DeviceMetadata].
	DeviceKind = "device"
)

// Metadata is attached to a kind of domain marker and decides how the
// instructions inside a region delimited by such markers are normalized.
type Metadata interface {
	// Kind returns the marker kind this metadata applies to.
	Kind() string

	// Matches reports whether other carries the same metadata.
	Matches(other Metadata) bool

	// Clone returns an independent copy.
	Clone() Metadata

	String() string

	// NormalizeInstructions applies the metadata to every instruction of d.
	// It must not modify any node when it returns an error.
	NormalizeInstructions(d *Domain) error
}

// Checker is implemented by metadata that can validate a domain without
// modifying it. [Normalize] checks every region first so that a failure
// leaves the graph untouched.
type Checker interface {
	CheckInstructions(d *Domain) error
}

// IsMarker reports whether n is a domain marker of any kind.
func IsMarker(n *dag.Node) bool {
	return n != nil && n.Op == MarkerOp
}

// MarkerKind returns the kind of a marker node and whether n is a marker.
func MarkerKind(n *dag.Node) (string, bool) {
	if !IsMarker(n) {
		return "", false
	}
	kind, _ := n.Meta[KindKey].(string)
	return kind, true
}

// Markers returns a stop predicate matching marker nodes of the given kind.
func Markers(kind string) StopFunc {
	return func(n *dag.Node) bool {
		k, ok := MarkerKind(n)
		return ok && k == kind
	}
}

// MarkerMetadata returns the metadata a marker node carries, or nil. A device
// marker carries a [DeviceMetadata] when its own device label is set.
func MarkerMetadata(n *dag.Node) Metadata {
	kind, ok := MarkerKind(n)
	if !ok || kind != DeviceKind || n.Device == "" {
		return nil
	}
	return &DeviceMetadata{Device: n.Device}
}

// DeviceMetadata pins every instruction of a domain to one device.
type DeviceMetadata struct {
	Device string
}

// Kind implements Metadata.
func (m *DeviceMetadata) Kind() string { return DeviceKind }

// Matches implements Metadata.
func (m *DeviceMetadata) Matches(other Metadata) bool {
	o, ok := other.(*DeviceMetadata)
	return ok && o.Device == m.Device
}

// Clone implements Metadata.
func (m *DeviceMetadata) Clone() Metadata {
	c := *m
	return &c
}

func (m *DeviceMetadata) String() string {
	return fmt.Sprintf("{device=%s}", m.Device)
}

// CheckInstructions returns an INVALID_ARGUMENT error if an instruction is
// already assigned to a different device.
func (m *DeviceMetadata) CheckInstructions(d *Domain) error {
	for _, n := range d.Nodes() {
		if n.Device != "" && n.Device != m.Device {
			return errs.New(errs.ErrCodeInvalidArgument,
				"node %q is assigned to %q, domain requires %q", n.ID, n.Device, m.Device)
		}
	}
	return nil
}

// NormalizeInstructions assigns the device to every unassigned instruction.
func (m *DeviceMetadata) NormalizeInstructions(d *Domain) error {
	if err := m.CheckInstructions(d); err != nil {
		return err
	}
	for _, n := range d.Nodes() {
		n.Device = m.Device
	}
	return nil
}
