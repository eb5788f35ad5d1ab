package boot

import (
	"context"
	"fmt"
)

// InitFunc brings one subsystem up. It may block for as long as it needs;
// the sequencer imposes no timeout on it.
type InitFunc func(ctx context.Context) error

// ServiceDescriptor describes one bootable subsystem. Descriptors are built
// once, validated at registry construction, and never mutated during a run.
type ServiceDescriptor struct {
	// ID is the stable identifier, unique within the registry.
	ID string
	// DisplayName is the label pushed to the splash while this subsystem
	// starts.
	DisplayName string
	// Init is the fallible startup procedure.
	Init InitFunc
	// Weight is this subsystem's relative share of total startup progress.
	// Weights need not sum to anything in particular; the sequencer
	// normalizes.
	Weight float64
	// Required controls failure policy: a required failure aborts the run,
	// an optional failure is logged and absorbed.
	Required bool
	// ProgressService, when set, names the supervised process whose events
	// should drive fine-grained progress during this descriptor's window.
	// The sequencer attaches a relay before Init and detaches it after.
	ProgressService string
}

// Registry is the ordered, immutable collection of descriptors for one
// startup sequence.
type Registry struct {
	descriptors []ServiceDescriptor
	totalWeight float64
}

// NewRegistry validates and freezes the descriptor list. Duplicate IDs,
// non-positive weights, nil init procedures and an empty list are design
// errors, rejected here rather than surfacing mid-run.
func NewRegistry(descriptors []ServiceDescriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("registry must contain at least one descriptor")
	}

	seen := make(map[string]bool, len(descriptors))
	total := 0.0
	for i, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("descriptor %d has an empty id", i)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate descriptor id %q", d.ID)
		}
		seen[d.ID] = true
		if d.Weight <= 0 {
			return nil, fmt.Errorf("descriptor %q has non-positive weight %v", d.ID, d.Weight)
		}
		if d.Init == nil {
			return nil, fmt.Errorf("descriptor %q has no init procedure", d.ID)
		}
		total += d.Weight
	}

	frozen := make([]ServiceDescriptor, len(descriptors))
	copy(frozen, descriptors)
	return &Registry{descriptors: frozen, totalWeight: total}, nil
}

// Descriptors returns the descriptors in registration order.
func (r *Registry) Descriptors() []ServiceDescriptor {
	out := make([]ServiceDescriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Len returns the number of descriptors.
func (r *Registry) Len() int {
	return len(r.descriptors)
}

// TotalWeight returns the sum of all descriptor weights.
func (r *Registry) TotalWeight() float64 {
	return r.totalWeight
}
