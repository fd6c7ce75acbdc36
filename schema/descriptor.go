// Package schema describes each managed resource kind: its collection
// endpoint, natural key, cross-resource references and field classifications.
// One generic reconciler consumes these descriptors instead of repeating the
// create/find/update pattern per kind.
package schema

import (
	"github.com/vmsops/vmsctl/resource"
)

// Reference declares that an attribute names another resource rather than
// carrying a literal value. The reconciler resolves the referenced kind's
// identifier by natural-key lookup before submitting the request. A value
// that is already numeric is passed through as an identifier.
type Reference struct {
	// Attribute is the spec attribute carrying the referenced name(s).
	Attribute string
	// Kind is the referenced resource kind.
	Kind resource.Kind
	// List marks attributes holding a list of referenced names.
	List bool
}

// FieldSet is a case-significant set of attribute names.
type FieldSet map[string]struct{}

func NewFieldSet(names ...string) FieldSet {
	set := make(FieldSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (s FieldSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Descriptor is the per-kind field mapping consumed by the reconciler.
type Descriptor struct {
	Kind       resource.Kind
	Collection string
	// NaturalKey is the attribute that uniquely identifies an object within
	// its collection (name, path or machine_account_name).
	NaturalKey string
	References []Reference

	// ReadOnlyFields are returned by the appliance but never sent.
	ReadOnlyFields FieldSet
	// EphemeralFields are accepted on create but never returned, so they are
	// excluded from update diffs to keep re-applies idempotent.
	EphemeralFields FieldSet
	// ImmutableFields are write-once; excluded from update patches.
	ImmutableFields FieldSet
	// SetLikeLists are list fields compared order-insensitively.
	SetLikeLists FieldSet
	// CapacityFields hold human-readable sizes converted to byte counts
	// before submission.
	CapacityFields FieldSet

	// CreateOnly restricts the kind to the create operation.
	CreateOnly bool

	// Async flags mark mutations that return a task marker to poll.
	AsyncCreate bool
	AsyncUpdate bool
	AsyncDelete bool

	// ListFilter is an optional jq expression applied to the raw list payload
	// before item extraction.
	ListFilter string
}
