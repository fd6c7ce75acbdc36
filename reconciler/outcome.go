package reconciler

import (
	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
)

// Status is the user-visible result of applying one declared resource.
type Status string

const (
	StatusCreated             Status = "created"
	StatusAlreadyExists       Status = "already-exists"
	StatusUpdated             Status = "updated"
	StatusUnchanged           Status = "unchanged"
	StatusDeleted             Status = "deleted"
	StatusRejected            Status = "rejected"
	StatusNotFound            Status = "not-found"
	StatusAmbiguousMatch      Status = "ambiguous-match"
	StatusUnresolvedReference Status = "unresolved-reference"
	StatusFailed              Status = "failed"
)

// Outcome reports what happened to one spec. Err is set for every non-success
// status and carries the actionable message.
type Outcome struct {
	Kind   resource.Kind
	Key    string
	Status Status
	// Planned marks a dry-run outcome: the status says what would have been
	// done, but nothing was submitted.
	Planned bool
	// Changed lists the attribute names an update patch carried.
	Changed []string
	Err     error
}

// Success reports whether the outcome leaves the run healthy. AlreadyExists
// and Unchanged are successes: re-applying an identical spec is a no-op, not
// an error.
func (o Outcome) Success() bool {
	switch o.Status {
	case StatusCreated, StatusAlreadyExists, StatusUpdated, StatusUnchanged, StatusDeleted:
		return true
	}
	return false
}

func failureStatus(err error) Status {
	switch faults.CategoryOf(err) {
	case faults.ValidationError:
		return StatusRejected
	case faults.NotFoundError:
		return StatusNotFound
	case faults.AmbiguousMatchError:
		return StatusAmbiguousMatch
	case faults.UnresolvedReferenceError:
		return StatusUnresolvedReference
	default:
		return StatusFailed
	}
}

func failedOutcome(spec resource.Spec, err error) Outcome {
	return Outcome{
		Kind:   spec.Kind,
		Key:    spec.Key,
		Status: failureStatus(err),
		Err:    err,
	}
}
