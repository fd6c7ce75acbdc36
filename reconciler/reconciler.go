// Package reconciler ensures each declared resource exists on the appliance
// and matches its specification, creating or patching remote objects in
// place. It is the one generic implementation of the find-then-mutate pattern
// shared by every resource kind.
package reconciler

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
	"github.com/vmsops/vmsctl/server"
)

const (
	defaultWaitTimeout  = 5 * time.Minute
	defaultPollInterval = 5 * time.Second
)

// Reconciler applies declared resources sequentially against one remote
// endpoint. It is not safe for concurrent use: the per-run listing cache is
// unsynchronized because runs are single-threaded by design.
type Reconciler struct {
	remote   server.RemoteState
	registry *schema.Registry
	log      logr.Logger

	waitTimeout  time.Duration
	pollInterval time.Duration
	dryRun       bool

	listings map[string][]resource.Object

	// test seams
	nowFn   func() time.Time
	timerFn func(time.Duration) <-chan time.Time
}

type Option func(*Reconciler)

func WithLogger(log logr.Logger) Option {
	return func(r *Reconciler) { r.log = log }
}

func WithWaitTimeout(timeout time.Duration) Option {
	return func(r *Reconciler) {
		if timeout > 0 {
			r.waitTimeout = timeout
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(r *Reconciler) {
		if interval > 0 {
			r.pollInterval = interval
		}
	}
}

// WithDryRun plans every operation without submitting mutations. Listings
// still hit the remote endpoint.
func WithDryRun(dryRun bool) Option {
	return func(r *Reconciler) { r.dryRun = dryRun }
}

func New(remote server.RemoteState, registry *schema.Registry, opts ...Option) *Reconciler {
	reconciler := &Reconciler{
		remote:       remote,
		registry:     registry,
		log:          logr.Discard(),
		waitTimeout:  defaultWaitTimeout,
		pollInterval: defaultPollInterval,
		listings:     make(map[string][]resource.Object),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(reconciler)
	}
	return reconciler
}

// Apply reconciles one declared resource. It never panics and never returns
// an error out of band: every failure mode is folded into the outcome so a
// run can continue past it.
func (r *Reconciler) Apply(ctx context.Context, spec resource.Spec) Outcome {
	if err := spec.Validate(); err != nil {
		return failedOutcome(spec, err)
	}

	descriptor, err := r.registry.Lookup(spec.Kind)
	if err != nil {
		return failedOutcome(spec, err)
	}

	if descriptor.CreateOnly && spec.Operation != resource.OperationCreate {
		return failedOutcome(spec, faults.NewTypedError(
			faults.ValidationError,
			string(spec.Kind)+" supports only the create operation",
			nil,
		))
	}

	switch spec.Operation {
	case resource.OperationCreate:
		return r.applyCreate(ctx, descriptor, spec)
	case resource.OperationUpdate:
		return r.applyUpdate(ctx, descriptor, spec)
	case resource.OperationDelete:
		return r.applyDelete(ctx, descriptor, spec)
	default:
		return failedOutcome(spec, faults.NewTypedError(
			faults.ValidationError,
			"unsupported operation "+string(spec.Operation),
			nil,
		))
	}
}

func (r *Reconciler) applyCreate(ctx context.Context, descriptor schema.Descriptor, spec resource.Spec) Outcome {
	body, err := r.buildBody(ctx, descriptor, spec)
	if err != nil {
		return failedOutcome(spec, err)
	}

	if r.dryRun {
		return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusCreated, Planned: true}
	}

	created, err := r.remote.Create(ctx, descriptor, body)
	if err != nil {
		if faults.IsCategory(err, faults.ConflictError) {
			r.log.V(1).Info("resource already exists", "kind", spec.Kind, "key", spec.Key)
			return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusAlreadyExists}
		}
		return failedOutcome(spec, err)
	}
	r.invalidateListing(descriptor.Collection)

	if descriptor.AsyncCreate {
		if err := r.awaitMutation(ctx, created.Payload); err != nil {
			return failedOutcome(spec, err)
		}
	}

	r.log.Info("created resource", "kind", spec.Kind, "key", spec.Key, "id", created.ID)
	return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusCreated}
}

func (r *Reconciler) applyUpdate(ctx context.Context, descriptor schema.Descriptor, spec resource.Spec) Outcome {
	target, err := r.findByNaturalKey(ctx, descriptor, spec.Key)
	if err != nil {
		return failedOutcome(spec, err)
	}

	body, err := r.buildBody(ctx, descriptor, spec)
	if err != nil {
		return failedOutcome(spec, err)
	}

	patch, err := computePatch(descriptor, target, body)
	if err != nil {
		return failedOutcome(spec, err)
	}

	if len(patch) == 0 {
		return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusUnchanged}
	}

	if r.dryRun {
		return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusUpdated, Planned: true, Changed: patch.Names()}
	}

	updated, err := r.remote.Update(ctx, descriptor, target.ID, patch)
	if err != nil {
		return failedOutcome(spec, err)
	}
	r.invalidateListing(descriptor.Collection)

	if descriptor.AsyncUpdate {
		if err := r.awaitMutation(ctx, updated.Payload); err != nil {
			return failedOutcome(spec, err)
		}
	}

	r.log.Info("updated resource", "kind", spec.Kind, "key", spec.Key, "id", target.ID, "fields", patch.Names())
	return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusUpdated, Changed: patch.Names()}
}

func (r *Reconciler) applyDelete(ctx context.Context, descriptor schema.Descriptor, spec resource.Spec) Outcome {
	target, err := r.findByNaturalKey(ctx, descriptor, spec.Key)
	if err != nil {
		return failedOutcome(spec, err)
	}

	if r.dryRun {
		return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusDeleted, Planned: true}
	}

	deleted, err := r.remote.Delete(ctx, descriptor, target.ID)
	if err != nil {
		return failedOutcome(spec, err)
	}
	r.invalidateListing(descriptor.Collection)

	if descriptor.AsyncDelete {
		if err := r.awaitMutation(ctx, deleted.Payload); err != nil {
			return failedOutcome(spec, err)
		}
	}

	r.log.Info("deleted resource", "kind", spec.Kind, "key", spec.Key, "id", target.ID)
	return Outcome{Kind: spec.Kind, Key: spec.Key, Status: StatusDeleted}
}

// awaitMutation polls the task behind an asynchronous mutation response.
// A response without a task marker completed synchronously.
func (r *Reconciler) awaitMutation(ctx context.Context, payload map[string]any) error {
	taskID, ok := extractTaskID(payload)
	if !ok {
		return nil
	}
	r.log.V(1).Info("waiting for task", "task", taskID, "timeout", r.waitTimeout)
	return r.awaitTask(ctx, taskID)
}
