package reconciler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vmsops/vmsctl/faults"
	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
)

// listCollection returns the collection's objects, listing at most once per
// collection per run. The cache entry is dropped after any mutation to the
// same collection, so later lookups see freshly created objects.
func (r *Reconciler) listCollection(ctx context.Context, descriptor schema.Descriptor) ([]resource.Object, error) {
	if cached, ok := r.listings[descriptor.Collection]; ok {
		return cached, nil
	}

	objects, err := r.remote.List(ctx, descriptor)
	if err != nil {
		return nil, err
	}
	r.listings[descriptor.Collection] = objects
	return objects, nil
}

func (r *Reconciler) invalidateListing(collection string) {
	delete(r.listings, collection)
}

// findByNaturalKey locates the unique object whose natural key equals value.
// Zero matches is NotFound; more than one is AmbiguousMatch, never a silent
// first-match pick.
func (r *Reconciler) findByNaturalKey(ctx context.Context, descriptor schema.Descriptor, value string) (resource.Object, error) {
	objects, err := r.listCollection(ctx, descriptor)
	if err != nil {
		return resource.Object{}, err
	}

	var matches []resource.Object
	for _, object := range objects {
		fieldValue, ok := object.Field(descriptor.NaturalKey)
		if !ok {
			continue
		}
		if rendered, isString := fieldValue.(string); isString && rendered == value {
			matches = append(matches, object)
		}
	}

	switch len(matches) {
	case 0:
		return resource.Object{}, faults.NewTypedError(
			faults.NotFoundError,
			fmt.Sprintf("no %s with %s %q", descriptor.Collection, descriptor.NaturalKey, value),
			nil,
		)
	case 1:
		match := matches[0]
		if strings.TrimSpace(match.ID) == "" {
			return resource.Object{}, faults.NewTypedError(
				faults.InternalError,
				fmt.Sprintf("%s with %s %q has no identifier", descriptor.Collection, descriptor.NaturalKey, value),
				nil,
			)
		}
		return match, nil
	default:
		return resource.Object{}, faults.NewTypedError(
			faults.AmbiguousMatchError,
			fmt.Sprintf("%d objects in %s share %s %q", len(matches), descriptor.Collection, descriptor.NaturalKey, value),
			nil,
		)
	}
}

// buildBody prepares the outgoing attribute set: capacity strings become byte
// counts and reference attributes are rewritten from names to identifiers.
// Absent attributes stay absent.
func (r *Reconciler) buildBody(ctx context.Context, descriptor schema.Descriptor, spec resource.Spec) (resource.Attributes, error) {
	body := spec.Attributes.Clone()

	if value, ok := body.Get(descriptor.NaturalKey); ok {
		if rendered, isString := value.(string); isString && rendered != spec.Key {
			return nil, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("attribute %s %q contradicts spec key %q", descriptor.NaturalKey, rendered, spec.Key),
				nil,
			)
		}
	} else {
		body = body.Set(descriptor.NaturalKey, spec.Key)
	}

	for name := range descriptor.CapacityFields {
		value, ok := body.Get(name)
		if !ok {
			continue
		}
		converted, err := resource.CoerceCapacity(value)
		if err != nil {
			return nil, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("attribute %s of %s %q is not a valid capacity", name, spec.Kind, spec.Key),
				err,
			)
		}
		body = body.Set(name, converted)
	}

	for _, reference := range descriptor.References {
		value, ok := body.Get(reference.Attribute)
		if !ok {
			continue
		}
		resolved, err := r.resolveReference(ctx, reference, value)
		if err != nil {
			return nil, err
		}
		body = body.Set(reference.Attribute, resolved)
	}

	return body, nil
}

func (r *Reconciler) resolveReference(ctx context.Context, reference schema.Reference, value any) (any, error) {
	if reference.List {
		items, ok := value.([]any)
		if !ok {
			return nil, faults.NewTypedError(
				faults.ValidationError,
				fmt.Sprintf("attribute %s must be a list of %s names", reference.Attribute, reference.Kind),
				nil,
			)
		}
		resolved := make([]any, len(items))
		for idx, item := range items {
			id, err := r.resolveReferenceValue(ctx, reference, item)
			if err != nil {
				return nil, err
			}
			resolved[idx] = id
		}
		return resolved, nil
	}

	return r.resolveReferenceValue(ctx, reference, value)
}

// resolveReferenceValue maps one declared reference value to an identifier.
// Values that are already numeric pass through untouched.
func (r *Reconciler) resolveReferenceValue(ctx context.Context, reference schema.Reference, value any) (any, error) {
	switch typed := value.(type) {
	case int, int64, float64:
		normalized, err := resource.Normalize(typed)
		if err != nil {
			return nil, err
		}
		return normalized, nil
	case string:
		if id, err := strconv.ParseInt(typed, 10, 64); err == nil {
			return id, nil
		}

		referenced, err := r.registry.Lookup(reference.Kind)
		if err != nil {
			return nil, err
		}
		match, err := r.findByNaturalKey(ctx, referenced, typed)
		if err != nil {
			if faults.IsCategory(err, faults.NotFoundError) {
				return nil, faults.NewTypedError(
					faults.UnresolvedReferenceError,
					fmt.Sprintf("attribute %s references %s %q which does not exist", reference.Attribute, reference.Kind, typed),
					err,
				)
			}
			return nil, err
		}
		return objectIdentifier(match), nil
	default:
		return nil, faults.NewTypedError(
			faults.ValidationError,
			fmt.Sprintf("attribute %s must name a %s or carry its id, got %T", reference.Attribute, reference.Kind, value),
			nil,
		)
	}
}

// objectIdentifier prefers the numeric form of an object's id so request
// bodies match what the appliance hands out.
func objectIdentifier(object resource.Object) any {
	if raw, ok := object.Payload["id"]; ok {
		if id, isInt := raw.(int64); isInt {
			return id
		}
	}
	return object.ID
}
