package reconciler

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
)

// computePatch returns the desired attributes whose values differ from the
// current remote state, in declaration order. Read-only, ephemeral and
// immutable fields never enter a patch, so re-applying an identical spec
// produces an empty patch. Comparison is one level deep: a changed field is
// replaced wholesale, never merged.
func computePatch(descriptor schema.Descriptor, current resource.Object, desired resource.Attributes) (resource.Attributes, error) {
	patch := make(resource.Attributes, 0, len(desired))

	for _, field := range desired {
		if descriptor.ReadOnlyFields.Contains(field.Name) ||
			descriptor.EphemeralFields.Contains(field.Name) ||
			descriptor.ImmutableFields.Contains(field.Name) ||
			field.Name == descriptor.NaturalKey {
			continue
		}

		desiredValue, err := resource.Normalize(field.Value)
		if err != nil {
			return nil, err
		}

		currentValue, _ := current.Field(field.Name)
		currentValue, err = normalizeCurrent(currentValue)
		if err != nil {
			return nil, err
		}

		if !valuesEqual(currentValue, desiredValue, descriptor.SetLikeLists.Contains(field.Name)) {
			patch = append(patch, resource.Attribute{Name: field.Name, Value: desiredValue})
		}
	}

	return patch, nil
}

func normalizeCurrent(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	return resource.Normalize(value)
}

// valuesEqual compares one field. Some appliance endpoints omit boolean
// fields whose value is false, so an absent current value equals a desired
// false. Set-like lists compare order-insensitively.
func valuesEqual(current any, desired any, setLike bool) bool {
	if current == nil && desired == nil {
		return true
	}
	if desired == false && current == nil {
		return true
	}

	if setLike {
		currentList, currentOK := current.([]any)
		desiredList, desiredOK := desired.([]any)
		if currentOK && desiredOK {
			return setsEqual(currentList, desiredList)
		}
	}

	if numericEqual(current, desired) {
		return true
	}

	return reflect.DeepEqual(current, desired)
}

// numericEqual tolerates int64/float64 mismatches between a declared value
// and the appliance's JSON rendering of it.
func numericEqual(current any, desired any) bool {
	currentNum, currentOK := asFloat(current)
	desiredNum, desiredOK := asFloat(desired)
	return currentOK && desiredOK && currentNum == desiredNum
}

func asFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	}
	return 0, false
}

func setsEqual(current []any, desired []any) bool {
	return reflect.DeepEqual(sortedUnique(current), sortedUnique(desired))
}

// sortedUnique renders each element to a comparable key, dedupes and sorts,
// so ["a", "b", "a"] equals ["b", "a"].
func sortedUnique(values []any) []string {
	rendered := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		key := compareKey(value)
		if _, duplicate := seen[key]; duplicate {
			continue
		}
		seen[key] = struct{}{}
		rendered = append(rendered, key)
	}
	sort.Strings(rendered)
	return rendered
}

func compareKey(value any) string {
	if num, ok := asFloat(value); ok {
		// Collapse 1 and 1.0 to one key.
		return "n:" + strconv.FormatFloat(num, 'g', -1, 64)
	}
	if typed, ok := value.(string); ok {
		return "s:" + typed
	}
	return fmt.Sprintf("v:%v", value)
}
