package http

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/itchyny/gojq"

	"github.com/vmsops/vmsctl/resource"
	"github.com/vmsops/vmsctl/schema"
)

var listFilterCodeCache sync.Map

// decodeListPage decodes one listing response and reports the "next" link the
// appliance puts on paginated pages, empty when this page is the last.
func decodeListPage(descriptor schema.Descriptor, body []byte) ([]resource.Object, string, error) {
	payload, err := decodeJSONResponse(body)
	if err != nil {
		return nil, "", err
	}

	// The link has to be taken before filtering: list filters reshape the
	// payload down to the items themselves.
	next := extractNextLink(payload)

	payload, err = applyListFilter(payload, descriptor.ListFilter)
	if err != nil {
		return nil, "", err
	}

	items, err := extractListItems(payload)
	if err != nil {
		return nil, "", err
	}

	objects := make([]resource.Object, 0, len(items))
	for _, item := range items {
		itemMap, ok := item.(map[string]any)
		if !ok {
			return nil, "", validationError("list payload entries must be JSON objects", nil)
		}
		objects = append(objects, objectFromPayload(itemMap))
	}
	return objects, next, nil
}

func extractNextLink(payload any) string {
	object, ok := payload.(map[string]any)
	if !ok {
		return ""
	}
	link, _ := object["next"].(string)
	return strings.TrimSpace(link)
}

// extractListItems accepts the shapes the appliance uses for listings: a bare
// array, an object with a "results" array, or an object with exactly one
// array field.
func extractListItems(payload any) ([]any, error) {
	switch typed := payload.(type) {
	case nil:
		return nil, nil
	case []any:
		return typed, nil
	case map[string]any:
		if items, ok := typed["results"]; ok {
			values, valuesOK := items.([]any)
			if !valuesOK {
				return nil, validationError("list response \"results\" must be an array", nil)
			}
			return values, nil
		}

		arrayFieldKeys := make([]string, 0, len(typed))
		for key, field := range typed {
			if _, fieldIsArray := field.([]any); fieldIsArray {
				arrayFieldKeys = append(arrayFieldKeys, key)
			}
		}
		sort.Strings(arrayFieldKeys)

		if len(arrayFieldKeys) == 1 {
			values, _ := typed[arrayFieldKeys[0]].([]any)
			return values, nil
		}

		if len(arrayFieldKeys) > 1 {
			return nil, validationError(
				fmt.Sprintf(
					"list response object is ambiguous: expected a \"results\" array or a single array field, found [%s]",
					strings.Join(arrayFieldKeys, ", "),
				),
				nil,
			)
		}

		return nil, validationError("list response object must include a \"results\" array", nil)
	default:
		return nil, validationError("list response must be an array or an object with a \"results\" array", nil)
	}
}

func applyListFilter(payload any, expression string) (any, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return payload, nil
	}

	code, err := cachedListFilterCode(trimmed)
	if err != nil {
		return nil, validationError("invalid list filter expression", err)
	}

	iterator := code.Run(toFilterValue(payload))
	results := make([]any, 0, 1)
	for {
		value, ok := iterator.Next()
		if !ok {
			break
		}
		if valueErr, isErr := value.(error); isErr {
			return nil, validationError("failed to evaluate list filter expression", valueErr)
		}
		results = append(results, value)
	}

	var filtered any
	switch len(results) {
	case 0:
		filtered = []any{}
	case 1:
		filtered = results[0]
	default:
		filtered = results
	}
	return resource.Normalize(filtered)
}

// toFilterValue rewrites the decoded payload into the value set the filter
// engine accepts: it has no notion of int64.
func toFilterValue(value any) any {
	switch typed := value.(type) {
	case int64:
		return int(typed)
	case []any:
		converted := make([]any, len(typed))
		for idx, item := range typed {
			converted[idx] = toFilterValue(item)
		}
		return converted
	case map[string]any:
		converted := make(map[string]any, len(typed))
		for key, item := range typed {
			converted[key] = toFilterValue(item)
		}
		return converted
	default:
		return typed
	}
}

func cachedListFilterCode(expression string) (*gojq.Code, error) {
	if cached, ok := listFilterCodeCache.Load(expression); ok {
		if typed, ok := cached.(*gojq.Code); ok && typed != nil {
			return typed, nil
		}
	}

	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, err
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, err
	}
	listFilterCodeCache.Store(expression, code)
	return code, nil
}
