package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/vmsops/vmsctl/resource"
)

func encodeRequestBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	switch typed := body.(type) {
	case resource.Attributes:
		encoded, err := typed.MarshalJSON()
		if err != nil {
			return nil, err
		}
		return encoded, nil
	case []byte:
		return typed, nil
	default:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return nil, validationError("failed to encode JSON request body", err)
		}
		return encoded, nil
	}
}

func decodeJSONResponse(body []byte) (resource.Value, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, validationError("response body is not valid JSON", err)
	}

	return resource.Normalize(value)
}

func decodeObjectResponse(body []byte) (resource.Object, error) {
	value, err := decodeJSONResponse(body)
	if err != nil {
		return resource.Object{}, err
	}
	if value == nil {
		return resource.Object{}, nil
	}

	payload, ok := value.(map[string]any)
	if !ok {
		return resource.Object{}, validationError("response body must be a JSON object", nil)
	}
	return objectFromPayload(payload), nil
}

func objectFromPayload(payload map[string]any) resource.Object {
	return resource.Object{
		ID:      stringifyID(payload["id"]),
		Payload: payload,
	}
}

func stringifyID(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case int64:
		return fmt.Sprintf("%d", typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func classifyStatusError(statusCode int, body []byte) error {
	message := fmt.Sprintf("remote request failed with status %d: %s", statusCode, summarizeBody(body))

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return authError(message, nil)
	case http.StatusNotFound:
		return notFoundError(message, nil)
	case http.StatusConflict:
		return conflictError(message, nil)
	}

	if statusCode >= 400 && statusCode < 500 {
		return validationError(message, nil)
	}
	return transportError(message, nil)
}

func summarizeBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "<empty>"
	}
	if len(trimmed) > 512 {
		return trimmed[:512] + "..."
	}
	return trimmed
}
