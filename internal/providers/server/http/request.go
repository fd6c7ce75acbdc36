package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sort"
)

// maxResponseBodyBytes caps how much of a response is read into memory. Large
// unpaginated listings fit well under this; a body that still overflows it is
// reported instead of being silently truncated into unparseable JSON.
const maxResponseBodyBytes = 64 << 20

func (g *VMSGateway) execute(
	ctx context.Context,
	method string,
	requestPath string,
	query map[string]string,
	body any,
) ([]byte, error) {
	request, err := g.newRequest(ctx, method, requestPath, query, body)
	if err != nil {
		return nil, err
	}

	g.log.V(1).Info("issuing request",
		"method", method,
		"url", request.URL.Redacted(),
		"timeout", g.requestTimeout(),
	)

	response, err := g.client.Do(request)
	if err != nil {
		return nil, transportError("remote request failed", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if err != nil {
		return nil, transportError("failed to read remote response body", err)
	}
	if len(responseBody) > maxResponseBodyBytes {
		return nil, transportError("remote response body exceeds 64 MiB", nil)
	}

	if response.StatusCode >= http.StatusBadRequest {
		g.log.V(1).Info("request rejected", "method", method, "url", request.URL.Redacted(), "status", response.StatusCode)
		return nil, classifyStatusError(response.StatusCode, responseBody)
	}

	return responseBody, nil
}

func (g *VMSGateway) newRequest(
	ctx context.Context,
	method string,
	requestPath string,
	query map[string]string,
	body any,
) (*http.Request, error) {
	requestBody, err := encodeRequestBody(body)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(requestBody) > 0 {
		bodyReader = bytes.NewReader(requestBody)
	}

	target := *g.baseURL
	target.Path = joinBaseAndRequestPath(g.baseURL.Path, requestPath)

	values := target.Query()
	if g.tenant != "" {
		values.Set("tenant", g.tenant)
	}
	if len(query) > 0 {
		keys := make([]string, 0, len(query))
		for key := range query {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			values.Set(key, query[key])
		}
	}
	target.RawQuery = values.Encode()

	request, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, internalError("failed to create remote request", err)
	}

	request.Header.Set("Accept", defaultMediaType)
	if len(requestBody) > 0 {
		request.Header.Set("Content-Type", defaultMediaType)
	}

	if err := g.applyAuth(request); err != nil {
		return nil, err
	}

	return request, nil
}

func joinBaseAndRequestPath(basePath string, requestPath string) string {
	if basePath == "" || basePath == "/" {
		return requestPath
	}
	trimmedBase := basePath
	for len(trimmedBase) > 0 && trimmedBase[len(trimmedBase)-1] == '/' {
		trimmedBase = trimmedBase[:len(trimmedBase)-1]
	}
	return trimmedBase + requestPath
}
