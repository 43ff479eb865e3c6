package openapi

import (
	"encoding/json"
	"strconv"
	"strings"

	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
	yaml "go.yaml.in/yaml/v4"

	"github.com/mockwire/mockwire/pkg/client"
)

// Resolver returns a resolver answering documented operations with their
// example responses. Requests with no matching path or method pass
// through untouched; a matching operation without a usable 2xx response
// also passes through rather than fabricating an empty body.
func (s *Source) Resolver() client.Resolver {
	return func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		if s.model == nil {
			return nil, nil
		}
		op := s.lookup(req.URL.Path, req.Method)
		if op == nil {
			return nil, nil
		}
		mock := s.mockFrom(op)
		if mock == nil {
			s.log.Debug().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Msg("matched operation has no example response, passing through")
			return nil, nil
		}
		s.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", mock.Status).
			Msg("mocking from document example")
		return mock, nil
	}
}

// lookup finds the operation for a concrete request path and method.
// Exact path matches win over templated ones; among templated paths the
// first one in document order wins.
func (s *Source) lookup(path, method string) *v3.Operation {
	pathItems := s.model.Model.Paths.PathItems
	if pathItems == nil {
		return nil
	}

	var templated *v3.PathItem
	for pattern, item := range pathItems.FromOldest() {
		if pattern == path {
			return operationFor(item, method)
		}
		if templated == nil && matchesTemplate(pattern, path) {
			templated = item
		}
	}
	if templated != nil {
		return operationFor(templated, method)
	}
	return nil
}

// matchesTemplate reports whether a concrete path fits a path template
// such as /pets/{petId}. Template segments in braces match any single
// non-empty segment.
func matchesTemplate(pattern, path string) bool {
	patSegs := strings.Split(strings.Trim(pattern, "/"), "/")
	pathSegs := strings.Split(strings.Trim(path, "/"), "/")
	if len(patSegs) != len(pathSegs) {
		return false
	}
	for i, seg := range patSegs {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if pathSegs[i] == "" {
				return false
			}
			continue
		}
		if seg != pathSegs[i] {
			return false
		}
	}
	return true
}

func operationFor(item *v3.PathItem, method string) *v3.Operation {
	switch strings.ToUpper(method) {
	case "GET":
		return item.Get
	case "POST":
		return item.Post
	case "PUT":
		return item.Put
	case "DELETE":
		return item.Delete
	case "PATCH":
		return item.Patch
	case "HEAD":
		return item.Head
	case "OPTIONS":
		return item.Options
	}
	return nil
}

// mockFrom builds a mock from the operation's lowest 2xx response,
// preferring a declared example body when one exists.
func (s *Source) mockFrom(op *v3.Operation) *client.MockResponse {
	if op.Responses == nil || op.Responses.Codes == nil {
		return nil
	}

	status := 0
	var response *v3.Response
	for code, resp := range op.Responses.Codes.FromOldest() {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n >= 300 {
			continue
		}
		if response == nil || n < status {
			status = n
			response = resp
		}
	}
	if response == nil {
		return nil
	}

	mock := &client.MockResponse{Status: status}
	if response.Content == nil {
		return mock
	}
	for contentType, media := range response.Content.FromOldest() {
		body, ok := exampleBody(media, contentType)
		if !ok {
			continue
		}
		mock.Headers = map[string]string{"Content-Type": contentType}
		mock.Body = body
		break
	}
	return mock
}

// exampleBody renders a media type's example as a response body. For
// JSON content the decoded value is re-marshalled, for everything else
// a scalar string is used as-is.
func exampleBody(media *v3.MediaType, contentType string) (string, bool) {
	node := exampleNode(media)
	if node == nil {
		return "", false
	}

	var value any
	if err := node.Decode(&value); err != nil {
		return "", false
	}
	if value == nil {
		return "", false
	}

	if isJSONContentType(contentType) {
		out, err := json.Marshal(value)
		if err != nil {
			return "", false
		}
		return string(out), true
	}
	if text, ok := value.(string); ok {
		return text, true
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", false
	}
	return string(out), true
}

// exampleNode picks the example to render: the inline example wins,
// otherwise the first named one in document order.
func exampleNode(media *v3.MediaType) *yaml.Node {
	if media.Example != nil {
		return media.Example
	}
	if media.Examples == nil {
		return nil
	}
	for _, ex := range media.Examples.FromOldest() {
		if ex != nil && ex.Value != nil {
			return ex.Value
		}
	}
	return nil
}

func isJSONContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}
