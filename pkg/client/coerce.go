package client

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// ResponseType selects the shape a response body is materialized into.
type ResponseType string

const (
	TypeDefault     ResponseType = ""
	TypeText        ResponseType = "text"
	TypeJSON        ResponseType = "json"
	TypeBlob        ResponseType = "blob"
	TypeArrayBuffer ResponseType = "arraybuffer"
)

// Blob is a binary body tagged with its content type.
type Blob struct {
	ContentType string
	Data        []byte
}

type unparsableBody struct{}

func (unparsableBody) String() string { return "<unparsable>" }

// Unparsable is the sentinel returned as the response value when a body
// cannot be parsed under the json response type. It stands in for the
// leniency of real clients: a bad payload never raises, it just yields a
// well-known value.
var Unparsable any = unparsableBody{}

// coerceBody converts the textual body into the shape demanded by the
// response type. contentType tags blob output, defaulting to text/plain.
func coerceBody(text string, rt ResponseType, contentType string) any {
	switch rt {
	case TypeJSON:
		if text == "" {
			return nil
		}
		if !gjson.Valid(text) {
			return Unparsable
		}
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return Unparsable
		}
		return v
	case TypeBlob:
		if contentType == "" {
			contentType = "text/plain"
		}
		return Blob{ContentType: contentType, Data: []byte(text)}
	case TypeArrayBuffer:
		return []byte(text)
	default:
		return text
	}
}

func isXMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "/xml") || strings.HasSuffix(ct, "+xml")
}
