package client

import (
	"reflect"
	"testing"
)

func TestCoerceBody(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		rt          ResponseType
		contentType string
		want        any
	}{
		{
			name: "default type yields raw text",
			text: `{"a":1}`,
			rt:   TypeDefault,
			want: `{"a":1}`,
		},
		{
			name: "text type yields raw text",
			text: "hello",
			rt:   TypeText,
			want: "hello",
		},
		{
			name: "json object",
			text: `{"a":1}`,
			rt:   TypeJSON,
			want: map[string]any{"a": float64(1)},
		},
		{
			name: "json array",
			text: `[1,2]`,
			rt:   TypeJSON,
			want: []any{float64(1), float64(2)},
		},
		{
			name: "json scalar",
			text: `"x"`,
			rt:   TypeJSON,
			want: "x",
		},
		{
			name: "invalid json yields sentinel",
			text: `{not json`,
			rt:   TypeJSON,
			want: Unparsable,
		},
		{
			name: "empty json body yields nil",
			text: "",
			rt:   TypeJSON,
			want: nil,
		},
		{
			name:        "blob keeps content type",
			text:        "data",
			rt:          TypeBlob,
			contentType: "image/png",
			want:        Blob{ContentType: "image/png", Data: []byte("data")},
		},
		{
			name: "blob defaults to text/plain",
			text: "data",
			rt:   TypeBlob,
			want: Blob{ContentType: "text/plain", Data: []byte("data")},
		},
		{
			name: "arraybuffer yields bytes",
			text: "data",
			rt:   TypeArrayBuffer,
			want: []byte("data"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := coerceBody(tt.text, tt.rt, tt.contentType)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("coerceBody(%q, %q): got %#v, want %#v", tt.text, tt.rt, got, tt.want)
			}
		})
	}
}

func TestIsXMLContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"application/xml", true},
		{"text/xml", true},
		{"application/atom+xml", true},
		{"Application/XML", true},
		{"application/json", false},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isXMLContentType(tt.ct); got != tt.want {
			t.Errorf("isXMLContentType(%q): got %v, want %v", tt.ct, got, tt.want)
		}
	}
}
