// Package client implements the intercepted request-client emulation: the
// readyState lifecycle of an emulated client instance, the resolver
// pipeline deciding mock versus passthrough per request, and a native
// client backed by net/http that the passthrough path drives. The emulated
// client obeys the same lifecycle, event ordering, and property contract as
// the native one, so calling code cannot tell the two apart.
package client

import (
	"net/url"
	"sync"
	"time"

	"github.com/tidwall/sjson"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
)

// ReadyState is the lifecycle state of a client instance. States only
// increase, except across an explicit Open (full reset) or Abort.
type ReadyState int

const (
	Unsent          ReadyState = 0
	Opened          ReadyState = 1
	HeadersReceived ReadyState = 2
	Loading         ReadyState = 3
	Done            ReadyState = 4
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "UNSENT"
	case Opened:
		return "OPENED"
	case HeadersReceived:
		return "HEADERS_RECEIVED"
	case Loading:
		return "LOADING"
	case Done:
		return "DONE"
	}
	return "UNKNOWN"
}

// Requester is the public surface shared by the emulated and the native
// client. This is the compatibility contract: code written against a
// Requester behaves identically whichever implementation it receives.
type Requester interface {
	Open(method, url string) error
	Send(body string) error
	Abort()

	SetRequestHeader(name, value string)
	GetResponseHeader(name string) (string, bool)
	GetAllResponseHeaders() string

	AddEventListener(t events.Type, fn events.Listener) events.Handle
	RemoveEventListener(t events.Type, h events.Handle)
	On(t events.Type, fn events.Listener)

	OverrideMimeType(mime string)
	SetResponseType(rt ResponseType)
	SetTimeout(d time.Duration)
	SetWithCredentials(enabled bool)
	SetBasicAuth(username, password string)

	ReadyState() ReadyState
	Status() int
	StatusText() string
	Response() any
	ResponseText() string
	ResponseXML() string
	ResponseURL() string

	// Done returns a channel closed when the current send reaches a
	// terminal state (DONE, or reset to UNSENT through abort or failure).
	Done() <-chan struct{}
}

// Request is the isomorphic request descriptor: the normalized form of an
// outbound request, independent of which client produced it. Immutable
// once built; rebuilt on every Send. URL is always absolute.
type Request struct {
	ID      string
	Method  string
	URL     *url.URL
	Headers *header.Store
	Body    string
}

// MockResponse is produced exclusively by a resolver. A nil MockResponse
// is the explicit signal to pass the request through to the real network.
type MockResponse struct {
	Status     int               // defaults to 200
	StatusText string            // defaults to "OK"
	Headers    map[string]string // optional
	Body       string            // optional
}

// PatchJSON sets a field in the mock's JSON body at the given path,
// creating the body from scratch when it is empty.
func (m *MockResponse) PatchJSON(path string, value any) error {
	out, err := sjson.Set(m.Body, path, value)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeValidation, "patching mock response body").
			WithContext("path", path)
	}
	m.Body = out
	return nil
}

// ResponseSnapshot is the effective response announced to observers when a
// request completes, mocked or passed through.
type ResponseSnapshot struct {
	Status     int
	StatusText string
	Headers    *header.Store
	Body       string
	Mocked     bool
}

// Resolver decides per request whether to fabricate a response or let the
// call proceed to the real network. Returning (nil, nil) passes through.
// A returned error, or a panic, is treated exactly like an opaque network
// failure. Resolvers run on their own goroutine and may block.
type Resolver func(req *Request, instance *Emulated) (*MockResponse, error)

// Factory constructs client instances. The package-level factory is what
// interception swaps out for the duration of a session.
type Factory func() Requester

var (
	factoryMu sync.RWMutex
	factory   Factory = func() Requester { return NewNative() }
)

// New constructs a client through the currently installed factory. While
// an interception session is applied this returns emulated instances;
// otherwise native ones.
func New() Requester {
	factoryMu.RLock()
	f := factory
	factoryMu.RUnlock()
	return f()
}

// SwapFactory installs f as the package factory and returns the previous
// one, which the caller must keep to undo the swap.
func SwapFactory(f Factory) Factory {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	prev := factory
	factory = f
	return prev
}
