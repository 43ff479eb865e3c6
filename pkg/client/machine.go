package client

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
)

// machine is the mutable per-call state container shared by the emulated
// and the native client: readyState, request/response fields, the event
// emitter, and the generation counter that invalidates superseded sends.
//
// The mutex guards field access across goroutines; events are always
// dispatched with the lock released, so listeners may call back into the
// instance.
type machine struct {
	mu  sync.Mutex
	log zerolog.Logger

	state  ReadyState
	method string
	rawURL string

	requestHeaders  *header.Store
	responseHeaders *header.Store

	status       int
	statusText   string
	response     any
	responseText string
	responseXML  string
	responseURL  string

	responseType    ResponseType
	overrideMime    string
	timeout         time.Duration
	withCredentials bool
	username        string
	password        string

	emitter events.Emitter

	// generation increments on every Open, Send, and Abort. Asynchronous
	// continuations capture the generation at their start and apply only
	// while it is still current, so a superseded send can never resurrect
	// stale transitions.
	generation uint64

	done     chan struct{}
	doneOnce *sync.Once
}

// sendToken ties a continuation to the send that started it.
type sendToken struct {
	gen  uint64
	done chan struct{}
	once *sync.Once
}

func (m *machine) init() {
	m.log = zerolog.Nop()
	m.fullReset()
}

// fullReset performs the full reset that starts every Open: state back
// to UNSENT (silently, no readystatechange), default status line, cleared
// bodies, fresh header stores, and a new generation. Takes the mutex
// itself; callers must not hold it.
func (m *machine) fullReset() {
	m.mu.Lock()
	m.state = Unsent
	m.status = http.StatusOK
	m.statusText = "OK"
	m.response = nil
	m.responseText = ""
	m.responseXML = ""
	m.responseURL = ""
	m.requestHeaders = header.New()
	m.responseHeaders = header.New()
	m.generation++
	if m.doneOnce != nil {
		// Release anyone still waiting on a superseded send.
		prev, once := m.done, m.doneOnce
		once.Do(func() { close(prev) })
	}
	m.done = make(chan struct{})
	m.doneOnce = new(sync.Once)
	m.mu.Unlock()
}

// open resets the instance and transitions to OPENED. When url is empty
// the single provided argument is treated as the URL and the method
// defaults to GET (legacy single-argument call compatibility).
func (m *machine) open(method, url string) error {
	if url == "" {
		url, method = method, http.MethodGet
	}
	if url == "" {
		return errors.New(errors.ErrorTypeValidation, "request URL is required")
	}
	if method == "" {
		method = http.MethodGet
	}

	m.fullReset()
	m.mu.Lock()
	m.method = strings.ToUpper(method)
	m.rawURL = url
	m.mu.Unlock()
	m.transition(Opened)
	return nil
}

// token captures the current generation and completion channel.
func (m *machine) token() sendToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sendToken{gen: m.generation, done: m.done, once: m.doneOnce}
}

func (m *machine) stillCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

// transition moves to state s and fires readystatechange. Setting the
// state it already holds is a silent no-op.
func (m *machine) transition(s ReadyState) {
	m.mu.Lock()
	if m.state == s {
		m.mu.Unlock()
		return
	}
	m.state = s
	m.mu.Unlock()
	m.emitter.Dispatch(events.New(events.ReadyStateChange))
}

// transitionIf is transition gated on the generation still being current.
// It reports whether the continuation may keep going.
func (m *machine) transitionIf(gen uint64, s ReadyState) bool {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return false
	}
	if m.state == s {
		m.mu.Unlock()
		return true
	}
	m.state = s
	m.mu.Unlock()
	m.emitter.Dispatch(events.New(events.ReadyStateChange))
	return true
}

// fireIf dispatches ev if the generation is still current.
func (m *machine) fireIf(gen uint64, ev events.Event) bool {
	if !m.stillCurrent(gen) {
		return false
	}
	m.emitter.Dispatch(ev)
	return true
}

// failSequence is the shared failure path: fire the failure event (error
// or timeout), then perform the abort transition — reset to UNSENT and
// fire abort. Mirrors opaque network-error semantics: no load/loadend, and
// the send still reaches a terminal state.
func (m *machine) failSequence(gen uint64, tok sendToken, t events.Type) {
	if !m.fireIf(gen, events.New(t)) {
		return
	}
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.state = Unsent
	m.generation++
	m.mu.Unlock()
	m.emitter.Dispatch(events.New(events.Abort))
	finishToken(tok)
}

// abortCore implements the shared part of Abort: legal only while
// UNSENT < state < DONE. It reports whether an abort actually happened;
// the caller fires the abort event (or delegates it) afterwards.
func (m *machine) abortCore() (sendToken, bool) {
	m.mu.Lock()
	if m.state <= Unsent || m.state >= Done {
		m.mu.Unlock()
		return sendToken{}, false
	}
	m.state = Unsent
	m.generation++
	tok := sendToken{gen: m.generation, done: m.done, once: m.doneOnce}
	m.mu.Unlock()
	return tok, true
}

func finishToken(tok sendToken) {
	if tok.once == nil {
		return
	}
	tok.once.Do(func() { close(tok.done) })
}

// --- shared public surface ---

// SetRequestHeader appends into the request header store without
// overwriting earlier values for the same name.
func (m *machine) SetRequestHeader(name, value string) {
	m.mu.Lock()
	m.requestHeaders.Append(name, value)
	m.mu.Unlock()
}

// GetResponseHeader returns the first value for name once headers have
// been received; before that it reports ("", false).
func (m *machine) GetResponseHeader(name string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state < HeadersReceived {
		return "", false
	}
	return m.responseHeaders.Get(name)
}

// GetAllResponseHeaders returns the serialized response header store, or
// the empty string before headers have been received.
func (m *machine) GetAllResponseHeaders() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state < HeadersReceived {
		return ""
	}
	return m.responseHeaders.Serialize()
}

// AddEventListener attaches a listener and returns its handle.
func (m *machine) AddEventListener(t events.Type, fn events.Listener) events.Handle {
	return m.emitter.Add(t, fn)
}

// RemoveEventListener detaches the registration matching both t and h;
// anything else is retained.
func (m *machine) RemoveEventListener(t events.Type, h events.Handle) {
	m.emitter.Remove(t, h)
}

// On installs the direct callback slot for t. The slot, when set, is
// always dispatched before attached listeners.
func (m *machine) On(t events.Type, fn events.Listener) {
	m.emitter.SetCallback(t, fn)
}

// OverrideMimeType overrides the response content type used by body
// coercion.
func (m *machine) OverrideMimeType(mime string) {
	m.mu.Lock()
	m.overrideMime = mime
	m.mu.Unlock()
}

// SetResponseType selects how the response body is materialized.
func (m *machine) SetResponseType(rt ResponseType) {
	m.mu.Lock()
	m.responseType = rt
	m.mu.Unlock()
}

// SetTimeout bounds how long a send may take. Meaningful on the native
// client; the emulated client forwards it on the passthrough path.
func (m *machine) SetTimeout(d time.Duration) {
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// SetWithCredentials mirrors the credentialed-request flag of the
// emulated contract.
func (m *machine) SetWithCredentials(enabled bool) {
	m.mu.Lock()
	m.withCredentials = enabled
	m.mu.Unlock()
}

// SetBasicAuth stores credentials applied to the request on send.
func (m *machine) SetBasicAuth(username, password string) {
	m.mu.Lock()
	m.username = username
	m.password = password
	m.mu.Unlock()
}

func (m *machine) ReadyState() ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *machine) Status() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *machine) StatusText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusText
}

func (m *machine) Response() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.response
}

func (m *machine) ResponseText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseText
}

func (m *machine) ResponseXML() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseXML
}

func (m *machine) ResponseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responseURL
}

// Method returns the normalized request method of the last Open.
func (m *machine) Method() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.method
}

// URL returns the raw request URL of the last Open.
func (m *machine) URL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rawURL
}

func (m *machine) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}
