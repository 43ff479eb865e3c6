package client

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
	"github.com/mockwire/mockwire/pkg/observer"
)

// Emulated is the intercepted client. Every Send builds an isomorphic
// request descriptor, hands it to the resolver, and then either fabricates
// the mocked response lifecycle locally or passes the request through to a
// real client, relaying its terminal state.
type Emulated struct {
	machine

	resolver Resolver
	bus      *observer.Bus
	base     *url.URL
	native   Factory

	// current holds the real client while a passthrough send is in
	// flight, so Abort and a superseding Open can reach it.
	current Requester
}

// EmulatedOption configures an Emulated instance.
type EmulatedOption func(*Emulated)

// WithObserver routes completion notifications to bus instead of the
// process-wide default.
func WithObserver(bus *observer.Bus) EmulatedOption {
	return func(e *Emulated) { e.bus = bus }
}

// WithBaseURL sets the base location relative request URLs resolve
// against, standing in for the host environment's current location.
func WithBaseURL(base *url.URL) EmulatedOption {
	return func(e *Emulated) { e.base = base }
}

// WithNativeFactory sets the constructor the passthrough path uses for
// real clients. Interception installs the saved original factory here.
func WithNativeFactory(f Factory) EmulatedOption {
	return func(e *Emulated) { e.native = f }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) EmulatedOption {
	return func(e *Emulated) {
		e.log = log.With().Str("component", "emulated_client").Logger()
	}
}

// NewEmulated creates an intercepted client bound to resolver.
func NewEmulated(resolver Resolver, opts ...EmulatedOption) *Emulated {
	e := &Emulated{
		resolver: resolver,
		bus:      observer.Default,
		native:   func() Requester { return NewNative() },
	}
	e.machine.init()
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Open resets the instance and prepares a request, abandoning any send
// still in flight: its resolver continuation is ignored once superseded,
// and an in-flight passthrough call is aborted.
func (e *Emulated) Open(method, url string) error {
	e.mu.Lock()
	cur := e.current
	e.current = nil
	e.mu.Unlock()
	if cur != nil {
		cur.Abort()
	}
	return e.open(method, url)
}

// Send builds the request descriptor and defers to the resolver pipeline.
// It returns immediately; the resolver is invoked asynchronously even when
// it would not block.
func (e *Emulated) Send(body string) error {
	e.mu.Lock()
	if e.state != Opened {
		state := e.state
		e.mu.Unlock()
		return errors.New(errors.ErrorTypeState, "send requires an opened client").
			WithContext("ready_state", state.String())
	}
	// Each send takes its own generation, superseding continuations
	// still running from an earlier send on this instance.
	e.generation++
	gen := e.generation
	tok := sendToken{gen: gen, done: e.done, once: e.doneOnce}
	method, rawURL := e.method, e.rawURL
	reqHeaders := e.requestHeaders.Clone()
	e.mu.Unlock()

	req, err := e.buildRequest(method, rawURL, reqHeaders, body)
	if err != nil {
		return err
	}

	e.log.Debug().
		Str("request_id", req.ID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("dispatching to resolver")

	go e.resolve(gen, tok, req)
	return nil
}

// Abort cancels an in-flight send: reset to UNSENT and fire abort. While a
// passthrough call is in flight the abort is delegated to the real client,
// whose own abort event reaches the forwarded listeners; the emulated
// instance just resets silently in that case.
func (e *Emulated) Abort() {
	e.mu.Lock()
	cur := e.current
	e.current = nil
	e.mu.Unlock()

	tok, ok := e.abortCore()
	if !ok {
		return
	}
	if cur != nil {
		cur.Abort()
	} else {
		e.emitter.Dispatch(events.New(events.Abort))
	}
	finishToken(tok)
}

// buildRequest normalizes the request into its isomorphic descriptor. A
// relative or unparseable URL is retried against the base location; only a
// still-unparseable result is a hard failure.
func (e *Emulated) buildRequest(method, rawURL string, hdrs *header.Store, body string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		if e.base == nil {
			return nil, errors.New(errors.ErrorTypeValidation, "relative request URL requires a base location").
				WithContext("url", rawURL)
		}
		u, err = e.base.Parse(rawURL)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeValidation, "unresolvable request URL").
				WithContext("url", rawURL)
		}
	}

	return &Request{
		ID:      uuid.NewString(),
		Method:  method,
		URL:     u,
		Headers: hdrs,
		Body:    body,
	}, nil
}

// resolve invokes the resolver exactly once and branches on its outcome.
func (e *Emulated) resolve(gen uint64, tok sendToken, req *Request) {
	mock, err := e.invokeResolver(req)

	if !e.stillCurrent(gen) {
		e.log.Debug().Str("request_id", req.ID).Msg("resolver outcome for superseded send ignored")
		return
	}

	switch {
	case err != nil:
		e.log.Debug().Err(err).Str("request_id", req.ID).Msg("resolver failed")
		e.failSequence(gen, tok, events.Error)
	case mock != nil:
		e.deliverMock(gen, tok, req, mock)
	default:
		e.passthrough(gen, tok, req)
	}
}

// invokeResolver wraps the resolver call in structured failure capture: a
// panic becomes an ordinary failure outcome and never escapes.
func (e *Emulated) invokeResolver(req *Request) (mock *MockResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			mock = nil
			err = errors.Newf(errors.ErrorTypeResolver, "resolver panicked: %v", r)
		}
	}()
	return e.resolver(req, e)
}

// deliverMock drives the mocked-response lifecycle:
// loadstart → HEADERS_RECEIVED → (LOADING + progress when the body is
// non-empty) → DONE → load → loadend, then notifies the observer.
func (e *Emulated) deliverMock(gen uint64, tok sendToken, req *Request, mock *MockResponse) {
	if !e.fireIf(gen, events.New(events.LoadStart)) {
		return
	}

	status := mock.Status
	if status == 0 {
		status = 200
	}
	statusText := mock.StatusText
	if statusText == "" {
		statusText = "OK"
	}
	respHeaders := header.FromMap(mock.Headers)

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.status = status
	e.statusText = statusText
	e.responseHeaders = respHeaders
	e.responseURL = req.URL.String()
	e.mu.Unlock()
	if !e.transitionIf(gen, HeadersReceived) {
		return
	}

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	contentType, _ := respHeaders.Get("Content-Type")
	if e.overrideMime != "" {
		contentType = e.overrideMime
	}
	coerced := coerceBody(mock.Body, e.responseType, contentType)
	e.response = coerced
	e.responseText = mock.Body
	if isXMLContentType(contentType) {
		e.responseXML = mock.Body
	}
	e.mu.Unlock()

	if mock.Body != "" {
		if !e.transitionIf(gen, Loading) {
			return
		}
		size := int64(len(mock.Body))
		if !e.fireIf(gen, events.NewProgress(events.Progress, size, size)) {
			return
		}
	}

	// DONE is reached unconditionally, empty body included, so callers
	// waiting on terminal state never hang.
	if !e.transitionIf(gen, Done) {
		return
	}
	e.fireIf(gen, events.New(events.Load))
	e.fireIf(gen, events.New(events.LoadEnd))
	finishToken(tok)

	e.notify(req, &ResponseSnapshot{
		Status:     status,
		StatusText: statusText,
		Headers:    respHeaders.Clone(),
		Body:       mock.Body,
		Mocked:     true,
	})
}

func (e *Emulated) notify(req *Request, snap *ResponseSnapshot) {
	if e.bus == nil {
		return
	}
	e.bus.Emit(observer.EventResponse, req, snap)
}
