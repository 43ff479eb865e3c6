package client

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/errors"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
)

// Native is the real client: the same lifecycle and surface as the
// emulated one, backed by net/http. The passthrough adapter constructs
// one of these for every request the resolver declines to mock.
type Native struct {
	machine

	httpClient *http.Client
	cancel     context.CancelFunc
}

// NativeOption configures a Native instance.
type NativeOption func(*Native)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) NativeOption {
	return func(n *Native) { n.httpClient = hc }
}

// WithNativeLogger attaches a logger.
func WithNativeLogger(log zerolog.Logger) NativeOption {
	return func(n *Native) {
		n.log = log.With().Str("component", "native_client").Logger()
	}
}

// NewNative creates a real client in the UNSENT state.
func NewNative(opts ...NativeOption) *Native {
	n := &Native{
		httpClient: &http.Client{},
	}
	n.machine.init()
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Open resets the instance and prepares a request. An in-flight send is
// abandoned: its continuation is ignored and its transport call canceled.
func (n *Native) Open(method, url string) error {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return n.open(method, url)
}

// Send issues the request on its own goroutine. It returns immediately;
// completion is observable through events, ReadyState, or Done.
func (n *Native) Send(body string) error {
	n.mu.Lock()
	if n.state != Opened {
		state := n.state
		n.mu.Unlock()
		return errors.New(errors.ErrorTypeState, "send requires an opened client").
			WithContext("ready_state", state.String())
	}
	// Each send takes its own generation, superseding continuations
	// still running from an earlier send on this instance.
	n.generation++
	gen := n.generation
	tok := sendToken{gen: gen, done: n.done, once: n.doneOnce}
	method, rawURL := n.method, n.rawURL
	reqHeaders := n.requestHeaders.Clone()
	timeout := n.timeout
	username, password := n.username, n.password
	n.mu.Unlock()

	ctx := context.Background()
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()

	go n.run(ctx, cancel, tok, method, rawURL, reqHeaders, username, password, body)
	return nil
}

// Abort cancels an in-flight send: reset to UNSENT, fire abort. Legal
// only between OPENED and DONE exclusive.
func (n *Native) Abort() {
	tok, ok := n.abortCore()
	if !ok {
		return
	}
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	n.emitter.Dispatch(events.New(events.Abort))
	finishToken(tok)
}

func (n *Native) run(ctx context.Context, cancel context.CancelFunc, tok sendToken,
	method, rawURL string, reqHeaders *header.Store, username, password, body string) {
	defer cancel()

	gen := tok.gen
	if !n.fireIf(gen, events.New(events.LoadStart)) {
		return
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		n.log.Debug().Err(err).Str("url", rawURL).Msg("building request failed")
		n.failSequence(gen, tok, events.Error)
		return
	}
	reqHeaders.Each(func(name, value string) {
		req.Header.Add(name, value)
	})
	if username != "" || password != "" {
		req.SetBasicAuth(username, password)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		t := events.Error
		if isTimeoutError(err) {
			t = events.Timeout
		}
		n.log.Debug().Err(err).Str("event", string(t)).Msg("transport failed")
		n.failSequence(gen, tok, t)
		return
	}
	defer resp.Body.Close()

	n.mu.Lock()
	if n.generation != gen {
		n.mu.Unlock()
		return
	}
	n.status = resp.StatusCode
	n.statusText = statusTextOf(resp)
	n.responseURL = resp.Request.URL.String()
	n.responseHeaders = storeFromHTTPHeader(resp.Header)
	n.mu.Unlock()
	if !n.transitionIf(gen, HeadersReceived) {
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		n.failSequence(gen, tok, events.Error)
		return
	}
	if len(data) > 0 {
		if !n.transitionIf(gen, Loading) {
			return
		}
		size := int64(len(data))
		if !n.fireIf(gen, events.NewProgress(events.Progress, size, size)) {
			return
		}
	}

	text := string(data)
	n.mu.Lock()
	if n.generation != gen {
		n.mu.Unlock()
		return
	}
	contentType, _ := n.responseHeaders.Get("Content-Type")
	if n.overrideMime != "" {
		contentType = n.overrideMime
	}
	n.responseText = text
	n.response = coerceBody(text, n.responseType, contentType)
	if isXMLContentType(contentType) {
		n.responseXML = text
	}
	n.mu.Unlock()

	if !n.transitionIf(gen, Done) {
		return
	}
	n.fireIf(gen, events.New(events.Load))
	n.fireIf(gen, events.New(events.LoadEnd))
	finishToken(tok)
}

func isTimeoutError(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return stderrors.As(err, &nerr) && nerr.Timeout()
}

// statusTextOf strips the numeric code from the status line, falling back
// to the standard reason phrase.
func statusTextOf(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if text, ok := strings.CutPrefix(resp.Status, prefix); ok && text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}

// storeFromHTTPHeader converts an http.Header map into an ordered store.
// Map iteration order is undefined, so names are sorted for stability.
func storeFromHTTPHeader(h http.Header) *header.Store {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	s := header.New()
	for _, name := range names {
		for _, value := range h[name] {
			s.Append(name, value)
		}
	}
	return s
}
