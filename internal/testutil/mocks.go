package testutil

import (
	"sync"
	"time"

	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
)

// ScriptedClient is a Requester double that records every call made to it
// and, on Send, replays a canned response through the normal event
// sequence. Install it as a native factory to test passthrough wiring
// without touching the network.
type ScriptedClient struct {
	mu sync.Mutex

	// Script
	RespondStatus     int
	RespondStatusText string
	RespondHeaders    string // serialized "Name: value" lines
	RespondBody       string
	FailWith          events.Type // when set, Send fails with this event instead

	// Recorded calls
	OpenedMethod string
	OpenedURL    string
	SentBody     string
	SentCount    int
	Headers      *header.Store
	Timeout      time.Duration
	Credentials  bool
	Username     string
	Password     string
	ResponseType client.ResponseType
	MimeOverride string
	Aborted      bool

	emitter  events.Emitter
	state    client.ReadyState
	done     chan struct{}
	doneOnce sync.Once
}

func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{
		RespondStatus:     200,
		RespondStatusText: "OK",
		Headers:           header.New(),
		done:              make(chan struct{}),
	}
}

func (s *ScriptedClient) Open(method, url string) error {
	s.mu.Lock()
	s.OpenedMethod = method
	s.OpenedURL = url
	s.state = client.Opened
	s.mu.Unlock()
	s.emitter.Dispatch(events.New(events.ReadyStateChange))
	return nil
}

func (s *ScriptedClient) Send(body string) error {
	s.mu.Lock()
	s.SentBody = body
	s.SentCount++
	fail := s.FailWith
	s.mu.Unlock()

	s.emitter.Dispatch(events.New(events.LoadStart))
	if fail != "" {
		s.mu.Lock()
		s.state = client.Unsent
		s.mu.Unlock()
		s.emitter.Dispatch(events.New(fail))
		s.finish()
		return nil
	}

	s.setState(client.HeadersReceived)
	s.setState(client.Loading)
	s.emitter.Dispatch(events.NewProgress(events.Progress, int64(len(s.RespondBody)), int64(len(s.RespondBody))))
	s.setState(client.Done)
	s.emitter.Dispatch(events.New(events.Load))
	s.emitter.Dispatch(events.New(events.LoadEnd))
	s.finish()
	return nil
}

func (s *ScriptedClient) setState(st client.ReadyState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.emitter.Dispatch(events.New(events.ReadyStateChange))
}

func (s *ScriptedClient) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *ScriptedClient) Abort() {
	s.mu.Lock()
	s.Aborted = true
	s.state = client.Unsent
	s.mu.Unlock()
	s.emitter.Dispatch(events.New(events.Abort))
	s.finish()
}

func (s *ScriptedClient) SetRequestHeader(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Headers.Append(name, value)
}

func (s *ScriptedClient) GetResponseHeader(name string) (string, bool) {
	hdrs := header.Parse(s.RespondHeaders)
	return hdrs.Get(name)
}

func (s *ScriptedClient) GetAllResponseHeaders() string { return s.RespondHeaders }

func (s *ScriptedClient) AddEventListener(t events.Type, fn events.Listener) events.Handle {
	return s.emitter.Add(t, fn)
}

func (s *ScriptedClient) RemoveEventListener(t events.Type, h events.Handle) {
	s.emitter.Remove(t, h)
}

func (s *ScriptedClient) On(t events.Type, fn events.Listener) {
	s.emitter.SetCallback(t, fn)
}

func (s *ScriptedClient) OverrideMimeType(mime string) {
	s.mu.Lock()
	s.MimeOverride = mime
	s.mu.Unlock()
}

func (s *ScriptedClient) SetResponseType(rt client.ResponseType) {
	s.mu.Lock()
	s.ResponseType = rt
	s.mu.Unlock()
}

func (s *ScriptedClient) SetTimeout(d time.Duration) {
	s.mu.Lock()
	s.Timeout = d
	s.mu.Unlock()
}

func (s *ScriptedClient) SetWithCredentials(enabled bool) {
	s.mu.Lock()
	s.Credentials = enabled
	s.mu.Unlock()
}

func (s *ScriptedClient) SetBasicAuth(username, password string) {
	s.mu.Lock()
	s.Username = username
	s.Password = password
	s.mu.Unlock()
}

func (s *ScriptedClient) ReadyState() client.ReadyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ScriptedClient) Status() int         { return s.RespondStatus }
func (s *ScriptedClient) StatusText() string  { return s.RespondStatusText }
func (s *ScriptedClient) Response() any       { return s.RespondBody }
func (s *ScriptedClient) ResponseText() string { return s.RespondBody }
func (s *ScriptedClient) ResponseXML() string { return "" }
func (s *ScriptedClient) ResponseURL() string { return s.OpenedURL }

func (s *ScriptedClient) Done() <-chan struct{} { return s.done }

// EventRecorder collects dispatched event types in order
type EventRecorder struct {
	mu    sync.Mutex
	types []events.Type
}

// Attach registers the recorder for every event type on c
func (r *EventRecorder) Attach(c client.Requester) {
	for _, t := range events.Types {
		t := t
		c.AddEventListener(t, func(events.Event) {
			r.mu.Lock()
			r.types = append(r.types, t)
			r.mu.Unlock()
		})
	}
}

// Events returns a snapshot of the recorded sequence
func (r *EventRecorder) Events() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.types))
	copy(out, r.types)
	return out
}
