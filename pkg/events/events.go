// Package events models the lifecycle events fired by intercepted request
// clients: a closed set of event types, synthesized event values, and an
// emitter that dispatches to a per-type direct callback slot first and then
// to registered listeners in registration order.
package events

import "sync"

// Type identifies a lifecycle event. The set is closed; dispatch is keyed
// by explicit fields rather than reflective name lookup.
type Type string

const (
	ReadyStateChange Type = "readystatechange"
	LoadStart        Type = "loadstart"
	Progress         Type = "progress"
	Load             Type = "load"
	LoadEnd          Type = "loadend"
	Error            Type = "error"
	Abort            Type = "abort"
	Timeout          Type = "timeout"
)

// Types lists every lifecycle event type.
var Types = []Type{
	ReadyStateChange, LoadStart, Progress, Load, LoadEnd, Error, Abort, Timeout,
}

// Event is a synthesized lifecycle or progress event. Loaded and Total are
// meaningful only for Progress events.
type Event struct {
	Type   Type
	Loaded int64
	Total  int64
}

// New synthesizes a plain lifecycle event.
func New(t Type) Event {
	return Event{Type: t}
}

// NewProgress synthesizes a progress event carrying byte counts.
func NewProgress(t Type, loaded, total int64) Event {
	return Event{Type: t, Loaded: loaded, Total: total}
}

// Listener receives dispatched events.
type Listener func(Event)

// Handle identifies a listener registration. Functions are not comparable
// in Go, so removal is keyed by the handle returned at registration time;
// a removal only takes effect when both the type and the handle match.
type Handle uint64

// Callbacks holds the direct single-callback slot for each event type.
// One optional field per member of the closed Type enumeration.
type Callbacks struct {
	OnReadyStateChange Listener
	OnLoadStart        Listener
	OnProgress         Listener
	OnLoad             Listener
	OnLoadEnd          Listener
	OnError            Listener
	OnAbort            Listener
	OnTimeout          Listener
}

func (c *Callbacks) slot(t Type) Listener {
	switch t {
	case ReadyStateChange:
		return c.OnReadyStateChange
	case LoadStart:
		return c.OnLoadStart
	case Progress:
		return c.OnProgress
	case Load:
		return c.OnLoad
	case LoadEnd:
		return c.OnLoadEnd
	case Error:
		return c.OnError
	case Abort:
		return c.OnAbort
	case Timeout:
		return c.OnTimeout
	}
	return nil
}

func (c *Callbacks) set(t Type, fn Listener) {
	switch t {
	case ReadyStateChange:
		c.OnReadyStateChange = fn
	case LoadStart:
		c.OnLoadStart = fn
	case Progress:
		c.OnProgress = fn
	case Load:
		c.OnLoad = fn
	case LoadEnd:
		c.OnLoadEnd = fn
	case Error:
		c.OnError = fn
	case Abort:
		c.OnAbort = fn
	case Timeout:
		c.OnTimeout = fn
	}
}

// Registration is one (type, listener) pair attached to an emitter.
type Registration struct {
	Type     Type
	Handle   Handle
	Listener Listener
}

// Emitter dispatches events to the direct callback slot for the event type
// first, then to every matching registered listener in registration order.
// Safe for concurrent use; listeners run without the emitter lock held, so
// they may call back into the emitter.
type Emitter struct {
	mu        sync.Mutex
	callbacks Callbacks
	regs      []Registration
	nextID    Handle
}

// SetCallback installs or clears (fn == nil) the direct slot for t.
func (e *Emitter) SetCallback(t Type, fn Listener) {
	e.mu.Lock()
	e.callbacks.set(t, fn)
	e.mu.Unlock()
}

// Callback returns the direct slot currently installed for t.
func (e *Emitter) Callback(t Type) Listener {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callbacks.slot(t)
}

// Add registers a listener for t and returns its handle.
func (e *Emitter) Add(t Type, fn Listener) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.regs = append(e.regs, Registration{Type: t, Handle: e.nextID, Listener: fn})
	return e.nextID
}

// Remove drops the registration identified by t and h. An entry matching
// only the type or only the handle is retained.
func (e *Emitter) Remove(t Type, h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.regs[:0]
	for _, r := range e.regs {
		if r.Type == t && r.Handle == h {
			continue
		}
		out = append(out, r)
	}
	e.regs = out
}

// Registrations returns a snapshot of every attached listener in
// registration order.
func (e *Emitter) Registrations() []Registration {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Registration, len(e.regs))
	copy(out, e.regs)
	return out
}

// Dispatch delivers ev to the direct slot for its type, then to matching
// listeners in registration order.
func (e *Emitter) Dispatch(ev Event) {
	e.mu.Lock()
	slot := e.callbacks.slot(ev.Type)
	matching := make([]Listener, 0, len(e.regs))
	for _, r := range e.regs {
		if r.Type == ev.Type {
			matching = append(matching, r.Listener)
		}
	}
	e.mu.Unlock()

	if slot != nil {
		slot(ev)
	}
	for _, fn := range matching {
		fn(ev)
	}
}
