// Package observer provides a process-wide, fire-and-forget notification
// channel. Every completed request, mocked or passed through, is announced
// here independent of the resolver's control flow. Emitting never blocks
// and never fails the request path.
package observer

import (
	"sync"

	"github.com/rs/zerolog"
)

// EventResponse is the event name emitted when any request completes.
const EventResponse = "response"

// Handler receives the request descriptor and the effective response
// snapshot for a completed request.
type Handler func(req, resp any)

type subscription struct {
	id int
	fn Handler
}

// Bus fans notifications out to subscribers. Handlers run on their own
// goroutine with panic recovery; a misbehaving subscriber cannot stall or
// fail a request.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]subscription
	next int
	log  zerolog.Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs: make(map[string][]subscription),
		log:  zerolog.Nop(),
	}
}

// Default is the process-wide bus used by intercepted clients unless one
// is injected explicitly. Its lifetime is the interception session.
var Default = New()

// SetLogger installs a logger for dropped-notification diagnostics.
func (b *Bus) SetLogger(log zerolog.Logger) {
	b.mu.Lock()
	b.log = log.With().Str("component", "observer").Logger()
	b.mu.Unlock()
}

// Subscribe registers a handler for event and returns an unsubscribe
// function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(event string, fn Handler) (cancel func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[event] = append(b.subs[event], subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[event]
		out := list[:0]
		for _, s := range list {
			if s.id == id {
				continue
			}
			out = append(out, s)
		}
		b.subs[event] = out
	}
}

// Emit delivers (req, resp) to every subscriber of event. Delivery is
// asynchronous; Emit returns immediately.
func (b *Bus) Emit(event string, req, resp any) {
	b.mu.RLock()
	list := b.subs[event]
	handlers := make([]Handler, len(list))
	for i, s := range list {
		handlers[i] = s.fn
	}
	log := b.log
	b.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	go func() {
		for _, fn := range handlers {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Warn().Interface("panic", r).Str("event", event).
							Msg("observer handler panicked")
					}
				}()
				fn(req, resp)
			}()
		}
	}()
}
