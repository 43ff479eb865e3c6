package client

import (
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/header"
)

// passthrough forwards the request to a real client and relays its
// terminal state back onto this instance. The real client drives the
// caller-visible events for this send: every direct callback slot and
// every registered listener is forwarded before the real send starts, so
// network failures surface to the caller exactly as the real client
// emits them.
func (e *Emulated) passthrough(gen uint64, tok sendToken, req *Request) {
	rc := e.native()

	if err := rc.Open(req.Method, req.URL.String()); err != nil {
		e.log.Debug().Err(err).Str("request_id", req.ID).Msg("opening real client failed")
		e.failSequence(gen, tok, events.Error)
		return
	}

	// Mirror request headers preserving their original casing.
	req.Headers.Each(func(name, value string) {
		rc.SetRequestHeader(name, value)
	})

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	rt := e.responseType
	timeout := e.timeout
	withCredentials := e.withCredentials
	username, password := e.username, e.password
	overrideMime := e.overrideMime
	regs := e.emitter.Registrations()
	e.current = rc
	e.mu.Unlock()

	rc.SetResponseType(rt)
	if timeout > 0 {
		rc.SetTimeout(timeout)
	}
	rc.SetWithCredentials(withCredentials)
	if username != "" || password != "" {
		rc.SetBasicAuth(username, password)
	}
	if overrideMime != "" {
		rc.OverrideMimeType(overrideMime)
	}

	// Forward the direct callback slots, then listeners in registration
	// order, so dispatch order on the real client matches this instance.
	// Each forwarded handler first mirrors the real client's state onto
	// this instance: a caller reading status or body inside its own load
	// handler must see what the real client shows at that moment.
	forward := func(fn events.Listener) events.Listener {
		return func(ev events.Event) {
			e.syncFromReal(gen, rc)
			fn(ev)
		}
	}
	for _, t := range events.Types {
		if fn := e.emitter.Callback(t); fn != nil {
			rc.On(t, forward(fn))
		}
	}
	for _, r := range regs {
		rc.AddEventListener(r.Type, forward(r.Listener))
	}

	// Relay terminal completion back onto this instance.
	rc.AddEventListener(events.Load, func(events.Event) {
		e.relay(gen, tok, req, rc)
	})
	// A failed or aborted real call already surfaced its events through
	// the forwarded listeners; this instance just resets silently so
	// waiters still observe a terminal state.
	settle := func(events.Event) {
		e.settleAfterRealFailure(gen, tok)
	}
	rc.AddEventListener(events.Error, settle)
	rc.AddEventListener(events.Timeout, settle)
	rc.AddEventListener(events.Abort, settle)

	e.log.Debug().
		Str("request_id", req.ID).
		Str("url", req.URL.String()).
		Msg("passing request through")

	if err := rc.Send(req.Body); err != nil {
		e.failSequence(gen, tok, events.Error)
		return
	}
}

// syncFromReal mirrors the real client's current state onto this
// instance: readyState, status line, headers, body. No events fire here;
// the real client's own dispatches are forwarded separately.
func (e *Emulated) syncFromReal(gen uint64, rc Requester) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != gen {
		return
	}
	e.state = rc.ReadyState()
	e.status = rc.Status()
	e.statusText = rc.StatusText()
	e.responseURL = rc.ResponseURL()
	e.responseHeaders = header.Parse(rc.GetAllResponseHeaders())
	e.response = rc.Response()
	e.responseText = rc.ResponseText()
	e.responseXML = rc.ResponseXML()
}

// relay settles this instance after the real client loads: a final state
// copy, force DONE (idempotent when a forwarded handler already synced
// it), then completion and observer notification.
func (e *Emulated) relay(gen uint64, tok sendToken, req *Request, rc Requester) {
	e.syncFromReal(gen, rc)

	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.current = nil
	e.mu.Unlock()

	e.transitionIf(gen, Done)
	finishToken(tok)

	e.notify(req, &ResponseSnapshot{
		Status:     rc.Status(),
		StatusText: rc.StatusText(),
		Headers:    header.Parse(rc.GetAllResponseHeaders()),
		Body:       rc.ResponseText(),
		Mocked:     false,
	})
}

func (e *Emulated) settleAfterRealFailure(gen uint64, tok sendToken) {
	e.mu.Lock()
	if e.generation != gen {
		e.mu.Unlock()
		return
	}
	e.state = Unsent
	e.generation++
	e.current = nil
	e.mu.Unlock()
	finishToken(tok)
}
