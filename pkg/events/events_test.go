package events

import (
	"testing"
)

func TestDispatchSlotBeforeListeners(t *testing.T) {
	var e Emitter
	var order []string

	e.Add(Load, func(Event) { order = append(order, "listener1") })
	e.SetCallback(Load, func(Event) { order = append(order, "slot") })
	e.Add(Load, func(Event) { order = append(order, "listener2") })

	e.Dispatch(New(Load))

	want := []string{"slot", "listener1", "listener2"}
	if len(order) != len(want) {
		t.Fatalf("got %v, expected %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("position %d: got %v, expected %v", i, order, want)
		}
	}
}

func TestDispatchOnlyMatchingType(t *testing.T) {
	var e Emitter
	calls := 0
	e.Add(Error, func(Event) { calls++ })
	e.Dispatch(New(Load))
	if calls != 0 {
		t.Fatalf("listener for %q ran on %q dispatch", Error, Load)
	}
}

func TestSetCallbackReplacesAndClears(t *testing.T) {
	var e Emitter
	var got string
	e.SetCallback(Load, func(Event) { got = "first" })
	e.SetCallback(Load, func(Event) { got = "second" })
	e.Dispatch(New(Load))
	if got != "second" {
		t.Fatalf("slot not replaced: got %q", got)
	}

	e.SetCallback(Load, nil)
	got = ""
	e.Dispatch(New(Load))
	if got != "" {
		t.Fatal("cleared slot still ran")
	}
}

func TestRemoveRequiresTypeAndHandle(t *testing.T) {
	var e Emitter
	calls := 0
	h := e.Add(Load, func(Event) { calls++ })

	// Wrong type with the right handle keeps the registration.
	e.Remove(Error, h)
	e.Dispatch(New(Load))
	if calls != 1 {
		t.Fatalf("removal with mismatched type dropped the listener, calls=%d", calls)
	}

	// Wrong handle with the right type keeps the registration.
	e.Remove(Load, h+100)
	e.Dispatch(New(Load))
	if calls != 2 {
		t.Fatalf("removal with mismatched handle dropped the listener, calls=%d", calls)
	}

	// Matching pair removes it.
	e.Remove(Load, h)
	e.Dispatch(New(Load))
	if calls != 2 {
		t.Fatalf("listener survived matching removal, calls=%d", calls)
	}
}

func TestDuplicateListenersBothRun(t *testing.T) {
	var e Emitter
	calls := 0
	fn := func(Event) { calls++ }
	h1 := e.Add(Load, fn)
	h2 := e.Add(Load, fn)
	if h1 == h2 {
		t.Fatal("handles must be distinct")
	}

	e.Dispatch(New(Load))
	if calls != 2 {
		t.Fatalf("expected both registrations to run, calls=%d", calls)
	}

	e.Remove(Load, h1)
	e.Dispatch(New(Load))
	if calls != 3 {
		t.Fatalf("expected one registration to survive, calls=%d", calls)
	}
}

func TestListenerMayMutateEmitter(t *testing.T) {
	var e Emitter
	ran := false
	var h Handle
	h = e.Add(Load, func(Event) {
		ran = true
		// Reentrant call must not deadlock.
		e.Remove(Load, h)
	})
	e.Dispatch(New(Load))
	if !ran {
		t.Fatal("listener did not run")
	}
	e.Dispatch(New(Load))
}

func TestProgressEventCarriesCounts(t *testing.T) {
	var e Emitter
	var got Event
	e.Add(Progress, func(ev Event) { got = ev })
	e.Dispatch(NewProgress(Progress, 5, 10))
	if got.Loaded != 5 || got.Total != 10 {
		t.Fatalf("progress counts: got %d/%d", got.Loaded, got.Total)
	}
}

func TestRegistrationsSnapshot(t *testing.T) {
	var e Emitter
	e.Add(Load, func(Event) {})
	e.Add(Error, func(Event) {})

	regs := e.Registrations()
	if len(regs) != 2 {
		t.Fatalf("got %d registrations, expected 2", len(regs))
	}
	if regs[0].Type != Load || regs[1].Type != Error {
		t.Fatalf("registration order not preserved: %v, %v", regs[0].Type, regs[1].Type)
	}
}
