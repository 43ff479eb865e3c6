package client_test

import (
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/mockwire/mockwire/internal/testutil"
	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/events"
	"github.com/mockwire/mockwire/pkg/observer"
)

func mockResolver(mock *client.MockResponse) client.Resolver {
	return func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		return mock, nil
	}
}

func waitDone(t *testing.T, c client.Requester) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("send never reached a terminal state")
	}
}

func TestMockDeliveryEventOrder(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{Body: "hello"}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/greeting"), "open")

	var rec testutil.EventRecorder
	rec.Attach(c)

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertEventOrder(t, rec.Events(), []events.Type{
		events.LoadStart,
		events.ReadyStateChange, // HEADERS_RECEIVED
		events.ReadyStateChange, // LOADING
		events.Progress,
		events.ReadyStateChange, // DONE
		events.Load,
		events.LoadEnd,
	}, "mock delivery")

	testutil.AssertEqual(t, c.ReadyState(), client.Done, "terminal state")
	testutil.AssertEqual(t, c.Status(), 200, "default status")
	testutil.AssertStringEqual(t, c.StatusText(), "OK", "default status text")
	testutil.AssertStringEqual(t, c.ResponseText(), "hello", "body")
	testutil.AssertStringEqual(t, c.ResponseURL(), "https://api.example.com/greeting", "response url")
}

func TestMockEmptyBodySkipsLoadingAndProgress(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{Status: 204, StatusText: "No Content"}))
	testutil.AssertNoError(t, c.Open("DELETE", "https://api.example.com/things/1"), "open")

	var rec testutil.EventRecorder
	rec.Attach(c)

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertEventOrder(t, rec.Events(), []events.Type{
		events.LoadStart,
		events.ReadyStateChange, // HEADERS_RECEIVED
		events.ReadyStateChange, // DONE
		events.Load,
		events.LoadEnd,
	}, "empty body delivery")
	testutil.AssertEqual(t, c.Status(), 204, "status")
}

func TestProgressCarriesBodySize(t *testing.T) {
	body := "0123456789"
	c := client.NewEmulated(mockResolver(&client.MockResponse{Body: body}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	var got events.Event
	c.AddEventListener(events.Progress, func(ev events.Event) { got = ev })

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	if got.Loaded != int64(len(body)) || got.Total != int64(len(body)) {
		t.Fatalf("progress: got %d/%d, expected %d/%d", got.Loaded, got.Total, len(body), len(body))
	}
}

func TestCallbackSlotRunsBeforeListeners(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{Body: "x"}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	var mu sync.Mutex
	var order []string
	c.AddEventListener(events.Load, func(events.Event) {
		mu.Lock()
		order = append(order, "listener")
		mu.Unlock()
	})
	c.On(events.Load, func(events.Event) {
		mu.Lock()
		order = append(order, "slot")
		mu.Unlock()
	})

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	testutil.AssertSliceEqual(t, order, []string{"slot", "listener"}, "dispatch order")
}

func TestResolverErrorFailsLikeNetworkError(t *testing.T) {
	resolver := func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		return nil, errors.New("upstream lookup failed")
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	var rec testutil.EventRecorder
	rec.Attach(c)

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertEventOrder(t, rec.Events(), []events.Type{
		events.Error,
		events.Abort,
	}, "failure sequence")
	testutil.AssertEqual(t, c.ReadyState(), client.Unsent, "state after failure")
}

func TestResolverPanicIsCaptured(t *testing.T) {
	resolver := func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		panic("resolver exploded")
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	errFired := false
	c.On(events.Error, func(events.Event) { errFired = true })

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	if !errFired {
		t.Fatal("panicking resolver should surface as an error event")
	}
	testutil.AssertEqual(t, c.ReadyState(), client.Unsent, "state after panic")
}

func TestJSONResponseCoercion(t *testing.T) {
	tests := []struct {
		name string
		body string
		want func(t *testing.T, got any)
	}{
		{
			name: "valid object",
			body: `{"ok":true}`,
			want: func(t *testing.T, got any) {
				m, ok := got.(map[string]any)
				if !ok || m["ok"] != true {
					t.Fatalf("got %#v", got)
				}
			},
		},
		{
			name: "invalid json yields sentinel",
			body: `{not json`,
			want: func(t *testing.T, got any) {
				if got != client.Unparsable {
					t.Fatalf("got %#v, expected the unparsable sentinel", got)
				}
			},
		},
		{
			name: "empty body yields nil",
			body: "",
			want: func(t *testing.T, got any) {
				if got != nil {
					t.Fatalf("got %#v, expected nil", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := client.NewEmulated(mockResolver(&client.MockResponse{
				Headers: map[string]string{"Content-Type": "application/json"},
				Body:    tt.body,
			}))
			testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")
			c.SetResponseType(client.TypeJSON)
			testutil.AssertNoError(t, c.Send(""), "send")
			waitDone(t, c)
			tt.want(t, c.Response())
		})
	}
}

func TestXMLBodyPopulatesResponseXML(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{
		Headers: map[string]string{"Content-Type": "application/xml"},
		Body:    "<a/>",
	}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertStringEqual(t, c.ResponseXML(), "<a/>", "responseXML")
}

func TestResponseHeaderGating(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{
		Headers: map[string]string{"X-Token": "abc"},
		Body:    "x",
	}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	if _, ok := c.GetResponseHeader("X-Token"); ok {
		t.Fatal("response header visible before headers received")
	}
	testutil.AssertStringEqual(t, c.GetAllResponseHeaders(), "", "serialized headers before receipt")

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	v, ok := c.GetResponseHeader("x-token")
	if !ok || v != "abc" {
		t.Fatalf("GetResponseHeader after DONE: got %q, %v", v, ok)
	}
	testutil.AssertStringContains(t, c.GetAllResponseHeaders(), "X-Token: abc", "serialized headers")
}

func TestReadyStateNeverDecreasesDuringSend(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{Body: "x"}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	var mu sync.Mutex
	var states []client.ReadyState
	c.AddEventListener(events.ReadyStateChange, func(events.Event) {
		mu.Lock()
		states = append(states, c.ReadyState())
		mu.Unlock()
	})

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(states); i++ {
		if states[i] < states[i-1] {
			t.Fatalf("readyState decreased: %v", states)
		}
	}
	if len(states) == 0 || states[len(states)-1] != client.Done {
		t.Fatalf("final observed state: %v", states)
	}
}

func TestSendRequiresOpened(t *testing.T) {
	c := client.NewEmulated(mockResolver(nil))
	err := c.Send("")
	testutil.AssertErrorContains(t, err, "opened", "send before open")
}

func TestRelativeURLRequiresBase(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{}))
	testutil.AssertNoError(t, c.Open("GET", "/users"), "open")
	err := c.Send("")
	testutil.AssertError(t, err, "relative URL without a base")
}

func TestRelativeURLResolvesAgainstBase(t *testing.T) {
	base, _ := url.Parse("https://api.example.com/v1/")
	var gotURL string
	resolver := func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		gotURL = req.URL.String()
		return &client.MockResponse{}, nil
	}
	c := client.NewEmulated(resolver, client.WithBaseURL(base))
	testutil.AssertNoError(t, c.Open("GET", "users"), "open")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertStringEqual(t, gotURL, "https://api.example.com/v1/users", "resolved url")
}

func TestSingleArgumentOpenDefaultsToGet(t *testing.T) {
	var gotMethod string
	resolver := func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		gotMethod = req.Method
		return &client.MockResponse{}, nil
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("https://api.example.com/x", ""), "open")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertStringEqual(t, gotMethod, "GET", "defaulted method")
}

func TestAbortDuringResolverDropsOutcome(t *testing.T) {
	release := make(chan struct{})
	resolver := func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		<-release
		return &client.MockResponse{Body: "late"}, nil
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	aborted := make(chan struct{}, 1)
	c.On(events.Abort, func(events.Event) { aborted <- struct{}{} })
	loaded := false
	c.On(events.Load, func(events.Event) { loaded = true })

	testutil.AssertNoError(t, c.Send(""), "send")
	c.Abort()

	select {
	case <-aborted:
	case <-time.After(time.Second):
		t.Fatal("abort event never fired")
	}
	testutil.AssertEqual(t, c.ReadyState(), client.Unsent, "state after abort")

	close(release)
	time.Sleep(50 * time.Millisecond)

	if loaded {
		t.Fatal("superseded resolver outcome was delivered")
	}
	testutil.AssertEqual(t, c.ReadyState(), client.Unsent, "state stays reset")
	testutil.AssertStringEqual(t, c.ResponseText(), "", "no body from stale outcome")
}

func TestOpenSupersedesInFlightSend(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex
	resolver := func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			<-release
			return &client.MockResponse{Body: "stale"}, nil
		}
		return &client.MockResponse{Body: "fresh"}, nil
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/old"), "first open")
	testutil.AssertNoError(t, c.Send(""), "first send")

	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/new"), "second open")
	testutil.AssertNoError(t, c.Send(""), "second send")
	waitDone(t, c)

	close(release)
	time.Sleep(50 * time.Millisecond)

	testutil.AssertStringEqual(t, c.ResponseText(), "fresh", "fresh send wins")
	testutil.AssertEqual(t, c.ReadyState(), client.Done, "terminal state")
}

func TestSecondSendSupersedesFirst(t *testing.T) {
	release := make(chan struct{})
	resolver := func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		if req.Body == "first" {
			<-release
			return &client.MockResponse{Body: "stale"}, nil
		}
		return &client.MockResponse{Body: "fresh"}, nil
	}
	c := client.NewEmulated(resolver)
	testutil.AssertNoError(t, c.Open("POST", "https://api.example.com/race"), "open")

	var mu sync.Mutex
	loads := 0
	c.AddEventListener(events.Load, func(events.Event) {
		mu.Lock()
		loads++
		mu.Unlock()
	})

	testutil.AssertNoError(t, c.Send("first"), "first send")
	testutil.AssertNoError(t, c.Send("second"), "second send while still OPENED")
	waitDone(t, c)

	// Release the first resolver after the second send settled; its
	// outcome belongs to a superseded generation and must be dropped.
	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	gotLoads := loads
	mu.Unlock()
	testutil.AssertEqual(t, gotLoads, 1, "load fired once")
	testutil.AssertStringEqual(t, c.ResponseText(), "fresh", "stale body dropped")
	testutil.AssertEqual(t, c.ReadyState(), client.Done, "state stays terminal")
}

func TestAbortWhenIdleIsNoOp(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{}))

	fired := false
	c.On(events.Abort, func(events.Event) { fired = true })

	c.Abort() // UNSENT, no-op
	if fired {
		t.Fatal("abort fired in UNSENT")
	}

	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	c.Abort() // DONE, no-op
	if fired {
		t.Fatal("abort fired in DONE")
	}
	testutil.AssertEqual(t, c.ReadyState(), client.Done, "state unchanged")
}

func TestObserverNotifiedOnMock(t *testing.T) {
	bus := observer.New()
	snaps := make(chan *client.ResponseSnapshot, 1)
	bus.Subscribe(observer.EventResponse, func(req, resp any) {
		if snap, ok := resp.(*client.ResponseSnapshot); ok {
			snaps <- snap
		}
	})

	c := client.NewEmulated(mockResolver(&client.MockResponse{Status: 201, Body: "made"}),
		client.WithObserver(bus))
	testutil.AssertNoError(t, c.Open("POST", "https://api.example.com/things"), "open")
	testutil.AssertNoError(t, c.Send(`{"a":1}`), "send")
	waitDone(t, c)

	select {
	case snap := <-snaps:
		testutil.AssertEqual(t, snap.Status, 201, "snapshot status")
		testutil.AssertStringEqual(t, snap.Body, "made", "snapshot body")
		testutil.AssertEqual(t, snap.Mocked, true, "snapshot mocked flag")
	case <-time.After(time.Second):
		t.Fatal("observer never notified")
	}
}

func TestListenerRemovalIsConservative(t *testing.T) {
	c := client.NewEmulated(mockResolver(&client.MockResponse{Body: "x"}))
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")

	var mu sync.Mutex
	calls := 0
	h := c.AddEventListener(events.Load, func(events.Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	// Mismatched type keeps the listener attached.
	c.RemoveEventListener(events.Error, h)

	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("listener calls: got %d, expected 1", calls)
	}
}

func TestPatchJSON(t *testing.T) {
	mock := &client.MockResponse{Body: `{"user":{"name":"a"}}`}
	testutil.AssertNoError(t, mock.PatchJSON("user.name", "b"), "patch existing")
	testutil.AssertNoError(t, mock.PatchJSON("user.age", 30), "patch new field")
	testutil.AssertStringEqual(t, mock.Body, `{"user":{"name":"b","age":30}}`, "patched body")

	empty := &client.MockResponse{}
	testutil.AssertNoError(t, empty.PatchJSON("ok", true), "patch empty body")
	testutil.AssertStringEqual(t, empty.Body, `{"ok":true}`, "body from scratch")
}
