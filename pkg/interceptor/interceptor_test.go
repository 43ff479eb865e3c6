package interceptor_test

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/mockwire/mockwire/internal/testutil"
	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/interceptor"
)

func alwaysMock(mock *client.MockResponse) client.Resolver {
	return func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		return mock, nil
	}
}

func decline() client.Resolver {
	return func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		return nil, nil
	}
}

func waitDone(t *testing.T, c client.Requester) {
	t.Helper()
	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("request never completed")
	}
}

func TestApplySwapsAndRestoreReinstates(t *testing.T) {
	i := interceptor.New(alwaysMock(&client.MockResponse{Status: 200, Body: "ok"}))

	if _, ok := client.New().(*client.Native); !ok {
		t.Fatal("expected the native factory before Apply")
	}

	i.Apply()
	testutil.AssertEqual(t, i.Applied(), true, "applied flag")
	if _, ok := client.New().(*client.Emulated); !ok {
		t.Fatal("expected emulated instances while applied")
	}

	i.Restore()
	testutil.AssertEqual(t, i.Applied(), false, "applied flag after restore")
	if _, ok := client.New().(*client.Native); !ok {
		t.Fatal("expected the native factory after Restore")
	}
}

func TestApplyAndRestoreAreIdempotent(t *testing.T) {
	i := interceptor.New(alwaysMock(&client.MockResponse{Status: 200}))

	i.Apply()
	i.Apply()
	defer i.Restore()

	if _, ok := client.New().(*client.Emulated); !ok {
		t.Fatal("double Apply broke the factory")
	}

	i.Restore()
	i.Restore()
	if _, ok := client.New().(*client.Native); !ok {
		t.Fatal("double Restore broke the factory")
	}
}

func TestInterceptedRequestIsMocked(t *testing.T) {
	i := interceptor.New(alwaysMock(&client.MockResponse{
		Status:  201,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    `{"id":7}`,
	}))
	i.Apply()
	defer i.Restore()

	c := client.New()
	testutil.AssertNoError(t, c.Open("POST", "https://api.example.com/things"), "open")
	testutil.AssertNoError(t, c.Send(`{"n":1}`), "send")
	waitDone(t, c)

	testutil.AssertEqual(t, c.Status(), 201, "status")
	testutil.AssertStringEqual(t, c.ResponseText(), `{"id":7}`, "body")
}

func TestNewClientBypassesGlobalFactory(t *testing.T) {
	i := interceptor.New(alwaysMock(&client.MockResponse{Status: 200, Body: "direct"}))

	// Never applied: the global factory still produces native clients,
	// but NewClient is bound to the session anyway.
	c := i.NewClient()
	testutil.AssertNoError(t, c.Open("GET", "https://api.example.com/x"), "open")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertStringEqual(t, c.ResponseText(), "direct", "body")
}

func TestBaseURLReachesClients(t *testing.T) {
	base, err := url.Parse("https://api.example.com/v1/")
	testutil.AssertNoError(t, err, "parse base")

	var seen string
	resolver := func(req *client.Request, _ *client.Emulated) (*client.MockResponse, error) {
		seen = req.URL.String()
		return &client.MockResponse{Status: 200}, nil
	}

	c := interceptor.New(resolver, interceptor.WithBaseURL(base)).NewClient()
	testutil.AssertNoError(t, c.Open("GET", "users"), "open relative")
	testutil.AssertNoError(t, c.Send(""), "send")
	waitDone(t, c)

	testutil.AssertStringEqual(t, seen, "https://api.example.com/v1/users", "resolved URL")
}

func TestChainFirstMockWins(t *testing.T) {
	first := alwaysMock(&client.MockResponse{Status: 200, Body: "first"})
	second := alwaysMock(&client.MockResponse{Status: 500, Body: "second"})

	chained := interceptor.Chain(decline(), nil, first, second)
	mock, err := chained(&client.Request{}, nil)
	testutil.AssertNoError(t, err, "chain")
	if mock == nil || mock.Body != "first" {
		t.Fatalf("expected the first mock to win, got %+v", mock)
	}
}

func TestChainPropagatesError(t *testing.T) {
	boom := errors.New("lookup failed")
	failing := func(*client.Request, *client.Emulated) (*client.MockResponse, error) {
		return nil, boom
	}
	afterwards := alwaysMock(&client.MockResponse{Status: 200})

	chained := interceptor.Chain(failing, afterwards)
	mock, err := chained(&client.Request{}, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected the resolver error, got %v", err)
	}
	if mock != nil {
		t.Fatal("no mock expected alongside an error")
	}
}

func TestChainAllDecline(t *testing.T) {
	chained := interceptor.Chain(decline(), decline())
	mock, err := chained(&client.Request{}, nil)
	testutil.AssertNoError(t, err, "chain")
	if mock != nil {
		t.Fatal("expected passthrough when every resolver declines")
	}
}
