// Package interceptor manages the lifecycle of an interception session:
// installing a resolver-backed emulated client factory in place of the
// native one, and restoring the original factory when the session ends.
// Apply and Restore are idempotent, so a session can be torn down from a
// defer without tracking whether it was ever applied.
package interceptor

import (
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mockwire/mockwire/internal/logger"
	"github.com/mockwire/mockwire/pkg/client"
	"github.com/mockwire/mockwire/pkg/observer"
)

// Interceptor is a single interception session. The zero value is not
// usable; construct with New.
type Interceptor struct {
	mu       sync.Mutex
	resolver client.Resolver
	bus      *observer.Bus
	base     *url.URL
	log      zerolog.Logger

	applied  bool
	original client.Factory
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithObserver routes response notifications from this session's clients
// to bus instead of the process-wide default.
func WithObserver(bus *observer.Bus) Option {
	return func(i *Interceptor) { i.bus = bus }
}

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base *url.URL) Option {
	return func(i *Interceptor) { i.base = base }
}

// WithLogger overrides the session's component logger.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Interceptor) { i.log = log }
}

// New builds a session around resolver. The resolver may be nil, in which
// case every request passes through; that still exercises the emulated
// lifecycle and observer notifications.
func New(resolver client.Resolver, opts ...Option) *Interceptor {
	i := &Interceptor{
		resolver: resolver,
		bus:      observer.Default,
		log:      logger.ForComponent("interceptor"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Apply swaps the package client factory for one producing emulated
// instances bound to this session's resolver. The displaced factory is
// kept so passthrough requests and Restore both reach the genuine native
// implementation even when sessions nest. Calling Apply on an already
// applied session is a no-op.
func (i *Interceptor) Apply() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.applied {
		return
	}
	i.original = client.SwapFactory(i.factory())
	i.applied = true
	i.log.Debug().Msg("interception applied")
}

// Restore reinstalls the factory displaced by Apply. Calling Restore on a
// session that is not applied is a no-op.
func (i *Interceptor) Restore() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.applied {
		return
	}
	client.SwapFactory(i.original)
	i.original = nil
	i.applied = false
	i.log.Debug().Msg("interception restored")
}

// Applied reports whether the session currently holds the factory.
func (i *Interceptor) Applied() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.applied
}

// NewClient constructs an emulated instance bound to this session without
// going through the swapped package factory. Useful for wiring a single
// client when swapping the global factory is too broad.
func (i *Interceptor) NewClient() *client.Emulated {
	return i.build(func() client.Requester { return client.NewNative() })
}

func (i *Interceptor) factory() client.Factory {
	return func() client.Requester {
		i.mu.Lock()
		native := i.original
		i.mu.Unlock()
		if native == nil {
			native = func() client.Requester { return client.NewNative() }
		}
		return i.build(native)
	}
}

func (i *Interceptor) build(native client.Factory) *client.Emulated {
	opts := []client.EmulatedOption{
		client.WithObserver(i.bus),
		client.WithNativeFactory(native),
		client.WithLogger(i.log),
	}
	if i.base != nil {
		opts = append(opts, client.WithBaseURL(i.base))
	}
	return client.NewEmulated(i.resolver, opts...)
}

// Chain combines resolvers into one: each is consulted in order and the
// first to produce a mock or an error wins. When all decline, the request
// passes through.
func Chain(resolvers ...client.Resolver) client.Resolver {
	return func(req *client.Request, instance *client.Emulated) (*client.MockResponse, error) {
		for _, r := range resolvers {
			if r == nil {
				continue
			}
			mock, err := r(req, instance)
			if err != nil {
				return nil, err
			}
			if mock != nil {
				return mock, nil
			}
		}
		return nil, nil
	}
}
