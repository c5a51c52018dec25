package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/dsv-su/dsvgo/pkg/httputil"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

const defaultSessionTTL = 24 * time.Hour

// Orchestrator is the public entry point of the authentication engine. It
// consults the session cache, verifies cached sessions with a cheap probe
// fetch, and falls back to the full login flow on miss or invalidity.
//
// A full login is five-plus round trips; a validity probe is one. That
// asymmetry is the reason for the trust-cache-verify-cheaply policy.
type Orchestrator struct {
	registry  *Registry
	flow      *LoginFlow
	backend   CacheBackend
	ttl       time.Duration
	clock     clockwork.Clock
	transport http.RoundTripper
	log       *logrus.Entry
	metrics   *observability.AuthMetrics

	// group coalesces concurrent Acquire calls per (username, service) key:
	// one login flow, N waiters.
	group singleflight.Group
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache sets the session cache backend. Without one, every Acquire runs
// a full login.
func WithCache(backend CacheBackend) Option {
	return func(o *Orchestrator) { o.backend = backend }
}

// WithTTL sets the time-to-live stamped on new cache entries.
func WithTTL(ttl time.Duration) Option {
	return func(o *Orchestrator) { o.ttl = ttl }
}

// WithClock injects the clock used for TTL evaluation.
func WithClock(clock clockwork.Clock) Option {
	return func(o *Orchestrator) { o.clock = clock }
}

// WithTransport sets the transport used for probe fetches and the sessions
// handed to downstream clients.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *Orchestrator) { o.transport = rt }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log *logrus.Entry) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *observability.AuthMetrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithFlow replaces the login flow. Mainly for tests.
func WithFlow(flow *LoginFlow) Option {
	return func(o *Orchestrator) { o.flow = flow }
}

// NewOrchestrator creates an orchestrator over the given registry.
func NewOrchestrator(registry *Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		ttl:      defaultSessionTTL,
		clock:    clockwork.NewRealClock(),
		log:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.flow == nil {
		flowOpts := []FlowOption{WithFlowLogger(o.log)}
		if o.transport != nil {
			flowOpts = append(flowOpts, WithFlowTransport(o.transport))
		}
		o.flow = NewLoginFlow(registry, flowOpts...)
	}
	return o
}

// Acquire returns a usable session for the credentials and service,
// from cache when a cached session still probes as authenticated, otherwise
// via a fresh login flow.
//
// Concurrent calls for the same (username, service) key are coalesced into
// one login. A waiter whose ctx expires gives up with a NetworkError, but
// the in-flight login continues and still populates the cache.
func (o *Orchestrator) Acquire(ctx context.Context, creds Credentials, service Service) (*Session, error) {
	return o.acquireCoalesced(ctx, creds, service, true)
}

// AcquireFresh bypasses the cache read and always runs a full login. The
// result still replaces the cache entry. Service clients use this to retry
// once after an AuthenticationError on a previously working session.
func (o *Orchestrator) AcquireFresh(ctx context.Context, creds Credentials, service Service) (*Session, error) {
	return o.acquireCoalesced(ctx, creds, service, false)
}

// Invalidate evicts the cached session for the key, if any.
func (o *Orchestrator) Invalidate(ctx context.Context, username string, service Service) error {
	if o.backend == nil {
		return nil
	}
	return o.backend.Invalidate(ctx, username, service)
}

func (o *Orchestrator) acquireCoalesced(ctx context.Context, creds Credentials, service Service, useCache bool) (*Session, error) {
	key := creds.Username + "\x00" + string(service)

	// The flight runs detached from this caller's ctx so that a waiter
	// giving up does not cancel the login for everyone else.
	flightCtx := context.WithoutCancel(ctx)
	ch := o.group.DoChan(key, func() (interface{}, error) {
		defer o.group.Forget(key)
		return o.acquire(flightCtx, creds, service, useCache)
	})

	select {
	case <-ctx.Done():
		return nil, &NetworkError{Hop: "acquire wait", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		entry := res.Val.(*CachedSession)
		return NewSession(creds.Username, service, NewCookieSetFrom(entry.Cookies), o.transport), nil
	}
}

func (o *Orchestrator) acquire(ctx context.Context, creds Credentials, service Service, useCache bool) (*CachedSession, error) {
	desc, err := o.registry.Lookup(service)
	if err != nil {
		return nil, err
	}
	log := o.log.WithFields(logrus.Fields{"service": service, "username": creds.Username})

	if useCache && o.backend != nil {
		if entry := o.loadCached(ctx, desc, creds.Username, log); entry != nil {
			return entry, nil
		}
		o.metrics.RecordCacheMiss(string(service))
	}

	started := o.clock.Now()
	cookies, err := o.flow.Run(ctx, creds, service)
	elapsed := o.clock.Since(started)
	if err != nil {
		o.metrics.ObserveLogin(string(service), loginOutcome(err), elapsed)
		return nil, err
	}
	o.metrics.ObserveLogin(string(service), observability.OutcomeSuccess, elapsed)

	entry := &CachedSession{
		Username: creds.Username,
		Service:  service,
		Cookies:  cookies.Records(),
		CachedAt: o.clock.Now(),
		TTL:      o.ttl,
	}
	if o.backend != nil {
		if err := o.backend.Store(ctx, entry); err != nil {
			// A broken cache never fails an acquire.
			log.WithError(&CacheError{Op: "store", Err: err}).Warn("failed to store session in cache")
		}
	}
	return entry, nil
}

// loadCached returns a cached entry that is unexpired and still probes as
// authenticated, evicting anything stale on the way.
func (o *Orchestrator) loadCached(ctx context.Context, desc *Descriptor, username string, log *logrus.Entry) *CachedSession {
	entry, err := o.backend.Load(ctx, username, desc.ID)
	if err != nil {
		log.WithError(&CacheError{Op: "load", Err: err}).Warn("session cache unreadable, falling back to login")
		return nil
	}
	if entry == nil {
		return nil
	}
	if entry.Expired(o.clock.Now()) {
		log.Debug("cached session expired")
		_ = o.backend.Invalidate(ctx, username, desc.ID)
		return nil
	}

	ok := o.probeCached(ctx, desc, entry)
	o.metrics.RecordProbe(string(desc.ID), ok)
	if !ok {
		log.Info("cached session failed validity probe, re-authenticating")
		_ = o.backend.Invalidate(ctx, username, desc.ID)
		return nil
	}

	log.Debug("using cached session")
	o.metrics.RecordCacheHit(string(desc.ID))
	return entry
}

// probeCached performs the cheap one-request validity check: fetch the
// probe URL with the cached cookies and run the service's content probe.
func (o *Orchestrator) probeCached(ctx context.Context, desc *Descriptor, entry *CachedSession) bool {
	session := NewSession(entry.Username, desc.ID, NewCookieSetFrom(entry.Cookies), o.transport)
	resp, err := session.Get(ctx, desc.ProbeURL)
	if err != nil {
		return false
	}
	body, err := httputil.ReadBody(resp)
	if err != nil {
		return false
	}
	return desc.Probe(body)
}

func loginOutcome(err error) string {
	var invalidCreds *InvalidCredentialsError
	var authErr *AuthenticationError
	var protoErr *ProtocolError
	switch {
	case errors.As(err, &invalidCreds):
		return observability.OutcomeInvalidCredentials
	case errors.As(err, &authErr):
		return observability.OutcomeAuthDenied
	case errors.As(err, &protoErr):
		return observability.OutcomeProtocolError
	default:
		return observability.OutcomeNetworkError
	}
}
