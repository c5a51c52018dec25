// Package dsv bundles the per-service clients behind a single login
// engine. One orchestrator and one session cache serve every service,
// so a user logging in for Daisy reuses that work when the handledning
// or map client needs a session for its own service.
package dsv

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/actlab"
	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/clickmap"
	"github.com/dsv-su/dsvgo/pkg/config"
	"github.com/dsv-su/dsvgo/pkg/daisy"
	"github.com/dsv-su/dsvgo/pkg/handledning"
	"github.com/dsv-su/dsvgo/pkg/mail"
	"github.com/dsv-su/dsvgo/pkg/observability"
)

// Client is the entry point for applications that talk to several DSV
// services with one account. Service clients are constructed on first
// use and reused after that.
type Client struct {
	creds   auth.Credentials
	orch    *auth.Orchestrator
	backend auth.CacheBackend
	log     *logrus.Entry

	daisyOpts       []daisy.Option
	handledningOpts []handledning.Option
	clickmapOpts    []clickmap.Option
	actlabOpts      []actlab.Option
	mailOpts        []mail.Option

	mu          sync.Mutex
	daisy       *daisy.Client
	handledning *handledning.Client
	clickmap    *clickmap.Client
	actlab      *actlab.Client
	mail        *mail.Client
}

// Option adjusts a Client.
type Option func(*settings)

type settings struct {
	registry *auth.Registry
	backend  auth.CacheBackend
	ttl      time.Duration
	log      *logrus.Entry
	orchOpts []auth.Option

	daisyOpts       []daisy.Option
	handledningOpts []handledning.Option
	clickmapOpts    []clickmap.Option
	actlabOpts      []actlab.Option
	mailOpts        []mail.Option
}

// WithCache sets the shared session cache backend.
func WithCache(backend auth.CacheBackend) Option {
	return func(s *settings) { s.backend = backend }
}

// WithTTL sets the session cache time-to-live.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

// WithRegistry replaces the default service registry.
func WithRegistry(reg *auth.Registry) Option {
	return func(s *settings) { s.registry = reg }
}

// WithLogger sets the logger shared by the engine and all clients.
func WithLogger(log *logrus.Entry) Option {
	return func(s *settings) { s.log = log }
}

// WithOrchestratorOptions passes extra options to the orchestrator.
func WithOrchestratorOptions(opts ...auth.Option) Option {
	return func(s *settings) { s.orchOpts = append(s.orchOpts, opts...) }
}

// WithDaisyOptions passes options to the Daisy client.
func WithDaisyOptions(opts ...daisy.Option) Option {
	return func(s *settings) { s.daisyOpts = append(s.daisyOpts, opts...) }
}

// WithHandledningOptions passes options to the handledning client.
func WithHandledningOptions(opts ...handledning.Option) Option {
	return func(s *settings) { s.handledningOpts = append(s.handledningOpts, opts...) }
}

// WithClickMapOptions passes options to the click map client.
func WithClickMapOptions(opts ...clickmap.Option) Option {
	return func(s *settings) { s.clickmapOpts = append(s.clickmapOpts, opts...) }
}

// WithACTLabOptions passes options to the ACT lab client.
func WithACTLabOptions(opts ...actlab.Option) Option {
	return func(s *settings) { s.actlabOpts = append(s.actlabOpts, opts...) }
}

// WithMailOptions passes options to the mail client.
func WithMailOptions(opts ...mail.Option) Option {
	return func(s *settings) { s.mailOpts = append(s.mailOpts, opts...) }
}

// New creates a client for the given account.
func New(creds auth.Credentials, opts ...Option) *Client {
	s := &settings{
		registry: auth.DefaultRegistry(),
		log:      observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	orchOpts := []auth.Option{auth.WithLogger(s.log)}
	if s.backend != nil {
		orchOpts = append(orchOpts, auth.WithCache(s.backend))
	}
	if s.ttl > 0 {
		orchOpts = append(orchOpts, auth.WithTTL(s.ttl))
	}
	orchOpts = append(orchOpts, s.orchOpts...)

	logOpt := s.log
	return &Client{
		creds:           creds,
		orch:            auth.NewOrchestrator(s.registry, orchOpts...),
		backend:         s.backend,
		log:             logOpt,
		daisyOpts:       append([]daisy.Option{daisy.WithLogger(logOpt)}, s.daisyOpts...),
		handledningOpts: append([]handledning.Option{handledning.WithLogger(logOpt)}, s.handledningOpts...),
		clickmapOpts:    s.clickmapOpts,
		actlabOpts:      s.actlabOpts,
		mailOpts:        s.mailOpts,
	}
}

// FromConfig builds a client from environment-driven configuration,
// resolving the password and constructing the configured cache backend.
func FromConfig(ctx context.Context, cfg *config.Config) (*Client, error) {
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	backend, err := config.NewCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Observability.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log := observability.NewLogger(level, nil)

	return New(creds,
		WithCache(backend),
		WithTTL(cfg.Cache.TTL),
		WithLogger(log),
		WithMailOptions(
			mail.WithIMAPAddr(cfg.Mail.IMAPAddr),
			mail.WithSMTP(cfg.Mail.SMTPHost, cfg.Mail.SMTPPort),
		),
	), nil
}

// Username returns the account the client was built for.
func (c *Client) Username() string { return c.creds.Username }

// Sessions exposes the shared login engine, for callers that need raw
// authenticated sessions.
func (c *Client) Sessions() *auth.Orchestrator { return c.orch }

// Daisy returns the Daisy client.
func (c *Client) Daisy() *daisy.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.daisy == nil {
		c.daisy = daisy.New(c.orch, c.creds, c.daisyOpts...)
	}
	return c.daisy
}

// Handledning returns the supervision queue client.
func (c *Client) Handledning() *handledning.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handledning == nil {
		c.handledning = handledning.New(c.orch, c.creds, c.handledningOpts...)
	}
	return c.handledning
}

// ClickMap returns the office map client.
func (c *Client) ClickMap() *clickmap.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clickmap == nil {
		c.clickmap = clickmap.New(c.orch, c.creds, c.clickmapOpts...)
	}
	return c.clickmap
}

// ACTLab returns the lab signage client.
func (c *Client) ACTLab() *actlab.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.actlab == nil {
		c.actlab = actlab.New(c.orch, c.creds, c.actlabOpts...)
	}
	return c.actlab
}

// Mail returns the mailbox client, dialing the IMAP gateway on first
// use. Mail authenticates directly with the account credentials rather
// than through the SSO engine.
func (c *Client) Mail() (*mail.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mail == nil {
		m, err := mail.Dial(c.creds, c.mailOpts...)
		if err != nil {
			return nil, err
		}
		c.mail = m
	}
	return c.mail, nil
}

// Close releases the mail connection and the cache backend, when their
// implementations hold resources.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	if c.mail != nil {
		if err := c.mail.Close(); err != nil {
			firstErr = err
		}
		c.mail = nil
	}
	if closer, ok := c.backend.(io.Closer); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
