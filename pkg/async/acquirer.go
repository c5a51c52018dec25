package async

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// SessionSource is the synchronous acquisition the adapter schedules,
// satisfied by *auth.Orchestrator.
type SessionSource interface {
	Acquire(ctx context.Context, creds auth.Credentials, service auth.Service) (*auth.Session, error)
}

const (
	defaultAcquireWorkers = 4
	defaultAcquireTimeout = 5 * time.Minute
)

// Acquirer runs session acquisitions on a worker pool and returns futures.
// Deduplication of concurrent logins for the same account stays where it
// already lives, in the orchestrator; the acquirer adds scheduling only.
type Acquirer struct {
	source SessionSource
	pool   *WorkerPool
}

// AcquirerOption configures an Acquirer.
type AcquirerOption func(*acquirerConfig)

type acquirerConfig struct {
	workers int
	timeout time.Duration
	log     *logrus.Entry
}

// WithWorkers sets how many acquisitions may run at once.
func WithWorkers(n int) AcquirerOption {
	return func(c *acquirerConfig) { c.workers = n }
}

// WithTaskTimeout bounds each scheduled acquisition.
func WithTaskTimeout(d time.Duration) AcquirerOption {
	return func(c *acquirerConfig) { c.timeout = d }
}

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(log *logrus.Entry) AcquirerOption {
	return func(c *acquirerConfig) { c.log = log }
}

// NewAcquirer creates an acquirer over the given source. Close it with
// Shutdown when done.
func NewAcquirer(ctx context.Context, source SessionSource, opts ...AcquirerOption) *Acquirer {
	cfg := acquirerConfig{
		workers: defaultAcquireWorkers,
		timeout: defaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Acquirer{
		source: source,
		pool:   NewWorkerPool(ctx, cfg.workers, "session acquisition", cfg.timeout, cfg.log),
	}
}

// Acquire schedules a session acquisition and returns its future. If the
// pool is already shut down the future resolves immediately with the
// submission error.
func (a *Acquirer) Acquire(creds auth.Credentials, service auth.Service) *Future[*auth.Session] {
	future := newFuture[*auth.Session]()
	err := a.pool.Submit(func(ctx context.Context) error {
		session, err := a.source.Acquire(ctx, creds, service)
		future.resolve(session, err)
		return err
	})
	if err != nil {
		future.resolve(nil, err)
	}
	return future
}

// Shutdown drains the pool, waiting up to timeout for running acquisitions.
func (a *Acquirer) Shutdown(timeout time.Duration) error {
	return a.pool.Shutdown(timeout)
}
