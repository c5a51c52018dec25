package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dsv-su/dsvgo/pkg/observability"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, timeout enforcement and error logging. Use this instead
// of a bare `go func()` for background work whose failure should be logged
// rather than crash the process.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, log *logrus.Entry, fn func(context.Context) error) {
	if log == nil {
		log = observability.NopLogger()
	}
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithFields(logrus.Fields{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("panic in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithField("task", taskName).WithError(err).Warn("background task failed")
		}
	}()
}

// ErrPoolShutDown is returned by Submit once the pool no longer accepts
// work.
var ErrPoolShutDown = errors.New("worker pool shut down")

// WorkerPool runs submitted tasks on a fixed number of workers with
// per-task timeouts, panic recovery and graceful shutdown.
type WorkerPool struct {
	workers      int
	taskName     string
	timeout      time.Duration
	workCh       chan func(context.Context) error
	doneCh       chan struct{}
	ctx          context.Context
	cancel       context.CancelFunc
	log          *logrus.Entry
	shutdownOnce sync.Once
}

// NewWorkerPool creates and starts a worker pool. Each task runs under its
// own timeout derived from ctx.
func NewWorkerPool(ctx context.Context, workers int, taskName string, timeout time.Duration, log *logrus.Entry) *WorkerPool {
	if log == nil {
		log = observability.NopLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		workers:  workers,
		taskName: taskName,
		timeout:  timeout,
		workCh:   make(chan func(context.Context) error, workers*2),
		doneCh:   make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
		log:      log,
	}

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				pool.worker(id)
			}(i)
		}
		wg.Wait()
		close(pool.doneCh)
	}()

	return pool
}

// Submit adds a task to the pool. Returns ErrPoolShutDown once the pool no
// longer accepts work; the task is not run in that case.
func (p *WorkerPool) Submit(fn func(context.Context) error) (err error) {
	select {
	case <-p.doneCh:
		return ErrPoolShutDown
	default:
	}

	// Shutdown may close workCh between the check above and the send. The
	// caller must learn the task was rejected, not see a nil error.
	defer func() {
		if r := recover(); r != nil {
			err = ErrPoolShutDown
		}
	}()

	select {
	case p.workCh <- fn:
		return nil
	case <-p.doneCh:
		return ErrPoolShutDown
	}
}

// Shutdown stops accepting work and waits up to timeout for in-flight
// tasks to drain.
func (p *WorkerPool) Shutdown(timeout time.Duration) error {
	var shutdownErr error

	p.shutdownOnce.Do(func() {
		close(p.workCh)

		select {
		case <-p.doneCh:
			p.cancel()
		case <-time.After(timeout):
			p.cancel()
			shutdownErr = fmt.Errorf("worker pool shutdown timed out after %v", timeout)
		}
	})

	return shutdownErr
}

func (p *WorkerPool) worker(id int) {
	for {
		select {
		case <-p.ctx.Done():
			return

		case fn, ok := <-p.workCh:
			if !ok {
				return
			}

			ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
			func() {
				defer cancel()
				defer func() {
					if r := recover(); r != nil {
						p.log.WithFields(logrus.Fields{
							"task":   p.taskName,
							"worker": id,
							"panic":  r,
							"stack":  string(debug.Stack()),
						}).Error("panic in worker")
					}
				}()
				// Task errors reach callers through their futures; the
				// pool itself only cares about panics.
				_ = fn(ctx)
			}()
		}
	}
}
