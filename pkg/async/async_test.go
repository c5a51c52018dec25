package async

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

// stubSource counts acquisitions and can be made slow or failing.
type stubSource struct {
	mu      sync.Mutex
	calls   atomic.Int64
	delay   time.Duration
	err     error
	started chan struct{}
}

func (s *stubSource) Acquire(ctx context.Context, creds auth.Credentials, service auth.Service) (*auth.Session, error) {
	s.calls.Add(1)
	s.mu.Lock()
	delay, err := s.delay, s.err
	started := s.started
	s.mu.Unlock()
	if started != nil {
		close(started)
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &auth.Session{}, nil
}

func TestAcquirerResolvesFuture(t *testing.T) {
	source := &stubSource{}
	acquirer := NewAcquirer(context.Background(), source)
	defer acquirer.Shutdown(time.Second)

	future := acquirer.Acquire(auth.Credentials{Username: "alice"}, auth.ServiceDaisyStaff)
	session, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.EqualValues(t, 1, source.calls.Load())
}

func TestAcquirerPropagatesErrors(t *testing.T) {
	source := &stubSource{err: &auth.InvalidCredentialsError{Reason: "nope"}}
	acquirer := NewAcquirer(context.Background(), source)
	defer acquirer.Shutdown(time.Second)

	future := acquirer.Acquire(auth.Credentials{Username: "alice"}, auth.ServiceDaisyStaff)
	_, err := future.Wait(context.Background())

	var invalidErr *auth.InvalidCredentialsError
	require.ErrorAs(t, err, &invalidErr)
}

func TestAcquirerManyConcurrent(t *testing.T) {
	source := &stubSource{}
	acquirer := NewAcquirer(context.Background(), source, WithWorkers(2))
	defer acquirer.Shutdown(time.Second)

	const n = 16
	futures := make([]*Future[*auth.Session], n)
	for i := 0; i < n; i++ {
		futures[i] = acquirer.Acquire(auth.Credentials{Username: "alice"}, auth.ServiceDaisyStaff)
	}
	for i, f := range futures {
		_, err := f.Wait(context.Background())
		require.NoError(t, err, "future %d", i)
	}
	assert.EqualValues(t, n, source.calls.Load())
}

func TestFutureWaitHonorsContext(t *testing.T) {
	source := &stubSource{delay: time.Minute, started: make(chan struct{})}
	acquirer := NewAcquirer(context.Background(), source)
	defer acquirer.Shutdown(10 * time.Millisecond)

	future := acquirer.Acquire(auth.Credentials{Username: "alice"}, auth.ServiceDaisyStaff)
	<-source.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquirerSubmitAfterShutdown(t *testing.T) {
	source := &stubSource{}
	acquirer := NewAcquirer(context.Background(), source)
	require.NoError(t, acquirer.Shutdown(time.Second))

	future := acquirer.Acquire(auth.Credentials{Username: "alice"}, auth.ServiceDaisyStaff)
	_, err := future.Wait(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 0, source.calls.Load())
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, "test", time.Second, nil)
	defer pool.Shutdown(time.Second)

	done := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) error {
		defer close(done)
		panic("boom")
	}))
	<-done

	// The worker survived the panic and keeps taking tasks.
	again := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) error {
		close(again)
		return nil
	}))
	select {
	case <-again:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive a panicking task")
	}
}

func TestSafeGoRecoversPanics(t *testing.T) {
	done := make(chan struct{})
	SafeGo(context.Background(), time.Second, "panicky", nil, func(context.Context) error {
		defer close(done)
		panic("boom")
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestWorkerPoolShutdownDrains(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 2, "test", time.Second, nil)

	var ran atomic.Int64
	for i := 0; i < 4; i++ {
		require.NoError(t, pool.Submit(func(context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	require.NoError(t, pool.Shutdown(2*time.Second))
	assert.EqualValues(t, 4, ran.Load())

	err := pool.Submit(func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrPoolShutDown)
}

func TestWorkerPoolSubmitDuringShutdownReportsError(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, "test", time.Second, nil)

	block := make(chan struct{})
	require.NoError(t, pool.Submit(func(context.Context) error {
		<-block
		return nil
	}))

	// Close the work channel while the worker is still busy, exactly what
	// Shutdown does before doneCh closes. A submit racing that close must
	// report the rejection instead of dropping the task.
	close(pool.workCh)
	err := pool.Submit(func(context.Context) error { return nil })
	require.ErrorIs(t, err, ErrPoolShutDown)

	close(block)
	select {
	case <-pool.doneCh:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never drained after close")
	}
	pool.cancel()
}

func TestWorkerPoolTaskTimeout(t *testing.T) {
	pool := NewWorkerPool(context.Background(), 1, "test", 20*time.Millisecond, nil)
	defer pool.Shutdown(time.Second)

	errCh := make(chan error, 1)
	require.NoError(t, pool.Submit(func(ctx context.Context) error {
		<-ctx.Done()
		errCh <- ctx.Err()
		return nil
	}))
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("task context never expired")
	}
}

var _ SessionSource = (*stubSource)(nil)
