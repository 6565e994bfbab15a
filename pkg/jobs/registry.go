// Package jobs runs background work keyed by id. A Registry is owned by
// whoever submits to it; there is no package-level job table.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"socialsim/pkg/logger"
)

var (
	ErrNotFound = errors.New("jobs: unknown job id")
	ErrClosed   = errors.New("jobs: registry closed")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	return s != StatusPending
}

type Func[T any] func(ctx context.Context) (T, error)

// Snapshot is the view of a job returned by Poll.
type Snapshot[T any] struct {
	ID          string
	Status      Status
	Result      T
	Err         error
	SubmittedAt time.Time
	FinishedAt  time.Time
}

type job[T any] struct {
	snap   Snapshot[T]
	cancel context.CancelFunc
}

type Registry[T any] struct {
	mu      sync.Mutex
	jobs    map[string]*job[T]
	timeout time.Duration
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	log    *logger.Logger
}

// NewRegistry returns a registry whose jobs are cut off after timeout.
// A zero timeout means jobs only end on completion or cancel.
func NewRegistry[T any](timeout time.Duration, log *logger.Logger) *Registry[T] {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry[T]{
		jobs:    make(map[string]*job[T]),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
		log:     log,
	}
}

func (r *Registry[T]) Submit(fn Func[T]) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(r.ctx)
	}

	j := &job[T]{
		snap:   Snapshot[T]{ID: id, Status: StatusPending, SubmittedAt: time.Now()},
		cancel: cancel,
	}
	r.jobs[id] = j

	r.wg.Add(1)
	go r.run(ctx, j, fn)
	return id, nil
}

func (r *Registry[T]) run(ctx context.Context, j *job[T], fn Func[T]) {
	defer r.wg.Done()
	defer j.cancel()

	result, err := fn(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if j.snap.Status.Terminal() {
		// Cancelled while running; the result is dropped.
		return
	}
	j.snap.FinishedAt = time.Now()
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		j.snap.Status = StatusTimeout
		j.snap.Err = context.DeadlineExceeded
	case err != nil:
		j.snap.Status = StatusFailed
		j.snap.Err = err
	default:
		j.snap.Status = StatusDone
		j.snap.Result = result
	}
	r.log.Debug("Job finished", "id", j.snap.ID, "status", j.snap.Status, "took", j.snap.FinishedAt.Sub(j.snap.SubmittedAt))
}

// Poll reports the job's state. Terminal snapshots are handed out once and
// then forgotten.
func (r *Registry[T]) Poll(id string) (Snapshot[T], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot[T]{}, ErrNotFound
	}
	if j.snap.Status.Terminal() {
		delete(r.jobs, id)
	}
	return j.snap, nil
}

func (r *Registry[T]) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if !j.snap.Status.Terminal() {
		j.snap.Status = StatusCancelled
		j.snap.Err = context.Canceled
		j.snap.FinishedAt = time.Now()
		j.cancel()
	}
	return nil
}

// Len counts jobs that have not been consumed by Poll.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Close cancels outstanding jobs and waits for their goroutines.
func (r *Registry[T]) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
}
