package gate

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Admission bounds the number of concurrently executing upstream calls.
// One instance is shared by every tool call in the process so the limit
// is enforced globally, not per caller.
//
// Calls submitted while a slot is free run immediately. When all slots
// are taken, callers wait in FIFO order and the next completed call hands
// its freed slot directly to the head of the queue — no slot sits idle
// while callers wait. A slot is released exactly once per call, whether
// the call succeeds, fails, or panics.
//
// Admission provides no timeout of its own; callers bound the wait
// through their context.
type Admission struct {
	limit  int64
	sem    *semaphore.Weighted
	active atomic.Int64
	queued atomic.Int64
	logger *slog.Logger
}

// NewAdmission creates an admission gate allowing at most limit
// concurrent calls. Returns ErrLimitInvalid if limit < 1.
func NewAdmission(limit int, logger *slog.Logger) (*Admission, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrLimitInvalid, limit)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Admission{
		limit:  int64(limit),
		sem:    semaphore.NewWeighted(int64(limit)),
		logger: logger,
	}, nil
}

// Execute runs call under the concurrency limit, waiting for a slot if
// none is free. The call's error is delivered to this caller only; other
// queued or active calls are unaffected. If ctx is canceled while
// waiting, the call never starts and the context error is returned.
func (a *Admission) Execute(ctx context.Context, call func(context.Context) (any, error)) (any, error) {
	return Run(ctx, a, call)
}

// Run is the typed form of Execute.
func Run[T any](ctx context.Context, a *Admission, call func(context.Context) (T, error)) (T, error) {
	var zero T

	if !a.sem.TryAcquire(1) {
		a.queued.Add(1)
		a.logger.Debug("admission queue wait",
			"active", a.active.Load(), "queued", a.queued.Load(), "limit", a.limit)
		err := a.sem.Acquire(ctx, 1)
		a.queued.Add(-1)
		if err != nil {
			return zero, fmt.Errorf("gate: waiting for slot: %w", err)
		}
	}

	a.active.Add(1)
	defer func() {
		a.active.Add(-1)
		a.sem.Release(1)
	}()

	return call(ctx)
}

// Limit returns the configured concurrency limit.
func (a *Admission) Limit() int { return int(a.limit) }

// Active returns the number of calls currently executing.
func (a *Admission) Active() int64 { return a.active.Load() }

// Queued returns the number of callers waiting for a slot.
func (a *Admission) Queued() int64 { return a.queued.Load() }
