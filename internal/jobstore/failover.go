package jobstore

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/model"
)

// Failover writes to a durable primary and degrades to an in-memory fallback
// while the primary is failing. Records written to the fallback are never
// migrated back.
type Failover struct {
	primary  Store
	fallback *Memory
	breaker  *breaker
}

// NewFailover guards primary with a circuit breaker and uses fallback while
// the circuit is open or a primary call fails.
func NewFailover(primary Store, fallback *Memory, cfg BreakerConfig) *Failover {
	if fallback == nil {
		fallback = NewMemory()
	}
	return &Failover{
		primary:  primary,
		fallback: fallback,
		breaker:  newBreaker(primary.Backend(), cfg),
	}
}

// Put writes to the primary; on failure the record goes to the fallback.
// A successful primary write drops any older fallback copy.
func (f *Failover) Put(ctx context.Context, job *model.ResearchJob) error {
	err := f.breaker.execute(ctx, func(ctx context.Context) error {
		return f.primary.Put(ctx, job)
	})
	if err == nil {
		f.fallback.Delete(job.ID)
		return nil
	}
	f.logFallback("put", job.ID, err)
	return f.fallback.Put(ctx, job)
}

// Get prefers a fallback copy, which is always newer than the primary's, and
// otherwise reads the primary.
func (f *Failover) Get(ctx context.Context, id string) (*model.ResearchJob, error) {
	if job, err := f.fallback.Get(ctx, id); err == nil {
		return job, nil
	}

	var job *model.ResearchJob
	err := f.breaker.execute(ctx, func(ctx context.Context) error {
		var err error
		job, err = f.primary.Get(ctx, id)
		return err
	})
	switch {
	case err == nil:
		return job, nil
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	default:
		f.logFallback("get", id, err)
		return nil, ErrNotFound
	}
}

// DeleteExpired sweeps the primary when it supports sweeping.
func (f *Failover) DeleteExpired(ctx context.Context) (int, error) {
	sweeper, ok := f.primary.(Sweeper)
	if !ok {
		return 0, nil
	}
	var n int
	err := f.breaker.execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = sweeper.DeleteExpired(ctx)
		return err
	})
	return n, err
}

// Ping checks the primary.
func (f *Failover) Ping(ctx context.Context) error {
	if p, ok := f.primary.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Backend names the primary backend.
func (f *Failover) Backend() string { return f.primary.Backend() }

// State reports the primary's circuit state.
func (f *Failover) State() CircuitState { return f.breaker.State() }

// Degraded reports whether calls are currently bypassing the primary.
func (f *Failover) Degraded() bool { return f.breaker.State() != CircuitClosed }

// Fallback exposes the in-memory fallback.
func (f *Failover) Fallback() *Memory { return f.fallback }

// Close closes the primary.
func (f *Failover) Close() error { return f.primary.Close() }

func (f *Failover) logFallback(op, id string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("job_id", id),
		zap.String("backend", f.primary.Backend()),
	}
	if errors.Is(err, ErrCircuitOpen) {
		zap.L().Debug("jobstore: primary skipped, using memory fallback", fields...)
		return
	}
	zap.L().Warn("jobstore: primary failed, using memory fallback", append(fields, zap.Error(err))...)
}
