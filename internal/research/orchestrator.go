// Package research runs asynchronous deep-research jobs: a fixed sequence of
// stages per job, ending in a single report generation call.
package research

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/safescan/internal/jobstore"
	"github.com/sells-group/safescan/internal/model"
	"github.com/sells-group/safescan/internal/scoring"
)

// Config bounds the orchestrator's resource use.
type Config struct {
	// MaxConcurrentJobs caps running jobs; extra jobs stay pending. Default: 4.
	MaxConcurrentJobs int
	// RequestsPerMinute caps generation calls across all jobs. Default: 30.
	RequestsPerMinute int
	// GenerationTimeout bounds a single generation attempt. Default: 5m.
	GenerationTimeout time.Duration
	// Retry governs retries of transient generation failures.
	Retry RetryConfig
}

// Orchestrator creates research jobs and runs each on its own goroutine.
type Orchestrator struct {
	store     jobstore.Store
	engine    *scoring.Engine
	generator Generator

	sem     *semaphore.Weighted
	limiter *rate.Limiter
	timeout time.Duration
	retry   RetryConfig

	baseCtx context.Context
	wg      sync.WaitGroup

	nowFunc func() time.Time
	newID   func() string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.nowFunc = now }
}

// WithIDFunc overrides job id generation.
func WithIDFunc(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// NewOrchestrator returns an orchestrator whose jobs run on ctx. Cancelling
// ctx fails every unfinished job.
func NewOrchestrator(ctx context.Context, store jobstore.Store, engine *scoring.Engine, gen Generator, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxConcurrentJobs <= 0 {
		cfg.MaxConcurrentJobs = 4
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 30
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 5 * time.Minute
	}
	o := &Orchestrator{
		store:     store,
		engine:    engine,
		generator: gen,
		sem:       semaphore.NewWeighted(int64(cfg.MaxConcurrentJobs)),
		limiter:   rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60), 1),
		timeout:   cfg.GenerationTimeout,
		retry:     cfg.Retry.withDefaults(),
		baseCtx:   ctx,
		nowFunc:   time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start validates req, persists a pending job and schedules it. It returns
// without waiting for any stage.
func (o *Orchestrator) Start(ctx context.Context, req model.ResearchRequest) (*model.ResearchJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	job := model.NewResearchJob(o.newID(), o.nowFunc())
	if err := o.store.Put(ctx, job); err != nil {
		return nil, eris.Wrap(err, "research: persist new job")
	}

	zap.L().Info("research: job created",
		zap.String("job_id", job.ID),
		zap.String("product", req.ProductName),
		zap.String("backend", o.store.Backend()),
	)

	r := &runner{o: o, job: job.Clone(), req: req}
	o.wg.Add(1)
	go r.run()
	return job, nil
}

// Get returns the stored state of a job.
func (o *Orchestrator) Get(ctx context.Context, id string) (*model.ResearchJob, error) {
	return o.store.Get(ctx, id)
}

// Wait blocks until every started job has reached a terminal state.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
