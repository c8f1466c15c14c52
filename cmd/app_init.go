package main

import (
	"context"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/safescan/internal/config"
	"github.com/sells-group/safescan/internal/jobstore"
	"github.com/sells-group/safescan/internal/research"
	"github.com/sells-group/safescan/internal/scoring"
	"github.com/sells-group/safescan/internal/tierdb"
	anthropicpkg "github.com/sells-group/safescan/pkg/anthropic"
)

// scoringEnv is what the score and tiers commands need.
type scoringEnv struct {
	Catalog *tierdb.DB
	Engine  *scoring.Engine
}

// appEnv adds the job store and research orchestrator for serve and research.
type appEnv struct {
	scoringEnv
	Store        jobstore.Store
	Orchestrator *research.Orchestrator

	cancel context.CancelFunc
}

// Close fails any unfinished jobs, waits for their runners and releases the
// store.
func (e *appEnv) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	if e.Orchestrator != nil {
		e.Orchestrator.Wait()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initScoring loads the tier database and builds the engine.
func initScoring(c *config.Config) (*scoringEnv, error) {
	db, err := tierdb.Load(tierdb.Options{
		TiersPath:     c.Scoring.TierDBPath,
		OwnershipPath: c.Scoring.OwnershipPath,
	})
	if err != nil {
		return nil, eris.Wrap(err, "load tier database")
	}

	overrides := make(map[string]scoring.Profile, len(c.Scoring.Profiles))
	for name, p := range c.Scoring.Profiles {
		overrides[name] = scoring.Profile{
			Ingredient: p.Ingredient,
			Processing: p.Processing,
			Corporate:  p.Corporate,
			Supply:     p.Supply,
			Condition:  p.Condition,
		}
	}
	profiles, err := scoring.NewProfiles(overrides, c.Scoring.CategoryProfiles)
	if err != nil {
		return nil, eris.Wrap(err, "build weighting profiles")
	}

	stats := db.Stats()
	zap.L().Debug("tier database loaded",
		zap.String("version", stats.Version),
		zap.Int("ingredients", stats.TotalEntries),
		zap.Int("parents", stats.Parents),
	)

	engine := scoring.NewEngine(db,
		scoring.WithUnknownHazard(c.Scoring.UnknownHazard),
		scoring.WithProfiles(profiles),
	)
	return &scoringEnv{Catalog: db, Engine: engine}, nil
}

// initApp opens the job store and wires the research orchestrator. Callers
// should defer env.Close().
func initApp(ctx context.Context, c *config.Config) (*appEnv, error) {
	se, err := initScoring(c)
	if err != nil {
		return nil, err
	}

	st, err := jobstore.Open(ctx, storeOptions(c))
	if err != nil {
		return nil, eris.Wrap(err, "open job store")
	}

	var gen research.Generator
	if c.Anthropic.Key != "" {
		var opts []option.RequestOption
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(c.Anthropic.BaseURL))
		}
		gen = research.NewAnthropicGenerator(anthropicpkg.NewClient(c.Anthropic.Key, opts...), research.GeneratorConfig{
			Model:       c.Anthropic.ResearchModel,
			MaxTokens:   c.Anthropic.MaxTokens,
			Temperature: c.Anthropic.Temperature,
		})
	} else {
		zap.L().Warn("SAFESCAN_ANTHROPIC_KEY not set, deep research jobs will fail at synthesis")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	orch := research.NewOrchestrator(runCtx, st, se.Engine, gen, research.Config{
		MaxConcurrentJobs: c.Research.MaxConcurrentJobs,
		RequestsPerMinute: c.Research.RequestsPerMinute,
		GenerationTimeout: time.Duration(c.Research.GenerationTimeoutSecs) * time.Second,
		Retry: research.RetryConfig{
			MaxAttempts:    c.Research.GenerationAttempts,
			InitialBackoff: time.Duration(c.Research.RetryBackoffSecs) * time.Second,
		},
	})

	return &appEnv{
		scoringEnv:   *se,
		Store:        st,
		Orchestrator: orch,
		cancel:       cancel,
	}, nil
}

func storeOptions(c *config.Config) jobstore.Options {
	return jobstore.Options{
		Driver:       c.Store.Driver,
		RedisURL:     c.Store.RedisURL,
		DatabaseURL:  c.Store.DatabaseURL,
		SQLitePath:   c.Store.SQLitePath,
		KeyPrefix:    c.Store.KeyPrefix,
		TTL:          time.Duration(c.Store.JobTTLHours) * time.Hour,
		ProbeTimeout: time.Duration(c.Store.ProbeTimeoutSecs) * time.Second,
		Breaker: jobstore.BreakerConfig{
			FailureThreshold: c.Store.FailureThreshold,
			ResetTimeout:     time.Duration(c.Store.ResetTimeoutSecs) * time.Second,
		},
		Pool: &jobstore.PoolConfig{
			MaxConns: c.Store.PostgresMaxConns,
			MinConns: c.Store.PostgresMinConns,
		},
	}
}
