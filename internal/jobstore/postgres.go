package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// Pool is the subset of pgxpool.Pool used by Postgres. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Postgres stores jobs as JSONB rows with an expires_at column. Expired rows
// are invisible to Get and removed by DeleteExpired.
type Postgres struct {
	pool    Pool
	ttl     time.Duration
	nowFunc func() time.Time
}

// PoolConfig holds optional connection pool sizing.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// NewPostgres creates a lazily connecting pool. Use Ping to probe.
func NewPostgres(ctx context.Context, connString string, ttl time.Duration, poolCfg *PoolConfig) (*Postgres, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(0)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	return NewPostgresWithPool(pool, ttl), nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool, ttl time.Duration) *Postgres {
	return &Postgres{pool: pool, ttl: ttlOrDefault(ttl), nowFunc: time.Now}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS research_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_jobs_expires_at ON research_jobs(expires_at);
`

// Migrate creates the research_jobs table.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (p *Postgres) Put(ctx context.Context, job *model.ResearchJob) error {
	if job == nil || job.ID == "" {
		return eris.New("postgres: job id is required")
	}
	record, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job")
	}
	now := p.nowFunc().UTC()
	_, err = p.pool.Exec(ctx,
		`INSERT INTO research_jobs (id, status, record, updated_at, expires_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET status = $2, record = $3, updated_at = $4, expires_at = $5`,
		job.ID, string(job.Status), record, now, now.Add(p.ttl),
	)
	return eris.Wrapf(err, "postgres: put job %s", job.ID)
}

func (p *Postgres) Get(ctx context.Context, id string) (*model.ResearchJob, error) {
	var record []byte
	err := p.pool.QueryRow(ctx,
		`SELECT record FROM research_jobs WHERE id = $1 AND expires_at > $2`,
		id, p.nowFunc().UTC(),
	).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	var job model.ResearchJob
	if err := json.Unmarshal(record, &job); err != nil {
		return nil, eris.Wrapf(err, "postgres: unmarshal job %s", id)
	}
	return &job, nil
}

// DeleteExpired removes rows past their expiry and returns how many went.
func (p *Postgres) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM research_jobs WHERE expires_at <= $1`,
		p.nowFunc().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired jobs")
	}
	return int(tag.RowsAffected()), nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return eris.Wrap(p.pool.Ping(ctx), "postgres: ping")
}

func (p *Postgres) Backend() string { return "postgres" }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
