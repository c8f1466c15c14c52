package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/safescan/internal/model"
)

// SQLite is a single-host durable store. Expiry is kept as unix milliseconds
// so comparisons do not depend on SQLite's datetime parsing.
type SQLite struct {
	db      *sql.DB
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewSQLite opens the database at dsn and configures WAL mode.
func NewSQLite(dsn string, ttl time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLite{db: db, ttl: ttlOrDefault(ttl), nowFunc: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS research_jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	record     TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_research_jobs_expires_at ON research_jobs(expires_at);
`

// Migrate creates the research_jobs table.
func (s *SQLite) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLite) Put(ctx context.Context, job *model.ResearchJob) error {
	if job == nil || job.ID == "" {
		return eris.New("sqlite: job id is required")
	}
	record, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job")
	}
	now := s.nowFunc()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO research_jobs (id, status, record, updated_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET status = excluded.status, record = excluded.record,
		 updated_at = excluded.updated_at, expires_at = excluded.expires_at`,
		job.ID, string(job.Status), string(record), now.UnixMilli(), now.Add(s.ttl).UnixMilli(),
	)
	return eris.Wrapf(err, "sqlite: put job %s", job.ID)
}

func (s *SQLite) Get(ctx context.Context, id string) (*model.ResearchJob, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM research_jobs WHERE id = ? AND expires_at > ?`,
		id, s.nowFunc().UnixMilli(),
	).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	var job model.ResearchJob
	if err := json.Unmarshal([]byte(record), &job); err != nil {
		return nil, eris.Wrapf(err, "sqlite: unmarshal job %s", id)
	}
	return &job, nil
}

// DeleteExpired removes rows past their expiry.
func (s *SQLite) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM research_jobs WHERE expires_at <= ?`,
		s.nowFunc().UnixMilli(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired jobs")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return int(n), nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLite) Backend() string { return "sqlite" }

func (s *SQLite) Close() error {
	return s.db.Close()
}
