// Package jobstore persists research job records with a fixed time-to-live.
package jobstore

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// DefaultTTL is how long a job record survives after its last write.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by Get when no live record exists for the id.
var ErrNotFound = eris.New("jobstore: job not found")

// Store is a key-value store of research jobs. Put always writes the full
// record; there are no field-level updates.
type Store interface {
	Put(ctx context.Context, job *model.ResearchJob) error
	Get(ctx context.Context, id string) (*model.ResearchJob, error)
	// Backend names the storage in use, e.g. "redis" or "memory".
	Backend() string
	Close() error
}

// Pinger is implemented by backends that can check connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Sweeper is implemented by backends whose expired rows must be deleted
// explicitly. Redis expires keys natively and the memory store never expires.
type Sweeper interface {
	DeleteExpired(ctx context.Context) (int, error)
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
