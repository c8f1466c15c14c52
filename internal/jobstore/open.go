package jobstore

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Drivers accepted by Open.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

var errUnknownDriver = eris.New("jobstore: unknown driver")

// Options selects and configures the job store backend.
type Options struct {
	Driver       string
	RedisURL     string
	DatabaseURL  string
	SQLitePath   string
	KeyPrefix    string
	TTL          time.Duration
	ProbeTimeout time.Duration
	Breaker      BreakerConfig
	// Pool sizes the Postgres connection pool. Nil uses the defaults.
	Pool *PoolConfig
}

// Open builds the configured backend and probes it once. A backend that cannot
// be built or does not answer the probe is replaced by a memory store for the
// whole session. A reachable backend is wrapped in a Failover so later outages
// degrade per call. Only an unknown driver is an error.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Driver == DriverMemory {
		zap.L().Info("jobstore: using memory store")
		return NewMemory(), nil
	}

	primary, err := build(ctx, opts)
	if err != nil {
		if errors.Is(err, errUnknownDriver) {
			return nil, err
		}
		return degrade(opts.Driver, err), nil
	}

	timeout := opts.ProbeTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := probe(probeCtx, primary); err != nil {
		_ = primary.Close()
		return degrade(opts.Driver, err), nil
	}

	zap.L().Info("jobstore: using durable store",
		zap.String("backend", primary.Backend()),
		zap.Duration("ttl", ttlOrDefault(opts.TTL)),
	)
	return NewFailover(primary, NewMemory(), opts.Breaker), nil
}

func build(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverRedis, "":
		return NewRedis(RedisOptions{URL: opts.RedisURL, KeyPrefix: opts.KeyPrefix, TTL: opts.TTL})
	case DriverPostgres:
		return NewPostgres(ctx, opts.DatabaseURL, opts.TTL, opts.Pool)
	case DriverSQLite:
		return NewSQLite(opts.SQLitePath, opts.TTL)
	default:
		return nil, eris.Wrapf(errUnknownDriver, "%q", opts.Driver)
	}
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// probe pings the backend and creates its schema if it has one.
func probe(ctx context.Context, s Store) error {
	if p, ok := s.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	if m, ok := s.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func degrade(driver string, err error) Store {
	zap.L().Warn("jobstore: durable store unavailable, using memory store for this session",
		zap.String("driver", driver),
		zap.Error(err),
	)
	return NewMemory()
}
