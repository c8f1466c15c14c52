package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/safescan/internal/model"
)

// DefaultKeyPrefix namespaces job keys in a shared Redis.
const DefaultKeyPrefix = "job:"

// Redis stores each job as a JSON string with a native per-key expiry set on
// every write.
type Redis struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
}

// NewRedis parses opts.URL and returns a store over a new client. It does not
// contact the server; use Ping to probe.
func NewRedis(opts RedisOptions) (*Redis, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	return NewRedisWithClient(redis.NewClient(ropts), opts.KeyPrefix, opts.TTL), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{client: client, prefix: prefix, ttl: ttlOrDefault(ttl)}
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Put(ctx context.Context, job *model.ResearchJob) error {
	if job == nil || job.ID == "" {
		return eris.New("redis: job id is required")
	}
	data, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "redis: marshal job")
	}
	if err := r.client.Set(ctx, r.key(job.ID), data, r.ttl).Err(); err != nil {
		return eris.Wrapf(err, "redis: set job %s", job.ID)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, id string) (*model.ResearchJob, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get job %s", id)
	}
	var job model.ResearchJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, eris.Wrapf(err, "redis: unmarshal job %s", id)
	}
	return &job, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return eris.Wrap(r.client.Ping(ctx).Err(), "redis: ping")
}

func (r *Redis) Backend() string { return "redis" }

func (r *Redis) Close() error {
	return eris.Wrap(r.client.Close(), "redis: close")
}
