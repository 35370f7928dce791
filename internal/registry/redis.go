package registry

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"github.com/xraph/binder/internal/config"
	"github.com/xraph/binder/internal/errors"
	"github.com/xraph/binder/internal/logger"
	"github.com/xraph/binder/internal/naming"
	"github.com/xraph/binder/internal/resilience"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// redisMember is the sorted-set member of a published service.
type redisMember struct {
	ID      int64               `json:"id"`
	Type    string              `json:"type,omitempty"`
	Factory jsoniter.RawMessage `json:"factory"`
}

// RedisServices is a naming.ServiceRegistry shared between processes. Each
// service name is a sorted set scored by ranking whose members carry the
// persisted form of a resource-factory reference.
type RedisServices struct {
	client   redis.UniversalClient
	prefix   string
	builders *naming.Builders
	log      logger.Logger
}

// NewRedisServices creates a registry over client. builders rebuild the
// published factory references.
func NewRedisServices(client redis.UniversalClient, prefix string, builders *naming.Builders, log logger.Logger) *RedisServices {
	if prefix == "" {
		prefix = "binder:services:"
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &RedisServices{
		client:   client,
		prefix:   prefix,
		builders: builders,
		log:      log,
	}
}

// OpenRedisServices connects to the server named by cfg.URL, retrying the
// initial ping with backoff.
func OpenRedisServices(ctx context.Context, cfg config.RedisConfig, builders *naming.Builders, log logger.Logger) (*RedisServices, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errors.ErrConfiguration("invalid redis url", err)
	}

	if log == nil {
		log = logger.NewNoopLogger()
	}

	client := redis.NewClient(opts)
	connect := resilience.NewRetry(resilience.RetryConfig{
		Name:         "redis connect",
		MaxAttempts:  cfg.ConnectAttempts,
		InitialDelay: cfg.ConnectBackoff,
		Jitter:       true,
		Logger:       log,
	})
	err = connect.Execute(ctx, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return unavailable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisServices(client, cfg.KeyPrefix, builders, log), nil
}

// Close closes the underlying client.
func (r *RedisServices) Close() error {
	return r.client.Close()
}

func (r *RedisServices) key(name string) string {
	return r.prefix + name
}

func unavailable(err error) error {
	return errors.ErrTransientUnavailable("redis service registry").WithContext("cause", err.Error())
}

// Publish adds a service backed by ref under name and returns its id.
func (r *RedisServices) Publish(ctx context.Context, name string, ranking int, ref *naming.FactoryRef) (int64, error) {
	if name == "" {
		return 0, errors.ErrEmptyName
	}
	if ref == nil {
		return 0, errors.ErrNilFactory
	}

	factory, err := json.Marshal(ref)
	if err != nil {
		return 0, errors.ErrIO("encode factory reference", err)
	}

	id, err := r.client.Incr(ctx, r.prefix+"#ids").Result()
	if err != nil {
		return 0, unavailable(err)
	}

	member, err := json.Marshal(redisMember{ID: id, Type: ref.Type, Factory: factory})
	if err != nil {
		return 0, errors.ErrIO("encode service", err)
	}

	if err := r.client.ZAdd(ctx, r.key(name), redis.Z{
		Score:  float64(ranking),
		Member: string(member),
	}).Err(); err != nil {
		return 0, unavailable(err)
	}

	r.log.Debug("service published",
		logger.Binding(name),
		logger.Int64("id", id),
		logger.Int("ranking", ranking))
	return id, nil
}

// Withdraw removes the service with the given id from name.
func (r *RedisServices) Withdraw(ctx context.Context, name string, id int64) (bool, error) {
	members, err := r.client.ZRange(ctx, r.key(name), 0, -1).Result()
	if err != nil {
		return false, unavailable(err)
	}

	for _, raw := range members {
		var m redisMember
		if err := json.Unmarshal([]byte(raw), &m); err != nil || m.ID != id {
			continue
		}
		removed, err := r.client.ZRem(ctx, r.key(name), raw).Result()
		if err != nil {
			return false, unavailable(err)
		}
		return removed > 0, nil
	}
	return false, nil
}

// Services implements naming.ServiceRegistry. An unreachable server is
// reported as TRANSIENT_UNAVAILABLE; a member that cannot be rebuilt is an
// IO_ERROR.
func (r *RedisServices) Services(ctx context.Context, name, typ string) ([]naming.ServiceCandidate, error) {
	entries, err := r.client.ZRevRangeWithScores(ctx, r.key(name), 0, -1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]naming.ServiceCandidate, 0, len(entries))
	for _, z := range entries {
		raw, ok := z.Member.(string)
		if !ok {
			return nil, errors.ErrIO("decode service "+name, fmt.Errorf("unexpected member %T", z.Member))
		}

		var m redisMember
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, errors.ErrIO("decode service "+name, err)
		}
		if typ != "" && m.Type != typ {
			continue
		}

		ref, err := naming.DecodeFactoryRef(m.Factory, r.builders)
		if err != nil {
			return nil, err
		}
		out = append(out, naming.ServiceCandidate{
			ID:      m.ID,
			Name:    name,
			Type:    m.Type,
			Ranking: int(z.Score),
			Object:  ref,
		})
	}

	naming.SortCandidates(out)
	return out, nil
}
