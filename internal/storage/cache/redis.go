// Package cache caches the pool inventory in Redis so several router
// instances can share one refreshed snapshot.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"routeScope/internal/model"
)

const DefaultPrefix = "route_scope"

// Options configures the Redis connection and key layout.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisStore keeps each pool under its own key with a TTL, plus a sorted set
// recording first-seen order.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisStore(ctx context.Context, opts Options) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return newRedisStore(client, opts), nil
}

func newRedisStore(client *redis.Client, opts Options) *RedisStore {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{
		client: client,
		ttl:    opts.TTL,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStore) Name() string {
	return "redis"
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) poolKey(pool model.Pool) string {
	return fmt.Sprintf("%s:pool:%s:%s", s.prefix, pool.Exchange, strings.ToLower(strings.TrimSpace(pool.Address)))
}

func (s *RedisStore) orderKey() string {
	return s.prefix + ":pools"
}

// PutPoolBatch writes pools in a single transaction. A pool keeps the order
// score it got when first written.
func (s *RedisStore) PutPoolBatch(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	base := float64(s.now().UnixNano())
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, pool := range pools {
			data, err := json.Marshal(pool)
			if err != nil {
				return fmt.Errorf("marshal pool %s: %w", pool.Key(), err)
			}
			key := s.poolKey(pool)
			pipe.Set(ctx, key, data, s.ttl)
			pipe.ZAddNX(ctx, s.orderKey(), redis.Z{Score: base + float64(i), Member: key})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write pools to redis: %w", err)
	}
	return nil
}

// FetchPools returns cached pools in first-seen order. Entries whose pool key
// expired are pruned from the order set.
func (s *RedisStore) FetchPools(ctx context.Context) ([]model.Pool, error) {
	keys, err := s.client.ZRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read pool order: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read pools: %w", err)
	}

	pools, expired, err := decodePools(keys, values)
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		members := make([]any, len(expired))
		for i, key := range expired {
			members[i] = key
		}
		if err := s.client.ZRem(ctx, s.orderKey(), members...).Err(); err != nil {
			return nil, fmt.Errorf("prune expired pools: %w", err)
		}
	}
	return pools, nil
}

func decodePools(keys []string, values []any) ([]model.Pool, []string, error) {
	pools := make([]model.Pool, 0, len(values))
	var expired []string
	for i, value := range values {
		if value == nil {
			expired = append(expired, keys[i])
			continue
		}
		raw, ok := value.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected value type %T for %s", value, keys[i])
		}
		var pool model.Pool
		if err := json.Unmarshal([]byte(raw), &pool); err != nil {
			return nil, nil, fmt.Errorf("unmarshal pool %s: %w", keys[i], err)
		}
		pools = append(pools, pool)
	}
	return pools, expired, nil
}
