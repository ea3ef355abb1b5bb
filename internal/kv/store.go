package kv

import (
	"context"
	"time"

	"github.com/hamdam-bot/hamdam/internal/config"
	"github.com/redis/go-redis/v9"
)

// Store is the Redis-backed key/value substrate. Every piece of live state
// (users, FSM state, waiting buckets, chat pointers, payments, referrals,
// id counters) goes through it; the relational DB only holds audit records.
//
// The raw client is exported: packages that need Redis primitives beyond the
// helpers here (Lua scripts, sorted sets, pipelines) use Client directly.
type Store struct {
	Client *redis.Client
}

// NewStore initializes the Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewStore(cfg *config.Config) *Store {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &Store{Client: redis.NewClient(opts)}
}

// NewStoreFromClient wraps an existing client. Used by tests with miniredis.
func NewStoreFromClient(c *redis.Client) *Store {
	return &Store{Client: c}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.Client.Get(ctx, key).Result()
}

func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.Client.Del(ctx, keys...).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.Client.Exists(ctx, key).Result()
	return n > 0, err
}

// Incr backs the monotonically-increasing per-entity id counters.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	return s.Client.Incr(ctx, key).Result()
}

// IsMiss reports whether err is a plain cache miss rather than a failure.
func IsMiss(err error) bool {
	return err == redis.Nil
}
