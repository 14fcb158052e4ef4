// internal/cache/redis.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for match journal records.
var DefaultQueueName = "dartkeeper_events"

// Options configures a Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// SnapshotStore keeps the session blob under a single Redis key.
type SnapshotStore struct {
	rdb *redis.Client
	key string
}

// NewSnapshotStore wraps a connected client.
func NewSnapshotStore(rdb *redis.Client, key string) *SnapshotStore {
	return &SnapshotStore{rdb: rdb, key: key}
}

func (s *SnapshotStore) Load(ctx context.Context) ([]byte, bool, error) {
	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to GET '%s': %w", s.key, err)
	}
	return data, true, nil
}

func (s *SnapshotStore) Save(ctx context.Context, data []byte) error {
	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to SET '%s': %w", s.key, err)
	}
	return nil
}

func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to DEL '%s': %w", s.key, err)
	}
	return nil
}

func (s *SnapshotStore) Close() error {
	return s.rdb.Close()
}
