package repository

import (
	"context"
	"errors"
	"fmt"

	"FinBoard/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// RedisSnapshotStore keeps snapshots as plain Redis strings without expiry.
type RedisSnapshotStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSnapshotStore uses a client owned by the caller; Close leaves it open.
func NewRedisSnapshotStore(client *redis.Client, prefix string) repository.SnapshotStore {
	return &RedisSnapshotStore{client: client, prefix: prefix}
}

func (s *RedisSnapshotStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, true, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, key string, data []byte) error {
	if err := s.client.Set(ctx, s.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSnapshotStore) Close() error { return nil }

func (s *RedisSnapshotStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":snapshot:" + k
}
