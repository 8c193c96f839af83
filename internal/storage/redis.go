package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/socialhub/client/internal/auth"
	"github.com/socialhub/client/internal/models"
)

// RedisSessionStore keeps one snapshot per profile under a redis key.
type RedisSessionStore struct {
	client redis.Cmdable
	key    string
	ttl    time.Duration
	sealer *Sealer
}

// NewRedisSessionStore stores the profile's snapshot at "socialhub:session:<profile>".
// A ttl of zero keeps the key until it is cleared.
func NewRedisSessionStore(client redis.Cmdable, profile string, ttl time.Duration, sealer *Sealer) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		key:    "socialhub:session:" + profile,
		ttl:    ttl,
		sealer: sealer,
	}
}

// Key returns the redis key holding the snapshot.
func (s *RedisSessionStore) Key() string { return s.key }

// Load returns auth.ErrNoSession when the key is absent.
func (s *RedisSessionStore) Load(ctx context.Context) (models.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, auth.ErrNoSession
	}
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("redis get session: %w", err)
	}
	snap, err := decodeSnapshot(data, s.sealer)
	if err != nil {
		return models.Snapshot{}, err
	}
	if snap.Credentials.Empty() {
		return models.Snapshot{}, auth.ErrNoSession
	}
	return snap, nil
}

func (s *RedisSessionStore) Save(ctx context.Context, snap models.Snapshot) error {
	data, err := encodeSnapshot(snap, s.sealer)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}
