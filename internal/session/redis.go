package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "session:"

// RedisStore keeps the record under one Redis key with a sliding TTL.
type RedisStore struct {
	rdb redis.Cmdable
	key string
	ttl time.Duration
}

func NewRedisStore(rdb redis.Cmdable, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, key: redisKeyPrefix + key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	data, err := s.rdb.Get(ctx, s.key).Result()
	if stderrors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return decodeRecord([]byte(data))
}

func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, string(data), s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", s.key, err)
	}
	return nil
}

// RedisProvider hands out a RedisStore per session id.
type RedisProvider struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisProvider(rdb redis.Cmdable, ttl time.Duration) *RedisProvider {
	return &RedisProvider{rdb: rdb, ttl: ttl}
}

func (p *RedisProvider) Store(sid string) Store {
	return NewRedisStore(p.rdb, sid, p.ttl)
}

// Ping checks connectivity.
func Ping(ctx context.Context, rdb redis.Cmdable) error {
	return rdb.Ping(ctx).Err()
}
