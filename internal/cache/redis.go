// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "tracklift:cache:"

// RedisStore is a Redis-backed persistent tier. TTL handling is delegated
// to Redis key expiry; the Entry envelope is kept so the memory tier can be
// repopulated with the original creation time.
type RedisStore struct {
	client *redis.Client

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisStore{client: client}, nil
}

// Get implements Store. Any backend error counts as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		s.misses.Add(1)
		return Entry{}, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		s.misses.Add(1)
		return Entry{}, false
	}
	if entry.Expired(time.Now()) {
		s.misses.Add(1)
		return Entry{}, false
	}

	s.hits.Add(1)
	return entry, true
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	entry := Entry{Payload: payload, CreatedAt: time.Now(), TTL: ttl}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+key, data, ttl).Err()
}

// Invalidate implements Store.
func (s *RedisStore) Invalidate(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKeyPrefix+key).Err()
}

// Clear implements Store. Keys are removed by prefix scan so unrelated
// data sharing the Redis database stays untouched.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Stats implements Store. Entry count is not tracked remotely.
func (s *RedisStore) Stats() Stats {
	return Stats{
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
