package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dsv-su/dsvgo/pkg/auth"
)

const redisKeyPrefix = "dsvgo:session:"

// Redis stores sessions in Redis, one JSON value per key. It is the shared
// backend for deployments where several workers authenticate on behalf of
// the same accounts and should reuse each other's sessions.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the Redis instance at rawURL (redis://...) and
// verifies the connection with a ping. Values expire server-side after ttl
// as a backstop to the read-time TTL check; ttl <= 0 stores without expiry.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisWithClient wraps an existing client. Used by tests and by callers
// that manage their own connection pool.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func redisKey(username string, service auth.Service) string {
	return redisKeyPrefix + fileKey(username, service)
}

func (r *Redis) Load(ctx context.Context, username string, service auth.Service) (*auth.CachedSession, error) {
	data, err := r.client.Get(ctx, redisKey(username, service)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry auth.CachedSession
	if err := json.Unmarshal(data, &entry); err != nil {
		// Corrupt value: evict and miss.
		_ = r.client.Del(ctx, redisKey(username, service)).Err()
		return nil, nil
	}
	return &entry, nil
}

func (r *Redis) Store(ctx context.Context, session *auth.CachedSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	var expiry time.Duration
	if r.ttl > 0 {
		expiry = r.ttl
	}
	return r.client.Set(ctx, redisKey(session.Username, session.Service), data, expiry).Err()
}

func (r *Redis) Invalidate(ctx context.Context, username string, service auth.Service) error {
	return r.client.Del(ctx, redisKey(username, service)).Err()
}

func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
