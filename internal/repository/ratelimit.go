package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	// Allow records one request for key and reports whether it is within limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RedisRateLimiter keeps counters in Redis so every instance shares them.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	bucket := time.Now().UnixNano() / int64(window)
	redisKey := fmt.Sprintf("%s:%s:%d", r.prefix, key, bucket)

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(limit), nil
}

// MemoryRateLimiter is a process-local limiter used when Redis is unavailable.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]memoryBucket
	now     func() time.Time
}

type memoryBucket struct {
	start time.Time
	count int
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{buckets: make(map[string]memoryBucket), now: time.Now}
}

func (m *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok || now.Sub(b.start) >= window {
		b = memoryBucket{start: now}
	}
	b.count++
	m.buckets[key] = b

	if len(m.buckets) > 10000 {
		m.evict(now, window)
	}
	return b.count <= limit, nil
}

func (m *MemoryRateLimiter) evict(now time.Time, window time.Duration) {
	for k, b := range m.buckets {
		if now.Sub(b.start) >= window {
			delete(m.buckets, k)
		}
	}
}

// FailoverRateLimiter uses primary until it errors, then serves from
// fallback and re-probes primary once per recheck interval.
type FailoverRateLimiter struct {
	primary   RateLimiter
	fallback  RateLimiter
	logger    *zerolog.Logger
	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
	recheck   time.Duration
}

func NewFailoverRateLimiter(primary, fallback RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		recheck:  time.Minute,
	}
}

func (f *FailoverRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if f.usePrimary() {
		ok, err := f.primary.Allow(ctx, key, limit, window)
		if err == nil {
			if f.isDown.CompareAndSwap(true, false) {
				f.logger.Info().Msg("Rate limit store recovered")
			}
			return ok, nil
		}
		if !f.isDown.Swap(true) {
			f.logger.Warn().Err(err).Msg("Rate limit store unavailable, using in-memory fallback")
		}
		f.mu.Lock()
		f.lastCheck = time.Now()
		f.mu.Unlock()
	}
	return f.fallback.Allow(ctx, key, limit, window)
}

func (f *FailoverRateLimiter) usePrimary() bool {
	if !f.isDown.Load() {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if time.Since(f.lastCheck) >= f.recheck {
		f.lastCheck = time.Now()
		return true
	}
	return false
}
