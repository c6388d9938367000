package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

// checkScript runs the whole fixed-window check-and-increment server side, so
// concurrent requests for one key are serialized by Redis itself. Keys carry a
// TTL of window*(backoff cap+1), covering the longest possible lockout.
var checkScript = redis.NewScript(`
local key = KEYS[1]
local window = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local cap = tonumber(ARGV[4])

local fields = redis.call('HMGET', key, 'count', 'reset', 'blocked')
local count = tonumber(fields[1])
local reset = tonumber(fields[2])
local blocked = fields[3] == '1'

if not count or not reset or reset <= now then
  reset = now + window
  redis.call('HSET', key, 'count', 1, 'reset', reset, 'blocked', 0)
  redis.call('PEXPIRE', key, window * (cap + 1))
  return {1, limit - 1, reset, 0}
end

count = count + 1
if blocked or count > limit then
  local over = count - limit
  if over < 1 then over = 1 end
  if over > cap then over = cap end
  reset = now + window * over
  redis.call('HSET', key, 'count', count, 'reset', reset, 'blocked', 1)
  redis.call('PEXPIRE', key, window * (cap + 1))
  return {0, 0, reset, reset - now}
end

redis.call('HSET', key, 'count', count)
return {1, limit - count, reset, 0}
`)

// RateLimitStore persists fixed-window counters in Redis hashes.
type RateLimitStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRateLimitStore constructs a store using the provided Redis client.
func NewRateLimitStore(client *redis.Client, keyPrefix string) *RateLimitStore {
	return &RateLimitStore{client: client, keyPrefix: keyPrefix}
}

// Check applies the fixed-window algorithm with progressive lockout atomically.
func (s *RateLimitStore) Check(ctx context.Context, key string, window time.Duration, limit int, now time.Time) (domain.RateLimitDecision, error) {
	raw, err := checkScript.Run(ctx, s.client,
		[]string{s.key(key)},
		window.Milliseconds(),
		limit,
		now.UnixMilli(),
		domain.MaxBackoffMultiplier,
	).Result()
	if err != nil {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit check: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 4 {
		return domain.RateLimitDecision{}, fmt.Errorf("redis rate limit check: unexpected reply %v", raw)
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	resetMillis, _ := values[2].(int64)
	retryMillis, _ := values[3].(int64)

	return domain.RateLimitDecision{
		Allowed:    allowed == 1,
		Limit:      limit,
		Remaining:  int(remaining),
		ResetTime:  time.UnixMilli(resetMillis).UTC(),
		RetryAfter: time.Duration(retryMillis) * time.Millisecond,
	}, nil
}

// Delete removes a single key.
func (s *RateLimitStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts entries through the per-key TTL set by Check.
func (s *RateLimitStore) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *RateLimitStore) key(identifier string) string {
	if s.keyPrefix == "" {
		return identifier
	}
	return fmt.Sprintf("%s:%s", s.keyPrefix, identifier)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
