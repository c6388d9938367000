package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

const rateLimitShards = 32

// RateLimitStore keeps fixed-window counters in sharded mutex-guarded maps.
// The entire check-and-increment for a key runs under its shard lock, which
// makes increments on a single key linearizable.
type RateLimitStore struct {
	shards [rateLimitShards]rateLimitShard
}

type rateLimitShard struct {
	mu      sync.Mutex
	entries map[string]*domain.RateLimitEntry
}

// NewRateLimitStore constructs an empty in-memory store.
func NewRateLimitStore() *RateLimitStore {
	s := &RateLimitStore{}
	for i := range s.shards {
		s.shards[i].entries = make(map[string]*domain.RateLimitEntry)
	}
	return s
}

func (s *RateLimitStore) shard(key string) *rateLimitShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.shards[h.Sum32()%rateLimitShards]
}

// Check applies the fixed-window algorithm with progressive lockout.
// An entry whose window has ended is treated as absent regardless of whether the
// sweeper has removed it yet.
func (s *RateLimitStore) Check(_ context.Context, key string, window time.Duration, limit int, now time.Time) (domain.RateLimitDecision, error) {
	sh := s.shard(key)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, ok := sh.entries[key]
	if !ok || entry.Expired(now) {
		reset := now.Add(window)
		sh.entries[key] = &domain.RateLimitEntry{
			Key:       key,
			Count:     1,
			ResetTime: reset,
		}
		return domain.RateLimitDecision{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit - 1,
			ResetTime: reset,
		}, nil
	}

	entry.Count++
	if entry.Blocked || entry.Count > limit {
		entry.Blocked = true
		entry.ResetTime = now.Add(domain.BackoffWindow(window, entry.Count, limit))
		return domain.RateLimitDecision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetTime:  entry.ResetTime,
			RetryAfter: entry.ResetTime.Sub(now),
		}, nil
	}

	return domain.RateLimitDecision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - entry.Count,
		ResetTime: entry.ResetTime,
	}, nil
}

// Delete removes a single key.
func (s *RateLimitStore) Delete(_ context.Context, key string) error {
	sh := s.shard(key)
	sh.mu.Lock()
	delete(sh.entries, key)
	sh.mu.Unlock()
	return nil
}

// Sweep drops entries whose reset time has passed and reports how many were removed.
func (s *RateLimitStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.Lock()
		for key, entry := range sh.entries {
			if entry.Expired(now) {
				delete(sh.entries, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed, nil
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
