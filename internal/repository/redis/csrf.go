package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

// CsrfTokenStore persists session/token pairs in Redis hashes. Expiry is
// enforced twice: a key TTL for garbage collection and an explicit expires
// field checked on read, so a clock-skewed Redis can never serve a stale token.
type CsrfTokenStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewCsrfTokenStore constructs a store using the provided Redis client.
func NewCsrfTokenStore(client *redis.Client, keyPrefix string) *CsrfTokenStore {
	return &CsrfTokenStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the live session record, evicting and reporting absent when the
// record has expired.
func (s *CsrfTokenStore) Get(ctx context.Context, sessionID string, now time.Time) (*domain.CsrfSession, error) {
	key := s.key(sessionID)

	fields, err := s.client.HMGet(ctx, key, "token", "expires").Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}

	token, _ := fields[0].(string)
	expiresRaw, _ := fields[1].(string)
	if token == "" || expiresRaw == "" {
		return nil, nil
	}

	expiresMillis, err := strconv.ParseInt(expiresRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse csrf expiry: %w", err)
	}

	session := domain.CsrfSession{
		SessionID: sessionID,
		Token:     token,
		ExpiresAt: time.UnixMilli(expiresMillis).UTC(),
	}

	if session.Expired(now) {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return nil, fmt.Errorf("redis del expired csrf session: %w", err)
		}
		return nil, nil
	}

	return &session, nil
}

// Put stores the session record, replacing any previous token for the session.
func (s *CsrfTokenStore) Put(ctx context.Context, session domain.CsrfSession) error {
	key := s.key(session.SessionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, "token", session.Token, "expires", session.ExpiresAt.UnixMilli())
	pipe.PExpireAt(ctx, key, session.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put csrf session: %w", err)
	}

	return nil
}

// Delete removes the session record.
func (s *CsrfTokenStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Sweep is a no-op: Redis evicts entries through the per-key TTL set by Put.
func (s *CsrfTokenStore) Sweep(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *CsrfTokenStore) key(sessionID string) string {
	if s.keyPrefix == "" {
		return sessionID
	}
	return fmt.Sprintf("%s:%s", s.keyPrefix, sessionID)
}

var _ port.CsrfTokenStore = (*CsrfTokenStore)(nil)
