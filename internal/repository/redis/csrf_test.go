package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
)

func TestCsrfTokenStore_RoundTrip(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	ctx := context.Background()
	now := testNow

	session := domain.CsrfSession{
		SessionID: "sess-1",
		Token:     "tok-1",
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Put(ctx, session); err != nil {
		t.Fatalf("put returned error: %v", err)
	}

	got, err := store.Get(ctx, "sess-1", now)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got == nil || got.Token != "tok-1" {
		t.Fatalf("get = %+v, want stored token", got)
	}
	if !got.ExpiresAt.Equal(session.ExpiresAt) {
		t.Fatalf("get expiry = %v, want %v", got.ExpiresAt, session.ExpiresAt)
	}
}

func TestCsrfTokenStore_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	got, err := store.Get(context.Background(), "missing", testNow)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("get = %+v, want nil for unknown session", got)
	}
}

func TestCsrfTokenStore_ExpiredIsEvictedOnRead(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	ctx := context.Background()
	now := testNow

	if err := store.Put(ctx, domain.CsrfSession{
		SessionID: "sess-1",
		Token:     "tok-1",
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("put returned error: %v", err)
	}

	// The expires field, not the Redis TTL, decides liveness on read.
	got, err := store.Get(ctx, "sess-1", now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("expired session must read as absent, got %+v", got)
	}
	if server.Exists("gateway:csrf:sess-1") {
		t.Fatal("expired session must be evicted on read")
	}
}

func TestCsrfTokenStore_TTLRelativeToServerClock(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	ctx := context.Background()
	now := testNow

	if err := store.Put(ctx, domain.CsrfSession{
		SessionID: "sess-1",
		Token:     "tok-1",
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("put returned error: %v", err)
	}

	// Put sets an absolute expiry; against the pinned server clock the key
	// must survive for the full TTL instead of vanishing on write.
	if ttl := server.TTL("gateway:csrf:sess-1"); ttl != time.Hour {
		t.Fatalf("key ttl = %v, want %v", ttl, time.Hour)
	}

	got, err := store.Get(ctx, "sess-1", now)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got == nil || got.Token != "tok-1" {
		t.Fatalf("session must remain readable after put, got %+v", got)
	}
}

func TestCsrfTokenStore_PutReplacesToken(t *testing.T) {
	client, _ := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	ctx := context.Background()
	now := testNow

	for _, token := range []string{"tok-1", "tok-2"} {
		if err := store.Put(ctx, domain.CsrfSession{
			SessionID: "sess-1",
			Token:     token,
			ExpiresAt: now.Add(time.Hour),
		}); err != nil {
			t.Fatalf("put returned error: %v", err)
		}
	}

	got, err := store.Get(ctx, "sess-1", now)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if got == nil || got.Token != "tok-2" {
		t.Fatalf("rotation must replace the token, got %+v", got)
	}
}

func TestCsrfTokenStore_Delete(t *testing.T) {
	client, server := newTestRedis(t)
	store := NewCsrfTokenStore(client, "gateway:csrf")

	ctx := context.Background()
	now := testNow

	if err := store.Put(ctx, domain.CsrfSession{
		SessionID: "sess-1",
		Token:     "tok-1",
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("put returned error: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete returned error: %v", err)
	}
	if server.Exists("gateway:csrf:sess-1") {
		t.Fatal("session must be gone after delete")
	}
}
