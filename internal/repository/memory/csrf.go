package memory

import (
	"context"
	"sync"
	"time"

	"github.com/wwicak/kom-sabu-sub000/internal/core/domain"
	"github.com/wwicak/kom-sabu-sub000/internal/core/port"
)

// CsrfTokenStore keeps session/token pairs in a mutex-guarded map. The store
// owns the map exclusively; only Get, Put, Delete, and Sweep may touch it.
type CsrfTokenStore struct {
	mu       sync.Mutex
	sessions map[string]domain.CsrfSession
}

// NewCsrfTokenStore constructs an empty in-memory store.
func NewCsrfTokenStore() *CsrfTokenStore {
	return &CsrfTokenStore{sessions: make(map[string]domain.CsrfSession)}
}

// Get returns the live session record, evicting and reporting absent when the
// record has expired.
func (s *CsrfTokenStore) Get(_ context.Context, sessionID string, now time.Time) (*domain.CsrfSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if session.Expired(now) {
		delete(s.sessions, sessionID)
		return nil, nil
	}

	snapshot := session
	return &snapshot, nil
}

// Put stores the session record, replacing any previous token for the session.
func (s *CsrfTokenStore) Put(_ context.Context, session domain.CsrfSession) error {
	s.mu.Lock()
	s.sessions[session.SessionID] = session
	s.mu.Unlock()
	return nil
}

// Delete removes the session record.
func (s *CsrfTokenStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Sweep drops expired sessions and reports how many were removed.
func (s *CsrfTokenStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

var _ port.CsrfTokenStore = (*CsrfTokenStore)(nil)
