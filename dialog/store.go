package dialog

import (
	"context"
	"sync"
)

// StateStore persists per-session dialogue state between turns.
type StateStore interface {
	// Get returns the state for sessionID, creating a fresh catalog-phase
	// state when none exists yet.
	Get(ctx context.Context, sessionID string) (*SessionState, error)

	// Save stores the state under its session id.
	Save(ctx context.Context, st *SessionState) error

	// Delete discards the state for sessionID. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error
}

// InMemoryStore keeps dialogue state in a process-local map.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]*SessionState
}

var _ StateStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty in-memory state store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]*SessionState)}
}

// Get implements StateStore.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (*SessionState, error) {
	s.mu.RLock()
	st, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok {
		return NewSessionState(sessionID), nil
	}
	return st.Clone(), nil
}

// Save implements StateStore.
func (s *InMemoryStore) Save(_ context.Context, st *SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.SessionID] = st.Clone()
	return nil
}

// Delete implements StateStore.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
	return nil
}
