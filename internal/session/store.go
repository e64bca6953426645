package session

import (
	"sync"
	"time"

	"github.com/dhalloran/scrawl/internal/models"
)

// Store is an in-memory session registry keyed by session ID. The whole
// subsystem is ephemeral: nothing is persisted, and expired sessions are
// pruned by a background sweeper.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Put registers a session, replacing any previous session with the same ID.
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID()] = s
}

// Get returns the session with the given ID. Expired sessions are removed
// on access and reported as ErrSessionExpired; unknown IDs as ErrNotFound.
func (st *Store) Get(id string, now time.Time) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}
	if s.Expired(now) {
		st.Delete(id)
		return nil, models.ErrSessionExpired
	}
	return s, nil
}

// Delete removes a session, if present.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// Len returns the number of registered sessions, expired or not.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// PruneExpired removes every expired session and returns how many went.
func (st *Store) PruneExpired(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.Expired(now) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}
