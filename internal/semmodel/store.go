package semmodel

import "sync"

// Store holds the active semantic model per session. A session has at most
// one active model; uploading a new one replaces the previous.
type Store struct {
	mu     sync.RWMutex
	models map[string]*Model
}

func NewStore() *Store {
	return &Store{
		models: make(map[string]*Model),
	}
}

// Set activates a model for the session, replacing any existing one.
func (s *Store) Set(sessionID string, model *Model) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[sessionID] = model
}

// Get returns the active model for the session, or nil when none is set.
func (s *Store) Get(sessionID string) *Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[sessionID]
}

// Clear removes the session's active model. Clearing a session without a
// model is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, sessionID)
}
