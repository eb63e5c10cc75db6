package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"warehouse-chat/internal/models"
)

// SessionManager holds the live sessions for the process lifetime.
// Sessions are never destroyed, matching the conversational UI's model of
// long-lived tabs.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*models.Session),
	}
}

// Create registers a new session with the given connection parameters and
// returns it. A fresh identifier is generated when none is supplied.
func (m *SessionManager) Create(id, userID, account, database, schema string) *models.Session {
	if id == "" {
		id = uuid.New().String()
	}
	if userID == "" {
		userID = "default"
	}

	now := time.Now()
	sess := &models.Session{
		ID:           id,
		UserID:       userID,
		Account:      account,
		Database:     database,
		Schema:       schema,
		CreatedAt:    now,
		LastActivity: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = sess
	return sess
}

// Get returns the session or nil when unknown.
func (m *SessionManager) Get(id string) *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Count reports the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
