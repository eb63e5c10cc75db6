package models

import "time"

// Session represents a chat session and its warehouse connection context.
// It is created at authentication time and mutated on every turn; sessions
// live for the process lifetime and are never explicitly destroyed.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Account      string    `json:"account,omitempty"`
	Database     string    `json:"database,omitempty"`
	Schema       string    `json:"schema,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`

	// HasSemanticModel is true while a user-supplied model is active;
	// a custom model always overrides auto-discovery.
	HasSemanticModel     bool   `json:"hasSemanticModel"`
	SemanticModelVersion string `json:"semanticModelVersion,omitempty"`

	QueryCount int `json:"queryCount"`
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActivity = time.Now().UTC()
}
