package models

import "time"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ExecutionStatus records how a generated query fared.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusError   ExecutionStatus = "error"
	StatusWarning ExecutionStatus = "warning"
)

// Message is one turn artifact in the conversation log. Messages are
// immutable once created and ordered by timestamp within a session.
type Message struct {
	SessionID            string          `json:"sessionId"`
	Role                 MessageRole     `json:"role"`
	Content              string          `json:"content"`
	SQLQuery             string          `json:"sqlQuery,omitempty"`
	ExecutionStatus      ExecutionStatus `json:"executionStatus,omitempty"`
	ResultRows           *int            `json:"resultRows,omitempty"`
	SemanticModelVersion string          `json:"semanticModelVersion,omitempty"`
	Timestamp            time.Time       `json:"timestamp"`
}

// ResultSet is a tabular result from the remote query executor.
type ResultSet struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// RowCount returns the number of rows in the result set.
func (r *ResultSet) RowCount() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}
