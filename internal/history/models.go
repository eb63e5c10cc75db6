package history

import "time"

type ChatSession struct {
	SessionID        string    `gorm:"type:varchar(64);primaryKey" json:"session_id"`
	UserID           string    `gorm:"type:varchar(64);index" json:"user_id"`
	Account          string    `gorm:"type:varchar(128)" json:"account"`
	DatabaseName     string    `gorm:"type:varchar(128)" json:"database_name"`
	SchemaName       string    `gorm:"type:varchar(128)" json:"schema_name"`
	SemanticModelUsed bool     `json:"semantic_model_used"`
	CreatedAt        time.Time `json:"created_at"`
	LastActivity     time.Time `json:"last_activity"`
}

func (ChatSession) TableName() string { return "chat_sessions" }

type ChatMessage struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID            string    `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Role                 string    `gorm:"type:varchar(16);not null" json:"role"`
	Content              string    `gorm:"type:text;not null" json:"content"`
	SQLQuery             string    `gorm:"type:text" json:"sql_query,omitempty"`
	ExecutionStatus      string    `gorm:"type:varchar(16)" json:"execution_status,omitempty"`
	ResultRows           *int      `json:"result_rows,omitempty"`
	SemanticModelVersion string    `gorm:"type:varchar(64)" json:"semantic_model_version,omitempty"`
	Timestamp            time.Time `gorm:"index" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

type QueryPerformance struct {
	ID               uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string    `gorm:"type:varchar(64);index;not null" json:"session_id"`
	Question         string    `gorm:"type:text" json:"question"`
	SQLQuery         string    `gorm:"type:text" json:"sql_query"`
	ExecutionTimeMs  int64     `json:"execution_time_ms"`
	RowsReturned     int       `json:"rows_returned"`
	HasSemanticModel bool      `json:"has_semantic_model"`
	Success          bool      `json:"success"`
	Timestamp        time.Time `json:"timestamp"`
}

func (QueryPerformance) TableName() string { return "query_performance" }

// SessionStats aggregates a session's log for the stats endpoint.
type SessionStats struct {
	SemanticModelUsed bool      `json:"semantic_model_used"`
	CreatedAt         time.Time `json:"created_at"`
	LastActivity      time.Time `json:"last_activity"`
	TotalMessages     int64     `json:"total_messages"`
	UserMessages      int64     `json:"user_messages"`
	SuccessfulQueries int64     `json:"successful_queries"`
}
