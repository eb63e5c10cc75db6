// Package errors provides standardized error handling for the chat pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeWarehouseConnectionFailed ErrorCode = "WAREHOUSE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed      ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout              ErrorCode = "QUERY_TIMEOUT"
	ErrCodeForbiddenKeyword          ErrorCode = "FORBIDDEN_KEYWORD"

	ErrCodeCompletionFailed  ErrorCode = "COMPLETION_FAILED"
	ErrCodeCompletionTimeout ErrorCode = "COMPLETION_TIMEOUT"
	ErrCodeSQLGenerationFailed ErrorCode = "SQL_GENERATION_FAILED"

	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"

	ErrCodeSemanticModelInvalid ErrorCode = "SEMANTIC_MODEL_INVALID"
	ErrCodeSemanticModelShape   ErrorCode = "SEMANTIC_MODEL_UNRECOGNIZED_SHAPE"

	ErrCodeHistoryWriteFailed ErrorCode = "HISTORY_WRITE_FAILED"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"

	ErrCodeWebSearchFailed  ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeWebSearchTimeout ErrorCode = "WEB_SEARCH_TIMEOUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewQueryExecutionError wraps a downstream executor failure. The SQL that
// was attempted rides along in metadata so callers can surface it.
func NewQueryExecutionError(sql string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Query execution failed",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"sqlQuery": sql},
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenKeywordError creates a non-retryable policy rejection naming
// the offending keyword.
func NewForbiddenKeywordError(keyword, sql string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbiddenKeyword,
		Message:   fmt.Sprintf("Query contains forbidden keyword: %s", keyword),
		Retryable: false,
		Metadata: map[string]interface{}{
			"keyword":  keyword,
			"sqlQuery": sql,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionError creates a retryable transport error for the remote
// completion service.
func NewCompletionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionFailed,
		Message:   "Completion service call failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSQLGenerationError creates a non-retryable soft failure for completions
// that contained no recognizable SQL.
func NewSQLGenerationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSQLGenerationFailed,
		Message:   "Failed to generate SQL query from your question",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSemanticModelShapeError creates an error for documents matching neither
// the legacy nor the current semantic-model shape.
func NewSemanticModelShapeError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSemanticModelShape,
		Message:   "Semantic model document has an unrecognized shape",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates an error for unknown session identifiers.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   sessionID,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Helpers
// ==========================

// CodeOf extracts the ErrorCode from an error chain, or UNKNOWN_ERROR.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return "UNKNOWN_ERROR"
}

// IsRetryable reports whether an error in the chain is marked retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}
