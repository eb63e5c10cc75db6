// Package warehouse talks to the remote query executor: a SQL string in,
// tabular rows or an error out. The executor itself is an external service;
// this package only wraps the wire connection and row marshalling.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/models"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
)

// Executor is the execution contract the orchestrator depends on.
type Executor interface {
	Execute(ctx context.Context, sqlQuery string) (*models.ResultSet, error)
}

type Client struct {
	db     *sql.DB
	logger logger.Logger
}

func NewClient(db *sql.DB, log logger.Logger) *Client {
	return &Client{
		db: db,
		logger: log.With(map[string]interface{}{
			"component": "warehouse",
		}),
	}
}

// Execute runs the query and marshals all rows into a ResultSet. The
// executor's own error text is preserved so the caller can surface it
// verbatim next to the SQL that was attempted.
func (c *Client) Execute(ctx context.Context, sqlQuery string) (*models.ResultSet, error) {
	rows, err := c.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrQueryTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	result := &models.ResultSet{
		Columns: columns,
		Rows:    [][]interface{}{},
	}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	c.logger.Debug("query executed", map[string]interface{}{
		"columns": len(result.Columns),
		"rows":    len(result.Rows),
	})

	return result, nil
}
