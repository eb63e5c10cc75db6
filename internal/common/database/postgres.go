// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"warehouse-chat/internal/common/config"

	_ "github.com/lib/pq"
)

// WarehouseClient wraps the SQL connection to the remote warehouse.
type WarehouseClient struct {
	DB *sql.DB
}

// NewWarehouse creates a new warehouse client
func NewWarehouse(cfg config.WarehouseConfig) (*WarehouseClient, error) {
	dsn := cfg.GetDSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &WarehouseClient{DB: db}, nil
}

// Ping tests the warehouse connection
func (c *WarehouseClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Close closes the warehouse connection
func (c *WarehouseClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Query executes a query that returns rows
func (c *WarehouseClient) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.DB.QueryContext(ctx, query, args...)
}

// QueryRow executes a query that returns at most one row
func (c *WarehouseClient) QueryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.DB.QueryRowContext(ctx, query, args...)
}

// GetDB returns the underlying *sql.DB for compatibility
func (c *WarehouseClient) GetDB() *sql.DB {
	return c.DB
}
