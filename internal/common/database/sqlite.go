// internal/common/database/sqlite.go
package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// MemoryDSN is the DSN for the in-memory conversation log. The log is a UI
// convenience, not a system of record, so it lives and dies with the process.
const MemoryDSN = "file::memory:?cache=shared"

// NewSQLite opens a gorm-managed SQLite database at the given DSN.
func NewSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return db, nil
}
