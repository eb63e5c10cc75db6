package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/common/metrics"
)

// SchemaContext is the auto-discovered description of the connected
// database/schema, used as fallback prompt context when no semantic model
// is active.
type SchemaContext struct {
	Database string      `json:"database"`
	Schema   string      `json:"schema"`
	Tables   []TableInfo `json:"tables"`
}

type TableInfo struct {
	Name      string       `json:"name"`
	TableType string       `json:"tableType"`
	Columns   []ColumnInfo `json:"columns"`
}

type ColumnInfo struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
	Nullable bool   `json:"nullable"`
}

// SchemaProvider is the discovery contract the orchestrator depends on.
type SchemaProvider interface {
	DiscoverSchema(ctx context.Context) (*SchemaContext, error)
}

// Introspector discovers tables and columns from INFORMATION_SCHEMA and
// caches the assembled context in redis. Redis failures degrade to live
// introspection; they never fail a turn.
type Introspector struct {
	db       *sql.DB
	cache    *redis.Client
	database string
	schema   string
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewIntrospector(db *sql.DB, cache *redis.Client, database, schema string, cacheTTL time.Duration, log logger.Logger) *Introspector {
	return &Introspector{
		db:       db,
		cache:    cache,
		database: database,
		schema:   schema,
		cacheTTL: cacheTTL,
		logger: log.With(map[string]interface{}{
			"component": "introspector",
		}),
	}
}

func (in *Introspector) cacheKey() string {
	return fmt.Sprintf("schema:%s.%s", in.database, in.schema)
}

// DiscoverSchema returns the cached schema context if present, otherwise
// introspects the warehouse and refreshes the cache.
func (in *Introspector) DiscoverSchema(ctx context.Context) (*SchemaContext, error) {
	if in.cache != nil {
		if val, err := in.cache.Get(ctx, in.cacheKey()).Result(); err == nil {
			var cached SchemaContext
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				metrics.SchemaCacheHits.Inc()
				return &cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			in.logger.Warn("schema cache read failed, introspecting live", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	metrics.SchemaCacheMisses.Inc()
	sc, err := in.introspect(ctx)
	if err != nil {
		return nil, err
	}

	if in.cache != nil {
		if data, err := json.Marshal(sc); err == nil {
			if err := in.cache.Set(ctx, in.cacheKey(), data, in.cacheTTL).Err(); err != nil {
				in.logger.Warn("schema cache write failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return sc, nil
}

// Invalidate drops the cached schema context so the next discovery
// introspects live.
func (in *Introspector) Invalidate(ctx context.Context) {
	if in.cache == nil {
		return
	}
	if err := in.cache.Del(ctx, in.cacheKey()).Err(); err != nil {
		in.logger.Warn("schema cache invalidation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (in *Introspector) introspect(ctx context.Context) (*SchemaContext, error) {
	sc := &SchemaContext{
		Database: in.database,
		Schema:   in.schema,
	}

	tables, err := in.listTables(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range tables {
		columns, err := in.tableColumns(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		t.Columns = columns
		sc.Tables = append(sc.Tables, t)
	}

	in.logger.Info("schema discovered", map[string]interface{}{
		"database": in.database,
		"schema":   in.schema,
		"tables":   len(sc.Tables),
	})

	return sc, nil
}

func (in *Introspector) listTables(ctx context.Context) ([]TableInfo, error) {
	const query = `SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	rows, err := in.db.QueryContext(ctx, query, in.schema)
	if err != nil {
		return nil, fmt.Errorf("%w: list tables: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	var tables []TableInfo
	for rows.Next() {
		var t TableInfo
		if err := rows.Scan(&t.Name, &t.TableType); err != nil {
			return nil, fmt.Errorf("%w: scan table: %v", ErrQueryExecutionFailed, err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (in *Introspector) tableColumns(ctx context.Context, table string) ([]ColumnInfo, error) {
	const query = `SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	rows, err := in.db.QueryContext(ctx, query, in.schema, table)
	if err != nil {
		return nil, fmt.Errorf("%w: table columns: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var c ColumnInfo
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, fmt.Errorf("%w: scan column: %v", ErrQueryExecutionFailed, err)
		}
		c.Nullable = nullable == "YES"
		columns = append(columns, c)
	}
	return columns, rows.Err()
}
