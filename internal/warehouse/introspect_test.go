package warehouse

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warehouse-chat/internal/common/logger"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func expectIntrospection(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT table_name, table_type").
		WithArgs("ANALYTICS").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "table_type"}).
			AddRow("ORDERS", "BASE TABLE"))

	mock.ExpectQuery("SELECT column_name, data_type, is_nullable").
		WithArgs("ANALYTICS", "ORDERS").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable"}).
			AddRow("ORDER_ID", "bigint", "NO").
			AddRow("TOTAL_AMOUNT", "numeric", "YES"))
}

func TestDiscoverSchema_IntrospectsAndCaches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)
	expectIntrospection(mock)

	in := NewIntrospector(db, cache, "CORTEX_DEMO", "ANALYTICS", 5*time.Minute, logger.NewTestLogger(t))

	sc, err := in.DiscoverSchema(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "CORTEX_DEMO", sc.Database)
	require.Len(t, sc.Tables, 1)
	assert.Equal(t, "ORDERS", sc.Tables[0].Name)
	require.Len(t, sc.Tables[0].Columns, 2)
	assert.False(t, sc.Tables[0].Columns[0].Nullable)
	assert.True(t, sc.Tables[0].Columns[1].Nullable)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Assembled context landed in the cache with the TTL applied.
	cached, err := mr.Get("schema:CORTEX_DEMO.ANALYTICS")
	require.NoError(t, err)
	var decoded SchemaContext
	require.NoError(t, json.Unmarshal([]byte(cached), &decoded))
	assert.Equal(t, sc.Tables, decoded.Tables)
	assert.Greater(t, mr.TTL("schema:CORTEX_DEMO.ANALYTICS"), time.Duration(0))
}

func TestDiscoverSchema_CacheHitSkipsWarehouse(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)

	stored := SchemaContext{
		Database: "CORTEX_DEMO",
		Schema:   "ANALYTICS",
		Tables:   []TableInfo{{Name: "CACHED_TABLE", TableType: "BASE TABLE"}},
	}
	data, err := json.Marshal(stored)
	require.NoError(t, err)
	require.NoError(t, mr.Set("schema:CORTEX_DEMO.ANALYTICS", string(data)))

	in := NewIntrospector(db, cache, "CORTEX_DEMO", "ANALYTICS", 5*time.Minute, logger.NewTestLogger(t))

	sc, err := in.DiscoverSchema(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "CACHED_TABLE", sc.Tables[0].Name)

	// No warehouse queries were expected or issued.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDiscoverSchema_RedisDownFallsThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)
	mr.Close() // cache unreachable

	expectIntrospection(mock)

	in := NewIntrospector(db, cache, "CORTEX_DEMO", "ANALYTICS", 5*time.Minute, logger.NewTestLogger(t))

	sc, err := in.DiscoverSchema(context.Background())
	require.NoError(t, err)
	assert.Len(t, sc.Tables, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr, cache := newTestRedis(t)
	require.NoError(t, mr.Set("schema:CORTEX_DEMO.ANALYTICS", "{}"))

	in := NewIntrospector(db, cache, "CORTEX_DEMO", "ANALYTICS", time.Minute, logger.NewTestLogger(t))
	in.Invalidate(context.Background())

	assert.False(t, mr.Exists("schema:CORTEX_DEMO.ANALYTICS"))
}
