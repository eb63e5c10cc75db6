package semmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacyDoc = `
name: sales_model
description: Sales tables
tables:
  - name: ORDERS
    description: Order fact table
    columns:
      - name: ORDER_ID
        type: NUMBER
      - name: TOTAL_AMOUNT
        type: NUMBER
        description: Order total in USD
  - name: CUSTOMERS
    columns:
      - name: CUSTOMER_ID
        type: NUMBER
relationships:
  - from_table: ORDERS
    from_column: CUSTOMER_ID
    to_table: CUSTOMERS
    to_column: CUSTOMER_ID
    type: many_to_one
`

const currentDoc = `
name: analytics_model
logical_tables:
  - name: orders
    base_table: CORTEX_DEMO.ANALYTICS.ORDERS
    description: All orders
    columns:
      - name: total_amount
        type: NUMBER
        synonyms: [amount, order_total]
metrics:
  - name: revenue
    expr: SUM(total_amount)
    description: Total revenue
verified_queries:
  - name: revenue_by_region
    question: What is revenue by region?
    sql: SELECT region, SUM(total_amount) FROM CORTEX_DEMO.ANALYTICS.ORDERS GROUP BY region
`

func TestLoad_LegacyShape(t *testing.T) {
	model, err := Load([]byte(legacyDoc))
	require.NoError(t, err)

	assert.Equal(t, ShapeLegacy, model.Shape)
	assert.Equal(t, "sales_model", model.Name)
	assert.Equal(t, "custom", model.Version)
	require.NotNil(t, model.Legacy)
	assert.Nil(t, model.Current)
	require.Len(t, model.Legacy.Tables, 2)
	assert.Equal(t, "ORDERS", model.Legacy.Tables[0].Name)
	assert.Equal(t, "TOTAL_AMOUNT", model.Legacy.Tables[0].Columns[1].Name)
	require.Len(t, model.Legacy.Relationships, 1)
	assert.Equal(t, "many_to_one", model.Legacy.Relationships[0].Type)
}

func TestLoad_CurrentShape(t *testing.T) {
	model, err := Load([]byte(currentDoc))
	require.NoError(t, err)

	assert.Equal(t, ShapeCurrent, model.Shape)
	require.NotNil(t, model.Current)
	assert.Nil(t, model.Legacy)
	require.Len(t, model.Current.LogicalTables, 1)
	assert.Equal(t, "CORTEX_DEMO.ANALYTICS.ORDERS", model.Current.LogicalTables[0].BaseTable)
	require.Len(t, model.Current.Metrics, 1)
	assert.Equal(t, "SUM(total_amount)", model.Current.Metrics[0].Expr)
	require.Len(t, model.Current.VerifiedQueries, 1)
}

func TestLoad_WrapperUnwrapped(t *testing.T) {
	wrapped := "semantic_model:\n  name: wrapped_model\n  logical_tables:\n    - name: t\n      base_table: DB.SCH.T\n"

	model, err := Load([]byte(wrapped))
	require.NoError(t, err)

	assert.Equal(t, "wrapped_model", model.Name)
	assert.Equal(t, ShapeCurrent, model.Shape)
}

func TestLoad_UnrecognizedShape(t *testing.T) {
	_, err := Load([]byte("name: something\nentities:\n  - foo\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnrecognizedShape)
}

func TestLoad_NotAMapping(t *testing.T) {
	_, err := Load([]byte("- just\n- a\n- list\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotAMapping)
}

func TestLoad_SchemaViolation(t *testing.T) {
	// logical table without the required base_table key
	doc := "logical_tables:\n  - name: orders\n"
	_, err := Load([]byte(doc))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaValidation)
}

func TestInferDatabaseSchema(t *testing.T) {
	model, err := Load([]byte(currentDoc))
	require.NoError(t, err)

	database, schema := model.InferDatabaseSchema()
	assert.Equal(t, "CORTEX_DEMO", database)
	assert.Equal(t, "ANALYTICS", schema)
}

func TestInferDatabaseSchema_BadBaseTable(t *testing.T) {
	doc := "logical_tables:\n  - name: t\n    base_table: JUST_A_TABLE\n"
	model, err := Load([]byte(doc))
	require.NoError(t, err)

	database, schema := model.InferDatabaseSchema()
	assert.Empty(t, database)
	assert.Empty(t, schema)
}

func TestStore_AtMostOneActiveModel(t *testing.T) {
	store := NewStore()

	first, err := Load([]byte(legacyDoc))
	require.NoError(t, err)
	second, err := Load([]byte(currentDoc))
	require.NoError(t, err)

	store.Set("s1", first)
	assert.Equal(t, first, store.Get("s1"))

	store.Set("s1", second)
	assert.Equal(t, second, store.Get("s1"))
	assert.Nil(t, store.Get("s2"))

	store.Clear("s1")
	assert.Nil(t, store.Get("s1"))
	store.Clear("s1") // clearing again is a no-op
}
