package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/common/observability"
	"warehouse-chat/internal/history"
	"warehouse-chat/internal/intent"
	"warehouse-chat/internal/models"
	"warehouse-chat/internal/prompter"
	"warehouse-chat/internal/respond"
	"warehouse-chat/internal/semmodel"
	"warehouse-chat/internal/websearch"
)

var (
	obsOnce sync.Once
	testObs *observability.Observability
)

func sharedObs() *observability.Observability {
	obsOnce.Do(func() {
		testObs = observability.New("orchestrator-test")
	})
	return testObs
}

type fakeCompletions struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompletions) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type fakeExecutor struct {
	result *models.ResultSet
	err    error
	sqls   []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlQuery string) (*models.ResultSet, error) {
	f.sqls = append(f.sqls, sqlQuery)
	return f.result, f.err
}

func newTestOrchestrator(t *testing.T, completions *fakeCompletions, executor *fakeExecutor) *Orchestrator {
	t.Helper()

	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	logStore, err := history.NewStore(db, log)
	require.NoError(t, err)

	return New(
		NewSessionManager(),
		semmodel.NewStore(),
		intent.NewClassifier(nil, log), // heuristic-only keeps classification deterministic
		prompter.NewAssembler(),
		completions,
		executor,
		nil, // no schema discovery in these tests
		respond.NewGenerator(nil, log),
		logStore,
		websearch.NewClient("", "", time.Second, log),
		sharedObs(),
		log,
		Options{QueryTimeout: 5 * time.Second, HistoryLimit: 50},
	)
}

func createSession(t *testing.T, o *Orchestrator) *models.Session {
	t.Helper()
	sess, err := o.CreateSession(context.Background(), "default", "local", "CORTEX_DEMO", "ANALYTICS")
	require.NoError(t, err)
	return sess
}

const currentModelDoc = `
name: analytics_model
logical_tables:
  - name: orders
    base_table: CORTEX_DEMO.ANALYTICS.ORDERS
    columns:
      - name: total_amount
        type: NUMBER
metrics:
  - name: revenue
    expr: SUM(total_amount)
`

func TestHandleTurn_DataQuerySuccess(t *testing.T) {
	completions := &fakeCompletions{response: "SELECT region, SUM(total) AS total FROM orders GROUP BY region;"}
	executor := &fakeExecutor{result: &models.ResultSet{
		Columns: []string{"region", "total"},
		Rows:    [][]interface{}{{"EMEA", 1200}, {"APAC", 800}},
	}}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	result, err := o.HandleTurn(context.Background(), sess.ID, "Show me total sales by region")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.QueryTypeDataQuery, result.QueryType)
	assert.Equal(t, "SELECT region, SUM(total) AS total FROM orders GROUP BY region", result.SQL)
	assert.Equal(t, 2, result.Data.RowCount())
	assert.NotEmpty(t, result.Warning, "data query without a semantic model carries a warning")
	require.Len(t, executor.sqls, 1)

	msgs, err := o.History(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
	require.NotNil(t, msgs[1].ResultRows)
	assert.Equal(t, 2, *msgs[1].ResultRows)
	assert.Equal(t, "success", msgs[1].ExecutionStatus)
}

func TestHandleTurn_NoWarningWithActiveModel(t *testing.T) {
	completions := &fakeCompletions{response: "SELECT SUM(total_amount) FROM CORTEX_DEMO.ANALYTICS.ORDERS;"}
	executor := &fakeExecutor{result: &models.ResultSet{Columns: []string{"sum"}, Rows: [][]interface{}{{42}}}}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	model, err := o.ActivateSemanticModel(context.Background(), sess.ID, []byte(currentModelDoc))
	require.NoError(t, err)
	assert.Equal(t, semmodel.ShapeCurrent, model.Shape)
	assert.True(t, sess.HasSemanticModel)

	result, err := o.HandleTurn(context.Background(), sess.ID, "what was revenue")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Empty(t, result.Warning)

	// The SQL-generation prompt embeds the semantic model.
	require.Len(t, completions.prompts, 1)
	assert.Contains(t, completions.prompts[0], "CORTEX_DEMO.ANALYTICS.ORDERS")
	assert.Contains(t, completions.prompts[0], "SUM(total_amount)")
}

func TestHandleTurn_ForbiddenKeyword(t *testing.T) {
	completions := &fakeCompletions{response: "DROP TABLE orders;"}
	executor := &fakeExecutor{}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	result, err := o.HandleTurn(context.Background(), sess.ID, "show me data please")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "DROP")
	assert.Equal(t, "DROP TABLE orders", result.SQL, "rejected SQL stays visible for diagnosis")
	assert.Empty(t, executor.sqls, "rejected SQL must never reach the executor")

	msgs, err := o.History(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "error", msgs[1].ExecutionStatus)
	assert.Equal(t, "DROP TABLE orders", msgs[1].SQLQuery)
}

func TestHandleTurn_ExecutionFailureSurfacedVerbatim(t *testing.T) {
	completions := &fakeCompletions{response: "SELECT * FROM missing_table;"}
	executor := &fakeExecutor{err: errors.New(`relation "missing_table" does not exist`)}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	result, err := o.HandleTurn(context.Background(), sess.ID, "show me missing data")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, "SELECT * FROM missing_table", result.SQL)
	assert.Contains(t, result.Error, `relation "missing_table" does not exist`)
}

func TestHandleTurn_NoSQLInCompletion(t *testing.T) {
	completions := &fakeCompletions{response: "I'm sorry, I can't produce a query for that."}
	executor := &fakeExecutor{}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	result, err := o.HandleTurn(context.Background(), sess.ID, "show me everything")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "failed to generate SQL")
	assert.Empty(t, result.SQL)
	assert.Empty(t, executor.sqls)
}

func TestHandleTurn_GreetingSkipsSQLPipeline(t *testing.T) {
	completions := &fakeCompletions{}
	executor := &fakeExecutor{}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	result, err := o.HandleTurn(context.Background(), sess.ID, "Hello")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, models.QueryTypeGreeting, result.QueryType)
	assert.GreaterOrEqual(t, result.Confidence, 0.8)
	assert.Empty(t, result.SQL)
	assert.NotEmpty(t, result.Response)
	assert.Empty(t, completions.prompts, "greeting with no completion service uses the canned reply")
	assert.Empty(t, executor.sqls)
}

func TestHandleTurn_UnknownSession(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCompletions{}, &fakeExecutor{})

	_, err := o.HandleTurn(context.Background(), "nope", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_NOT_FOUND")
}

func TestActivateSemanticModel_InvalidDocument(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCompletions{}, &fakeExecutor{})
	sess := createSession(t, o)

	_, err := o.ActivateSemanticModel(context.Background(), sess.ID, []byte("entities:\n  - nope\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, semmodel.ErrUnrecognizedShape)
	assert.False(t, sess.HasSemanticModel)
}

func TestClearHistory_Idempotent(t *testing.T) {
	o := newTestOrchestrator(t, &fakeCompletions{}, &fakeExecutor{})
	sess := createSession(t, o)

	_, err := o.HandleTurn(context.Background(), sess.ID, "Hello")
	require.NoError(t, err)

	require.NoError(t, o.ClearHistory(context.Background(), sess.ID))
	require.NoError(t, o.ClearHistory(context.Background(), sess.ID))

	msgs, err := o.History(context.Background(), sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestStats_CountsTurns(t *testing.T) {
	completions := &fakeCompletions{response: "SELECT 1;"}
	executor := &fakeExecutor{result: &models.ResultSet{Columns: []string{"?column?"}, Rows: [][]interface{}{{1}}}}
	o := newTestOrchestrator(t, completions, executor)
	sess := createSession(t, o)

	_, err := o.HandleTurn(context.Background(), sess.ID, "count my orders")
	require.NoError(t, err)

	stats, err := o.Stats(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalMessages)
	assert.Equal(t, int64(1), stats.UserMessages)
	assert.Equal(t, int64(1), stats.SuccessfulQueries)
}
