package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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
	"warehouse-chat/internal/orchestrator"
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
		testObs = observability.New("httpapi-test")
	})
	return testObs
}

type fakeCompletions struct {
	response string
}

func (f *fakeCompletions) Complete(ctx context.Context, prompt string) (string, error) {
	return f.response, nil
}

type fakeExecutor struct {
	result *models.ResultSet
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlQuery string) (*models.ResultSet, error) {
	return f.result, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(gormsqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	logStore, err := history.NewStore(db, log)
	require.NoError(t, err)

	orch := orchestrator.New(
		orchestrator.NewSessionManager(),
		semmodel.NewStore(),
		intent.NewClassifier(nil, log),
		prompter.NewAssembler(),
		&fakeCompletions{response: "SELECT region, COUNT(*) FROM orders GROUP BY region;"},
		&fakeExecutor{result: &models.ResultSet{
			Columns: []string{"region", "count"},
			Rows:    [][]interface{}{{"EMEA", 7}},
		}},
		nil,
		respond.NewGenerator(nil, log),
		logStore,
		websearch.NewClient("", "", time.Second, log),
		sharedObs(),
		log,
		orchestrator.Options{QueryTimeout: 5 * time.Second, HistoryLimit: 50},
	)

	return NewRouter(orch, log)
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func createTestSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, resp := doJSON(t, router, http.MethodPost, "/sessions", `{"database":"CORTEX_DEMO","schema":"ANALYTICS"}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	return data["session_id"].(string)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, resp["success"])
}

func TestCreateSession(t *testing.T) {
	router := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/sessions", `{"database":"CORTEX_DEMO","schema":"ANALYTICS"}`)
	require.Equal(t, http.StatusOK, w.Code)

	data := resp["data"].(map[string]interface{})
	assert.NotEmpty(t, data["session_id"])
	assert.Equal(t, "CORTEX_DEMO", data["database"])
}

func TestAsk_DataQuery(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/sessions/"+sessionID+"/ask", `{"question":"show me orders by region"}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "data_query", resp["query_type"])
	assert.Equal(t, "SELECT region, COUNT(*) FROM orders GROUP BY region", resp["sql"])
	assert.NotEmpty(t, resp["warning"])
}

func TestAsk_MissingQuestion(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	w, resp := doJSON(t, router, http.MethodPost, "/sessions/"+sessionID+"/ask", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestAsk_UnknownSession(t *testing.T) {
	router := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodPost, "/sessions/none/ask", `{"question":"hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])
}

func TestHistoryAndClear(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/sessions/"+sessionID+"/ask", `{"question":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodGet, "/sessions/"+sessionID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["count"])

	w, _ = doJSON(t, router, http.MethodDelete, "/sessions/"+sessionID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = doJSON(t, router, http.MethodGet, "/sessions/"+sessionID+"/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	data = resp["data"].(map[string]interface{})
	assert.Equal(t, float64(0), data["count"])
}

func TestHistory_BadLimit(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	w, _ := doJSON(t, router, http.MethodGet, "/sessions/"+sessionID+"/history?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStats(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	w, _ := doJSON(t, router, http.MethodPost, "/sessions/"+sessionID+"/ask", `{"question":"show me orders"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodGet, "/sessions/"+sessionID+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["total_messages"])
	assert.Equal(t, float64(1), data["user_messages"])
}

func TestUploadSemanticModel(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	doc := "logical_tables:\n  - name: orders\n    base_table: CORTEX_DEMO.ANALYTICS.ORDERS\n"
	req := httptest.NewRequest(http.MethodPut, "/sessions/"+sessionID+"/semantic-model", strings.NewReader(doc))
	req.Header.Set("Content-Type", "application/x-yaml")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "current", data["shape"])
	assert.Equal(t, "custom", data["version"])

	// A data query after upload no longer carries the missing-model warning.
	w2, askResp := doJSON(t, router, http.MethodPost, "/sessions/"+sessionID+"/ask", `{"question":"show me orders"}`)
	require.Equal(t, http.StatusOK, w2.Code)
	_, hasWarning := askResp["warning"]
	assert.False(t, hasWarning)
}

func TestUploadSemanticModel_BadShape(t *testing.T) {
	router := newTestRouter(t)
	sessionID := createTestSession(t, router)

	req := httptest.NewRequest(http.MethodPut, "/sessions/"+sessionID+"/semantic-model", strings.NewReader("entities:\n  - nope\n"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_")
}

func TestUnknownRoute(t *testing.T) {
	router := newTestRouter(t)

	w, resp := doJSON(t, router, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])
}
