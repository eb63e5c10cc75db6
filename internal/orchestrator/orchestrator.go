package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	commonerrors "warehouse-chat/internal/common/errors"
	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/common/metrics"
	"warehouse-chat/internal/common/observability"
	"warehouse-chat/internal/completion"
	"warehouse-chat/internal/history"
	"warehouse-chat/internal/intent"
	"warehouse-chat/internal/models"
	"warehouse-chat/internal/prompter"
	"warehouse-chat/internal/respond"
	"warehouse-chat/internal/semmodel"
	"warehouse-chat/internal/sqlguard"
	"warehouse-chat/internal/warehouse"
	"warehouse-chat/internal/websearch"
)

const missingModelWarning = "No semantic model is active; data query accuracy may be reduced. Upload a semantic model for better results."

// TurnResult is the uniform outcome of one user turn. Failure paths still
// carry whatever partial artifact exists, e.g. SQL that was generated but
// rejected or failed downstream, so the log and UI can display it.
type TurnResult struct {
	Success        bool              `json:"success"`
	QueryType      models.QueryType  `json:"query_type"`
	Confidence     float64           `json:"confidence"`
	SQL            string            `json:"sql,omitempty"`
	Data           *models.ResultSet `json:"data,omitempty"`
	Response       string            `json:"response,omitempty"`
	Error          string            `json:"error,omitempty"`
	Warning        string            `json:"warning,omitempty"`
	ExecutionTime  time.Duration     `json:"-"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
}

// Orchestrator drives the per-turn pipeline: classify, then either the SQL
// path (prompt, complete, extract, validate, execute) or the conversational
// path. Each turn is synchronous; no component lets an error escape as a
// panic or unhandled failure.
type Orchestrator struct {
	sessions    *SessionManager
	semModels   *semmodel.Store
	classifier  *intent.Classifier
	assembler   *prompter.Assembler
	completions completion.Service
	executor    warehouse.Executor
	schemas     warehouse.SchemaProvider
	responder   *respond.Generator
	log         *history.Store
	search      *websearch.Client
	obs         *observability.Observability
	logger      logger.Logger

	queryTimeout time.Duration
	historyLimit int
}

type Options struct {
	QueryTimeout time.Duration
	HistoryLimit int
}

func New(
	sessions *SessionManager,
	semModels *semmodel.Store,
	classifier *intent.Classifier,
	assembler *prompter.Assembler,
	completions completion.Service,
	executor warehouse.Executor,
	schemas warehouse.SchemaProvider,
	responder *respond.Generator,
	log *history.Store,
	search *websearch.Client,
	obs *observability.Observability,
	lg logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	return &Orchestrator{
		sessions:     sessions,
		semModels:    semModels,
		classifier:   classifier,
		assembler:    assembler,
		completions:  completions,
		executor:     executor,
		schemas:      schemas,
		responder:    responder,
		log:          log,
		search:       search,
		obs:          obs,
		logger:       lg,
		queryTimeout: opts.QueryTimeout,
		historyLimit: opts.HistoryLimit,
	}
}

// CreateSession registers a session and mirrors it into the conversation
// log.
func (o *Orchestrator) CreateSession(ctx context.Context, userID, account, database, schema string) (*models.Session, error) {
	sess := o.sessions.Create("", userID, account, database, schema)
	if err := o.log.CreateSession(ctx, sess); err != nil {
		return nil, err
	}
	o.logger.Info("Session created", map[string]interface{}{
		"session_id": sess.ID,
		"database":   sess.Database,
		"schema":     sess.Schema,
	})
	return sess, nil
}

// ActivateSemanticModel loads a semantic-model document and makes it the
// session's active model, replacing any previous one.
func (o *Orchestrator) ActivateSemanticModel(ctx context.Context, sessionID string, document []byte) (*semmodel.Model, error) {
	sess := o.sessions.Get(sessionID)
	if sess == nil {
		return nil, commonerrors.NewSessionNotFoundError(sessionID)
	}

	model, err := semmodel.Load(document)
	if err != nil {
		return nil, err
	}

	o.semModels.Set(sessionID, model)
	sess.HasSemanticModel = true
	sess.SemanticModelVersion = model.Version

	if err := o.log.SetSemanticModelStatus(ctx, sessionID, true); err != nil {
		o.logger.Warn("Failed to persist semantic model status", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	o.logger.Info("Semantic model activated", map[string]interface{}{
		"session_id": sessionID,
		"shape":      string(model.Shape),
		"name":       model.Name,
	})
	return model, nil
}

// HandleTurn processes one user question synchronously and returns the
// uniform turn result.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, question string) (*TurnResult, error) {
	sess := o.sessions.Get(sessionID)
	if sess == nil {
		return nil, commonerrors.NewSessionNotFoundError(sessionID)
	}

	start := time.Now()

	if err := o.log.AddMessage(ctx, &models.Message{
		SessionID: sessionID,
		Role:      models.RoleUser,
		Content:   question,
		Timestamp: time.Now(),
	}); err != nil {
		o.logger.Warn("Failed to log user message", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}

	model := o.semModels.Get(sessionID)
	hasModel := model != nil

	classification := o.classifier.Classify(ctx, question, hasModel)

	var result *TurnResult
	if classification.RequiresSQL || classification.Type == models.QueryTypeDataQuery {
		result = o.handleDataQuery(ctx, sess, question, classification, model)
	} else {
		result = o.handleConversational(ctx, sess, question, classification, hasModel)
	}

	result.QueryType = classification.Type
	result.Confidence = classification.Confidence
	result.ExecutionTime = time.Since(start)
	result.ExecutionTimeMs = result.ExecutionTime.Milliseconds()

	sess.Touch()
	sess.QueryCount++

	metrics.ChatTurnsTotal.WithLabelValues(string(classification.Type)).Inc()
	status := "success"
	if !result.Success {
		status = "error"
	}
	o.obs.RecordTurnProcessed(ctx, status)
	o.obs.RecordTurnDuration(ctx, result.ExecutionTime, status)

	return result, nil
}

func (o *Orchestrator) handleDataQuery(ctx context.Context, sess *models.Session, question string, classification models.Classification, model *semmodel.Model) *TurnResult {
	result := &TurnResult{}

	if model == nil {
		result.Warning = missingModelWarning
		o.logger.Warn("Data query without semantic model", map[string]interface{}{
			"session_id": sess.ID,
		})
	}

	var schemaCtx *warehouse.SchemaContext
	if model == nil && o.schemas != nil {
		discovered, err := o.schemas.DiscoverSchema(ctx)
		if err != nil {
			o.logger.Warn("Schema discovery failed, proceeding without schema context", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		} else {
			schemaCtx = discovered
		}
	}

	prompt := o.assembler.BuildSQLPrompt(question, model, schemaCtx, sess.Database, sess.Schema)

	raw, err := o.completions.Complete(ctx, prompt)
	if err != nil {
		result.Error = fmt.Sprintf("SQL generation failed: %v", err)
		o.recordFailure(ctx, sess, question, result, string(commonerrors.ErrCodeSQLGenerationFailed), model != nil)
		return result
	}

	sqlQuery := sqlguard.Extract(raw)
	if sqlQuery == "" {
		result.Error = "failed to generate SQL: no SQL statement found in completion response"
		o.recordFailure(ctx, sess, question, result, string(commonerrors.ErrCodeSQLGenerationFailed), model != nil)
		return result
	}
	result.SQL = sqlQuery

	if verdict := sqlguard.Validate(sqlQuery); !verdict.Allowed {
		result.Error = verdict.Message
		o.recordFailure(ctx, sess, question, result, string(commonerrors.ErrCodeForbiddenKeyword), model != nil)
		return result
	}

	execCtx, cancel := context.WithTimeout(ctx, o.queryTimeout)
	defer cancel()

	execStart := time.Now()
	data, err := o.executor.Execute(execCtx, sqlQuery)
	execDuration := time.Since(execStart)

	if err != nil {
		metrics.QueryDuration.WithLabelValues("error").Observe(execDuration.Seconds())
		result.Error = err.Error()
		o.recordFailure(ctx, sess, question, result, string(commonerrors.ErrCodeQueryExecutionFailed), model != nil)
		return result
	}

	metrics.QueryDuration.WithLabelValues("success").Observe(execDuration.Seconds())
	metrics.QueryRowsReturned.Observe(float64(data.RowCount()))

	result.Success = true
	result.Data = data
	result.Response = fmt.Sprintf("Query executed successfully, %d rows returned.", data.RowCount())

	rows := data.RowCount()
	version := ""
	if model != nil {
		version = model.Version
	}
	if err := o.log.AddMessage(ctx, &models.Message{
		SessionID:            sess.ID,
		Role:                 models.RoleAssistant,
		Content:              result.Response,
		SQLQuery:             sqlQuery,
		ExecutionStatus:      models.StatusSuccess,
		ResultRows:           &rows,
		SemanticModelVersion: version,
		Timestamp:            time.Now(),
	}); err != nil {
		o.logger.Warn("Failed to log assistant message", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}

	o.log.LogPerformance(ctx, &history.QueryPerformance{
		SessionID:        sess.ID,
		Question:         question,
		SQLQuery:         sqlQuery,
		ExecutionTimeMs:  execDuration.Milliseconds(),
		RowsReturned:     rows,
		HasSemanticModel: model != nil,
		Success:          true,
	})

	return result
}

func (o *Orchestrator) handleConversational(ctx context.Context, sess *models.Session, question string, classification models.Classification, hasModel bool) *TurnResult {
	sessCtx := respond.SessionContext{
		HasSemanticModel: hasModel,
		QueryCount:       sess.QueryCount,
	}

	if classification.Type == models.QueryTypeGeneralQuestion && o.search.IsAvailable() {
		if results, err := o.search.Search(ctx, question, 5); err != nil {
			o.logger.Warn("Web search enrichment failed", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		} else {
			sessCtx.WebSearchContext = websearch.ContextForLLM(results)
		}
	}

	reply := o.responder.Generate(ctx, question, classification, sessCtx)

	result := &TurnResult{
		Success:  true,
		Response: reply.Text,
	}

	if err := o.log.AddMessage(ctx, &models.Message{
		SessionID: sess.ID,
		Role:      models.RoleAssistant,
		Content:   reply.Text,
		Timestamp: time.Now(),
	}); err != nil {
		o.logger.Warn("Failed to log assistant message", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}

	return result
}

// recordFailure logs the failed turn, keeping the partial SQL artifact in
// the message so it remains visible for diagnosis.
func (o *Orchestrator) recordFailure(ctx context.Context, sess *models.Session, question string, result *TurnResult, errorCode string, hasModel bool) {
	metrics.ChatTurnsFailed.WithLabelValues(errorCode).Inc()

	content := result.Error
	if result.SQL != "" {
		content = fmt.Sprintf("%s\nAttempted SQL:\n%s", result.Error, result.SQL)
	}

	if err := o.log.AddMessage(ctx, &models.Message{
		SessionID:       sess.ID,
		Role:            models.RoleAssistant,
		Content:         content,
		SQLQuery:        result.SQL,
		ExecutionStatus: models.StatusError,
		Timestamp:       time.Now(),
	}); err != nil {
		o.logger.Warn("Failed to log assistant message", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}

	o.log.LogPerformance(ctx, &history.QueryPerformance{
		SessionID:        sess.ID,
		Question:         question,
		SQLQuery:         result.SQL,
		HasSemanticModel: hasModel,
		Success:          false,
	})

	o.logger.Error("Turn failed", map[string]interface{}{
		"session_id": sess.ID,
		"error_code": errorCode,
		"error":      strings.TrimSpace(result.Error),
	})
}

// History returns the session's recent messages in chronological order.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]history.ChatMessage, error) {
	if o.sessions.Get(sessionID) == nil {
		return nil, commonerrors.NewSessionNotFoundError(sessionID)
	}
	if limit <= 0 {
		limit = o.historyLimit
	}
	return o.log.GetHistory(ctx, sessionID, limit)
}

// Stats aggregates the session's log counters.
func (o *Orchestrator) Stats(ctx context.Context, sessionID string) (*history.SessionStats, error) {
	if o.sessions.Get(sessionID) == nil {
		return nil, commonerrors.NewSessionNotFoundError(sessionID)
	}
	return o.log.GetStats(ctx, sessionID)
}

// ClearHistory wipes the session's messages and performance records. The
// session itself stays live.
func (o *Orchestrator) ClearHistory(ctx context.Context, sessionID string) error {
	if o.sessions.Get(sessionID) == nil {
		return commonerrors.NewSessionNotFoundError(sessionID)
	}
	return o.log.Clear(ctx, sessionID)
}

// Session exposes a live session for the HTTP layer.
func (o *Orchestrator) Session(sessionID string) *models.Session {
	return o.sessions.Get(sessionID)
}
