package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"warehouse-chat/internal/common/logger"
	"warehouse-chat/internal/models"
)

var (
	ErrHistoryWrite    = errors.New("HISTORY_WRITE_FAILED")
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrMissingRowCount = errors.New("HISTORY_WRITE_FAILED: successful SQL message requires a row count")
)

// Store is the session-scoped conversation log. Writes are serialized by a
// mutex so concurrent sessions sharing the store never interleave
// message-plus-touch sequences; reads go straight to the database.
type Store struct {
	db     *gorm.DB
	logger logger.Logger
	mu     sync.Mutex
}

func NewStore(db *gorm.DB, log logger.Logger) (*Store, error) {
	if err := db.AutoMigrate(&ChatSession{}, &ChatMessage{}, &QueryPerformance{}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	return &Store{db: db, logger: log}, nil
}

// CreateSession inserts a session row, replacing any existing row with the
// same identifier.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	row := ChatSession{
		SessionID:         sess.ID,
		UserID:            sess.UserID,
		Account:           sess.Account,
		DatabaseName:      sess.Database,
		SchemaName:        sess.Schema,
		SemanticModelUsed: sess.HasSemanticModel,
		CreatedAt:         now,
		LastActivity:      now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	return nil
}

// AddMessage appends a message and touches the session's last-activity
// timestamp. A successful assistant message carrying SQL must record how
// many rows came back.
func (s *Store) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.ExecutionStatus == models.StatusSuccess && msg.SQLQuery != "" {
		if msg.ResultRows == nil || *msg.ResultRows < 0 {
			return ErrMissingRowCount
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	row := ChatMessage{
		SessionID:            msg.SessionID,
		Role:                 string(msg.Role),
		Content:              msg.Content,
		SQLQuery:             msg.SQLQuery,
		ExecutionStatus:      string(msg.ExecutionStatus),
		ResultRows:           msg.ResultRows,
		SemanticModelVersion: msg.SemanticModelVersion,
		Timestamp:            ts,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}

	err := s.db.WithContext(ctx).Model(&ChatSession{}).
		Where("session_id = ?", msg.SessionID).
		Update("last_activity", time.Now()).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	return nil
}

// GetHistory returns the most recent messages of a session in chronological
// order, oldest first.
func (s *Store) GetHistory(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	var msgs []ChatMessage
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}

	// Newest-first query plus reversal keeps the limit on recent messages
	// while returning chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// SetSemanticModelStatus flips the semantic-model flag on the session row.
func (s *Store) SetSemanticModelStatus(ctx context.Context, sessionID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.WithContext(ctx).Model(&ChatSession{}).
		Where("session_id = ?", sessionID).
		Update("semantic_model_used", active).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	return nil
}

// LogPerformance appends one query-performance record. Failures are logged
// but never surfaced: performance tracking must not break a turn.
func (s *Store) LogPerformance(ctx context.Context, rec *QueryPerformance) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		s.logger.Warn("Failed to log query performance", map[string]interface{}{
			"session_id": rec.SessionID,
			"error":      err.Error(),
		})
	}
}

// GetStats aggregates message counts for a session.
func (s *Store) GetStats(ctx context.Context, sessionID string) (*SessionStats, error) {
	var sess ChatSession
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&sess).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}

	stats := &SessionStats{
		SemanticModelUsed: sess.SemanticModelUsed,
		CreatedAt:         sess.CreatedAt,
		LastActivity:      sess.LastActivity,
	}

	base := s.db.WithContext(ctx).Model(&ChatMessage{}).Where("session_id = ?", sessionID)
	if err := base.Count(&stats.TotalMessages).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	err = s.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("session_id = ? AND role = ?", sessionID, string(models.RoleUser)).
		Count(&stats.UserMessages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	err = s.db.WithContext(ctx).Model(&ChatMessage{}).
		Where("session_id = ? AND execution_status = ?", sessionID, string(models.StatusSuccess)).
		Count(&stats.SuccessfulQueries).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}

	return stats, nil
}

// Clear removes all messages and performance records for a session. The
// session row itself survives. Clearing an already-empty session is a
// no-op.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&ChatMessage{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	if err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&QueryPerformance{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryWrite, err)
	}
	return nil
}
