package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerprep/questiongen/internal/models"
)

// FeedbackManager handles reviewer feedback storage and export
type FeedbackManager struct {
	db       *gorm.DB
	contexts ContextStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewFeedbackManager creates a new feedback manager
func NewFeedbackManager(db *gorm.DB, contexts ContextStore, logger *zap.Logger) *FeedbackManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackManager{
		db:       db,
		contexts: contexts,
		logger:   logger,
		now:      time.Now,
	}
}

// StoreRequestContext caches a generation for later feedback. Failures are
// logged and swallowed; losing a context only loses the chance to rate it.
func (fm *FeedbackManager) StoreRequestContext(ctx context.Context, rc *models.RequestContext) {
	if err := fm.contexts.Set(ctx, rc); err != nil {
		fm.logger.Warn("failed to cache request context", zap.String("request_id", rc.RequestID), zap.Error(err))
		return
	}
	fm.logger.Debug("stored request context",
		zap.String("request_id", rc.RequestID),
		zap.String("kind", string(rc.Kind)),
	)
}

// SubmitFeedback stores reviewer feedback for a request. It returns an error
// wrapping ErrContextNotFound when the request is unknown or expired.
func (fm *FeedbackManager) SubmitFeedback(ctx context.Context, requestID string, isPositive bool) error {
	rc, err := fm.contexts.Get(ctx, requestID)
	if err != nil {
		return fmt.Errorf("request %s: %w", requestID, err)
	}

	fb := &models.QuestionFeedback{
		RequestID:  requestID,
		Kind:       rc.Kind,
		RecordID:   rc.RecordID,
		Prompt:     rc.Prompt,
		Response:   rc.Response,
		Outcome:    rc.Outcome,
		ModelName:  rc.Model,
		IsPositive: isPositive,
		FeedbackAt: fm.now(),
	}
	if err := fm.db.WithContext(ctx).Create(fb).Error; err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	if err := fm.contexts.Delete(ctx, requestID); err != nil {
		fm.logger.Warn("failed to evict request context", zap.String("request_id", requestID), zap.Error(err))
	}

	fm.logger.Info("stored feedback",
		zap.String("request_id", requestID),
		zap.Bool("positive", isPositive),
		zap.String("kind", string(rc.Kind)),
		zap.String("outcome", string(rc.Outcome)),
	)
	return nil
}

// GetUnexportedFeedback retrieves feedback that hasn't been exported yet, oldest first
func (fm *FeedbackManager) GetUnexportedFeedback(limit int) ([]models.QuestionFeedback, error) {
	var feedback []models.QuestionFeedback

	query := fm.db.Where("exported = ?", false).Order("feedback_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to get unexported feedback: %w", err)
	}
	return feedback, nil
}

// GetFeedbackSince retrieves feedback since a specific time
func (fm *FeedbackManager) GetFeedbackSince(since time.Time, limit int) ([]models.QuestionFeedback, error) {
	var feedback []models.QuestionFeedback

	query := fm.db.Where("feedback_at >= ?", since).Order("feedback_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to get feedback since %v: %w", since, err)
	}
	return feedback, nil
}

// MarkAsExported marks feedback records as exported
func (fm *FeedbackManager) MarkAsExported(feedbackIDs []uint) error {
	if len(feedbackIDs) == 0 {
		return nil
	}
	result := fm.db.Model(&models.QuestionFeedback{}).
		Where("id IN ?", feedbackIDs).
		Updates(map[string]interface{}{
			"exported":    true,
			"exported_at": fm.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark feedback as exported: %w", result.Error)
	}

	fm.logger.Info("marked feedback as exported", zap.Int64("rows", result.RowsAffected))
	return nil
}

// ExportToJSONL writes positive feedback as prompt/response training pairs.
// Fallback records are skipped: their text came from the synthesizer, not the model.
func (fm *FeedbackManager) ExportToJSONL(feedback []models.QuestionFeedback) ([]byte, error) {
	var buf bytes.Buffer
	exported := 0

	for _, fb := range feedback {
		if !fb.IsPositive || fb.Outcome == models.OutcomeFallback {
			continue
		}

		dataPoint := models.TrainingDataPoint{
			Contents: []models.TrainingContent{
				{Role: "user", Parts: []models.TrainingPart{{Text: fb.Prompt}}},
				{Role: "model", Parts: []models.TrainingPart{{Text: fb.Response}}},
			},
		}
		line, err := json.Marshal(dataPoint)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal training data: %w", err)
		}

		if exported > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
		exported++
	}

	fm.logger.Info("exported feedback to JSONL",
		zap.Int("examples", exported),
		zap.Int("records", len(feedback)),
	)
	return buf.Bytes(), nil
}

// GetFeedbackStats returns statistics about stored feedback
func (fm *FeedbackManager) GetFeedbackStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	db := fm.db.WithContext(ctx).Model(&models.QuestionFeedback{})

	var totalCount int64
	if err := db.Session(&gorm.Session{}).Count(&totalCount).Error; err != nil {
		return nil, err
	}
	stats["total_count"] = totalCount

	var positiveCount int64
	if err := db.Session(&gorm.Session{}).Where("is_positive = ?", true).Count(&positiveCount).Error; err != nil {
		return nil, err
	}
	stats["positive_count"] = positiveCount

	var unexportedCount int64
	if err := db.Session(&gorm.Session{}).Where("exported = ?", false).Count(&unexportedCount).Error; err != nil {
		return nil, err
	}
	stats["unexported_count"] = unexportedCount

	var rows []struct {
		Outcome models.Outcome
		Count   int64
	}
	if err := db.Session(&gorm.Session{}).Select("outcome, count(*) as count").Group("outcome").Scan(&rows).Error; err != nil {
		return nil, err
	}
	byOutcome := make(map[string]int64, len(rows))
	for _, r := range rows {
		byOutcome[string(r.Outcome)] = r.Count
	}
	stats["by_outcome"] = byOutcome

	stats["cached_contexts"] = fm.contexts.Size(ctx)

	return stats, nil
}
