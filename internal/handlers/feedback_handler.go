package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"peerprep/questiongen/internal/feedback"
	"peerprep/questiongen/internal/middleware"
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/utils"
)

type FeedbackHandler struct {
	feedbackManager *feedback.FeedbackManager
	logger          *zap.Logger
}

func NewFeedbackHandler(feedbackManager *feedback.FeedbackManager, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackManager: feedbackManager,
		logger:          logger,
	}
}

// SubmitFeedback handles POST /feedback/{request_id}
func (fh *FeedbackHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")
	if requestID == "" {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{
			OK:   false,
			Info: "request_id is required",
		})
		return
	}

	req := middleware.GetValidatedRequest[*models.FeedbackRequest](r)

	if err := fh.feedbackManager.SubmitFeedback(r.Context(), requestID, *req.IsPositive); err != nil {
		if errors.Is(err, feedback.ErrContextNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, models.Resp{
				OK:   false,
				Info: "request not found or feedback window expired",
			})
			return
		}
		fh.logger.Error("Failed to submit feedback", zap.Error(err), zap.String("request_id", requestID))
		utils.WriteJSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to submit feedback",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.Resp{
		OK:   true,
		Info: "feedback submitted successfully",
	})
}

// ExportFeedback handles GET /feedback/export
// Query params:
// - days: number of days to look back (default: 7)
// - limit: maximum number of records (optional)
// - format: "jsonl" (default) or "json"
func (fh *FeedbackHandler) ExportFeedback(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	limit := 0
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "jsonl"
	}

	since := time.Now().AddDate(0, 0, -days)
	records, err := fh.feedbackManager.GetFeedbackSince(since, limit)
	if err != nil {
		fh.logger.Error("Failed to get feedback", zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to export feedback",
		})
		return
	}

	if format != "jsonl" {
		utils.WriteJSON(w, http.StatusOK, models.Resp{
			OK:   true,
			Info: records,
		})
		return
	}

	data, err := fh.feedbackManager.ExportToJSONL(records)
	if err != nil {
		fh.logger.Error("Failed to export to JSONL", zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to export to JSONL",
		})
		return
	}

	w.Header().Set("Content-Type", "application/jsonl")
	w.Header().Set("Content-Disposition", "attachment; filename=feedback_export.jsonl")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetFeedbackStats handles GET /feedback/stats
func (fh *FeedbackHandler) GetFeedbackStats(w http.ResponseWriter, r *http.Request) {
	stats, err := fh.feedbackManager.GetFeedbackStats(r.Context())
	if err != nil {
		fh.logger.Error("Failed to get feedback stats", zap.Error(err))
		utils.WriteJSON(w, http.StatusInternalServerError, models.Resp{
			OK:   false,
			Info: "failed to get feedback stats",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.Resp{
		OK:   true,
		Info: stats,
	})
}
