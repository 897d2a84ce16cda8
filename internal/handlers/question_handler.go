package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"peerprep/questiongen/internal/extract"
	"peerprep/questiongen/internal/feedback"
	"peerprep/questiongen/internal/metrics"
	"peerprep/questiongen/internal/middleware"
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/prompts"
	"peerprep/questiongen/internal/store"
	"peerprep/questiongen/internal/utils"
)

type QuestionHandler struct {
	extractor        *extract.Extractor
	promptManager    prompts.PromptProvider
	store            store.Store
	feedbackManager  *feedback.FeedbackManager
	logger           *zap.Logger
	batchConcurrency int
}

func NewQuestionHandler(extractor *extract.Extractor, promptManager prompts.PromptProvider, st store.Store, logger *zap.Logger, batchConcurrency int) *QuestionHandler {
	if batchConcurrency <= 0 {
		batchConcurrency = 1
	}
	return &QuestionHandler{
		extractor:        extractor,
		promptManager:    promptManager,
		store:            st,
		logger:           logger,
		batchConcurrency: batchConcurrency,
	}
}

// SetFeedbackManager enables request-context caching for reviewer feedback.
func (h *QuestionHandler) SetFeedbackManager(fm *feedback.FeedbackManager) {
	h.feedbackManager = fm
}

func generateRequestID() string {
	return uuid.New().String()
}

// ensureRequestID generates a request ID if one is not provided
func ensureRequestID(requestID string) string {
	if requestID == "" {
		return generateRequestID()
	}
	return requestID
}

func (h *QuestionHandler) renderPrompt(mode string, req *models.GenerateRequest) (string, error) {
	return h.promptManager.BuildPrompt(mode, req.Difficulty, prompts.PromptData{
		Prompt:     req.Prompt,
		Topic:      utils.NormalizeTopic(req.Topic),
		Difficulty: req.Difficulty,
	})
}

// GenerateChallengeHandler handles POST /challenges/generate. Model output
// never fails the request; a degraded record is still a record.
func (h *QuestionHandler) GenerateChallengeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GenerateRequest](r)

	resp, err := h.generateChallenge(r.Context(), req)
	if err != nil {
		h.logger.Error("Failed to build prompt", zap.Error(err), zap.String("request_id", req.RequestID))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "prompt_error",
			Message: "Failed to build generation prompt",
		})
		return
	}

	utils.JSON(w, savedStatus(resp.ID), resp)
}

// GenerateBatchHandler handles POST /challenges/generate/batch. Items run
// concurrently up to the configured limit; responses keep request order.
func (h *QuestionHandler) GenerateBatchHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.BatchGenerateRequest](r)

	items := make([]models.ChallengeResponse, len(req.Items))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(h.batchConcurrency)
	for i := range req.Items {
		item := &req.Items[i]
		g.Go(func() error {
			resp, err := h.generateChallenge(ctx, item)
			if err != nil {
				return err
			}
			items[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.logger.Error("Batch generation failed", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "prompt_error",
			Message: "Failed to build generation prompt",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.BatchChallengeResponse{Items: items})
}

// generateChallenge only fails when the prompt cannot be rendered.
func (h *QuestionHandler) generateChallenge(ctx context.Context, req *models.GenerateRequest) (models.ChallengeResponse, error) {
	req.RequestID = ensureRequestID(req.RequestID)

	rendered, err := h.renderPrompt(prompts.ModeChallenge, req)
	if err != nil {
		return models.ChallengeResponse{}, err
	}

	start := time.Now()
	res := h.extractor.GenerateChallenge(ctx, req.RequestID, rendered, req.Prompt)
	metrics.ObserveGeneration(models.KindChallenge, time.Since(start))
	metrics.RecordExtraction(models.KindChallenge, res.Outcome())

	resp := models.ChallengeResponse{
		RequestID: req.RequestID,
		Outcome:   res.Outcome(),
		Stage:     string(res.Stage),
		Record:    res.Record,
	}

	saved, err := h.store.SaveChallenge(ctx, res.Record)
	if err != nil {
		h.logger.Error("Failed to persist challenge", zap.Error(err), zap.String("request_id", req.RequestID))
	} else {
		resp.ID = saved.ID
	}

	if res.Raw != "" {
		h.cacheContext(ctx, models.RequestContext{
			RequestID: req.RequestID,
			Kind:      models.KindChallenge,
			RecordID:  resp.ID,
			Prompt:    rendered,
			Response:  res.Raw,
			Outcome:   res.Outcome(),
			Model:     res.Model,
		})
	}

	h.logger.Info("Challenge generated",
		zap.String("request_id", req.RequestID),
		zap.String("outcome", string(resp.Outcome)),
		zap.String("stage", resp.Stage),
		zap.Int("warnings", len(res.Record.Degradation.Warnings)),
	)
	return resp, nil
}

// ExtractChallengeHandler handles POST /challenges/extract: the pipeline on
// supplied text, with no generation and no persistence.
func (h *QuestionHandler) ExtractChallengeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.ExtractChallengeRequest](r)

	res := h.extractor.ExtractChallenge(req.RawText, req.Prompt)
	metrics.RecordExtraction(models.KindChallenge, res.Outcome())

	utils.JSON(w, http.StatusOK, models.ChallengeResponse{
		RequestID: generateRequestID(),
		Outcome:   res.Outcome(),
		Stage:     string(res.Stage),
		Record:    res.Record,
	})
}

// GenerateMCQHandler handles POST /mcq/generate.
func (h *QuestionHandler) GenerateMCQHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GenerateRequest](r)
	req.RequestID = ensureRequestID(req.RequestID)

	rendered, err := h.renderPrompt(prompts.ModeMCQ, req)
	if err != nil {
		h.logger.Error("Failed to build prompt", zap.Error(err), zap.String("request_id", req.RequestID))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "prompt_error",
			Message: "Failed to build generation prompt",
		})
		return
	}

	start := time.Now()
	res, err := h.extractor.GenerateMCQ(r.Context(), req.RequestID, rendered, req.Prompt)
	metrics.ObserveGeneration(models.KindMCQ, time.Since(start))
	if err != nil {
		h.writeMCQError(w, req.RequestID, err)
		return
	}
	metrics.RecordExtraction(models.KindMCQ, models.OutcomeClean)

	resp := models.MCQResponse{RequestID: req.RequestID, Record: res.Record}
	saved, err := h.store.SaveMCQ(r.Context(), res.Record)
	if err != nil {
		h.logger.Error("Failed to persist question", zap.Error(err), zap.String("request_id", req.RequestID))
	} else {
		resp.ID = saved.ID
	}

	h.cacheContext(r.Context(), models.RequestContext{
		RequestID: req.RequestID,
		Kind:      models.KindMCQ,
		RecordID:  resp.ID,
		Prompt:    rendered,
		Response:  res.Raw,
		Outcome:   models.OutcomeClean,
		Model:     res.Model,
	})

	if len(res.Warnings) > 0 {
		h.logger.Warn("Question generated with coerced fields",
			zap.String("request_id", req.RequestID),
			zap.Strings("warnings", res.Warnings),
		)
	}
	utils.JSON(w, savedStatus(resp.ID), resp)
}

// ExtractMCQHandler handles POST /mcq/extract.
func (h *QuestionHandler) ExtractMCQHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.ExtractMCQRequest](r)
	requestID := generateRequestID()

	res, err := h.extractor.ExtractMCQ(req.RawText)
	if err != nil {
		h.writeMCQError(w, requestID, err)
		return
	}
	metrics.RecordExtraction(models.KindMCQ, models.OutcomeClean)

	utils.JSON(w, http.StatusOK, models.MCQResponse{RequestID: requestID, Record: res.Record})
}

// writeMCQError maps refusals to 422 so callers regenerate; anything else is
// a provider failure.
func (h *QuestionHandler) writeMCQError(w http.ResponseWriter, requestID string, err error) {
	if errors.Is(err, extract.ErrRefusal) {
		metrics.RecordRefusal()
		utils.JSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{
			Code:    "regenerate_required",
			Message: err.Error(),
			Details: refusalDetails(err),
		})
		return
	}

	h.logger.Error("AI provider error", zap.Error(err), zap.String("request_id", requestID))
	utils.JSON(w, http.StatusBadGateway, models.ErrorResponse{
		Code:    "ai_error",
		Message: "Failed to generate question",
	})
}

func refusalDetails(err error) []models.ValidationErrorDetail {
	var missing *extract.MissingSectionsError
	var count *extract.WrongOptionCountError
	var correct *extract.InvalidCorrectOptionError
	switch {
	case errors.As(err, &missing):
		details := make([]models.ValidationErrorDetail, 0, len(missing.Sections))
		for _, s := range missing.Sections {
			details = append(details, models.ValidationErrorDetail{Field: s, Reason: "missing"})
		}
		return details
	case errors.As(err, &count):
		return []models.ValidationErrorDetail{{Field: "OPTIONS", Reason: strconv.Itoa(count.Found) + " options found"}}
	case errors.As(err, &correct):
		return []models.ValidationErrorDetail{{Field: "CORRECT", Reason: "not one of A, B, C, D"}}
	}
	return nil
}

// GetChallengeHandler handles GET /challenges/{id}.
func (h *QuestionHandler) GetChallengeHandler(w http.ResponseWriter, r *http.Request) {
	saved, err := h.store.GetChallenge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, saved)
}

// GetMCQHandler handles GET /mcq/{id}.
func (h *QuestionHandler) GetMCQHandler(w http.ResponseWriter, r *http.Request) {
	saved, err := h.store.GetMCQ(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, saved)
}

// ListChallengesHandler handles GET /challenges?difficulty=&limit=.
func (h *QuestionHandler) ListChallengesHandler(w http.ResponseWriter, r *http.Request) {
	var filter store.ListFilter

	if raw := r.URL.Query().Get("difficulty"); raw != "" {
		d, ok := models.ParseDifficulty(raw)
		if !ok {
			utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
				Code:    "invalid_difficulty",
				Message: "Difficulty must be one of: easy, medium, hard",
			})
			return
		}
		filter.Difficulty = d
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			utils.JSON(w, http.StatusBadRequest, models.ErrorResponse{
				Code:    "invalid_limit",
				Message: "limit must be a positive integer",
			})
			return
		}
		filter.Limit = limit
	}

	items, err := h.store.ListChallenges(r.Context(), filter)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, models.ListResponse[models.SavedChallenge]{Total: len(items), Items: items})
}

func (h *QuestionHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		utils.JSON(w, http.StatusNotFound, models.ErrorResponse{Code: "not_found", Message: "record not found"})
		return
	}
	h.logger.Error("Store error", zap.Error(err))
	utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{Code: "store_error", Message: "failed to read records"})
}

func (h *QuestionHandler) cacheContext(ctx context.Context, rc models.RequestContext) {
	if h.feedbackManager == nil {
		return
	}
	rc.Timestamp = time.Now()
	h.feedbackManager.StoreRequestContext(ctx, &rc)
}

// savedStatus is 201 once the store assigned an id, 200 for an unsaved record.
func savedStatus(id string) int {
	if id == "" {
		return http.StatusOK
	}
	return http.StatusCreated
}
