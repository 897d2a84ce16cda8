package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/utils"
)

// ModelHandler manages tuned model versions and the share of generation
// traffic each one receives.
type ModelHandler struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewModelHandler(db *gorm.DB, logger *zap.Logger) *ModelHandler {
	return &ModelHandler{db: db, logger: logger}
}

type RegisterModelRequest struct {
	VersionName string `json:"version_name"`
	BaseModel   string `json:"base_model"`
}

type UpdateTrafficWeightRequest struct {
	TrafficWeight int `json:"traffic_weight"`
}

// RegisterModel handles POST /models. New versions start inactive.
func (mh *ModelHandler) RegisterModel(w http.ResponseWriter, r *http.Request) {
	var req RegisterModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "invalid request body"})
		return
	}
	req.VersionName = strings.TrimSpace(req.VersionName)
	req.BaseModel = strings.TrimSpace(req.BaseModel)
	if req.VersionName == "" || req.BaseModel == "" {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "version_name and base_model are required"})
		return
	}

	version := models.ModelVersion{VersionName: req.VersionName, BaseModel: req.BaseModel}
	if err := mh.db.WithContext(r.Context()).Create(&version).Error; err != nil {
		mh.logger.Error("Failed to register model", zap.Error(err), zap.String("version", req.VersionName))
		utils.WriteJSON(w, http.StatusConflict, models.Resp{OK: false, Info: "model version already exists"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, models.Resp{OK: true, Info: version})
}

// UpdateTrafficWeight handles PUT /models/{model_id}/traffic. It activates
// the version; the active weights together may not exceed 100.
func (mh *ModelHandler) UpdateTrafficWeight(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	var req UpdateTrafficWeightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "invalid request body"})
		return
	}
	if req.TrafficWeight < 0 || req.TrafficWeight > 100 {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "traffic_weight must be between 0 and 100"})
		return
	}

	db := mh.db.WithContext(r.Context())
	var others int64
	if err := db.Model(&models.ModelVersion{}).
		Where("is_active = ? AND id <> ?", true, modelID).
		Select("COALESCE(SUM(traffic_weight), 0)").
		Scan(&others).Error; err != nil {
		mh.internalError(w, "failed to update traffic weight", err)
		return
	}
	if others+int64(req.TrafficWeight) > 100 {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{
			OK:   false,
			Info: "active traffic weights would exceed 100 (others hold " + strconv.FormatInt(others, 10) + ")",
		})
		return
	}

	result := db.Model(&models.ModelVersion{}).
		Where("id = ?", modelID).
		Updates(map[string]interface{}{
			"is_active":      true,
			"traffic_weight": req.TrafficWeight,
			"activated_at":   time.Now(),
		})
	if result.Error != nil {
		mh.internalError(w, "failed to update traffic weight", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, models.Resp{OK: false, Info: "model not found"})
		return
	}

	mh.logger.Info("Model traffic updated", zap.Uint64("model_id", modelID), zap.Int("traffic_weight", req.TrafficWeight))
	utils.WriteJSON(w, http.StatusOK, models.Resp{OK: true, Info: "traffic weight updated successfully"})
}

// DeactivateModel handles PUT /models/{model_id}/deactivate
func (mh *ModelHandler) DeactivateModel(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	result := mh.db.WithContext(r.Context()).Model(&models.ModelVersion{}).
		Where("id = ?", modelID).
		Updates(map[string]interface{}{
			"is_active":      false,
			"traffic_weight": 0,
			"deactivated_at": time.Now(),
		})
	if result.Error != nil {
		mh.internalError(w, "failed to deactivate model", result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusNotFound, models.Resp{OK: false, Info: "model not found"})
		return
	}

	mh.logger.Info("Model deactivated", zap.Uint64("model_id", modelID))
	utils.WriteJSON(w, http.StatusOK, models.Resp{OK: true, Info: "model deactivated successfully"})
}

// ListModels handles GET /models (?active=true to filter)
func (mh *ModelHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	var versions []models.ModelVersion

	query := mh.db.WithContext(r.Context()).Order("created_at DESC")
	if r.URL.Query().Get("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&versions).Error; err != nil {
		mh.internalError(w, "failed to list models", err)
		return
	}

	utils.WriteJSON(w, http.StatusOK, models.Resp{OK: true, Info: versions})
}

type ModelFeedbackStats struct {
	TotalFeedback    int64   `json:"total_feedback"`
	PositiveFeedback int64   `json:"positive_feedback"`
	NegativeFeedback int64   `json:"negative_feedback"`
	PositiveRate     float64 `json:"positive_rate"`
	FallbackCount    int64   `json:"fallback_count"`
}

// GetModelStats handles GET /models/{model_id}/stats: reviewer feedback on
// questions the version generated.
func (mh *ModelHandler) GetModelStats(w http.ResponseWriter, r *http.Request) {
	modelID, ok := parseModelID(w, r)
	if !ok {
		return
	}

	db := mh.db.WithContext(r.Context())
	var version models.ModelVersion
	if err := db.First(&version, modelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, models.Resp{OK: false, Info: "model not found"})
			return
		}
		mh.internalError(w, "failed to get model", err)
		return
	}

	var stats ModelFeedbackStats
	byModel := func() *gorm.DB {
		return db.Model(&models.QuestionFeedback{}).Where("model = ?", version.VersionName)
	}
	if err := byModel().Count(&stats.TotalFeedback).Error; err != nil {
		mh.internalError(w, "failed to get model stats", err)
		return
	}
	if err := byModel().Where("is_positive = ?", true).Count(&stats.PositiveFeedback).Error; err != nil {
		mh.internalError(w, "failed to get model stats", err)
		return
	}
	if err := byModel().Where("outcome = ?", models.OutcomeFallback).Count(&stats.FallbackCount).Error; err != nil {
		mh.internalError(w, "failed to get model stats", err)
		return
	}

	stats.NegativeFeedback = stats.TotalFeedback - stats.PositiveFeedback
	if stats.TotalFeedback > 0 {
		stats.PositiveRate = float64(stats.PositiveFeedback) / float64(stats.TotalFeedback) * 100
	}

	utils.WriteJSON(w, http.StatusOK, models.Resp{
		OK: true,
		Info: map[string]interface{}{
			"model":    version,
			"feedback": stats,
		},
	})
}

func (mh *ModelHandler) internalError(w http.ResponseWriter, info string, err error) {
	mh.logger.Error(info, zap.Error(err))
	utils.WriteJSON(w, http.StatusInternalServerError, models.Resp{OK: false, Info: info})
}

func parseModelID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "model_id")
	if raw == "" {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "model_id is required"})
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, models.Resp{OK: false, Info: "invalid model_id"})
		return 0, false
	}
	return id, true
}
