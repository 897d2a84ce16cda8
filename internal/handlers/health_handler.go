package handlers

import (
	"context"
	"net/http"
	"time"

	"peerprep/questiongen/internal/config"
	"peerprep/questiongen/internal/llm"
	"peerprep/questiongen/internal/prompts"
	"peerprep/questiongen/internal/utils"
)

const serviceName = "questiongen"

type ReadinessCheck struct {
	Status  string `json:"status"` // "ok" | "failed"
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Status  string                    `json:"status"` // "ready" | "not_ready"
	Service string                    `json:"service"`
	Checks  map[string]ReadinessCheck `json:"checks"`
}

// Pinger is the slice of a store the readiness probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	provider      llm.Provider
	promptManager prompts.PromptProvider
	store         Pinger
	config        *config.Config
}

func NewHealthHandler(provider llm.Provider, promptManager prompts.PromptProvider, st Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		provider:      provider,
		promptManager: promptManager,
		store:         st,
		config:        cfg,
	}
}

func (handler *HealthHandler) HealthzHandler(writer http.ResponseWriter, request *http.Request) {
	utils.JSON(writer, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
		"version": "1.0.0",
	})
}

func (handler *HealthHandler) ReadyzHandler(writer http.ResponseWriter, request *http.Request) {
	checks := map[string]ReadinessCheck{
		"provider":       handler.checkProvider(),
		"prompt_manager": handler.checkPrompts(),
		"store":          handler.checkStore(request.Context()),
		"configuration":  handler.checkConfig(),
	}

	response := ReadinessResponse{Status: "ready", Service: serviceName, Checks: checks}
	for _, c := range checks {
		if c.Status != "ok" {
			response.Status = "not_ready"
			utils.JSON(writer, http.StatusServiceUnavailable, response)
			return
		}
	}
	utils.JSON(writer, http.StatusOK, response)
}

func (handler *HealthHandler) checkProvider() ReadinessCheck {
	if handler.provider == nil {
		return ReadinessCheck{Status: "failed", Message: "AI provider not initialized"}
	}
	return ReadinessCheck{Status: "ok"}
}

func (handler *HealthHandler) checkPrompts() ReadinessCheck {
	if handler.promptManager == nil {
		return ReadinessCheck{Status: "failed", Message: "Prompt manager not initialized"}
	}
	if len(handler.promptManager.GetTemplates()) == 0 {
		return ReadinessCheck{Status: "failed", Message: "No prompt templates loaded"}
	}
	return ReadinessCheck{Status: "ok"}
}

func (handler *HealthHandler) checkStore(ctx context.Context) ReadinessCheck {
	if handler.store == nil {
		return ReadinessCheck{Status: "failed", Message: "Store not initialized"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := handler.store.Ping(ctx); err != nil {
		return ReadinessCheck{Status: "failed", Message: err.Error()}
	}
	return ReadinessCheck{Status: "ok"}
}

func (handler *HealthHandler) checkConfig() ReadinessCheck {
	if handler.config == nil {
		return ReadinessCheck{Status: "failed", Message: "Configuration not loaded"}
	}
	return ReadinessCheck{Status: "ok"}
}
