package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"peerprep/questiongen/internal/config"
	"peerprep/questiongen/internal/extract"
	"peerprep/questiongen/internal/feedback"
	"peerprep/questiongen/internal/handlers"
	"peerprep/questiongen/internal/llm"
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/prompts"
	"peerprep/questiongen/internal/store"
)

type fakeProvider struct{}

func (fakeProvider) GenerateContent(context.Context, string, string) (*models.GenerationResponse, error) {
	return &models.GenerationResponse{}, nil
}
func (fakeProvider) GetProviderName() string { return "fake" }

type fakePrompt struct{}

func (fakePrompt) BuildPrompt(string, string, interface{}) (string, error) { return "prompt", nil }
func (fakePrompt) GetTemplates() []string                                 { return []string{"challenge/medium"} }

var (
	_ llm.Provider           = (*fakeProvider)(nil)
	_ prompts.PromptProvider = (*fakePrompt)(nil)
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Provider:          "gemini",
		StoreDriver:       "sqlite",
		DatabaseDSN:       fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano()),
		GenerationTimeout: time.Second,
		BatchConcurrency:  2,
		FeedbackCacheTTL:  time.Minute,
		AllowedOrigins:    []string{"http://localhost:5173"},
		JWTSecret:         "secret",
	}
}

func buildRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	db, err := store.OpenGorm(cfg.GormDriver(), cfg.DatabaseDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.QuestionFeedback{}, &models.ModelVersion{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, closeStore, err := openStore(context.Background(), cfg, db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = closeStore(context.Background()) })

	logger := zap.NewNop()
	cache := feedback.NewContextCache(time.Minute)
	t.Cleanup(cache.Close)
	fm := feedback.NewFeedbackManager(db, cache, logger)

	qh := handlers.NewQuestionHandler(extract.NewExtractor(fakeProvider{}, logger, 0), fakePrompt{}, st, logger, cfg.BatchConcurrency)
	qh.SetFeedbackManager(fm)

	router := newRouter(cfg)
	registerRoutes(router, cfg,
		qh,
		handlers.NewFeedbackHandler(fm, logger),
		handlers.NewModelHandler(db, logger),
		handlers.NewHealthHandler(fakeProvider{}, fakePrompt{}, st, cfg),
	)
	return router
}

func TestRegisterRoutes(t *testing.T) {
	router := buildRouter(t, testConfig(t))

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/api/v1/questions/challenges"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected %s to be registered, got %d", path, rec.Code)
		}
	}
}

func TestRegisterRoutesWithAuth(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuthEnabled = true
	router := buildRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions/challenges", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health checks must stay public, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := buildRouter(t, testConfig(t))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/questions/challenges/generate", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin header, got %q", got)
	}
}

func TestOpenContextStore(t *testing.T) {
	cfg := testConfig(t)

	cs, closeFn := openContextStore(context.Background(), cfg, zap.NewNop())
	if _, ok := cs.(*feedback.ContextCache); !ok {
		t.Fatalf("expected in-memory cache without redis, got %T", cs)
	}
	closeFn()

	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	cs, closeFn = openContextStore(context.Background(), cfg, zap.NewNop())
	defer closeFn()
	if _, ok := cs.(*feedback.RedisContextCache); !ok {
		t.Fatalf("expected redis cache, got %T", cs)
	}
}

func TestOpenContextStoreRedisDown(t *testing.T) {
	cfg := testConfig(t)
	mr := miniredis.RunT(t)
	cfg.RedisAddr = mr.Addr()
	mr.Close()

	cs, closeFn := openContextStore(context.Background(), cfg, zap.NewNop())
	defer closeFn()
	if _, ok := cs.(*feedback.ContextCache); !ok {
		t.Fatalf("expected fallback to in-memory cache, got %T", cs)
	}
}
