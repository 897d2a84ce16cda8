package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/store"
)

type mockProvider struct {
	generateContentFn func(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error)
	getProviderNameFn func() string
}

func (m *mockProvider) GenerateContent(ctx context.Context, prompt string, requestID string) (*models.GenerationResponse, error) {
	if m.generateContentFn == nil {
		return &models.GenerationResponse{}, nil
	}
	return m.generateContentFn(ctx, prompt, requestID)
}

func (m *mockProvider) GetProviderName() string {
	if m.getProviderNameFn == nil {
		return "mock"
	}
	return m.getProviderNameFn()
}

type mockPromptManager struct {
	buildPromptFn  func(mode, variant string, data interface{}) (string, error)
	getTemplatesFn func() []string
}

func (m *mockPromptManager) BuildPrompt(mode, variant string, data interface{}) (string, error) {
	if m.buildPromptFn == nil {
		return "mock prompt", nil
	}
	return m.buildPromptFn(mode, variant, data)
}

func (m *mockPromptManager) GetTemplates() []string {
	if m.getTemplatesFn == nil {
		return []string{"challenge/medium"}
	}
	return m.getTemplatesFn()
}

// memStore is an in-memory store.Store.
type memStore struct {
	mu         sync.Mutex
	challenges map[string]models.SavedChallenge
	mcqs       map[string]models.SavedMCQ
	order      []string
	saveErr    error
	pingErr    error
}

func newMemStore() *memStore {
	return &memStore{
		challenges: make(map[string]models.SavedChallenge),
		mcqs:       make(map[string]models.SavedMCQ),
	}
}

func (s *memStore) SaveChallenge(_ context.Context, rec models.ChallengeRecord) (models.SavedChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return models.SavedChallenge{}, s.saveErr
	}
	saved := models.SavedChallenge{ID: uuid.NewString(), CreatedAt: time.Now(), Record: rec}
	s.challenges[saved.ID] = saved
	s.order = append(s.order, saved.ID)
	return saved, nil
}

func (s *memStore) SaveMCQ(_ context.Context, rec models.MCQRecord) (models.SavedMCQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return models.SavedMCQ{}, s.saveErr
	}
	saved := models.SavedMCQ{ID: uuid.NewString(), CreatedAt: time.Now(), Record: rec}
	s.mcqs[saved.ID] = saved
	return saved, nil
}

func (s *memStore) GetChallenge(_ context.Context, id string) (models.SavedChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, ok := s.challenges[id]
	if !ok {
		return models.SavedChallenge{}, store.ErrNotFound
	}
	return saved, nil
}

func (s *memStore) GetMCQ(_ context.Context, id string) (models.SavedMCQ, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved, ok := s.mcqs[id]
	if !ok {
		return models.SavedMCQ{}, store.ErrNotFound
	}
	return saved, nil
}

func (s *memStore) ListChallenges(_ context.Context, filter store.ListFilter) ([]models.SavedChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SavedChallenge
	for i := len(s.order) - 1; i >= 0; i-- {
		saved := s.challenges[s.order[i]]
		if filter.Difficulty != "" && saved.Record.DifficultyLevel != filter.Difficulty {
			continue
		}
		out = append(out, saved)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) Ping(context.Context) error { return s.pingErr }

var errStoreDown = errors.New("store down")

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.QuestionFeedback{}, &models.ModelVersion{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func addURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
