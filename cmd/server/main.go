package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"peerprep/questiongen/internal/config"
	"peerprep/questiongen/internal/extract"
	"peerprep/questiongen/internal/feedback"
	"peerprep/questiongen/internal/handlers"
	"peerprep/questiongen/internal/jobs"
	"peerprep/questiongen/internal/llm"
	_ "peerprep/questiongen/internal/llm/gemini"
	"peerprep/questiongen/internal/metrics"
	"peerprep/questiongen/internal/middleware"
	"peerprep/questiongen/internal/models"
	"peerprep/questiongen/internal/prompts"
	"peerprep/questiongen/internal/routers"
	"peerprep/questiongen/internal/store"
	"peerprep/questiongen/internal/utils"
)

func registerRoutes(router *chi.Mux, cfg *config.Config, questionHandler *handlers.QuestionHandler, feedbackHandler *handlers.FeedbackHandler, modelHandler *handlers.ModelHandler, healthHandler *handlers.HealthHandler) {
	var auth func(http.Handler) http.Handler
	if cfg.AuthEnabled {
		auth = middleware.RequireAuth(cfg.JWTSecret)
	}
	routers.HealthRoutes(router, healthHandler)
	routers.QuestionRoutes(router, questionHandler, feedbackHandler, modelHandler, auth)
}

func newRouter(cfg *config.Config) *chi.Mux {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// generation waits on the provider, so the route timeout sits above it
	routeTimeout := cfg.GenerationTimeout + 15*time.Second
	router.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer, metrics.Middleware, chimw.Timeout(routeTimeout))
	return router
}

// openStore returns the record store and a closer for it.
func openStore(ctx context.Context, cfg *config.Config, db *gorm.DB) (store.Store, func(context.Context) error, error) {
	if cfg.StoreDriver == "mongo" {
		ms, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.QuestionsDBName)
		if err != nil {
			return nil, nil, err
		}
		return ms, ms.Close, nil
	}
	gs, err := store.NewGormStore(db)
	if err != nil {
		return nil, nil, err
	}
	return gs, func(context.Context) error { return nil }, nil
}

func openContextStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (feedback.ContextStore, func()) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			logger.Info("Feedback contexts cached in Redis", zap.String("addr", cfg.RedisAddr))
			return feedback.NewRedisContextCache(rdb, cfg.FeedbackCacheTTL), func() { _ = rdb.Close() }
		}
		logger.Warn("Redis unavailable, falling back to in-memory feedback cache", zap.Error(err))
		_ = rdb.Close()
	}
	cache := feedback.NewContextCache(cfg.FeedbackCacheTTL)
	return cache, cache.Close
}

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("store", cfg.StoreDriver),
		zap.Bool("auth", cfg.AuthEnabled),
	)

	ctx := context.Background()

	promptManager, err := prompts.NewPromptManager()
	if err != nil {
		logger.Fatal("Failed to initialize prompt manager", zap.Error(err))
	}

	provider, err := llm.NewProvider(cfg.Provider)
	if err != nil {
		logger.Fatal("Failed to initialize AI provider", zap.Error(err))
	}

	// feedback and model versions always live in a relational database
	db, err := store.OpenGorm(cfg.GormDriver(), cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	if err := db.AutoMigrate(&models.QuestionFeedback{}, &models.ModelVersion{}); err != nil {
		logger.Fatal("Failed to migrate feedback tables", zap.Error(err))
	}

	if dbAware, ok := provider.(interface{ SetDatabase(*gorm.DB) }); ok {
		dbAware.SetDatabase(db)
		logger.Info("Database connection set on provider for tuned model routing")
	}

	recordStore, closeStore, err := openStore(ctx, cfg, db)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}

	contexts, closeContexts := openContextStore(ctx, cfg, logger)
	feedbackManager := feedback.NewFeedbackManager(db, contexts, logger)

	extractor := extract.NewExtractor(provider, logger, cfg.GenerationTimeout)
	questionHandler := handlers.NewQuestionHandler(extractor, promptManager, recordStore, logger, cfg.BatchConcurrency)
	questionHandler.SetFeedbackManager(feedbackManager)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackManager, logger)
	modelHandler := handlers.NewModelHandler(db, logger)
	healthHandler := handlers.NewHealthHandler(provider, promptManager, recordStore, cfg)

	exporterJob := jobs.NewFeedbackExporterJob(feedbackManager, &jobs.ExporterConfig{
		Schedule:      cfg.FeedbackExportSchedule,
		ExportDir:     cfg.FeedbackExportDir,
		ExportEnabled: cfg.FeedbackExportEnabled,
	}, logger)
	if err := exporterJob.Start(); err != nil {
		logger.Error("Failed to start feedback exporter job", zap.Error(err))
	}

	router := newRouter(cfg)
	registerRoutes(router, cfg, questionHandler, feedbackHandler, modelHandler, healthHandler)

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Question generation service starting", zap.String("addr", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("Question generation service shutting down...")

	exporterJob.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	closeContexts()
	if err := closeStore(shutdownCtx); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	fmt.Fprintln(os.Stderr, "question generation service exited")
}
