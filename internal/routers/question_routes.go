package routers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"peerprep/questiongen/internal/handlers"
	"peerprep/questiongen/internal/middleware"
	"peerprep/questiongen/internal/models"
)

// QuestionRoutes mounts the question API. auth wraps every route when
// non-nil; feedbackHandler and modelHandler are optional.
func QuestionRoutes(
	router *chi.Mux,
	questionHandler *handlers.QuestionHandler,
	feedbackHandler *handlers.FeedbackHandler,
	modelHandler *handlers.ModelHandler,
	auth func(http.Handler) http.Handler,
) {
	router.Route("/api/v1/questions", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}

		r.Route("/challenges", func(r chi.Router) {
			r.With(middleware.ValidateRequest[*models.GenerateRequest]()).Post("/generate", questionHandler.GenerateChallengeHandler)
			r.With(middleware.ValidateRequest[*models.BatchGenerateRequest]()).Post("/generate/batch", questionHandler.GenerateBatchHandler)
			r.With(middleware.ValidateRequest[*models.ExtractChallengeRequest]()).Post("/extract", questionHandler.ExtractChallengeHandler)
			r.Get("/", questionHandler.ListChallengesHandler)
			r.Get("/{id}", questionHandler.GetChallengeHandler)
		})

		r.Route("/mcq", func(r chi.Router) {
			r.With(middleware.ValidateRequest[*models.GenerateRequest]()).Post("/generate", questionHandler.GenerateMCQHandler)
			r.With(middleware.ValidateRequest[*models.ExtractMCQRequest]()).Post("/extract", questionHandler.ExtractMCQHandler)
			r.Get("/{id}", questionHandler.GetMCQHandler)
		})

		if feedbackHandler != nil {
			r.Route("/feedback", func(r chi.Router) {
				r.Get("/stats", feedbackHandler.GetFeedbackStats)
				r.Get("/export", feedbackHandler.ExportFeedback)
				r.With(middleware.ValidateRequest[*models.FeedbackRequest]()).Post("/{request_id}", feedbackHandler.SubmitFeedback)
			})
		}

		if modelHandler != nil {
			r.Route("/models", func(r chi.Router) {
				r.Get("/", modelHandler.ListModels)
				r.Post("/", modelHandler.RegisterModel)
				r.Put("/{model_id}/traffic", modelHandler.UpdateTrafficWeight)
				r.Put("/{model_id}/deactivate", modelHandler.DeactivateModel)
				r.Get("/{model_id}/stats", modelHandler.GetModelStats)
			})
		}
	})
}
