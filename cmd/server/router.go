package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tessellary/casework-api/internal/api"
	apiMiddleware "github.com/tessellary/casework-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", apiMiddleware.CallerIDHeader},
	}))
	r.Use(apiMiddleware.TraceMiddleware)

	analysisHandler := api.NewAnalysisHandler(app.analysisService)
	resultHandler := api.NewResultHandler(app.resultService)

	r.Route("/api/cases", func(r chi.Router) {
		// Case analysis requires a caller identity; the result callback
		// comes from the inference service and carries none.
		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.CallerMiddleware)
			r.Post("/analyze", analysisHandler.AnalyzeCase)
		})

		r.Post("/result", resultHandler.ReceiveResult)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
