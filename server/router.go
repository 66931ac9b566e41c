package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func router(logger zerolog.Logger, api *API) *chi.Mux {
	c := chi.NewMux()

	c.Use(
		middleware.RequestID,
		requestLogger(logger),
		middleware.RequestSize(16*1024),
		middleware.Recoverer,
		middleware.NoCache,
	)

	c.Route("/internal", func(r chi.Router) {
		r.Get("/health", api.handleGetHealth())
	})

	c.Get(api.callbackPath(), api.handleCapturePage())
	c.Post(api.tokenPath(), api.handlePostToken())

	return c
}
