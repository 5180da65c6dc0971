/*
server.go - HTTP router and middleware configuration

MIDDLEWARE STACK:
  1. RequestID:  unique ID per request for tracing
  2. Logger:     request logging
  3. Recoverer:  panic recovery (500 instead of crash)
  4. CORS:       cross-origin requests

ROUTE GROUPS:
  /api/accounts/*  account lifecycle, operations, history
  /api/transfers   two-account transfer
  /api/admin/*     manual archive trigger
  /metrics         Prometheus scrape endpoint (mounted by cmd/server)

SECURITY NOTE:
  No authentication middleware. Callers are identified by explicit account
  ids; authenticating them is the job of the gateway in front of this
  service.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all wallet routes configured. The
// optional metricsHandler is mounted at /metrics when non-nil.
func NewRouter(h *Handler, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/deposit", h.Deposit)
			r.Post("/{id}/withdraw", h.Withdraw)
		})

		r.Post("/transfers", h.Transfer)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/accounts/{id}/archive", h.TriggerArchive)
		})
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
