// Coterie - Community Capacity Management and Content Curation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/coterie

// Package api serves the read-only query surface consumed by the platform UI
// and the operator endpoints that force control-loop passes.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/coterie/internal/config"
)

// NewRouter builds the chi router with the global middleware stack and all
// routes.
func NewRouter(handler *Handler, cfg *config.ServerConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(httprate.Limit(cfg.RateLimitReqs, cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP)))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.Health)

		r.Route("/community", func(r chi.Router) {
			r.Get("/snapshot", handler.Snapshot)
		})
		r.Get("/members/{id}/standing", handler.MemberStanding)
		r.Route("/rotation", func(r chi.Router) {
			r.Get("/log", handler.RotationLog)
			r.Get("/report", handler.RotationReport)
		})
		r.Get("/highlights", handler.Highlights)

		r.Route("/ops", func(r chi.Router) {
			r.Post("/rotate", handler.OpsRotate)
			r.Post("/rebalance", handler.OpsRebalance)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
