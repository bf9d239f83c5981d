/*
Package handler provides the HTTP surface of the development chat server.

This file defines the Router: CORS, request logging, per-IP rate limiting,
the websocket chat endpoint, the liveness probe, and the stats endpoint.
*/
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"gabber/internal/app/server"
	"gabber/internal/configs"
	"gabber/internal/pkg/limiter"
	"gabber/internal/pkg/logx"
)

const (
	// ConnectRate and ConnectBurst bound how fast one IP may open chat
	// connections.
	ConnectRate  = 1.0
	ConnectBurst = 5
)

// Router sets up the routing table for the chat server.
func Router(cfg *configs.ServerConfig, manager *server.Manager) http.Handler {
	connectLimiter := limiter.NewIPRateLimiter(rate.Limit(ConnectRate), ConnectBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if cfg.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(cfg.AllowedOrigins) > 0 {
		corsAllowedOrigins = cfg.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Route("/v1.0", func(v1 chi.Router) {
		v1.Get("/chat", HandleWebSocket(cfg, manager, connectLimiter))

		v1.Get("/alive", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		v1.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(manager.Stats()); err != nil {
				logx.Error(err, "Failed to encode stats")
			}
		})
	})

	return r
}
