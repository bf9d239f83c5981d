/*
Package handler provides the HTTP surface of the development chat server.

This file contains the HandleWebSocket function: rate limiting, origin
checking, the upgrade, and handing the connection to a Chatter.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gabber/internal/app/server"
	"gabber/internal/configs"
	"gabber/internal/pkg/limiter"
	"gabber/internal/pkg/logx"
)

// HandleWebSocket creates the HandlerFunc for the chat endpoint.
func HandleWebSocket(cfg *configs.ServerConfig, manager *server.Manager, rateLimiter *limiter.IPRateLimiter) http.HandlerFunc {
	allowedOrigins := make(map[string]struct{})
	for _, origin := range cfg.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			// Non-browser clients send no Origin header.
			origin := r.Header.Get("Origin")
			if origin == "" || cfg.IsDevelopment() {
				return true
			}

			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected, origin not allowed", "origin", origin)
			return false
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !rateLimiter.Allow(r) {
			logx.Warn("WebSocket connection rejected, rate limit exceeded", "remote_addr", r.RemoteAddr)
			http.Error(w, "Too many connections. Try again later.", http.StatusTooManyRequests)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		chatter := server.NewChatter(manager, conn, time.Duration(cfg.MaxIdle)*time.Second)

		logx.Info("Chat connection established", "chatter_id", chatter.ID, "remote_addr", r.RemoteAddr)

		// Blocks for the life of the connection.
		chatter.Run()
	}
}
