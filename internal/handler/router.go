/*
Package handler provides the local HTTP surface of the chat client.

The surface mounts its own session State and exposes it as a small JSON API: session status,
roster, message log, message submission and image sharing. This file defines the main Router,
applying logging, CORS and IP-based rate limiting before delegating to specific handlers.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"lumochat/internal/pkg/limiter"
	"lumochat/internal/pkg/logx"
	"lumochat/internal/pkg/metrics"
	"lumochat/internal/pkg/resp"
)

const (
	PostRate  = 1
	PostBurst = 5

	serviceName = "lumochat"
)

// NewPostLimiter returns the limiter used for the POST routes.
func NewPostLimiter() *limiter.IPRateLimiter {
	return limiter.NewIPRateLimiter(rate.Limit(PostRate), PostBurst)
}

// Router sets up the HTTP routing table (chi.Router) for the surface.
// It configures CORS and applies global and per-route middleware.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("http"))
	r.Use(middleware.Recoverer)

	r.Get("/health", HandleHealth(deps))

	r.Get("/debug/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		metrics.WriteOnce(w)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/session", HandleGetSession(deps))
		api.Get("/roster", HandleGetRoster(deps))
		api.Get("/messages", HandleListMessages(deps))

		api.Group(func(post chi.Router) {
			if deps.PostLimiter != nil {
				post.Use(deps.PostLimiter.Middleware)
			}
			post.Post("/messages", HandleSubmitMessage(deps))
			post.Post("/media", HandleShareMedia(deps))
		})
	})

	return r
}

// HandleHealth reports liveness and whether the chat connection is open.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		transport := "closed"
		if deps.Link != nil && deps.Link.IsOpen() {
			transport = "open"
		}

		data := map[string]string{
			"status":    "ok",
			"service":   serviceName,
			"transport": transport,
		}
		resp.RespondSuccess(w, r, data)
	}
}
