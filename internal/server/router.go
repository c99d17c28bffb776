package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"igreposter/pkg/logger"
	"igreposter/pkg/ratelimit"
)

// NewRouter assembles the route tree. The /api subtree shares a sliding
// window rate limit; health and OAuth endpoints stay outside it.
func NewRouter(handler *Handler, log logger.Logger, requestsPerMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware(log))
	r.Use(loggingMiddleware(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeMessage(w, http.StatusOK, "ok") })

	r.Get("/auth/instagram", handler.beginInstagramAuth)
	r.Get("/auth/instagram/callback", handler.instagramAuthCallback)

	r.Route("/api", func(r chi.Router) {
		if requestsPerMinute > 0 {
			r.Use(rateLimitMiddleware(ratelimit.NewSlidingWindow(requestsPerMinute, time.Minute)))
		}

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", handler.listPosts)
			r.Post("/", handler.createPost)
			r.Get("/{id}", handler.getPost)
			r.Patch("/{id}", handler.updatePost)
			r.Delete("/{id}", handler.deletePost)
		})

		r.Get("/schedule", handler.getSchedule)
		r.Post("/schedule", handler.saveSchedule)

		r.Get("/automation", handler.getAutomation)
		r.Post("/automation", handler.updateAutomation)

		r.Post("/search-profile", handler.searchProfile)
		r.Post("/confirm-profile", handler.confirmProfile)
		r.Get("/queued-posts", handler.queuedPosts)
		r.Post("/generate-repost", handler.generateRepost)
		r.Post("/analyze-profile", handler.analyzeProfile)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", handler.listAccounts)
			r.Post("/", handler.createAccount)
			r.Get("/{id}", handler.getAccount)
			r.Patch("/{id}", handler.updateAccount)
			r.Delete("/{id}", handler.deleteAccount)
		})

		r.Post("/publish/{postID}", handler.publishPost)
	})

	return r
}
