package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lostfound/internal/handler"
	"lostfound/internal/httputil"
	authmw "lostfound/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	FeedHandler         *handler.FeedHandler
	PostHandler         *handler.PostHandler
	ClaimHandler        *handler.ClaimHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	JWTSecret           string
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", cfg.AuthHandler.Register)
		r.Post("/login", cfg.AuthHandler.Login)
		r.Post("/refresh", cfg.AuthHandler.Refresh)
		r.Post("/logout", cfg.AuthHandler.Logout)
		r.With(authmw.AuthMiddleware(cfg.JWTSecret)).Post("/logout-all", cfg.AuthHandler.LogoutAll)
	})

	// Public reads; a valid token personalizes affordances.
	r.Group(func(r chi.Router) {
		r.Use(authmw.OptionalAuthMiddleware(cfg.JWTSecret))

		r.Get("/feed", cfg.FeedHandler.GetFeed)
		r.Get("/feed/live", cfg.FeedHandler.Live)
		r.Get("/posts/{id}", cfg.FeedHandler.GetPost)
		r.Get("/posts/{id}/comments", cfg.CommentHandler.List)
		r.Get("/users/{id}", cfg.UserHandler.GetProfile)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.AuthMiddleware(cfg.JWTSecret))

		r.Get("/me", cfg.AuthHandler.Me)
		r.Get("/me/posts", cfg.PostHandler.History)

		r.Get("/posts/draft", cfg.PostHandler.NewDraft)
		r.Post("/posts/draft/step", cfg.PostHandler.DraftStep)
		r.Post("/posts", cfg.PostHandler.Create)
		r.Patch("/posts/{id}/status", cfg.PostHandler.UpdateStatus)
		r.Delete("/posts/{id}", cfg.PostHandler.Delete)
		r.Post("/posts/{id}/claims", cfg.ClaimHandler.Create)
		r.Post("/posts/{id}/comments", cfg.CommentHandler.Create)

		r.Get("/notifications", cfg.NotificationHandler.List)
	})

	return r
}
