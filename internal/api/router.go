package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/devroom-hq/devroom/internal/ai"
	"github.com/devroom-hq/devroom/internal/api/middleware"
	"github.com/devroom-hq/devroom/internal/config"
	"github.com/devroom-hq/devroom/internal/handlers"
	"github.com/devroom-hq/devroom/internal/room"
	"github.com/devroom-hq/devroom/internal/store"
	"github.com/devroom-hq/devroom/internal/token"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     store.DataStore
	Redis  *store.RedisStore // nil disables rate limiting, search and token revocation
	Tokens *token.Manager
	Rooms  *room.Registry
	AI     *ai.Adapter
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(4 * 1024 * 1024)) // file trees carry whole projects
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Logger))
	r.Use(chimw.Recoverer)

	// Rate limiting needs Redis; without it the limiter is skipped.
	if d.Redis != nil {
		limiter := middleware.NewRateLimiter(d.Redis.Client(), d.Logger, middleware.RateLimiterConfig{
			Whitelist:        d.Config.RateLimitWhitelist,
			AutoBlockEnabled: d.Config.AutoBlockEnabled,
		})
		r.Use(limiter.Middleware)
	}

	// CORS - allow all origins (editors are served from anywhere)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(d.DB, d.Redis, d.Tokens, d.Rooms, d.AI, d.Logger)
	auth := middleware.NewAuthMiddleware(d.Tokens, d.Redis)
	ws := NewSocketHandler(d.DB, d.Redis, d.Tokens, d.Rooms, d.Logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/users/register", h.Register)
	r.Post("/users/login", h.Login)

	// The socket endpoint runs its own staged admission before upgrading.
	r.Get("/socket", ws.Serve)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/users/logout", h.Logout)
		r.Get("/users/profile", h.Profile)
		r.Get("/users/all", h.ListUsers)

		r.Post("/projects/create", h.CreateProject)
		r.Get("/projects/all", h.ListProjects)
		r.Get("/projects/get-project/{id}", h.GetProject)
		r.Put("/projects/add-user", h.AddUsers)
		r.Put("/projects/update-file-tree", h.UpdateFileTree)

		r.Get("/messages/project/{id}", h.GetProjectMessages)
		r.Post("/messages", h.SaveMessage)
		r.Get("/messages/search", h.SearchMessages)

		r.Get("/ai/get-result", h.GetResult)
	})

	return r
}
