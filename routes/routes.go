package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/recipe-rag/app"
	"github.com/upb/recipe-rag/handlers"
	"github.com/upb/recipe-rag/middleware"
	"github.com/upb/recipe-rag/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	timeout := deps.Config.Server.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(timeout))

	origins := deps.Config.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.StoreHealth, deps.Composer, deps.Logger)
	rag := handlers.NewRAGHandler(deps.Retriever, deps.Composer, deps.Logger)
	admin := handlers.NewAdminHandler(deps.Ingester, deps.Logger)

	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)
	r.Get("/health/llm", health.HandleLLM)

	r.Post("/search", rag.HandleSearch)
	r.Post("/chat", rag.HandleChat)
	r.Get("/stats", rag.HandleStats)

	r.Route("/admin", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)
		r.Use(deps.AuthMiddleware.RequireRole(middleware.RoleAdmin))
		r.Post("/documents", admin.HandleIngest)
		r.Post("/reindex", admin.HandleReindex)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
