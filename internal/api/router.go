package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bcanady/snippets-be/internal/api/handlers"
	"github.com/bcanady/snippets-be/internal/auth"
	"github.com/bcanady/snippets-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(tokens *auth.TokenManager, userService services.UserServiceProvider, postService services.PostServiceProvider, allowedOrigin string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, tokens)
	postHandler := handlers.NewPostHandler(postService)
	userHandler := handlers.NewUserHandler(userService)

	requireAuth := tokens.Middleware()

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", authHandler.Signup)
			r.Post("/signin", authHandler.Signin)
		})

		r.Route("/posts", func(r chi.Router) {
			// Reads are public
			r.Get("/", postHandler.GetAll)
			r.Get("/{id}", postHandler.Get)

			// Mutations go through the authorization gate
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", postHandler.Create)
				r.Delete("/{id}", postHandler.Delete)
				r.Post("/like/{postId}", postHandler.ToggleLike)
				r.Put("/comments", postHandler.AddComment)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{username}", userHandler.GetProfile)
			r.Put("/{username}/password", userHandler.ChangePassword)
			r.With(requireAuth).Put("/{username}/avatar", userHandler.ChangeAvatar)
		})
	})

	return r
}
