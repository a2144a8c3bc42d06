package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-task-manager/internal/config"
	"go-task-manager/internal/handler"
	"go-task-manager/internal/metrics"
	"go-task-manager/internal/middleware"
	"go-task-manager/internal/model"
)

type Handlers struct {
	Auth *handler.AuthHandler
	Task *handler.TaskHandler
	User *handler.UserHandler
}

func New(cfg *config.Config, auth *middleware.Authenticator, m *metrics.Metrics, handlers Handlers, health http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimit)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(a chi.Router) {
			a.Post("/register", handlers.Auth.Register)
			a.Post("/login", handlers.Auth.Login)
			// Logout is public on purpose: an expired or absent credential
			// must not turn logging out into an error.
			a.Get("/logout", handlers.Auth.Logout)
			a.Post("/logout", handlers.Auth.Logout)
			a.Post("/forgotpassword", handlers.Auth.ForgotPassword)
			a.Put("/resetpassword/{token}", handlers.Auth.ResetPassword)

			a.With(auth.RequireAuth).Get("/me", handlers.Auth.Me)
			a.With(auth.RequireAuth).Put("/updatedetails", handlers.Auth.UpdateDetails)
			a.With(auth.RequireAuth).Put("/updatepassword", handlers.Auth.UpdatePassword)
			a.With(auth.RequireAuth).Put("/updateavatar", handlers.Auth.UpdateAvatar)
		})

		api.Route("/tasks", func(t chi.Router) {
			t.Use(auth.RequireAuth)
			t.Post("/", handlers.Task.Create)
			t.Get("/", handlers.Task.List)
			t.Get("/shared", handlers.Task.ListShared)
			t.Get("/{id}", handlers.Task.Get)
			t.Put("/{id}", handlers.Task.Update)
			t.Delete("/{id}", handlers.Task.Delete)
			t.Put("/{id}/share", handlers.Task.Share)
		})

		api.Route("/users", func(u chi.Router) {
			u.Use(auth.RequireAuth, auth.RequireRoles(model.RoleAdmin))
			u.Get("/", handlers.User.List)
			u.Get("/{id}", handlers.User.Get)
			u.Put("/{id}/role", handlers.User.UpdateRole)
			u.Delete("/{id}", handlers.User.Delete)
		})
	})

	return r
}
