package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/marketplace-service/internal/api/http/handlers"
	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health     *handlers.HealthHandler
	Users      *handlers.UsersHandler
	UsersAdmin *handlers.ResourceHandler[*domain.User]
	Jobs       *handlers.ResourceHandler[*domain.Job]
	Reviews    *handlers.ResourceHandler[*domain.Review]
	Tours      *handlers.ResourceHandler[*domain.Tour]
	Session    *auth.SessionResolver
	Limiter    fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1")
	if cfg.Limiter != nil {
		api.Use(cfg.Limiter)
	}

	users := api.Group("/users")
	users.Post("/signup", cfg.Users.Signup)
	users.Post("/login", cfg.Users.Login)
	users.Post("/forgotPassword", cfg.Users.ForgotPassword)
	users.Patch("/resetPassword/:token", cfg.Users.ResetPassword)

	// Everything below requires an authenticated session.
	users.Use(cfg.Session.Require)
	users.Patch("/updateMyPassword", cfg.Users.UpdatePassword)
	users.Get("/me", cfg.Users.GetMe)
	users.Patch("/updateMe", cfg.Users.UpdateMe)
	users.Delete("/deleteMe", cfg.Users.DeleteMe)

	users.Use(auth.RequireRole(domain.RoleAdmin))
	users.Get("/", cfg.UsersAdmin.List)
	users.Post("/", handlers.CreateUserNotSupported)
	users.Get("/:id", cfg.UsersAdmin.GetOne)
	users.Patch("/:id", cfg.UsersAdmin.Update)
	users.Delete("/:id", cfg.UsersAdmin.Delete)

	jobs := api.Group("/jobs")
	jobs.Get("/", cfg.Session.Optional, cfg.Jobs.List)
	jobs.Post("/", cfg.Session.Require, auth.RequireRole(domain.RoleUser, domain.RoleAdmin), cfg.Jobs.Create)
	jobs.Get("/:id", cfg.Session.Optional, cfg.Jobs.GetOne)
	jobs.Patch("/:id", cfg.Session.Require, auth.RequireRole(domain.RoleUser, domain.RoleAdmin), cfg.Jobs.Update)
	jobs.Delete("/:id", cfg.Session.Require, auth.RequireRole(domain.RoleUser, domain.RoleAdmin), cfg.Jobs.Delete)

	// Nested reviews inherit the job id from the path.
	jobs.Get("/:jobId/reviews", cfg.Session.Optional, cfg.Reviews.List)
	jobs.Post("/:jobId/reviews", cfg.Session.Require, auth.RequireRole(domain.RoleUser), cfg.Reviews.Create)

	reviews := api.Group("/reviews", cfg.Session.Require)
	reviews.Get("/", cfg.Reviews.List)
	reviews.Post("/", auth.RequireRole(domain.RoleUser), cfg.Reviews.Create)
	reviews.Get("/:id", cfg.Reviews.GetOne)
	reviews.Patch("/:id", auth.RequireRole(domain.RoleUser, domain.RoleAdmin), cfg.Reviews.Update)
	reviews.Delete("/:id", auth.RequireRole(domain.RoleUser, domain.RoleAdmin), cfg.Reviews.Delete)

	tours := api.Group("/tours")
	tours.Get("/", cfg.Session.Optional, cfg.Tours.List)
	tours.Get("/:id", cfg.Session.Optional, cfg.Tours.GetOne)
	tours.Post("/", cfg.Session.Require, auth.RequireRole(domain.RoleAdmin, domain.RoleLeadGuide), cfg.Tours.Create)
	tours.Patch("/:id", cfg.Session.Require, auth.RequireRole(domain.RoleAdmin, domain.RoleLeadGuide), cfg.Tours.Update)
	tours.Delete("/:id", cfg.Session.Require, auth.RequireRole(domain.RoleAdmin, domain.RoleLeadGuide), cfg.Tours.Delete)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewNotFound(c.OriginalURL(), nil)
	})
}
