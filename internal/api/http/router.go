package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/turno-service/internal/api/http/handlers"
	"github.com/spec-kit/turno-service/internal/auth"
	"github.com/spec-kit/turno-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Turnos         *handlers.TurnosHandler
	AdminTurnos    *handlers.AdminTurnosHandler
	Cafeterias     *handlers.CafeteriasHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
	Registry       *prometheus.Registry
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Users.Me)

	// Public display projections: no authentication so hallway screens can poll.
	app.Get("/cafeterias", cfg.Cafeterias.List)
	app.Get("/cafeterias/:id", cfg.Cafeterias.Get)
	app.Get("/cafeterias/:id/current", cfg.Cafeterias.Current)
	app.Get("/cafeterias/:id/queue", cfg.Cafeterias.Queue)

	student := app.Group("/turnos", cfg.AuthMiddleware.Handle)
	student.Post("", cfg.Turnos.Create)
	student.Get("", cfg.Turnos.History)
	student.Get("/penalty", cfg.Turnos.Penalty)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("", cfg.Notifications.List)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Post("/cafeterias", cfg.Cafeterias.Create)
	admin.Post("/cafeterias/:id/state", cfg.Cafeterias.SetState)
	admin.Get("/cafeterias/:id/qr", cfg.Cafeterias.QR)

	admin.Get("/turnos", cfg.AdminTurnos.List)
	admin.Get("/turnos/penalized", cfg.AdminTurnos.PenalizedTickets)
	admin.Post("/turnos/:id/deliver", cfg.AdminTurnos.Deliver)
	admin.Post("/turnos/:id/advance", cfg.AdminTurnos.Advance)
	admin.Get("/turnos/:id/events", cfg.AdminTurnos.Trail)

	admin.Get("/penalties", cfg.AdminTurnos.Penalties)
	admin.Post("/penalties/:userID/clear", cfg.AdminTurnos.Depenalize)
}
