package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/pioneer-isp/helpdesk/internal/api/http/handlers"
	"github.com/pioneer-isp/helpdesk/internal/auth"
	"github.com/pioneer-isp/helpdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Assignment     *handlers.AssignmentHandler
	Staff          *handlers.StaffHandler
	Customers      *handlers.CustomersHandler
	Reports        *handlers.ReportsHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Post("/auth/login", cfg.Staff.Login)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequirePrincipal())
	api.Get("/me", cfg.Staff.Me)
	api.Get("/assignees", cfg.Staff.Assignees)
	api.Get("/groups", cfg.Staff.Groups)
	api.Get("/customers/lookup", cfg.Customers.Lookup)
	api.Get("/reports/summary", cfg.Reports.Summary)

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:key", cfg.Tickets.GetTicket)
	tickets.Patch("/:key", cfg.Tickets.UpdateTicket)
	tickets.Put("/:key/fields/:field", cfg.Tickets.UpdateField)
	tickets.Post("/:key/notes", cfg.Tickets.AddNote)
	tickets.Get("/:key/events", cfg.Tickets.ListEvents)
	tickets.Post("/:key/claim", cfg.Assignment.Claim)
	tickets.Post("/:key/assign-group", cfg.Assignment.AssignToGroup)

	admin := api.Group("/admin", auth.RequireAdmin())
	admin.Get("/staff", cfg.Staff.ListStaff)
	admin.Post("/staff", cfg.Staff.CreateStaff)
	admin.Patch("/staff/:username", cfg.Staff.SetActive)
	admin.Delete("/staff/:username", cfg.Staff.DeleteStaff)
	admin.Put("/customers/:account", cfg.Customers.Upsert)
}
