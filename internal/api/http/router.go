package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldserve/fieldserve/internal/api/http/handlers"
	"github.com/fieldserve/fieldserve/internal/auth"
	"github.com/fieldserve/fieldserve/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Staff          *handlers.StaffHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/staff/login", cfg.Staff.Login)

	anyStaff := auth.RequireRole(domain.StaffRoleTechnician, domain.StaffRoleCoordinator, domain.StaffRoleAdmin)
	backoffice := auth.RequireRole(domain.StaffRoleCoordinator, domain.StaffRoleAdmin)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", backoffice, cfg.Tickets.Create)
	tickets.Get("", anyStaff, cfg.Tickets.List)
	tickets.Get("/:id", anyStaff, cfg.Tickets.Get)
	tickets.Delete("/:id", auth.RequireRole(domain.StaffRoleAdmin), cfg.Tickets.Delete)

	tickets.Post("/:id/assign", backoffice, cfg.Tickets.Assign)
	tickets.Post("/:id/accept", anyStaff, cfg.Tickets.Accept)
	tickets.Post("/:id/decline", anyStaff, cfg.Tickets.Decline)
	tickets.Post("/:id/start", anyStaff, cfg.Tickets.Start)

	tickets.Post("/:id/diagnosis", anyStaff, cfg.Tickets.RecordDiagnosis)
	tickets.Post("/:id/path", anyStaff, cfg.Tickets.SelectPath)
	tickets.Post("/:id/parts-received", anyStaff, cfg.Tickets.PartsReceived)
	tickets.Post("/:id/complete", anyStaff, cfg.Tickets.CompleteRepair)

	tickets.Post("/:id/pickup", anyStaff, cfg.Tickets.RecordPickup)
	tickets.Post("/:id/transfer", anyStaff, cfg.Tickets.RecordTransfer)
	tickets.Post("/:id/delivery", anyStaff, cfg.Tickets.RecordDelivery)
	tickets.Post("/:id/out-for-delivery", anyStaff, cfg.Tickets.OutForDelivery)

	tickets.Post("/:id/warranty", backoffice, cfg.Tickets.DecideWarranty)
	tickets.Post("/:id/repair/amc", anyStaff, cfg.Tickets.RecordAMCRepair)
	tickets.Post("/:id/repair/amc/complete", anyStaff, cfg.Tickets.CompleteAMCRepair)
	tickets.Post("/:id/repair/oem", anyStaff, cfg.Tickets.RecordOEMRepair)
	tickets.Post("/:id/repair/oem/received", anyStaff, cfg.Tickets.MarkOEMReceived)
	tickets.Post("/:id/repair/oem/complete", anyStaff, cfg.Tickets.CompleteOEMRepair)
	tickets.Post("/:id/ready-for-delivery", anyStaff, cfg.Tickets.ReadyForDelivery)

	tickets.Post("/:id/transition", anyStaff, cfg.Tickets.Transition)
	tickets.Post("/:id/cancel", backoffice, cfg.Tickets.Cancel)
	tickets.Post("/:id/close", backoffice, cfg.Tickets.Close)
}
