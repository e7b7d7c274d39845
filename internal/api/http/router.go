package http

import (
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/http/handlers"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AgentTickets   *handlers.AgentTicketsHandler
	Agents         *handlers.AgentsHandler
	Admin          *handlers.AdminHandler
	Sentiment      *handlers.SentimentHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Auth.RegisterUser)
	authGroup.Post("/users/login", cfg.Auth.LoginUser)
	authGroup.Post("/agents/login", cfg.Auth.LoginAgent)

	// End-user surface.
	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.GetTicketHistory)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)

	// Sentiment analysis accepts either principal type.
	app.Post("/sentiment/analyze", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Sentiment.Analyze)

	// Agent workflow surface.
	agent := app.Group("/agent", cfg.AuthMiddleware.Handle, auth.RequireAgentRole())
	agent.Get("/tickets", cfg.AgentTickets.ListTickets)
	agent.Get("/tickets/by-key/:key", cfg.AgentTickets.GetTicketByKey)
	agent.Get("/tickets/:id", cfg.AgentTickets.GetTicket)
	agent.Get("/tickets/:id/history", cfg.AgentTickets.GetTicketHistory)
	agent.Post("/tickets/:id/assign", cfg.AgentTickets.AssignTicket)
	agent.Post("/tickets/:id/resolve", cfg.AgentTickets.ResolveTicket)
	agent.Post("/tickets/:id/close", cfg.AgentTickets.CloseTicket)
	agent.Post("/tickets/:id/escalate", cfg.AgentTickets.EscalateTicket)
	agent.Post("/tickets/:id/priority", cfg.AgentTickets.ChangePriority)
	agent.Put("/availability", cfg.Agents.SetAvailability)
	agent.Get("/sentiment/summary", cfg.Sentiment.Summary)
	agent.Get("/sentiment/conversations/:conversation_id", cfg.Sentiment.ConversationLogs)

	// Administrative surface.
	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAgentRole(domain.AgentRoleAdmin))
	admin.Post("/agents", cfg.Agents.CreateAgent)
	admin.Get("/agents", cfg.Agents.ListAgents)
	admin.Get("/agents/:id", cfg.Agents.GetAgent)
	admin.Put("/agents/:id", cfg.Agents.UpdateAgent)
	admin.Post("/departments", cfg.Admin.CreateDepartment)
	admin.Get("/departments", cfg.Admin.ListDepartments)
	admin.Put("/departments/:id", cfg.Admin.UpdateDepartment)
	admin.Get("/sla-policies", cfg.Admin.ListSlaPolicies)
	admin.Put("/sla-policies", cfg.Admin.UpsertSlaPolicy)
	admin.Delete("/sla-policies/:id", cfg.Admin.DeleteSlaPolicy)
	admin.Get("/routing-rules", cfg.Admin.ListRoutingRules)
	admin.Post("/routing-rules", cfg.Admin.CreateRoutingRule)
	admin.Put("/routing-rules/reorder", cfg.Admin.ReorderRoutingRules)
	admin.Put("/routing-rules/:id", cfg.Admin.UpdateRoutingRule)
	admin.Delete("/routing-rules/:id", cfg.Admin.DeleteRoutingRule)
}
