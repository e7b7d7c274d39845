package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentTicketsHandler handles the agent-side ticket workflow.
type AgentTicketsHandler struct {
	tickets *service.TicketService
}

// NewAgentTicketsHandler constructs handler.
func NewAgentTicketsHandler(ticketService *service.TicketService) *AgentTicketsHandler {
	return &AgentTicketsHandler{tickets: ticketService}
}

// ListTickets GET /agent/tickets.
func (h *AgentTicketsHandler) ListTickets(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseAgentTicketFilter(c)
	tickets, err := h.tickets.ListAgentTickets(c.Context(), agent, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /agent/tickets/:id.
func (h *AgentTicketsHandler) GetTicket(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketForAgent(c.Context(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), agent, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// GetTicketByKey GET /agent/tickets/key/:key.
func (h *AgentTicketsHandler) GetTicketByKey(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketByExternalKey(c.Context(), agent, c.Params("key"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), agent, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// GetTicketHistory GET /agent/tickets/:id/history.
func (h *AgentTicketsHandler) GetTicketHistory(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistory(c.Context(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// AssignTicket POST /agent/tickets/:id/assign.
func (h *AgentTicketsHandler) AssignTicket(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	assigneeID := strings.TrimSpace(req.AgentID)
	if assigneeID == "" {
		assigneeID = agent.ID
	}
	ticket, err := h.tickets.Assign(c.Context(), agent, c.Params("id"), assigneeID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ResolveTicket POST /agent/tickets/:id/resolve.
func (h *AgentTicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Resolve(c.Context(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// CloseTicket POST /agent/tickets/:id/close.
func (h *AgentTicketsHandler) CloseTicket(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.Close(c.Context(), agent, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// EscalateTicket POST /agent/tickets/:id/escalate.
func (h *AgentTicketsHandler) EscalateTicket(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.EscalateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.tickets.Escalate(c.Context(), agent, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ChangePriority POST /agent/tickets/:id/priority.
func (h *AgentTicketsHandler) ChangePriority(c *fiber.Ctx) error {
	agent, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChangePriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}
	ticket, err := h.tickets.ChangePriority(c.Context(), agent, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func agentPrincipal(c *fiber.Ctx) (*domain.Agent, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return principal.Agent, nil
}

func parseAgentTicketFilter(c *fiber.Ctx) service.TicketAgentFilter {
	filter := service.TicketAgentFilter{}
	if deptID := c.Query("department_id"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if assignee := c.Query("assigned_agent_id"); assignee != "" {
		filter.AssignedAgentID = &assignee
	}
	if statuses := c.Query("status"); statuses != "" {
		for _, part := range strings.Split(statuses, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorities := c.Query("priority"); priorities != "" {
		for _, part := range strings.Split(priorities, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if breached := c.Query("sla_breached"); breached != "" {
		val := breached == "true" || breached == "1"
		filter.SlaBreached = &val
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.CreatedFrom = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.CreatedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}
