package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// TicketsHandler manages end-user ticket endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		ConversationID: req.ConversationID,
		DepartmentID:   req.DepartmentID,
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
	}
	result, err := h.tickets.CreateTicket(c.Context(), user.ID, input)
	if err != nil {
		return err
	}
	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	return c.Status(status).JSON(fiber.Map{
		"data":   ticketSummary(result.Ticket),
		"reused": result.Reused,
	})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	filter := parseUserTicketQuery(c)
	tickets, err := h.tickets.ListUserTickets(c.Context(), user.ID, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicketForUser(c.Context(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistoryForUser(c.Context(), user.ID, ticket.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, history)})
}

// GetTicketHistory GET /tickets/:id/history.
func (h *TicketsHandler) GetTicketHistory(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	history, err := h.tickets.ListHistoryForUser(c.Context(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": historyResponses(history)})
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	user, err := userPrincipal(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.CloseAsUser(c.Context(), user.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func userPrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func parseUserTicketQuery(c *fiber.Ctx) service.TicketUserFilter {
	filter := service.TicketUserFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
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

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		ExternalKey:     ticket.ExternalKey,
		ConversationID:  ticket.ConversationID,
		DepartmentID:    ticket.DepartmentID,
		AssignedAgentID: ticket.AssignedAgentID,
		Title:           ticket.Title,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		SlaDueAt:        ticket.SlaDueAt,
		SlaBreached:     ticket.SlaBreached,
		EscalationLevel: ticket.EscalationLevel,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, history []domain.TicketHistory) dto.TicketDetailResponse {
	return dto.TicketDetailResponse{
		ID:                  ticket.ID,
		ExternalKey:         ticket.ExternalKey,
		ConversationID:      ticket.ConversationID,
		DepartmentID:        ticket.DepartmentID,
		AssignedAgentID:     ticket.AssignedAgentID,
		Title:               ticket.Title,
		Description:         ticket.Description,
		Status:              ticket.Status,
		Priority:            ticket.Priority,
		SlaDueAt:            ticket.SlaDueAt,
		ResolutionDueAt:     ticket.ResolutionDueAt,
		SlaBreached:         ticket.SlaBreached,
		EscalationLevel:     ticket.EscalationLevel,
		EscalationReason:    ticket.EscalationReason,
		RoutingMethod:       ticket.RoutingMethod,
		MatchedRuleName:     ticket.MatchedRuleName,
		SentimentScore:      ticket.SentimentScore,
		SentimentLabel:      ticket.SentimentLabel,
		SentimentConfidence: ticket.SentimentConfidence,
		FirstResponseAt:     ticket.FirstResponseAt,
		ResolvedAt:          ticket.ResolvedAt,
		ClosedAt:            ticket.ClosedAt,
		CreatedAt:           ticket.CreatedAt,
		UpdatedAt:           ticket.UpdatedAt,
		History:             historyResponses(history),
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
