package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AgentsHandler manages the agent directory.
type AgentsHandler struct {
	agents *service.AgentService
}

// NewAgentsHandler constructs handler.
func NewAgentsHandler(agentService *service.AgentService) *AgentsHandler {
	return &AgentsHandler{agents: agentService}
}

// CreateAgent POST /admin/agents.
func (h *AgentsHandler) CreateAgent(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	agent, err := h.agents.CreateAgent(c.Context(), actor, service.AgentCreateInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Role:          req.Role,
		Tier:          req.Tier,
		DepartmentIDs: req.DepartmentIDs,
		Skills:        req.Skills,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": agentResponse(agent)})
}

// ListAgents GET /admin/agents.
func (h *AgentsHandler) ListAgents(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	filter := repository.AgentFilter{}
	if deptID := c.Query("department_id"); deptID != "" {
		filter.DepartmentID = &deptID
	}
	if role := c.Query("role"); role != "" {
		agentRole := domain.AgentRole(role)
		filter.Role = &agentRole
	}
	if avail := c.Query("available"); avail != "" {
		val := avail == "true" || avail == "1"
		filter.Available = &val
	}

	agents, err := h.agents.ListAgents(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		items = append(items, agentResponse(&agents[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetAgent GET /admin/agents/:id.
func (h *AgentsHandler) GetAgent(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	agent, err := h.agents.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(agent)})
}

// UpdateAgent PUT /admin/agents/:id.
func (h *AgentsHandler) UpdateAgent(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	agent, err := h.agents.GetAgent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if req.Name != nil {
		agent.Name = *req.Name
	}
	if req.Role != nil {
		agent.Role = *req.Role
	}
	if req.Tier != nil {
		agent.Tier = *req.Tier
	}
	if req.DepartmentIDs != nil {
		agent.DepartmentIDs = req.DepartmentIDs
	}
	if req.Skills != nil {
		agent.Skills = req.Skills
	}

	updated, err := h.agents.UpdateAgent(c.Context(), actor, agent)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": agentResponse(updated)})
}

// SetAvailability PUT /agent/availability. Agents toggle themselves; admins
// may pass ?agent_id= to toggle someone else.
func (h *AgentsHandler) SetAvailability(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.SetAvailabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	targetID := actor.ID
	if override := c.Query("agent_id"); override != "" {
		targetID = override
	}
	if err := h.agents.SetAvailability(c.Context(), actor, targetID, *req.Available); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"agent_id":  targetID,
		"available": *req.Available,
	}})
}
