package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-engine/internal/api/dto"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/service"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AdminHandler manages routing and SLA configuration endpoints.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: adminService}
}

// CreateDepartment POST /admin/departments.
func (h *AdminHandler) CreateDepartment(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dept, err := h.admin.CreateDepartment(c.Context(), actor, service.DepartmentCreateInput{
		Name:         req.Name,
		Description:  req.Description,
		SupervisorID: req.SupervisorID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": departmentResponse(dept)})
}

// UpdateDepartment PUT /admin/departments/:id.
func (h *AdminHandler) UpdateDepartment(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateDepartmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	dept, err := h.admin.UpdateDepartment(c.Context(), actor, c.Params("id"), service.DepartmentUpdateInput{
		Name:         req.Name,
		Description:  req.Description,
		SupervisorID: req.SupervisorID,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": departmentResponse(dept)})
}

// ListDepartments GET /admin/departments.
func (h *AdminHandler) ListDepartments(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	departments, err := h.admin.ListDepartments(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.DepartmentResponse, 0, len(departments))
	for i := range departments {
		items = append(items, departmentResponse(&departments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListSlaPolicies GET /admin/sla-policies.
func (h *AdminHandler) ListSlaPolicies(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	policies, err := h.admin.ListSlaPolicies(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.SlaPolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, slaPolicyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpsertSlaPolicy PUT /admin/sla-policies.
func (h *AdminHandler) UpsertSlaPolicy(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpsertSlaPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	policy, err := h.admin.UpsertSlaPolicy(c.Context(), actor, service.SlaPolicyInput{
		DepartmentID:         req.DepartmentID,
		Priority:             req.Priority,
		FirstResponseMinutes: req.FirstResponseMinutes,
		ResolutionMinutes:    req.ResolutionMinutes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": slaPolicyResponse(policy)})
}

// DeleteSlaPolicy DELETE /admin/sla-policies/:id.
func (h *AdminHandler) DeleteSlaPolicy(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteSlaPolicy(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListRoutingRules GET /admin/routing-rules.
func (h *AdminHandler) ListRoutingRules(c *fiber.Ctx) error {
	if _, err := agentPrincipal(c); err != nil {
		return err
	}
	rules, err := h.admin.ListRoutingRules(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routingRuleResponses(rules)})
}

// CreateRoutingRule POST /admin/routing-rules.
func (h *AdminHandler) CreateRoutingRule(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateRoutingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	rule, err := h.admin.CreateRoutingRule(c.Context(), actor, service.RoutingRuleCreateInput{
		Name:          req.Name,
		Keywords:      req.Keywords,
		Priorities:    req.Priorities,
		RequiredSkill: req.RequiredSkill,
		Weight:        req.Weight,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": routingRuleResponse(rule)})
}

// UpdateRoutingRule PUT /admin/routing-rules/:id.
func (h *AdminHandler) UpdateRoutingRule(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateRoutingRuleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	rule, err := h.admin.UpdateRoutingRule(c.Context(), actor, c.Params("id"), service.RoutingRuleUpdateInput{
		Name:          req.Name,
		Keywords:      req.Keywords,
		Priorities:    req.Priorities,
		RequiredSkill: req.RequiredSkill,
		Weight:        req.Weight,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routingRuleResponse(rule)})
}

// DeleteRoutingRule DELETE /admin/routing-rules/:id.
func (h *AdminHandler) DeleteRoutingRule(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteRoutingRule(c.Context(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ReorderRoutingRules PUT /admin/routing-rules/reorder.
func (h *AdminHandler) ReorderRoutingRules(c *fiber.Ctx) error {
	actor, err := agentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReorderRoutingRulesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	rules, err := h.admin.ReorderRoutingRules(c.Context(), actor, req.RuleIDs)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routingRuleResponses(rules)})
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:           dept.ID,
		Name:         dept.Name,
		Description:  dept.Description,
		SupervisorID: dept.SupervisorID,
		IsActive:     dept.IsActive,
		CreatedAt:    dept.CreatedAt,
		UpdatedAt:    dept.UpdatedAt,
	}
}

func slaPolicyResponse(policy *domain.SlaPolicy) dto.SlaPolicyResponse {
	return dto.SlaPolicyResponse{
		ID:                   policy.ID,
		DepartmentID:         policy.DepartmentID,
		Priority:             policy.Priority,
		FirstResponseMinutes: policy.FirstResponseMinutes,
		ResolutionMinutes:    policy.ResolutionMinutes,
		CreatedAt:            policy.CreatedAt,
		UpdatedAt:            policy.UpdatedAt,
	}
}

func routingRuleResponse(rule *domain.RoutingRule) dto.RoutingRuleResponse {
	return dto.RoutingRuleResponse{
		ID:            rule.ID,
		Name:          rule.Name,
		Keywords:      rule.Keywords,
		Priorities:    rule.Priorities,
		RequiredSkill: rule.RequiredSkill,
		Weight:        rule.Weight,
		Position:      rule.Position,
		IsActive:      rule.IsActive,
		CreatedAt:     rule.CreatedAt,
		UpdatedAt:     rule.UpdatedAt,
	}
}

func routingRuleResponses(rules []domain.RoutingRule) []dto.RoutingRuleResponse {
	items := make([]dto.RoutingRuleResponse, 0, len(rules))
	for i := range rules {
		items = append(items, routingRuleResponse(&rules[i]))
	}
	return items
}
