package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// AdminService manages routing and SLA configuration: departments, SLA
// policies, and the ordered routing rule list. All mutations require the
// ADMIN role; reads are open to any agent.
type AdminService struct {
	departments repository.DepartmentRepository
	policies    repository.SlaPolicyRepository
	rules       repository.RoutingRuleRepository
	agents      repository.AgentRepository
	logger      *zap.Logger
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	DepartmentRepo repository.DepartmentRepository
	SlaPolicyRepo  repository.SlaPolicyRepository
	RuleRepo       repository.RoutingRuleRepository
	AgentRepo      repository.AgentRepository
	Logger         *zap.Logger
}

// DepartmentCreateInput describes a new department.
type DepartmentCreateInput struct {
	Name         string
	Description  string
	SupervisorID *string
}

// DepartmentUpdateInput carries optional patches; nil fields stay unchanged.
type DepartmentUpdateInput struct {
	Name         *string
	Description  *string
	SupervisorID *string
	IsActive     *bool
}

// SlaPolicyInput describes one (department, priority) time budget. A nil
// DepartmentID targets the global default for the priority.
type SlaPolicyInput struct {
	DepartmentID         *string
	Priority             domain.TicketPriority
	FirstResponseMinutes int
	ResolutionMinutes    int
}

// RoutingRuleCreateInput describes a new rule, appended to the end of the
// evaluation order.
type RoutingRuleCreateInput struct {
	Name          string
	Keywords      []string
	Priorities    []domain.TicketPriority
	RequiredSkill string
	Weight        float64
	IsActive      *bool
}

// RoutingRuleUpdateInput carries optional patches; nil fields stay unchanged.
type RoutingRuleUpdateInput struct {
	Name          *string
	Keywords      []string
	Priorities    []domain.TicketPriority
	RequiredSkill *string
	Weight        *float64
	IsActive      *bool
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		departments: deps.DepartmentRepo,
		policies:    deps.SlaPolicyRepo,
		rules:       deps.RuleRepo,
		agents:      deps.AgentRepo,
		logger:      deps.Logger,
	}
}

// CreateDepartment registers a new active department.
func (s *AdminService) CreateDepartment(ctx context.Context, actor *domain.Agent, input DepartmentCreateInput) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.checkSupervisor(ctx, input.SupervisorID); err != nil {
		return nil, err
	}

	dept := &domain.Department{
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		SupervisorID: input.SupervisorID,
		IsActive:     true,
	}
	if err := s.departments.Create(ctx, dept); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("department created",
		zap.String("department_id", dept.ID),
		zap.String("name", dept.Name),
		zap.String("actor_id", actor.ID))
	return dept, nil
}

// UpdateDepartment applies a patch. Deactivating a department stops new
// tickets from routing into it; existing tickets are untouched.
func (s *AdminService) UpdateDepartment(ctx context.Context, actor *domain.Agent, departmentID string, input DepartmentUpdateInput) (*domain.Department, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	dept, err := s.departments.GetByID(ctx, departmentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil {
		dept.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		dept.Description = strings.TrimSpace(*input.Description)
	}
	if input.SupervisorID != nil {
		if err := s.checkSupervisor(ctx, input.SupervisorID); err != nil {
			return nil, err
		}
		dept.SupervisorID = input.SupervisorID
	}
	if input.IsActive != nil {
		dept.IsActive = *input.IsActive
	}

	if err := s.departments.Update(ctx, dept); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": departmentID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("department updated",
		zap.String("department_id", dept.ID),
		zap.Bool("is_active", dept.IsActive),
		zap.String("actor_id", actor.ID))
	return dept, nil
}

// ListDepartments returns every active department.
func (s *AdminService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	departments, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return departments, nil
}

// UpsertSlaPolicy writes the time budget for one (department, priority)
// pair, creating the row when it does not exist yet.
func (s *AdminService) UpsertSlaPolicy(ctx context.Context, actor *domain.Agent, input SlaPolicyInput) (*domain.SlaPolicy, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.ResolutionMinutes < input.FirstResponseMinutes {
		return nil, apperrors.NewValidationError("resolution window shorter than first response window", map[string]any{
			"first_response_minutes": input.FirstResponseMinutes,
			"resolution_minutes":     input.ResolutionMinutes,
		})
	}
	if input.DepartmentID != nil {
		if _, err := s.departments.GetByID(ctx, *input.DepartmentID); err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("department", map[string]any{"department_id": *input.DepartmentID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	existing, err := s.lookupPolicy(ctx, input.DepartmentID, input.Priority)
	if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}

	if existing != nil {
		existing.FirstResponseMinutes = input.FirstResponseMinutes
		existing.ResolutionMinutes = input.ResolutionMinutes
		if err := s.policies.Update(ctx, existing); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.logPolicyChange("sla policy updated", existing, actor)
		return existing, nil
	}

	policy := &domain.SlaPolicy{
		DepartmentID:         input.DepartmentID,
		Priority:             input.Priority,
		FirstResponseMinutes: input.FirstResponseMinutes,
		ResolutionMinutes:    input.ResolutionMinutes,
	}
	if err := s.policies.Create(ctx, policy); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logPolicyChange("sla policy created", policy, actor)
	return policy, nil
}

// DeleteSlaPolicy removes a policy row. Deleting the last global default for
// a priority makes tickets of that priority unroutable, so it is refused
// while department policies still lean on it.
func (s *AdminService) DeleteSlaPolicy(ctx context.Context, actor *domain.Agent, policyID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	policy, err := s.policies.GetByID(ctx, policyID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policyID})
		}
		return apperrors.MapError(err)
	}

	if policy.DepartmentID == nil {
		others, err := s.policies.List(ctx)
		if err != nil {
			return apperrors.MapError(err)
		}
		for i := range others {
			p := &others[i]
			if p.DepartmentID != nil && p.Priority == policy.Priority {
				return apperrors.NewConflict("global default still backs department policies", map[string]any{
					"priority": string(policy.Priority),
				})
			}
		}
	}

	if err := s.policies.Delete(ctx, policyID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("sla policy", map[string]any{"policy_id": policyID})
		}
		return apperrors.MapError(err)
	}
	s.logPolicyChange("sla policy deleted", policy, actor)
	return nil
}

// ListSlaPolicies returns all policies, defaults included.
func (s *AdminService) ListSlaPolicies(ctx context.Context) ([]domain.SlaPolicy, error) {
	policies, err := s.policies.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return policies, nil
}

// CreateRoutingRule appends a rule to the evaluation order.
func (s *AdminService) CreateRoutingRule(ctx context.Context, actor *domain.Agent, input RoutingRuleCreateInput) (*domain.RoutingRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	rule := &domain.RoutingRule{
		Name:          strings.TrimSpace(input.Name),
		Keywords:      normalizeKeywords(input.Keywords),
		Priorities:    input.Priorities,
		RequiredSkill: strings.TrimSpace(input.RequiredSkill),
		Weight:        input.Weight,
		Position:      len(existing) + 1,
		IsActive:      active,
	}
	if len(rule.Keywords) == 0 {
		return nil, apperrors.NewValidationError("at least one keyword required", nil)
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("routing rule created",
		zap.String("rule_id", rule.ID),
		zap.String("name", rule.Name),
		zap.Int("position", rule.Position),
		zap.String("actor_id", actor.ID))
	return rule, nil
}

// UpdateRoutingRule applies a patch to one rule. Position changes go through
// ReorderRoutingRules so the order stays dense.
func (s *AdminService) UpdateRoutingRule(ctx context.Context, actor *domain.Agent, ruleID string, input RoutingRuleUpdateInput) (*domain.RoutingRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	rule, err := s.rules.GetByID(ctx, ruleID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("routing rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}

	if input.Name != nil {
		rule.Name = strings.TrimSpace(*input.Name)
	}
	if input.Keywords != nil {
		keywords := normalizeKeywords(input.Keywords)
		if len(keywords) == 0 {
			return nil, apperrors.NewValidationError("at least one keyword required", nil)
		}
		rule.Keywords = keywords
	}
	if input.Priorities != nil {
		rule.Priorities = input.Priorities
	}
	if input.RequiredSkill != nil {
		rule.RequiredSkill = strings.TrimSpace(*input.RequiredSkill)
	}
	if input.Weight != nil {
		rule.Weight = *input.Weight
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("routing rule", map[string]any{"rule_id": ruleID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("routing rule updated",
		zap.String("rule_id", rule.ID),
		zap.Bool("is_active", rule.IsActive),
		zap.String("actor_id", actor.ID))
	return rule, nil
}

// DeleteRoutingRule removes a rule and compacts the positions behind it.
func (s *AdminService) DeleteRoutingRule(ctx context.Context, actor *domain.Agent, ruleID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}

	if err := s.rules.Delete(ctx, ruleID); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("routing rule", map[string]any{"rule_id": ruleID})
		}
		return apperrors.MapError(err)
	}

	remaining, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return apperrors.MapError(err)
	}
	for i := range remaining {
		rule := &remaining[i]
		if rule.Position == i+1 {
			continue
		}
		rule.Position = i + 1
		if err := s.rules.Update(ctx, rule); err != nil {
			return apperrors.MapError(err)
		}
	}
	s.logger.Info("routing rule deleted",
		zap.String("rule_id", ruleID),
		zap.String("actor_id", actor.ID))
	return nil
}

// ReorderRoutingRules rewrites the evaluation order. The ID list must name
// every existing rule exactly once.
func (s *AdminService) ReorderRoutingRules(ctx context.Context, actor *domain.Agent, ruleIDs []string) ([]domain.RoutingRule, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	existing, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	byID := make(map[string]*domain.RoutingRule, len(existing))
	for i := range existing {
		byID[existing[i].ID] = &existing[i]
	}
	if len(ruleIDs) != len(existing) {
		return nil, apperrors.NewValidationError("reorder must list every rule exactly once", map[string]any{
			"expected": len(existing),
			"got":      len(ruleIDs),
		})
	}

	seen := make(map[string]struct{}, len(ruleIDs))
	ordered := make([]domain.RoutingRule, 0, len(ruleIDs))
	for i, id := range ruleIDs {
		rule, ok := byID[id]
		if !ok {
			return nil, apperrors.NewValidationError("unknown rule in reorder", map[string]any{"rule_id": id})
		}
		if _, dup := seen[id]; dup {
			return nil, apperrors.NewValidationError("duplicate rule in reorder", map[string]any{"rule_id": id})
		}
		seen[id] = struct{}{}
		rule.Position = i + 1
		ordered = append(ordered, *rule)
	}

	for i := range ordered {
		if err := s.rules.Update(ctx, &ordered[i]); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	s.logger.Info("routing rules reordered",
		zap.Int("count", len(ordered)),
		zap.String("actor_id", actor.ID))
	return ordered, nil
}

// ListRoutingRules returns all rules in evaluation order.
func (s *AdminService) ListRoutingRules(ctx context.Context) ([]domain.RoutingRule, error) {
	rules, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return rules, nil
}

func (s *AdminService) lookupPolicy(ctx context.Context, departmentID *string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	if departmentID == nil {
		return s.policies.GetDefault(ctx, priority)
	}
	return s.policies.Get(ctx, *departmentID, priority)
}

func (s *AdminService) checkSupervisor(ctx context.Context, supervisorID *string) error {
	if supervisorID == nil {
		return nil
	}
	supervisor, err := s.agents.GetByID(ctx, *supervisorID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("agent", map[string]any{"agent_id": *supervisorID})
		}
		return apperrors.MapError(err)
	}
	if supervisor.Role == domain.AgentRoleAgent {
		return apperrors.NewValidationError("supervisor must hold SUPERVISOR or ADMIN role", map[string]any{
			"agent_id": *supervisorID,
		})
	}
	return nil
}

func (s *AdminService) logPolicyChange(msg string, policy *domain.SlaPolicy, actor *domain.Agent) {
	fields := []zap.Field{
		zap.String("policy_id", policy.ID),
		zap.String("priority", string(policy.Priority)),
		zap.Int("first_response_minutes", policy.FirstResponseMinutes),
		zap.Int("resolution_minutes", policy.ResolutionMinutes),
		zap.String("actor_id", actor.ID),
	}
	if policy.DepartmentID != nil {
		fields = append(fields, zap.String("department_id", *policy.DepartmentID))
	} else {
		fields = append(fields, zap.Bool("global_default", true))
	}
	s.logger.Info(msg, fields...)
}

func normalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}
