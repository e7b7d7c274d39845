package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

type fakeSlaPolicyRepo struct {
	policies []domain.SlaPolicy
	seq      int
}

func (r *fakeSlaPolicyRepo) Create(_ context.Context, policy *domain.SlaPolicy) error {
	r.seq++
	if policy.ID == "" {
		policy.ID = "p-" + strconv.Itoa(r.seq)
	}
	policy.CreatedAt = testNow
	policy.UpdatedAt = testNow
	r.policies = append(r.policies, *policy)
	return nil
}

func (r *fakeSlaPolicyRepo) Update(_ context.Context, policy *domain.SlaPolicy) error {
	for i := range r.policies {
		if r.policies[i].ID == policy.ID {
			policy.UpdatedAt = testNow
			r.policies[i] = *policy
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeSlaPolicyRepo) Delete(_ context.Context, id string) error {
	for i := range r.policies {
		if r.policies[i].ID == id {
			r.policies = append(r.policies[:i], r.policies[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (r *fakeSlaPolicyRepo) GetByID(_ context.Context, id string) (*domain.SlaPolicy, error) {
	for i := range r.policies {
		if r.policies[i].ID == id {
			copied := r.policies[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSlaPolicyRepo) Get(_ context.Context, departmentID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	for i := range r.policies {
		p := r.policies[i]
		if p.DepartmentID != nil && *p.DepartmentID == departmentID && p.Priority == priority {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeSlaPolicyRepo) GetDefault(_ context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	for i := range r.policies {
		p := r.policies[i]
		if p.DepartmentID == nil && p.Priority == priority {
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeSlaPolicyRepo) List(_ context.Context) ([]domain.SlaPolicy, error) {
	out := make([]domain.SlaPolicy, len(r.policies))
	copy(out, r.policies)
	return out, nil
}

type fakeAgentRepo struct {
	agents map[string]*domain.Agent
	seq    int
}

func (r *fakeAgentRepo) Create(_ context.Context, agent *domain.Agent) error {
	r.seq++
	if agent.ID == "" {
		agent.ID = "ag-" + strconv.Itoa(r.seq)
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) Update(_ context.Context, agent *domain.Agent) error {
	if _, ok := r.agents[agent.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.agents[agent.ID] = agent
	return nil
}

func (r *fakeAgentRepo) SetAvailability(_ context.Context, id string, available bool) error {
	agent, ok := r.agents[id]
	if !ok {
		return pgx.ErrNoRows
	}
	agent.IsAvailable = available
	return nil
}

func (r *fakeAgentRepo) GetByID(_ context.Context, id string) (*domain.Agent, error) {
	agent, ok := r.agents[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *agent
	return &copied, nil
}

func (r *fakeAgentRepo) GetByEmail(_ context.Context, email string) (*domain.Agent, error) {
	for _, agent := range r.agents {
		if agent.Email == email {
			copied := *agent
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeAgentRepo) ListAvailableByDepartment(_ context.Context, departmentID string) ([]domain.Agent, error) {
	var out []domain.Agent
	for _, agent := range r.agents {
		if !agent.IsAvailable {
			continue
		}
		for _, dept := range agent.DepartmentIDs {
			if dept == departmentID {
				out = append(out, *agent)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeAgentRepo) List(_ context.Context, _ repository.AgentFilter) ([]domain.Agent, error) {
	var out []domain.Agent
	for _, agent := range r.agents {
		out = append(out, *agent)
	}
	return out, nil
}

type adminHarness struct {
	svc      *AdminService
	depts    *fakeDeptRepo
	policies *fakeSlaPolicyRepo
	rules    *fakeRuleRepo
	agents   *fakeAgentRepo
}

func newAdminHarness() *adminHarness {
	depts := &fakeDeptRepo{departments: map[string]*domain.Department{
		"billing": {ID: "billing", Name: "Billing", IsActive: true},
	}}
	h := &adminHarness{
		depts:    depts,
		policies: &fakeSlaPolicyRepo{},
		rules:    &fakeRuleRepo{},
		agents:   &fakeAgentRepo{agents: map[string]*domain.Agent{}},
	}
	h.svc = NewAdminService(AdminDependencies{
		DepartmentRepo: h.depts,
		SlaPolicyRepo:  h.policies,
		RuleRepo:       h.rules,
		AgentRepo:      h.agents,
		Logger:         zap.NewNop(),
	})
	return h
}

func adminActor() *domain.Agent {
	return agentFixture("admin-1", 3, domain.AgentRoleAdmin, nil, nil)
}

func strPtr(s string) *string { return &s }

func TestAdminMutationsRequireAdminRole(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	supervisor := agentFixture("sup-1", 2, domain.AgentRoleSupervisor, []string{"billing"}, nil)

	calls := []struct {
		name string
		run  func(actor *domain.Agent) error
	}{
		{"create department", func(a *domain.Agent) error {
			_, err := h.svc.CreateDepartment(ctx, a, DepartmentCreateInput{Name: "X"})
			return err
		}},
		{"update department", func(a *domain.Agent) error {
			_, err := h.svc.UpdateDepartment(ctx, a, "billing", DepartmentUpdateInput{})
			return err
		}},
		{"upsert sla policy", func(a *domain.Agent) error {
			_, err := h.svc.UpsertSlaPolicy(ctx, a, SlaPolicyInput{Priority: domain.TicketPriorityHigh, FirstResponseMinutes: 30, ResolutionMinutes: 480})
			return err
		}},
		{"delete sla policy", func(a *domain.Agent) error {
			return h.svc.DeleteSlaPolicy(ctx, a, "p-1")
		}},
		{"create routing rule", func(a *domain.Agent) error {
			_, err := h.svc.CreateRoutingRule(ctx, a, RoutingRuleCreateInput{Name: "x", Keywords: []string{"x"}})
			return err
		}},
		{"update routing rule", func(a *domain.Agent) error {
			_, err := h.svc.UpdateRoutingRule(ctx, a, "r-1", RoutingRuleUpdateInput{})
			return err
		}},
		{"delete routing rule", func(a *domain.Agent) error {
			return h.svc.DeleteRoutingRule(ctx, a, "r-1")
		}},
		{"reorder routing rules", func(a *domain.Agent) error {
			_, err := h.svc.ReorderRoutingRules(ctx, a, nil)
			return err
		}},
	}

	for _, call := range calls {
		t.Run(call.name, func(t *testing.T) {
			err := call.run(supervisor)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

			err = call.run(nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
		})
	}
}

func TestUpsertSlaPolicy(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	t.Run("creates department policy", func(t *testing.T) {
		policy, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			DepartmentID:         strPtr("billing"),
			Priority:             domain.TicketPriorityHigh,
			FirstResponseMinutes: 30,
			ResolutionMinutes:    480,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, policy.ID)
		require.NotNil(t, policy.DepartmentID)
		assert.Equal(t, "billing", *policy.DepartmentID)
		assert.Len(t, h.policies.policies, 1)
	})

	t.Run("updates the existing row in place", func(t *testing.T) {
		policy, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			DepartmentID:         strPtr("billing"),
			Priority:             domain.TicketPriorityHigh,
			FirstResponseMinutes: 45,
			ResolutionMinutes:    600,
		})
		require.NoError(t, err)
		require.Len(t, h.policies.policies, 1)
		assert.Equal(t, h.policies.policies[0].ID, policy.ID)
		assert.Equal(t, 45, h.policies.policies[0].FirstResponseMinutes)
		assert.Equal(t, 600, h.policies.policies[0].ResolutionMinutes)
	})

	t.Run("nil department targets the global default", func(t *testing.T) {
		policy, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			Priority:             domain.TicketPriorityCritical,
			FirstResponseMinutes: 15,
			ResolutionMinutes:    240,
		})
		require.NoError(t, err)
		assert.Nil(t, policy.DepartmentID)
		assert.Len(t, h.policies.policies, 2)
	})

	t.Run("equal windows are allowed", func(t *testing.T) {
		_, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			Priority:             domain.TicketPriorityLow,
			FirstResponseMinutes: 60,
			ResolutionMinutes:    60,
		})
		require.NoError(t, err)
	})

	t.Run("resolution shorter than first response is rejected", func(t *testing.T) {
		_, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			Priority:             domain.TicketPriorityMedium,
			FirstResponseMinutes: 120,
			ResolutionMinutes:    60,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("unknown department is rejected", func(t *testing.T) {
		_, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
			DepartmentID:         strPtr("nope"),
			Priority:             domain.TicketPriorityHigh,
			FirstResponseMinutes: 30,
			ResolutionMinutes:    480,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestDeleteSlaPolicy(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	globalHigh, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
		Priority: domain.TicketPriorityHigh, FirstResponseMinutes: 60, ResolutionMinutes: 480,
	})
	require.NoError(t, err)
	deptHigh, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
		DepartmentID: strPtr("billing"), Priority: domain.TicketPriorityHigh, FirstResponseMinutes: 30, ResolutionMinutes: 480,
	})
	require.NoError(t, err)
	globalLow, err := h.svc.UpsertSlaPolicy(ctx, actor, SlaPolicyInput{
		Priority: domain.TicketPriorityLow, FirstResponseMinutes: 480, ResolutionMinutes: 2880,
	})
	require.NoError(t, err)

	t.Run("global default backing a department policy is kept", func(t *testing.T) {
		err := h.svc.DeleteSlaPolicy(ctx, actor, globalHigh.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
		assert.Len(t, h.policies.policies, 3)
	})

	t.Run("department policy deletes cleanly", func(t *testing.T) {
		require.NoError(t, h.svc.DeleteSlaPolicy(ctx, actor, deptHigh.ID))
		assert.Len(t, h.policies.policies, 2)
	})

	t.Run("unbacked global default deletes cleanly", func(t *testing.T) {
		require.NoError(t, h.svc.DeleteSlaPolicy(ctx, actor, globalLow.ID))
		assert.Len(t, h.policies.policies, 1)
	})

	t.Run("unknown policy", func(t *testing.T) {
		err := h.svc.DeleteSlaPolicy(ctx, actor, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestCreateRoutingRule(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	first, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
		Name:          "refunds",
		Keywords:      []string{" Refund ", "refund", "URGENT"},
		RequiredSkill: "billing",
		Weight:        0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.Equal(t, []string{"refund", "urgent"}, first.Keywords)
	assert.True(t, first.IsActive)

	inactive := false
	second, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
		Name:     "shipping",
		Keywords: []string{"delivery"},
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Position)
	assert.False(t, second.IsActive)

	t.Run("keywords collapsing to nothing are rejected", func(t *testing.T) {
		_, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
			Name:     "empty",
			Keywords: []string{"  ", ""},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
		assert.Len(t, h.rules.rules, 2)
	})
}

func TestUpdateRoutingRule(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	rule, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
		Name:          "refunds",
		Keywords:      []string{"refund"},
		Priorities:    []domain.TicketPriority{domain.TicketPriorityHigh},
		RequiredSkill: "billing",
		Weight:        0.9,
	})
	require.NoError(t, err)

	t.Run("applies the patch and keeps omitted fields", func(t *testing.T) {
		weight := 0.4
		inactive := false
		updated, err := h.svc.UpdateRoutingRule(ctx, actor, rule.ID, RoutingRuleUpdateInput{
			Name:     strPtr("refunds-v2"),
			Weight:   &weight,
			IsActive: &inactive,
		})
		require.NoError(t, err)
		assert.Equal(t, "refunds-v2", updated.Name)
		assert.InDelta(t, 0.4, updated.Weight, 1e-9)
		assert.False(t, updated.IsActive)
		assert.Equal(t, []string{"refund"}, updated.Keywords)
		assert.Equal(t, 1, updated.Position)
	})

	t.Run("empty priorities list clears the filter", func(t *testing.T) {
		updated, err := h.svc.UpdateRoutingRule(ctx, actor, rule.ID, RoutingRuleUpdateInput{
			Priorities: []domain.TicketPriority{},
		})
		require.NoError(t, err)
		assert.Empty(t, updated.Priorities)
	})

	t.Run("keywords collapsing to nothing are rejected", func(t *testing.T) {
		_, err := h.svc.UpdateRoutingRule(ctx, actor, rule.ID, RoutingRuleUpdateInput{
			Keywords: []string{"  "},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := h.svc.UpdateRoutingRule(ctx, actor, "missing", RoutingRuleUpdateInput{})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestDeleteRoutingRuleCompactsPositions(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rule, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
			Name: name, Keywords: []string{name},
		})
		require.NoError(t, err)
		ids = append(ids, rule.ID)
	}

	require.NoError(t, h.svc.DeleteRoutingRule(ctx, actor, ids[1]))

	remaining, err := h.svc.ListRoutingRules(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, "a", remaining[0].Name)
	assert.Equal(t, 1, remaining[0].Position)
	assert.Equal(t, "c", remaining[1].Name)
	assert.Equal(t, 2, remaining[1].Position)

	t.Run("unknown rule", func(t *testing.T) {
		err := h.svc.DeleteRoutingRule(ctx, actor, "missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestReorderRoutingRules(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		rule, err := h.svc.CreateRoutingRule(ctx, actor, RoutingRuleCreateInput{
			Name: name, Keywords: []string{name},
		})
		require.NoError(t, err)
		ids = append(ids, rule.ID)
	}

	t.Run("rewrites the evaluation order", func(t *testing.T) {
		ordered, err := h.svc.ReorderRoutingRules(ctx, actor, []string{ids[2], ids[0], ids[1]})
		require.NoError(t, err)
		require.Len(t, ordered, 3)
		assert.Equal(t, "c", ordered[0].Name)
		assert.Equal(t, 1, ordered[0].Position)
		assert.Equal(t, "a", ordered[1].Name)
		assert.Equal(t, "b", ordered[2].Name)

		listed, err := h.svc.ListRoutingRules(ctx)
		require.NoError(t, err)
		assert.Equal(t, "c", listed[0].Name)
	})

	t.Run("wrong count", func(t *testing.T) {
		_, err := h.svc.ReorderRoutingRules(ctx, actor, []string{ids[0]})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("unknown rule", func(t *testing.T) {
		_, err := h.svc.ReorderRoutingRules(ctx, actor, []string{ids[0], ids[1], "missing"})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("duplicate rule", func(t *testing.T) {
		_, err := h.svc.ReorderRoutingRules(ctx, actor, []string{ids[0], ids[0], ids[1]})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})
}

func TestCreateDepartment(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()
	h.agents.agents["sup-1"] = agentFixture("sup-1", 2, domain.AgentRoleSupervisor, nil, nil)
	h.agents.agents["plain-1"] = agentFixture("plain-1", 1, domain.AgentRoleAgent, nil, nil)

	t.Run("creates an active department", func(t *testing.T) {
		dept, err := h.svc.CreateDepartment(ctx, actor, DepartmentCreateInput{
			Name:        "  Payments  ",
			Description: "Card disputes",
		})
		require.NoError(t, err)
		assert.Equal(t, "Payments", dept.Name)
		assert.True(t, dept.IsActive)
		assert.NotEmpty(t, dept.ID)
	})

	t.Run("accepts a supervisor-role supervisor", func(t *testing.T) {
		dept, err := h.svc.CreateDepartment(ctx, actor, DepartmentCreateInput{
			Name:         "Logistics",
			SupervisorID: strPtr("sup-1"),
		})
		require.NoError(t, err)
		require.NotNil(t, dept.SupervisorID)
		assert.Equal(t, "sup-1", *dept.SupervisorID)
	})

	t.Run("rejects a plain agent as supervisor", func(t *testing.T) {
		_, err := h.svc.CreateDepartment(ctx, actor, DepartmentCreateInput{
			Name:         "Fraud",
			SupervisorID: strPtr("plain-1"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	})

	t.Run("rejects an unknown supervisor", func(t *testing.T) {
		_, err := h.svc.CreateDepartment(ctx, actor, DepartmentCreateInput{
			Name:         "Fraud",
			SupervisorID: strPtr("ghost"),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestUpdateDepartment(t *testing.T) {
	h := newAdminHarness()
	ctx := context.Background()
	actor := adminActor()

	t.Run("patches and deactivates", func(t *testing.T) {
		off := false
		dept, err := h.svc.UpdateDepartment(ctx, actor, "billing", DepartmentUpdateInput{
			Description: strPtr("Invoices and refunds"),
			IsActive:    &off,
		})
		require.NoError(t, err)
		assert.Equal(t, "Invoices and refunds", dept.Description)
		assert.False(t, dept.IsActive)
		assert.False(t, h.depts.departments["billing"].IsActive)

		active, err := h.svc.ListDepartments(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := h.svc.UpdateDepartment(ctx, actor, "missing", DepartmentUpdateInput{})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}
