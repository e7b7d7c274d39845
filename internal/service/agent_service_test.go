package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

type agentHarness struct {
	svc     *AgentService
	agents  *fakeAgentRepo
	tickets *fakeTicketRepo
	depts   *fakeDeptRepo
}

func newAgentHarness() *agentHarness {
	h := &agentHarness{
		agents:  &fakeAgentRepo{agents: map[string]*domain.Agent{}},
		tickets: newFakeTicketRepo(),
		depts: &fakeDeptRepo{departments: map[string]*domain.Department{
			"billing":  {ID: "billing", Name: "Billing", IsActive: true},
			"archive":  {ID: "archive", Name: "Archive", IsActive: false},
			"shipping": {ID: "shipping", Name: "Shipping", IsActive: true},
		}},
	}
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: 4}}
	h.svc = NewAgentService(cfg, AgentDependencies{
		AgentRepo:      h.agents,
		TicketRepo:     h.tickets,
		DepartmentRepo: h.depts,
		Logger:         zap.NewNop(),
	})
	return h
}

func TestCreateAgent(t *testing.T) {
	h := newAgentHarness()
	ctx := context.Background()
	actor := adminActor()

	t.Run("applies defaults and hashes the password", func(t *testing.T) {
		agent, err := h.svc.CreateAgent(ctx, actor, AgentCreateInput{
			Name:          "Dana",
			Email:         "dana@example.com",
			Password:      "s3cret",
			DepartmentIDs: []string{"billing"},
			Skills:        []string{"refunds"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.AgentRoleAgent, agent.Role)
		assert.Equal(t, 1, agent.Tier)
		assert.True(t, agent.IsAvailable)
		assert.NotEqual(t, "s3cret", agent.PasswordHash)
		assert.NoError(t, auth.ComparePassword(agent.PasswordHash, "s3cret"))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := h.svc.CreateAgent(ctx, actor, AgentCreateInput{
			Name: "Dana II", Email: "dana@example.com", Password: "x",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	})

	t.Run("inactive department", func(t *testing.T) {
		_, err := h.svc.CreateAgent(ctx, actor, AgentCreateInput{
			Name: "Eve", Email: "eve@example.com", Password: "x",
			DepartmentIDs: []string{"archive"},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
	})

	t.Run("unknown department", func(t *testing.T) {
		_, err := h.svc.CreateAgent(ctx, actor, AgentCreateInput{
			Name: "Eve", Email: "eve@example.com", Password: "x",
			DepartmentIDs: []string{"nope"},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})

	t.Run("non-admin actor", func(t *testing.T) {
		supervisor := agentFixture("sup-1", 2, domain.AgentRoleSupervisor, nil, nil)
		_, err := h.svc.CreateAgent(ctx, supervisor, AgentCreateInput{
			Name: "Eve", Email: "eve@example.com", Password: "x",
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	})
}

func TestSetAvailability(t *testing.T) {
	h := newAgentHarness()
	ctx := context.Background()
	h.agents.agents["a-1"] = agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
	h.agents.agents["a-2"] = agentFixture("a-2", 1, domain.AgentRoleAgent, []string{"billing"}, nil)

	t.Run("agents toggle their own flag", func(t *testing.T) {
		actor := agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
		require.NoError(t, h.svc.SetAvailability(ctx, actor, "a-1", false))
		assert.False(t, h.agents.agents["a-1"].IsAvailable)
	})

	t.Run("agents cannot toggle others", func(t *testing.T) {
		actor := agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
		err := h.svc.SetAvailability(ctx, actor, "a-2", false)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	})

	t.Run("supervisors toggle anyone", func(t *testing.T) {
		actor := agentFixture("sup-1", 2, domain.AgentRoleSupervisor, []string{"billing"}, nil)
		require.NoError(t, h.svc.SetAvailability(ctx, actor, "a-2", false))
		assert.False(t, h.agents.agents["a-2"].IsAvailable)
	})

	t.Run("missing actor", func(t *testing.T) {
		err := h.svc.SetAvailability(ctx, nil, "a-1", true)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeUnauthorized))
	})

	t.Run("unknown agent", func(t *testing.T) {
		actor := agentFixture("sup-1", 2, domain.AgentRoleSupervisor, nil, nil)
		err := h.svc.SetAvailability(ctx, actor, "ghost", true)
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	})
}

func TestAgentCandidatePool(t *testing.T) {
	h := newAgentHarness()
	ctx := context.Background()

	h.agents.agents["a-1"] = agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
	h.agents.agents["a-2"] = agentFixture("a-2", 2, domain.AgentRoleAgent, []string{"billing"}, nil)
	offline := agentFixture("a-3", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
	offline.IsAvailable = false
	h.agents.agents["a-3"] = offline
	h.agents.agents["a-4"] = agentFixture("a-4", 1, domain.AgentRoleAgent, []string{"shipping"}, nil)

	assign := func(id, agentID string, status domain.TicketStatus) {
		h.tickets.seed(&domain.Ticket{ID: id, AssignedAgentID: &agentID, Status: status})
	}
	assign("t-1", "a-1", domain.TicketStatusInProgress)
	assign("t-2", "a-1", domain.TicketStatusOpen)
	assign("t-3", "a-2", domain.TicketStatusInProgress)
	assign("t-4", "a-2", domain.TicketStatusResolved)

	pool, err := h.svc.CandidatePool(ctx, "billing")
	require.NoError(t, err)
	require.Len(t, pool, 2)

	loads := map[string]int{}
	for _, candidate := range pool {
		loads[candidate.Agent.ID] = candidate.OpenTickets
	}
	assert.Equal(t, map[string]int{"a-1": 2, "a-2": 1}, loads)
}

func TestGetAgent(t *testing.T) {
	h := newAgentHarness()
	ctx := context.Background()
	h.agents.agents["a-1"] = agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)

	agent, err := h.svc.GetAgent(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "a-1", agent.ID)

	_, err = h.svc.GetAgent(ctx, "ghost")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

func TestListAgents(t *testing.T) {
	h := newAgentHarness()
	ctx := context.Background()
	h.agents.agents["a-1"] = agentFixture("a-1", 1, domain.AgentRoleAgent, []string{"billing"}, nil)
	h.agents.agents["a-2"] = agentFixture("a-2", 2, domain.AgentRoleSupervisor, []string{"billing"}, nil)

	agents, err := h.svc.ListAgents(ctx, repository.AgentFilter{})
	require.NoError(t, err)
	assert.Len(t, agents, 2)
}
