package service

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/auth"
	"github.com/spec-kit/support-engine/internal/config"
	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/routing"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// loadCacheTTL bounds staleness of cached open-ticket counts. Assignment
// paths invalidate eagerly, so the TTL only covers out-of-band writes.
const loadCacheTTL = 30 * time.Second

// AgentService manages the agent directory and builds routing candidate pools.
type AgentService struct {
	agents      repository.AgentRepository
	tickets     repository.TicketRepository
	departments repository.DepartmentRepository
	cache       *redis.Client
	bcryptCost  int
	logger      *zap.Logger
}

// AgentDependencies encapsulates repositories for the agent directory.
type AgentDependencies struct {
	AgentRepo      repository.AgentRepository
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	Cache          *redis.Client
	Logger         *zap.Logger
}

// AgentCreateInput describes a new agent account.
type AgentCreateInput struct {
	Name          string
	Email         string
	Password      string
	Role          domain.AgentRole
	Tier          int
	DepartmentIDs []string
	Skills        []string
}

// NewAgentService constructs the service.
func NewAgentService(cfg config.Config, deps AgentDependencies) *AgentService {
	return &AgentService{
		agents:      deps.AgentRepo,
		tickets:     deps.TicketRepo,
		departments: deps.DepartmentRepo,
		cache:       deps.Cache,
		bcryptCost:  cfg.Auth.BcryptCost,
		logger:      deps.Logger,
	}
}

func requireAdmin(actor *domain.Agent) error {
	if actor == nil || actor.Role != domain.AgentRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateAgent registers a new agent account (admin only).
func (s *AgentService) CreateAgent(ctx context.Context, actor *domain.Agent, input AgentCreateInput) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.agents.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	for _, deptID := range input.DepartmentIDs {
		dept, err := s.departments.GetByID(ctx, deptID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !dept.IsActive {
			return nil, apperrors.NewConflict("department inactive", map[string]any{"department_id": deptID})
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	role := input.Role
	if role == "" {
		role = domain.AgentRoleAgent
	}
	tier := input.Tier
	if tier <= 0 {
		tier = 1
	}

	agent := &domain.Agent{
		Name:          input.Name,
		Email:         input.Email,
		PasswordHash:  hash,
		Role:          role,
		Tier:          tier,
		DepartmentIDs: input.DepartmentIDs,
		Skills:        input.Skills,
		IsAvailable:   true,
	}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// UpdateAgent modifies an agent record (admin only).
func (s *AgentService) UpdateAgent(ctx context.Context, actor *domain.Agent, agent *domain.Agent) (*domain.Agent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := s.agents.Update(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// SetAvailability toggles whether the agent receives routed tickets. Agents
// may change their own flag; supervisors and admins may change anyone's.
func (s *AgentService) SetAvailability(ctx context.Context, actor *domain.Agent, agentID string, available bool) error {
	if actor == nil {
		return apperrors.NewUnauthorized("agent required")
	}
	if actor.ID != agentID && actor.Role == domain.AgentRoleAgent {
		return apperrors.NewForbidden("cannot change another agent's availability")
	}
	if err := s.agents.SetAvailability(ctx, agentID, available); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// GetAgent fetches one agent.
func (s *AgentService) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	agent, err := s.agents.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agent, nil
}

// ListAgents returns agents matching the filter.
func (s *AgentService) ListAgents(ctx context.Context, filter repository.AgentFilter) ([]domain.Agent, error) {
	agents, err := s.agents.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return agents, nil
}

// CandidatePool assembles the routing candidates for a department: every
// available agent in it, annotated with current open-ticket load.
func (s *AgentService) CandidatePool(ctx context.Context, departmentID string) ([]routing.Candidate, error) {
	agents, err := s.agents.ListAvailableByDepartment(ctx, departmentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	pool := make([]routing.Candidate, 0, len(agents))
	for _, agent := range agents {
		load, err := s.agentLoad(ctx, agent.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		pool = append(pool, routing.Candidate{Agent: agent, OpenTickets: load})
	}
	return pool, nil
}

// InvalidateLoad drops the cached open-ticket count after an assignment
// change so the next routing pass sees fresh load.
func (s *AgentService) InvalidateLoad(ctx context.Context, agentID string) {
	if s.cache == nil || agentID == "" {
		return
	}
	if err := s.cache.Del(ctx, loadCacheKey(agentID)).Err(); err != nil {
		s.logger.Warn("agent load cache invalidation failed",
			zap.String("agent_id", agentID), zap.Error(err))
	}
}

func (s *AgentService) agentLoad(ctx context.Context, agentID string) (int, error) {
	if s.cache != nil {
		val, err := s.cache.Get(ctx, loadCacheKey(agentID)).Result()
		if err == nil {
			if load, convErr := strconv.Atoi(val); convErr == nil {
				return load, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn("agent load cache read failed",
				zap.String("agent_id", agentID), zap.Error(err))
		}
	}

	load, err := s.tickets.CountOpenByAgent(ctx, agentID)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, loadCacheKey(agentID), load, loadCacheTTL).Err(); err != nil {
			s.logger.Warn("agent load cache write failed",
				zap.String("agent_id", agentID), zap.Error(err))
		}
	}
	return load, nil
}

func loadCacheKey(agentID string) string {
	return "agent_load:" + agentID
}
