package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// AgentRepository handles persistence for support agents.
type AgentRepository interface {
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	SetAvailability(ctx context.Context, id string, available bool) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	ListAvailableByDepartment(ctx context.Context, departmentID string) ([]domain.Agent, error)
	List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error)
}

// AgentFilter defines query params for agent listing.
type AgentFilter struct {
	Role         *domain.AgentRole
	DepartmentID *string
	Skill        *string
	Available    *bool
	MinTier      *int
	Limit        int
	Offset       int
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates the repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, name, email, password_hash, role, tier, department_ids, skills, is_available, created_at, updated_at`

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (name, email, password_hash, role, tier, department_ids, skills, is_available)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Tier,
		agent.DepartmentIDs,
		agent.Skills,
		agent.IsAvailable,
	).Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	const query = `
        UPDATE agents
        SET name=$1, email=$2, password_hash=$3, role=$4, tier=$5, department_ids=$6, skills=$7, is_available=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		agent.Name,
		agent.Email,
		agent.PasswordHash,
		agent.Role,
		agent.Tier,
		agent.DepartmentIDs,
		agent.Skills,
		agent.IsAvailable,
		agent.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) SetAvailability(ctx context.Context, id string, available bool) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE agents SET is_available=$1, updated_at=NOW() WHERE id=$2`, available, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agentRepository) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

// ListAvailableByDepartment returns the routing candidate pool for a department.
func (r *agentRepository) ListAvailableByDepartment(ctx context.Context, departmentID string) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents
        WHERE is_available = TRUE AND $1 = ANY(department_ids)
        ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *agentRepository) List(ctx context.Context, filter AgentFilter) ([]domain.Agent, error) {
	base := `SELECT ` + agentColumns + ` FROM agents`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(department_ids)", len(args)))
	}
	if filter.Skill != nil {
		args = append(args, *filter.Skill)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(skills)", len(args)))
	}
	if filter.Available != nil {
		args = append(args, *filter.Available)
		clauses = append(clauses, fmt.Sprintf("is_available=$%d", len(args)))
	}
	if filter.MinTier != nil {
		args = append(args, *filter.MinTier)
		clauses = append(clauses, fmt.Sprintf("tier >= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY name ASC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgents(rows)
}

func (r *agentRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Agent, error) {
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, args...).Scan(agentFields(&agent)...); err != nil {
		return nil, err
	}
	return &agent, nil
}

func scanAgents(rows pgx.Rows) ([]domain.Agent, error) {
	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(agentFields(&agent)...); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func agentFields(a *domain.Agent) []any {
	return []any{
		&a.ID,
		&a.Name,
		&a.Email,
		&a.PasswordHash,
		&a.Role,
		&a.Tier,
		&a.DepartmentIDs,
		&a.Skills,
		&a.IsAvailable,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}
