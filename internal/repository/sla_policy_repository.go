package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// SlaPolicyRepository stores deadline policies. Department-specific rows win
// over the global default row (department_id IS NULL).
type SlaPolicyRepository interface {
	Create(ctx context.Context, policy *domain.SlaPolicy) error
	Update(ctx context.Context, policy *domain.SlaPolicy) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error)
	Get(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	GetDefault(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	List(ctx context.Context) ([]domain.SlaPolicy, error)
}

type slaPolicyRepository struct {
	pool *pgxpool.Pool
}

// NewSlaPolicyRepository instantiates the repository.
func NewSlaPolicyRepository(pool *pgxpool.Pool) SlaPolicyRepository {
	return &slaPolicyRepository{pool: pool}
}

const slaPolicyColumns = `id, department_id, priority, first_response_minutes, resolution_minutes, created_at, updated_at`

func (r *slaPolicyRepository) Create(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        INSERT INTO sla_policies (department_id, priority, first_response_minutes, resolution_minutes)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		policy.DepartmentID,
		policy.Priority,
		policy.FirstResponseMinutes,
		policy.ResolutionMinutes,
	).Scan(&policy.ID, &policy.CreatedAt, &policy.UpdatedAt)
}

func (r *slaPolicyRepository) Update(ctx context.Context, policy *domain.SlaPolicy) error {
	const query = `
        UPDATE sla_policies
        SET department_id=$1, priority=$2, first_response_minutes=$3, resolution_minutes=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		policy.DepartmentID,
		policy.Priority,
		policy.FirstResponseMinutes,
		policy.ResolutionMinutes,
		policy.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sla_policies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaPolicyRepository) GetByID(ctx context.Context, id string) (*domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// Get returns the policy for one department and priority, or nil when that
// pair has no dedicated row.
func (r *slaPolicyRepository) Get(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies
        WHERE department_id=$1 AND priority=$2`
	policy, err := r.fetchSingle(ctx, query, departmentID, priority)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return policy, err
}

// GetDefault returns the global fallback policy for a priority, or nil when
// none is configured.
func (r *slaPolicyRepository) GetDefault(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies
        WHERE department_id IS NULL AND priority=$1`
	policy, err := r.fetchSingle(ctx, query, priority)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return policy, err
}

func (r *slaPolicyRepository) List(ctx context.Context) ([]domain.SlaPolicy, error) {
	query := `SELECT ` + slaPolicyColumns + ` FROM sla_policies
        ORDER BY department_id NULLS FIRST, priority ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SlaPolicy
	for rows.Next() {
		var policy domain.SlaPolicy
		if err := rows.Scan(slaPolicyFields(&policy)...); err != nil {
			return nil, err
		}
		result = append(result, policy)
	}
	return result, rows.Err()
}

func (r *slaPolicyRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.SlaPolicy, error) {
	var policy domain.SlaPolicy
	if err := r.pool.QueryRow(ctx, query, args...).Scan(slaPolicyFields(&policy)...); err != nil {
		return nil, err
	}
	return &policy, nil
}

func slaPolicyFields(p *domain.SlaPolicy) []any {
	return []any{
		&p.ID,
		&p.DepartmentID,
		&p.Priority,
		&p.FirstResponseMinutes,
		&p.ResolutionMinutes,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}
