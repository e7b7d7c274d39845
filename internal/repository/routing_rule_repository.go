package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-engine/internal/domain"
)

// RoutingRuleRepository stores keyword routing rules.
type RoutingRuleRepository interface {
	Create(ctx context.Context, rule *domain.RoutingRule) error
	Update(ctx context.Context, rule *domain.RoutingRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.RoutingRule, error)
	ListOrdered(ctx context.Context) ([]domain.RoutingRule, error)
}

type routingRuleRepository struct {
	pool *pgxpool.Pool
}

// NewRoutingRuleRepository instantiates the repository.
func NewRoutingRuleRepository(pool *pgxpool.Pool) RoutingRuleRepository {
	return &routingRuleRepository{pool: pool}
}

const routingRuleColumns = `id, name, keywords, priorities, required_skill, weight, position, is_active, created_at, updated_at`

func (r *routingRuleRepository) Create(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        INSERT INTO routing_rules (name, keywords, priorities, required_skill, weight, position, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		rule.Name,
		rule.Keywords,
		rule.Priorities,
		rule.RequiredSkill,
		rule.Weight,
		rule.Position,
		rule.IsActive,
	).Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
}

func (r *routingRuleRepository) Update(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        UPDATE routing_rules
        SET name=$1, keywords=$2, priorities=$3, required_skill=$4, weight=$5, position=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8`
	cmd, err := r.pool.Exec(ctx, query,
		rule.Name,
		rule.Keywords,
		rule.Priorities,
		rule.RequiredSkill,
		rule.Weight,
		rule.Position,
		rule.IsActive,
		rule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) GetByID(ctx context.Context, id string) (*domain.RoutingRule, error) {
	query := `SELECT ` + routingRuleColumns + ` FROM routing_rules WHERE id=$1`
	var rule domain.RoutingRule
	if err := r.pool.QueryRow(ctx, query, id).Scan(routingRuleFields(&rule)...); err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListOrdered returns every rule in evaluation order.
func (r *routingRuleRepository) ListOrdered(ctx context.Context) ([]domain.RoutingRule, error) {
	query := `SELECT ` + routingRuleColumns + ` FROM routing_rules ORDER BY position ASC, id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		if err := rows.Scan(routingRuleFields(&rule)...); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

func routingRuleFields(rule *domain.RoutingRule) []any {
	return []any{
		&rule.ID,
		&rule.Name,
		&rule.Keywords,
		&rule.Priorities,
		&rule.RequiredSkill,
		&rule.Weight,
		&rule.Position,
		&rule.IsActive,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	}
}
