package sla

import (
	"context"
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// PolicyStore supplies SLA policies. A (nil, nil) return means no policy
// exists for the lookup.
type PolicyStore interface {
	Get(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SlaPolicy, error)
	GetDefault(ctx context.Context, priority domain.TicketPriority) (*domain.SlaPolicy, error)
}

// Resolver maps (department, priority) to a policy and computes deadlines
// from it. Lookup order is department-specific first, then the global default
// for the priority; neither existing is a configuration error because no
// deadline can be computed without a budget.
type Resolver struct {
	store     PolicyStore
	calc      DeadlineCalculator
	recompute domain.SlaRecomputePolicy
}

func NewResolver(store PolicyStore, calc DeadlineCalculator, recompute domain.SlaRecomputePolicy) *Resolver {
	if calc == nil {
		calc = WallClockCalculator{}
	}
	if recompute == "" {
		recompute = domain.SlaRecomputeRestart
	}
	return &Resolver{store: store, calc: calc, recompute: recompute}
}

// RecomputePolicy reports the configured priority-change behavior.
func (r *Resolver) RecomputePolicy() domain.SlaRecomputePolicy {
	return r.recompute
}

// Resolve returns the policy for the pair, falling back to the priority's
// global default.
func (r *Resolver) Resolve(ctx context.Context, departmentID string, priority domain.TicketPriority) (*domain.SlaPolicy, error) {
	policy, err := r.store.Get(ctx, departmentID, priority)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if policy != nil {
		return policy, nil
	}

	policy, err = r.store.GetDefault(ctx, priority)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if policy != nil {
		return policy, nil
	}

	return nil, apperrors.NewConfigurationError(
		"no SLA policy for priority and no default",
		map[string]any{"department_id": departmentID, "priority": string(priority)},
	)
}

// FirstResponseDeadline computes the initial slaDueAt.
func (r *Resolver) FirstResponseDeadline(policy *domain.SlaPolicy, createdAt time.Time) time.Time {
	return r.calc.Add(createdAt, policy.FirstResponseMinutes)
}

// ResolutionDeadline computes the overall resolution target.
func (r *Resolver) ResolutionDeadline(policy *domain.SlaPolicy, createdAt time.Time) time.Time {
	return r.calc.Add(createdAt, policy.ResolutionMinutes)
}

// RecomputeDeadline derives the new slaDueAt after a priority change. In
// restart mode the new budget opens a full window from the change moment; in
// extend mode it re-runs from the creation time. Either way the deadline
// never moves earlier than its current value.
func (r *Resolver) RecomputeDeadline(ctx context.Context, ticket *domain.Ticket, newPriority domain.TicketPriority, now time.Time) (time.Time, *domain.SlaPolicy, error) {
	policy, err := r.Resolve(ctx, ticket.DepartmentID, newPriority)
	if err != nil {
		return time.Time{}, nil, err
	}

	var due time.Time
	switch r.recompute {
	case domain.SlaRecomputeExtend:
		due = r.calc.Add(ticket.CreatedAt, policy.FirstResponseMinutes)
	default:
		due = r.calc.Add(now, policy.FirstResponseMinutes)
	}

	if due.Before(ticket.SlaDueAt) {
		due = ticket.SlaDueAt
	}
	return due, policy, nil
}
