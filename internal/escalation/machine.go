package escalation

import (
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

// Operation names, used in rejection errors.
const (
	opAssign   = "assign"
	opResolve  = "resolve"
	opClose    = "close"
	opEscalate = "escalate"
)

var assignableFrom = map[domain.TicketStatus]bool{
	domain.TicketStatusOpen:      true,
	domain.TicketStatusEscalated: true,
}

var resolvableFrom = map[domain.TicketStatus]bool{
	domain.TicketStatusInProgress: true,
	domain.TicketStatusEscalated:  true,
}

// Machine owns every status, assignment, and escalation-level transition.
// Operations never mutate their input: they return an updated copy, so a
// caller whose follow-up persistence fails still holds the pre-transition
// state. Illegal operations are rejected, never silently ignored.
type Machine struct {
	logger *zap.Logger
}

func NewMachine(logger *zap.Logger) *Machine {
	return &Machine{logger: logger}
}

// Assign hands the ticket to an agent and moves it to IN_PROGRESS. Valid
// from OPEN and ESCALATED.
func (m *Machine) Assign(t *domain.Ticket, agentID string, actor domain.ActorType, now time.Time) (*domain.Ticket, error) {
	if !assignableFrom[t.Status] {
		return nil, apperrors.NewInvalidTransition(opAssign, string(t.Status))
	}

	next := t.Clone()
	next.AssignedAgentID = &agentID
	next.Status = domain.TicketStatusInProgress
	if next.FirstResponseAt == nil {
		firstResponse := now
		next.FirstResponseAt = &firstResponse
	}
	next.UpdatedAt = now

	m.logTransition(opAssign, t, next, actor)
	return next, nil
}

// Resolve finishes the ticket. Valid from IN_PROGRESS and ESCALATED. The
// SLA deadline is kept for audit.
func (m *Machine) Resolve(t *domain.Ticket, actor domain.ActorType, now time.Time) (*domain.Ticket, error) {
	if !resolvableFrom[t.Status] {
		return nil, apperrors.NewInvalidTransition(opResolve, string(t.Status))
	}

	next := t.Clone()
	next.Status = domain.TicketStatusResolved
	resolvedAt := now
	next.ResolvedAt = &resolvedAt
	next.UpdatedAt = now

	m.logTransition(opResolve, t, next, actor)
	return next, nil
}

// Close archives a resolved ticket. CLOSED is terminal.
func (m *Machine) Close(t *domain.Ticket, actor domain.ActorType, now time.Time) (*domain.Ticket, error) {
	if t.Status != domain.TicketStatusResolved {
		return nil, apperrors.NewInvalidTransition(opClose, string(t.Status))
	}

	next := t.Clone()
	next.Status = domain.TicketStatusClosed
	closedAt := now
	next.ClosedAt = &closedAt
	next.UpdatedAt = now

	m.logTransition(opClose, t, next, actor)
	return next, nil
}

// Escalate bumps the escalation level and forces re-routing by clearing the
// assignee. Valid from any non-terminal state; escalating an already
// ESCALATED ticket bumps the level again, which is how repeated breaches
// stack up.
func (m *Machine) Escalate(t *domain.Ticket, reason string, actor domain.ActorType, now time.Time) (*domain.Ticket, error) {
	if t.Status.IsTerminal() {
		return nil, apperrors.NewInvalidTransition(opEscalate, string(t.Status))
	}

	next := t.Clone()
	next.EscalationLevel++
	next.Status = domain.TicketStatusEscalated
	next.AssignedAgentID = nil
	next.EscalationReason = &reason
	next.UpdatedAt = now

	m.logTransition(opEscalate, t, next, actor)
	return next, nil
}

func (m *Machine) logTransition(op string, before, after *domain.Ticket, actor domain.ActorType) {
	m.logger.Debug("ticket transition",
		zap.String("operation", op),
		zap.String("ticket_id", before.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(after.Status)),
		zap.Int("escalation_level", after.EscalationLevel),
		zap.String("actor", string(actor)),
	)
}
