package escalation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

var testNow = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func ticketIn(status domain.TicketStatus) *domain.Ticket {
	agentID := "a-1"
	t := &domain.Ticket{
		ID:           "t-1",
		DepartmentID: "billing",
		Status:       status,
		Priority:     domain.TicketPriorityMedium,
		SlaDueAt:     testNow.Add(time.Hour),
	}
	if status == domain.TicketStatusInProgress {
		t.AssignedAgentID = &agentID
	}
	return t
}

func TestAssign(t *testing.T) {
	machine := NewMachine(zap.NewNop())

	valid := []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusEscalated}
	for _, status := range valid {
		t.Run("from "+string(status), func(t *testing.T) {
			next, err := machine.Assign(ticketIn(status), "a-7", domain.ActorTypeAgent, testNow)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusInProgress, next.Status)
			require.NotNil(t, next.AssignedAgentID)
			assert.Equal(t, "a-7", *next.AssignedAgentID)
			require.NotNil(t, next.FirstResponseAt)
		})
	}

	invalid := []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed}
	for _, status := range invalid {
		t.Run("rejected from "+string(status), func(t *testing.T) {
			_, err := machine.Assign(ticketIn(status), "a-7", domain.ActorTypeAgent, testNow)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
		})
	}
}

func TestAssignKeepsFirstResponseTimestamp(t *testing.T) {
	machine := NewMachine(zap.NewNop())
	earlier := testNow.Add(-2 * time.Hour)

	ticket := ticketIn(domain.TicketStatusEscalated)
	ticket.FirstResponseAt = &earlier

	next, err := machine.Assign(ticket, "a-7", domain.ActorTypeSystem, testNow)
	require.NoError(t, err)
	assert.Equal(t, earlier, *next.FirstResponseAt)
}

func TestResolve(t *testing.T) {
	machine := NewMachine(zap.NewNop())

	for _, status := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusEscalated} {
		t.Run("from "+string(status), func(t *testing.T) {
			next, err := machine.Resolve(ticketIn(status), domain.ActorTypeAgent, testNow)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusResolved, next.Status)
			require.NotNil(t, next.ResolvedAt)
			// Deadline stays for audit.
			assert.Equal(t, testNow.Add(time.Hour), next.SlaDueAt)
		})
	}

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusResolved, domain.TicketStatusClosed} {
		t.Run("rejected from "+string(status), func(t *testing.T) {
			_, err := machine.Resolve(ticketIn(status), domain.ActorTypeAgent, testNow)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
		})
	}
}

func TestClose(t *testing.T) {
	machine := NewMachine(zap.NewNop())

	next, err := machine.Close(ticketIn(domain.TicketStatusResolved), domain.ActorTypeUser, testNow)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, next.Status)
	require.NotNil(t, next.ClosedAt)

	for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusEscalated, domain.TicketStatusClosed} {
		t.Run("rejected from "+string(status), func(t *testing.T) {
			_, err := machine.Close(ticketIn(status), domain.ActorTypeUser, testNow)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))

			var domainErr *apperrors.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, string(status), domainErr.Details["current_state"])
			assert.Equal(t, "close", domainErr.Details["operation"])
		})
	}
}

func TestEscalate(t *testing.T) {
	machine := NewMachine(zap.NewNop())

	t.Run("from any non-terminal state", func(t *testing.T) {
		for _, status := range []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusInProgress, domain.TicketStatusEscalated} {
			next, err := machine.Escalate(ticketIn(status), "SLA breach", domain.ActorTypeSystem, testNow)
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusEscalated, next.Status)
			assert.Equal(t, 1, next.EscalationLevel)
			assert.Nil(t, next.AssignedAgentID)
			require.NotNil(t, next.EscalationReason)
			assert.Equal(t, "SLA breach", *next.EscalationReason)
		}
	})

	t.Run("repeated escalation keeps incrementing", func(t *testing.T) {
		ticket := ticketIn(domain.TicketStatusOpen)
		first, err := machine.Escalate(ticket, "SLA breach", domain.ActorTypeSystem, testNow)
		require.NoError(t, err)
		second, err := machine.Escalate(first, "SLA breach", domain.ActorTypeSystem, testNow.Add(time.Hour))
		require.NoError(t, err)

		assert.Equal(t, 2, second.EscalationLevel)
		assert.Nil(t, second.AssignedAgentID)
	})

	t.Run("rejected from terminal states", func(t *testing.T) {
		for _, status := range []domain.TicketStatus{domain.TicketStatusResolved, domain.TicketStatusClosed} {
			_, err := machine.Escalate(ticketIn(status), "SLA breach", domain.ActorTypeSystem, testNow)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.CodeInvalidTransition))
		}
	})
}

func TestOperationsDoNotMutateInput(t *testing.T) {
	machine := NewMachine(zap.NewNop())
	ticket := ticketIn(domain.TicketStatusOpen)

	next, err := machine.Escalate(ticket, "SLA breach", domain.ActorTypeSystem, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Zero(t, ticket.EscalationLevel)
	assert.Nil(t, ticket.EscalationReason)
	assert.NotEqual(t, ticket.Status, next.Status)
}
