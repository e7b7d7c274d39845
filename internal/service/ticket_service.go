package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/domain"
	"github.com/spec-kit/support-engine/internal/escalation"
	"github.com/spec-kit/support-engine/internal/events"
	"github.com/spec-kit/support-engine/internal/repository"
	"github.com/spec-kit/support-engine/internal/routing"
	"github.com/spec-kit/support-engine/internal/sentiment"
	"github.com/spec-kit/support-engine/internal/sla"
	apperrors "github.com/spec-kit/support-engine/pkg/util/errorutil"
)

const slaBreachReason = "sla_breach"

// Channel identifier the analyzer's channel rules key on for API intake.
const intakeChannel = "support_request"

// AgentDirectory is the slice of the agent service that ticket workflows need.
type AgentDirectory interface {
	GetAgent(ctx context.Context, id string) (*domain.Agent, error)
	CandidatePool(ctx context.Context, departmentID string) ([]routing.Candidate, error)
	InvalidateLoad(ctx context.Context, agentID string)
}

// SentimentScorer analyzes and records intake text.
type SentimentScorer interface {
	Analyze(ctx context.Context, input AnalyzeInput) (*domain.SentimentLog, error)
}

// TicketService coordinates the ticket lifecycle: sentiment scoring at intake,
// SLA stamping, routing, state transitions, escalations, and the breach sweep.
type TicketService struct {
	tickets      repository.TicketRepository
	departments  repository.DepartmentRepository
	rules        repository.RoutingRuleRepository
	history      repository.TicketHistoryRepository
	agents       AgentDirectory
	sentiments   SentimentScorer
	resolver     *sla.Resolver
	router       *routing.Engine
	machine      *escalation.Machine
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	repeatWindow time.Duration
	now          func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	DepartmentRepo repository.DepartmentRepository
	RuleRepo       repository.RoutingRuleRepository
	HistoryRepo    repository.TicketHistoryRepository
	Agents         AgentDirectory
	Sentiments     SentimentScorer
	Resolver       *sla.Resolver
	Router         *routing.Engine
	Machine        *escalation.Machine
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	RepeatWindow   time.Duration
	Clock          func() time.Time
}

// TicketCreateInput describes ticket creation payload. A nil Priority means
// the sentiment verdict decides.
type TicketCreateInput struct {
	ConversationID string
	DepartmentID   string
	Title          string
	Description    string
	Priority       *domain.TicketPriority
}

// CreateTicketResult reports the created or reused ticket.
type CreateTicketResult struct {
	Ticket *domain.Ticket
	Reused bool
}

// TicketUserFilter describes end-user listing filters.
type TicketUserFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketAgentFilter describes agent listing filters.
type TicketAgentFilter struct {
	DepartmentID    *string
	AssignedAgentID *string
	Statuses        []domain.TicketStatus
	Priorities      []domain.TicketPriority
	SlaBreached     *bool
	SearchTerm      *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// SweepResult summarizes one breach sweep.
type SweepResult struct {
	Scanned    int
	Breached   int
	Reassigned int
	Failed     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	window := deps.RepeatWindow
	if window <= 0 {
		window = 3 * time.Hour
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		tickets:      deps.TicketRepo,
		departments:  deps.DepartmentRepo,
		rules:        deps.RuleRepo,
		history:      deps.HistoryRepo,
		agents:       deps.Agents,
		sentiments:   deps.Sentiments,
		resolver:     deps.Resolver,
		router:       deps.Router,
		machine:      deps.Machine,
		dispatcher:   deps.Dispatcher,
		logger:       deps.Logger,
		repeatWindow: window,
		now:          clock,
	}
}

// CreateTicket runs the full intake pipeline: sentiment, priority, SLA
// deadlines, routing, persistence, and events. When the conversation already
// has an open ticket inside the repeat window, that ticket is returned
// instead of opening a duplicate.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (*CreateTicketResult, error) {
	dept, err := s.departments.GetByID(ctx, input.DepartmentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("department", map[string]any{"department_id": input.DepartmentID})
		}
		return nil, apperrors.MapError(err)
	}
	if !dept.IsActive {
		return nil, apperrors.NewConflict("department inactive", map[string]any{"department_id": dept.ID})
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	now := s.now()

	log, err := s.sentiments.Analyze(ctx, AnalyzeInput{
		Text:           description,
		Context:        intakeChannel,
		ConversationID: strPtrOrNil(input.ConversationID),
		UserID:         &userID,
	})
	if err != nil {
		return nil, err
	}
	verdict := domain.SentimentVerdict{
		RawScores:     log.RawScores,
		CombinedScore: log.CombinedScore,
		Label:         log.Label,
		Confidence:    log.Confidence,
	}

	if input.ConversationID != "" {
		existing, err := s.tickets.FindRecentOpenByConversation(ctx, input.ConversationID, now.Add(-s.repeatWindow))
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if existing != nil {
			s.logger.Info("reusing open ticket for conversation",
				zap.String("ticket_id", existing.ID),
				zap.String("conversation_id", input.ConversationID))
			return &CreateTicketResult{Ticket: existing, Reused: true}, nil
		}
	}

	priority := domain.TicketPriority("")
	if input.Priority != nil {
		priority = *input.Priority
	}
	if priority == "" {
		signals := sentiment.EscalationSignals(title + " " + description)
		priority = DerivePriority(verdict, signals)
	}

	policy, err := s.resolver.Resolve(ctx, input.DepartmentID, priority)
	if err != nil {
		return nil, err
	}
	slaDueAt := s.resolver.FirstResponseDeadline(policy, now)
	resolutionDueAt := s.resolver.ResolutionDeadline(policy, now)

	ticket := &domain.Ticket{
		ExternalKey:         generateTicketKey(),
		ConversationID:      input.ConversationID,
		RequesterID:         userID,
		DepartmentID:        input.DepartmentID,
		Title:               title,
		Description:         description,
		Status:              domain.TicketStatusOpen,
		Priority:            priority,
		SlaDueAt:            slaDueAt,
		ResolutionDueAt:     &resolutionDueAt,
		RoutingMethod:       domain.RoutingMethodUnassigned,
		SentimentScore:      &log.CombinedScore,
		SentimentLabel:      &log.Label,
		SentimentConfidence: &log.Confidence,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	decision, err := s.route(ctx, ticket, routing.Options{})
	if err != nil {
		return nil, err
	}
	if decision.Assigned {
		assigned, err := s.machine.Assign(ticket, decision.AgentID, domain.ActorTypeSystem, now)
		if err != nil {
			return nil, err
		}
		ticket = assigned
	}
	ticket.RoutingMethod = decision.Method
	ticket.MatchedRuleName = decision.MatchedRule

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	actor := userActor(userID)
	if decision.Assigned {
		s.agents.InvalidateLoad(ctx, decision.AgentID)
		s.record(ctx, ticket.ID, events.SystemActor(), domain.ChangeTypeAssignee,
			map[string]any{"assigned_agent_id": nil},
			map[string]any{"assigned_agent_id": decision.AgentID, "routing_method": decision.Method})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketCreatedPayload{
			DepartmentID:    ticket.DepartmentID,
			Priority:        ticket.Priority,
			Title:           ticket.Title,
			SlaDueAt:        ticket.SlaDueAt,
			AssignedAgentID: ticket.AssignedAgentID,
			RoutingMethod:   ticket.RoutingMethod,
			Sentiment:       ticket.SentimentLabel,
		},
	})
	if decision.Assigned {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketAssigned,
			TicketID: ticket.ID,
			Actor:    events.SystemActor(),
			Payload: events.TicketAssignedPayload{
				AgentID:       decision.AgentID,
				RoutingMethod: decision.Method,
				MatchedRule:   decision.MatchedRule,
			},
		})
	} else {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventRoutingUnresolved,
			TicketID: ticket.ID,
			Actor:    events.SystemActor(),
			Payload: events.RoutingUnresolvedPayload{
				DepartmentID: ticket.DepartmentID,
				Priority:     ticket.Priority,
			},
		})
	}
	return &CreateTicketResult{Ticket: ticket}, nil
}

// ListUserTickets returns paginated tickets for a requester.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, filter TicketUserFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		RequesterID: &userID,
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicketForUser fetches a ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// ListAgentTickets returns tickets visible to the agent. Non-admin agents are
// scoped to their own departments.
func (s *TicketService) ListAgentTickets(ctx context.Context, agent *domain.Agent, filter TicketAgentFilter) ([]domain.Ticket, error) {
	if agent == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	repoFilter := repository.TicketFilter{
		DepartmentID:    filter.DepartmentID,
		AssignedAgentID: filter.AssignedAgentID,
		Statuses:        filter.Statuses,
		Priorities:      filter.Priorities,
		SlaBreached:     filter.SlaBreached,
		SearchTerm:      filter.SearchTerm,
		CreatedFrom:     filter.CreatedFrom,
		CreatedTo:       filter.CreatedTo,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	}
	if agent.Role != domain.AgentRoleAdmin && repoFilter.DepartmentID == nil && len(agent.DepartmentIDs) > 0 {
		repoFilter.DepartmentID = &agent.DepartmentIDs[0]
	}
	if repoFilter.DepartmentID != nil && !s.agentCanSeeDepartment(agent, *repoFilter.DepartmentID) {
		return nil, apperrors.NewForbidden("access denied")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// GetTicketForAgent fetches a ticket ensuring department access.
func (s *TicketService) GetTicketForAgent(ctx context.Context, agent *domain.Agent, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.agentCanAccess(agent, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// GetTicketByExternalKey fetches by the human-facing key, with agent scoping.
func (s *TicketService) GetTicketByExternalKey(ctx context.Context, agent *domain.Agent, key string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByExternalKey(ctx, key)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"external_key": key})
		}
		return nil, apperrors.MapError(err)
	}
	if !s.agentCanAccess(agent, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// Assign places the ticket with a specific agent. Agents may take tickets
// themselves; assigning someone else requires supervisor or admin.
func (s *TicketService) Assign(ctx context.Context, actor *domain.Agent, ticketID, assigneeID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	if actor.ID != assigneeID && actor.Role == domain.AgentRoleAgent {
		return nil, apperrors.NewForbidden("insufficient role for assignment")
	}
	assignee, err := s.agents.GetAgent(ctx, assigneeID)
	if err != nil {
		return nil, err
	}
	if !assignee.IsAvailable {
		return nil, apperrors.NewConflict("assignee unavailable", map[string]any{"agent_id": assigneeID})
	}

	var oldAssignee *string
	ticket, err := s.updateWithRetry(ctx, ticketID, func(t *domain.Ticket) (*domain.Ticket, error) {
		if !s.agentCanAccess(actor, t) {
			return nil, apperrors.NewForbidden("access denied")
		}
		if !assignee.InDepartment(t.DepartmentID) {
			return nil, apperrors.NewConflict("assignee outside ticket department", map[string]any{"agent_id": assigneeID})
		}
		oldAssignee = t.AssignedAgentID
		next, err := s.machine.Assign(t, assigneeID, domain.ActorTypeAgent, s.now())
		if err != nil {
			return nil, err
		}
		next.RoutingMethod = domain.RoutingMethodManual
		next.MatchedRuleName = nil
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.agents.InvalidateLoad(ctx, assigneeID)
	if oldAssignee != nil && *oldAssignee != assigneeID {
		s.agents.InvalidateLoad(ctx, *oldAssignee)
	}
	actorEvt := agentActor(actor.ID)
	s.record(ctx, ticket.ID, actorEvt, domain.ChangeTypeAssignee,
		map[string]any{"assigned_agent_id": oldAssignee},
		map[string]any{"assigned_agent_id": assigneeID, "routing_method": domain.RoutingMethodManual})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    actorEvt,
		Payload: events.TicketAssignedPayload{
			AgentID:       assigneeID,
			RoutingMethod: domain.RoutingMethodManual,
		},
	})
	return ticket, nil
}

// Resolve marks the ticket resolved.
func (s *TicketService) Resolve(ctx context.Context, actor *domain.Agent, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	var oldStatus domain.TicketStatus
	var oldAssignee *string
	ticket, err := s.updateWithRetry(ctx, ticketID, func(t *domain.Ticket) (*domain.Ticket, error) {
		if !s.agentCanAccess(actor, t) {
			return nil, apperrors.NewForbidden("access denied")
		}
		oldStatus = t.Status
		oldAssignee = t.AssignedAgentID
		return s.machine.Resolve(t, domain.ActorTypeAgent, s.now())
	})
	if err != nil {
		return nil, err
	}

	if oldAssignee != nil {
		s.agents.InvalidateLoad(ctx, *oldAssignee)
	}
	actorEvt := agentActor(actor.ID)
	s.record(ctx, ticket.ID, actorEvt, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketResolved,
		TicketID: ticket.ID,
		Actor:    actorEvt,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// Close archives a resolved ticket.
func (s *TicketService) Close(ctx context.Context, actor *domain.Agent, ticketID string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	return s.closeTicket(ctx, agentActor(actor.ID), ticketID, func(t *domain.Ticket) error {
		if !s.agentCanAccess(actor, t) {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	})
}

// CloseAsUser lets the requester close their own resolved ticket.
func (s *TicketService) CloseAsUser(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	return s.closeTicket(ctx, userActor(userID), ticketID, func(t *domain.Ticket) error {
		if t.RequesterID != userID {
			return apperrors.NewForbidden("access denied")
		}
		return nil
	})
}

func (s *TicketService) closeTicket(ctx context.Context, actor events.Actor, ticketID string, authorize func(*domain.Ticket) error) (*domain.Ticket, error) {
	var oldStatus domain.TicketStatus
	ticket, err := s.updateWithRetry(ctx, ticketID, func(t *domain.Ticket) (*domain.Ticket, error) {
		if err := authorize(t); err != nil {
			return nil, err
		}
		oldStatus = t.Status
		return s.machine.Close(t, actor.Type, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ticket.ID, actor, domain.ChangeTypeStatus,
		map[string]any{"status": oldStatus},
		map[string]any{"status": ticket.Status})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketClosed,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// Escalate raises the escalation level and releases the current assignee so a
// more senior agent can pick the ticket up.
func (s *TicketService) Escalate(ctx context.Context, actor *domain.Agent, ticketID, reason string) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("escalation reason is required", nil)
	}

	var oldAssignee *string
	var oldLevel int
	ticket, err := s.updateWithRetry(ctx, ticketID, func(t *domain.Ticket) (*domain.Ticket, error) {
		if !s.agentCanAccess(actor, t) {
			return nil, apperrors.NewForbidden("access denied")
		}
		oldAssignee = t.AssignedAgentID
		oldLevel = t.EscalationLevel
		return s.machine.Escalate(t, reason, domain.ActorTypeAgent, s.now())
	})
	if err != nil {
		return nil, err
	}

	if oldAssignee != nil {
		s.agents.InvalidateLoad(ctx, *oldAssignee)
	}
	actorEvt := agentActor(actor.ID)
	s.record(ctx, ticket.ID, actorEvt, domain.ChangeTypeEscalation,
		map[string]any{"escalation_level": oldLevel, "assigned_agent_id": oldAssignee},
		map[string]any{"escalation_level": ticket.EscalationLevel, "reason": reason})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketEscalated,
		TicketID: ticket.ID,
		Actor:    actorEvt,
		Payload: events.TicketEscalatedPayload{
			Reason:          reason,
			EscalationLevel: ticket.EscalationLevel,
			DepartmentID:    ticket.DepartmentID,
			PreviousAgentID: oldAssignee,
		},
	})
	return ticket, nil
}

// ChangePriority reprioritizes the ticket and recomputes its SLA deadlines.
// The promised first-response deadline never moves earlier.
func (s *TicketService) ChangePriority(ctx context.Context, actor *domain.Agent, ticketID string, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("agent required")
	}

	var oldPriority domain.TicketPriority
	var oldDue time.Time
	ticket, err := s.updateWithRetry(ctx, ticketID, func(t *domain.Ticket) (*domain.Ticket, error) {
		if !s.agentCanAccess(actor, t) {
			return nil, apperrors.NewForbidden("access denied")
		}
		if t.Status.IsTerminal() {
			return nil, apperrors.NewInvalidTransition("reprioritize", string(t.Status))
		}
		oldPriority = t.Priority
		oldDue = t.SlaDueAt
		if t.Priority == newPriority {
			return t.Clone(), nil
		}

		now := s.now()
		newDue, policy, err := s.resolver.RecomputeDeadline(ctx, t, newPriority, now)
		if err != nil {
			return nil, err
		}
		next := t.Clone()
		next.Priority = newPriority
		next.SlaDueAt = newDue
		base := now
		if s.resolver.RecomputePolicy() == domain.SlaRecomputeExtend {
			base = next.CreatedAt
		}
		resolutionDue := s.resolver.ResolutionDeadline(policy, base)
		if next.ResolutionDueAt == nil || resolutionDue.After(*next.ResolutionDueAt) {
			next.ResolutionDueAt = &resolutionDue
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	if oldPriority == newPriority {
		return ticket, nil
	}

	actorEvt := agentActor(actor.ID)
	s.record(ctx, ticket.ID, actorEvt, domain.ChangeTypePriority,
		map[string]any{"priority": oldPriority},
		map[string]any{"priority": newPriority})
	if !ticket.SlaDueAt.Equal(oldDue) {
		s.record(ctx, ticket.ID, actorEvt, domain.ChangeTypeSlaDeadline,
			map[string]any{"sla_due_at": oldDue},
			map[string]any{"sla_due_at": ticket.SlaDueAt})
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketPriorityChanged,
		TicketID: ticket.ID,
		Actor:    actorEvt,
		Payload: events.TicketPriorityChangedPayload{
			OldPriority: oldPriority,
			NewPriority: newPriority,
			OldSlaDueAt: oldDue,
			NewSlaDueAt: ticket.SlaDueAt,
		},
	})
	return ticket, nil
}

// ListHistory returns the audit trail for agents with access.
func (s *TicketService) ListHistory(ctx context.Context, agent *domain.Agent, ticketID string) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !s.agentCanAccess(agent, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// ListHistoryForUser returns user-safe audit entries for the requester.
func (s *TicketService) ListHistoryForUser(ctx context.Context, userID, ticketID string) ([]domain.TicketHistory, error) {
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	ticket, err := s.getTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.RequesterID != userID {
		return nil, apperrors.NewForbidden("access denied")
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	allowed := []domain.TicketHistory{}
	for _, entry := range entries {
		if entry.ChangeType == domain.ChangeTypeStatus || entry.ChangeType == domain.ChangeTypeAssignee {
			allowed = append(allowed, entry)
		}
	}
	return allowed, nil
}

// SweepOverdue finds tickets past their first-response deadline, marks the
// breach, escalates them, and tries to re-route each one to a more senior
// agent. One ticket's failure never blocks the rest of the sweep.
func (s *TicketService) SweepOverdue(ctx context.Context) (SweepResult, error) {
	now := s.now()
	candidates, err := s.tickets.FindSlaCandidates(ctx, now)
	if err != nil {
		return SweepResult{}, apperrors.MapError(err)
	}

	result := SweepResult{Scanned: len(candidates)}
	for i := range candidates {
		breached, reassigned, err := s.safeHandleBreach(ctx, candidates[i].ID)
		if err != nil {
			result.Failed++
			s.logger.Error("sla breach handling failed",
				zap.String("ticket_id", candidates[i].ID), zap.Error(err))
			continue
		}
		if !breached {
			// A concurrent writer got there first.
			continue
		}
		result.Breached++
		if reassigned {
			result.Reassigned++
		}
	}
	if result.Scanned > 0 {
		s.logger.Info("sla sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("breached", result.Breached),
			zap.Int("reassigned", result.Reassigned),
			zap.Int("failed", result.Failed))
	}
	return result, nil
}

func (s *TicketService) safeHandleBreach(ctx context.Context, ticketID string) (breached, reassigned bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("breach handling panicked: %v", r)
		}
	}()
	return s.handleBreach(ctx, ticketID)
}

// handleBreach runs the full breach flow for one ticket against a fresh read,
// retrying once when a concurrent writer got there first. All mutations build
// on a clone, so a collaborator failure before Save leaves the stored ticket
// untouched.
func (s *TicketService) handleBreach(ctx context.Context, ticketID string) (bool, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return false, false, nil
			}
			return false, false, err
		}
		now := s.now()
		if ticket.SlaBreached || ticket.Status.IsTerminal() || now.Before(ticket.SlaDueAt) {
			// A concurrent writer resolved it or pushed the deadline out.
			return false, false, nil
		}
		oldDue := ticket.SlaDueAt
		prevAgent := ticket.AssignedAgentID

		next, err := s.machine.Escalate(ticket, slaBreachReason, domain.ActorTypeSystem, now)
		if err != nil {
			return false, false, err
		}
		next.SlaBreached = true

		decision, err := s.route(ctx, next, routing.Options{PreferTierAbove: next.EscalationLevel})
		if err != nil {
			return false, false, err
		}
		if decision.Assigned {
			next, err = s.machine.Assign(next, decision.AgentID, domain.ActorTypeSystem, now)
			if err != nil {
				return false, false, err
			}
			next.RoutingMethod = decision.Method
			next.MatchedRuleName = decision.MatchedRule
		}

		if err := s.tickets.Save(ctx, next); err != nil {
			if apperrors.IsCode(err, apperrors.CodeConcurrentModification) && attempt == 0 {
				continue
			}
			return false, false, err
		}

		if prevAgent != nil {
			s.agents.InvalidateLoad(ctx, *prevAgent)
		}
		if decision.Assigned {
			s.agents.InvalidateLoad(ctx, decision.AgentID)
		}
		sysActor := events.SystemActor()
		s.record(ctx, next.ID, sysActor, domain.ChangeTypeSlaBreach,
			map[string]any{"sla_due_at": oldDue, "sla_breached": false},
			map[string]any{"sla_breached": true})
		s.record(ctx, next.ID, sysActor, domain.ChangeTypeEscalation,
			map[string]any{"escalation_level": ticket.EscalationLevel, "assigned_agent_id": prevAgent},
			map[string]any{"escalation_level": next.EscalationLevel, "assigned_agent_id": next.AssignedAgentID, "reason": slaBreachReason})
		payload := events.SlaBreachedPayload{
			SlaDueAt:        oldDue,
			BreachedAt:      now,
			EscalationLevel: next.EscalationLevel,
			DepartmentID:    next.DepartmentID,
		}
		if decision.Assigned {
			agentID := decision.AgentID
			payload.NewAgentID = &agentID
		}
		s.publishEvent(ctx, events.Event{
			Type:     events.EventSlaBreached,
			TicketID: next.ID,
			Actor:    sysActor,
			Payload:  payload,
		})
		return true, decision.Assigned, nil
	}
	return false, false, apperrors.NewConcurrentModification("ticket")
}

// route loads the ordered rules and the department candidate pool, then asks
// the engine for a decision.
func (s *TicketService) route(ctx context.Context, ticket *domain.Ticket, opts routing.Options) (routing.Decision, error) {
	rules, err := s.rules.ListOrdered(ctx)
	if err != nil {
		return routing.Decision{}, apperrors.MapError(err)
	}
	pool, err := s.agents.CandidatePool(ctx, ticket.DepartmentID)
	if err != nil {
		return routing.Decision{}, err
	}
	return s.router.RouteWithOptions(ticket, rules, pool, opts), nil
}

// updateWithRetry reads the ticket, applies mutate to produce the next state,
// and saves it under optimistic concurrency. A lost race is retried once
// against a fresh read; the second loss surfaces ConcurrentModification.
func (s *TicketService) updateWithRetry(ctx context.Context, ticketID string, mutate func(*domain.Ticket) (*domain.Ticket, error)) (*domain.Ticket, error) {
	for attempt := 0; attempt < 2; attempt++ {
		ticket, err := s.getTicket(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		next, err := mutate(ticket)
		if err != nil {
			return nil, err
		}
		if err := s.tickets.Save(ctx, next); err != nil {
			if apperrors.IsCode(err, apperrors.CodeConcurrentModification) && attempt == 0 {
				s.logger.Debug("ticket save lost write race, retrying",
					zap.String("ticket_id", ticketID))
				continue
			}
			return nil, apperrors.MapError(err)
		}
		return next, nil
	}
	return nil, apperrors.NewConcurrentModification("ticket")
}

func (s *TicketService) getTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

func (s *TicketService) agentCanAccess(agent *domain.Agent, ticket *domain.Ticket) bool {
	if agent == nil {
		return false
	}
	if agent.Role == domain.AgentRoleAdmin {
		return true
	}
	if ticket.AssignedAgentID != nil && *ticket.AssignedAgentID == agent.ID {
		return true
	}
	return agent.InDepartment(ticket.DepartmentID)
}

func (s *TicketService) agentCanSeeDepartment(agent *domain.Agent, departmentID string) bool {
	if agent == nil {
		return false
	}
	if agent.Role == domain.AgentRoleAdmin {
		return true
	}
	return agent.InDepartment(departmentID)
}

func (s *TicketService) record(ctx context.Context, ticketID string, actor events.Actor, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: actor.Type,
		ChangedByID:   actorRef(actor),
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("ticket history write failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func generateTicketKey() string {
	return "SUP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func userActor(userID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeUser, UserID: &userID}
}

func agentActor(agentID string) events.Actor {
	return events.Actor{Type: domain.ActorTypeAgent, AgentID: &agentID}
}

func actorRef(actor events.Actor) *string {
	if actor.AgentID != nil {
		return actor.AgentID
	}
	return actor.UserID
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
