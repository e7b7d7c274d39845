package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-engine/internal/events"
)

// Recipient prefixes understood by the delivery sinks.
const (
	RecipientAgentPrefix      = "agent:"
	RecipientSupervisorPrefix = "supervisor:"
	RecipientRequester        = "requester"
)

// NotificationIntent is one deliverable notification. The ticket workflows
// only ever emit intents; delivery happens on the worker that drains the
// queue, so a slow or dead sink cannot stall a state transition.
type NotificationIntent struct {
	ID        string
	Recipient string
	Event     events.Event
	Attempts  int
	CreatedAt time.Time
}

// IntentQueue accepts intents for asynchronous delivery. Enqueue must not
// block; it reports false when the intent was dropped.
type IntentQueue interface {
	Enqueue(intent NotificationIntent) bool
}

// NotificationService translates domain events into notification intents.
// Breach and escalation intents also target the department's supervisor
// channel so someone sees them even when no agent could take the ticket.
type NotificationService struct {
	dispatcher events.Dispatcher
	queue      IntentQueue
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, queue IntentQueue, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		queue:      queue,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to the event stream.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketEscalated, n.handleTicketEscalated)
	n.dispatcher.Subscribe(events.EventTicketResolved, n.handleTicketResolved)
	n.dispatcher.Subscribe(events.EventSlaBreached, n.handleSlaBreached)
	n.dispatcher.Subscribe(events.EventRoutingUnresolved, n.handleRoutingUnresolved)
}

func (n *NotificationService) handleTicketCreated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	if payload.AssignedAgentID != nil {
		n.emit(RecipientAgentPrefix+*payload.AssignedAgentID, event)
	}
	return nil
}

func (n *NotificationService) handleTicketAssigned(_ context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.TicketAssignedPayload); ok {
		n.emit(RecipientAgentPrefix+payload.AgentID, event)
	}
	return nil
}

func (n *NotificationService) handleTicketEscalated(_ context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.TicketEscalatedPayload); ok && payload.DepartmentID != "" {
		n.emit(RecipientSupervisorPrefix+payload.DepartmentID, event)
	}
	return nil
}

func (n *NotificationService) handleTicketResolved(_ context.Context, event events.Event) error {
	n.emit(RecipientRequester, event)
	return nil
}

func (n *NotificationService) handleSlaBreached(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SlaBreachedPayload)
	if !ok {
		return nil
	}
	if payload.DepartmentID != "" {
		n.emit(RecipientSupervisorPrefix+payload.DepartmentID, event)
	}
	if payload.NewAgentID != nil {
		n.emit(RecipientAgentPrefix+*payload.NewAgentID, event)
	}
	return nil
}

func (n *NotificationService) handleRoutingUnresolved(_ context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.RoutingUnresolvedPayload); ok && payload.DepartmentID != "" {
		n.emit(RecipientSupervisorPrefix+payload.DepartmentID, event)
	}
	return nil
}

// emit queues one intent. Delivery is fire and forget: a full queue drops
// the intent with a warning, never an error back into the event stream.
func (n *NotificationService) emit(recipient string, event events.Event) {
	if n.queue == nil {
		return
	}
	intent := NotificationIntent{
		ID:        uuid.NewString(),
		Recipient: recipient,
		Event:     event,
		CreatedAt: time.Now(),
	}
	if !n.queue.Enqueue(intent) {
		n.logger.Warn("notification queue full, intent dropped",
			zap.String("recipient", recipient),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
		return
	}
	n.logger.Debug("notification intent queued",
		zap.String("recipient", recipient),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}
