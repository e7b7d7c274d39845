package events

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketEscalated       EventType = "ticket_escalated"
	EventTicketResolved        EventType = "ticket_resolved"
	EventTicketClosed          EventType = "ticket_closed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventSlaBreached           EventType = "sla_breached"
	EventRoutingUnresolved     EventType = "routing_unresolved"
	EventSentimentRecorded     EventType = "sentiment_recorded"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.ActorType `json:"type"`
	UserID  *string          `json:"user_id,omitempty"`
	AgentID *string          `json:"agent_id,omitempty"`
}

// SystemActor is the actor for monitor- and scheduler-driven events.
func SystemActor() Actor {
	return Actor{Type: domain.ActorTypeSystem}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	DepartmentID    string                 `json:"department_id"`
	Priority        domain.TicketPriority  `json:"priority"`
	Title           string                 `json:"title"`
	SlaDueAt        time.Time              `json:"sla_due_at"`
	AssignedAgentID *string                `json:"assigned_agent_id,omitempty"`
	RoutingMethod   domain.RoutingMethod   `json:"routing_method"`
	Sentiment       *domain.SentimentLabel `json:"sentiment,omitempty"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AgentID       string               `json:"agent_id"`
	RoutingMethod domain.RoutingMethod `json:"routing_method"`
	MatchedRule   *string              `json:"matched_rule,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	Reason          string  `json:"reason"`
	EscalationLevel int     `json:"escalation_level"`
	DepartmentID    string  `json:"department_id"`
	PreviousAgentID *string `json:"previous_agent_id,omitempty"`
}

// TicketStatusChangedPayload payload for resolve/close events.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
	OldSlaDueAt time.Time             `json:"old_sla_due_at"`
	NewSlaDueAt time.Time             `json:"new_sla_due_at"`
}

// SlaBreachedPayload payload.
type SlaBreachedPayload struct {
	SlaDueAt        time.Time `json:"sla_due_at"`
	BreachedAt      time.Time `json:"breached_at"`
	EscalationLevel int       `json:"escalation_level"`
	NewAgentID      *string   `json:"new_agent_id,omitempty"`
	DepartmentID    string    `json:"department_id"`
}

// RoutingUnresolvedPayload payload, raised when no agent could take a ticket.
type RoutingUnresolvedPayload struct {
	DepartmentID string                `json:"department_id"`
	Priority     domain.TicketPriority `json:"priority"`
}

// SentimentRecordedPayload payload.
type SentimentRecordedPayload struct {
	Label         domain.SentimentLabel `json:"label"`
	CombinedScore float64               `json:"combined_score"`
	Confidence    float64               `json:"confidence"`
}
