package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// CreateTicketRequest payload. Priority is optional; when omitted the
// sentiment verdict decides it.
type CreateTicketRequest struct {
	ConversationID string                 `json:"conversation_id" validate:"required"`
	DepartmentID   string                 `json:"department_id" validate:"required"`
	Title          string                 `json:"title" validate:"required,max=255"`
	Description    string                 `json:"description" validate:"required"`
	Priority       *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// AssignTicketRequest payload. An empty agent_id assigns the caller.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// EscalateTicketRequest payload.
type EscalateTicketRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ChangePriorityRequest payload.
type ChangePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              string                `json:"id"`
	ExternalKey     string                `json:"external_key"`
	ConversationID  string                `json:"conversation_id"`
	DepartmentID    string                `json:"department_id"`
	AssignedAgentID *string               `json:"assigned_agent_id,omitempty"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	SlaDueAt        time.Time             `json:"sla_due_at"`
	SlaBreached     bool                  `json:"sla_breached"`
	EscalationLevel int                   `json:"escalation_level"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info with the audit trail.
type TicketDetailResponse struct {
	ID                  string                  `json:"id"`
	ExternalKey         string                  `json:"external_key"`
	ConversationID      string                  `json:"conversation_id"`
	DepartmentID        string                  `json:"department_id"`
	AssignedAgentID     *string                 `json:"assigned_agent_id,omitempty"`
	Title               string                  `json:"title"`
	Description         string                  `json:"description"`
	Status              domain.TicketStatus     `json:"status"`
	Priority            domain.TicketPriority   `json:"priority"`
	SlaDueAt            time.Time               `json:"sla_due_at"`
	ResolutionDueAt     *time.Time              `json:"resolution_due_at,omitempty"`
	SlaBreached         bool                    `json:"sla_breached"`
	EscalationLevel     int                     `json:"escalation_level"`
	EscalationReason    *string                 `json:"escalation_reason,omitempty"`
	RoutingMethod       domain.RoutingMethod    `json:"routing_method"`
	MatchedRuleName     *string                 `json:"matched_rule_name,omitempty"`
	SentimentScore      *float64                `json:"sentiment_score,omitempty"`
	SentimentLabel      *domain.SentimentLabel  `json:"sentiment_label,omitempty"`
	SentimentConfidence *float64                `json:"sentiment_confidence,omitempty"`
	FirstResponseAt     *time.Time              `json:"first_response_at,omitempty"`
	ResolvedAt          *time.Time              `json:"resolved_at,omitempty"`
	ClosedAt            *time.Time              `json:"closed_at,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
	History             []TicketHistoryResponse `json:"history,omitempty"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByType domain.ActorType        `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id,omitempty"`
	OldValue      map[string]any          `json:"old_value,omitempty"`
	NewValue      map[string]any          `json:"new_value,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}
