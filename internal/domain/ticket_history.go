package domain

import "time"

// ActorType indicates who drove a change.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeAgent  ActorType = "AGENT"
	ActorTypeSystem ActorType = "SYSTEM"
)

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeStatus      TicketChangeType = "STATUS_CHANGE"
	ChangeTypeAssignee    TicketChangeType = "ASSIGNEE_CHANGE"
	ChangeTypePriority    TicketChangeType = "PRIORITY_CHANGE"
	ChangeTypeEscalation  TicketChangeType = "ESCALATION"
	ChangeTypeSlaBreach   TicketChangeType = "SLA_BREACH"
	ChangeTypeSlaDeadline TicketChangeType = "SLA_DEADLINE_CHANGE"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType ActorType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
