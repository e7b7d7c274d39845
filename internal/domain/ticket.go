package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusEscalated  TicketStatus = "ESCALATED"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// IsTerminal reports whether the status permits no further monitor mutation.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// RoutingMethod records how a ticket reached its assignee.
type RoutingMethod string

const (
	RoutingMethodRule        RoutingMethod = "RULE"
	RoutingMethodLoadBalance RoutingMethod = "LOAD_BALANCE"
	RoutingMethodManual      RoutingMethod = "MANUAL"
	RoutingMethodUnassigned  RoutingMethod = "UNASSIGNED"
)

// Ticket is the aggregate for support requests. Version guards concurrent
// writers: every save must present the version it read.
type Ticket struct {
	ID               string
	ExternalKey      string
	ConversationID   string
	RequesterID      string
	DepartmentID     string
	AssignedAgentID  *string
	Title            string
	Description      string
	Status           TicketStatus
	Priority         TicketPriority
	SlaDueAt         time.Time
	ResolutionDueAt  *time.Time
	SlaBreached      bool
	EscalationLevel  int
	EscalationReason *string

	RoutingMethod       RoutingMethod
	MatchedRuleName     *string
	SentimentScore      *float64
	SentimentLabel      *SentimentLabel
	SentimentConfidence *float64

	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can mutate transition candidates without
// touching the snapshot they may need to roll back to.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.AssignedAgentID = clonePtr(t.AssignedAgentID)
	c.EscalationReason = clonePtr(t.EscalationReason)
	c.MatchedRuleName = clonePtr(t.MatchedRuleName)
	c.SentimentScore = clonePtr(t.SentimentScore)
	c.SentimentLabel = clonePtr(t.SentimentLabel)
	c.SentimentConfidence = clonePtr(t.SentimentConfidence)
	c.ResolutionDueAt = clonePtr(t.ResolutionDueAt)
	c.FirstResponseAt = clonePtr(t.FirstResponseAt)
	c.ResolvedAt = clonePtr(t.ResolvedAt)
	c.ClosedAt = clonePtr(t.ClosedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
