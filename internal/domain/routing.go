package domain

import "time"

// RoutingRule narrows a ticket to a required skill when its text or priority
// matches. Rules are evaluated in Position order; the first match whose
// Weight clears the engine threshold wins.
type RoutingRule struct {
	ID            string
	Name          string
	Keywords      []string
	Priorities    []TicketPriority
	RequiredSkill string
	Weight        float64
	Position      int
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// MatchesPriority reports whether the rule applies to the given priority.
// An empty Priorities list matches all priorities.
func (r *RoutingRule) MatchesPriority(p TicketPriority) bool {
	if len(r.Priorities) == 0 {
		return true
	}
	for _, candidate := range r.Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}
