package domain

import "time"

// SlaPolicy holds the time budgets for one (department, priority) pair.
// A nil DepartmentID marks the global default for the priority.
type SlaPolicy struct {
	ID                   string
	DepartmentID         *string
	Priority             TicketPriority
	FirstResponseMinutes int
	ResolutionMinutes    int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SlaRecomputePolicy selects how a priority change reshapes the deadline.
type SlaRecomputePolicy string

const (
	// SlaRecomputeRestart opens a full new first-response window from the
	// moment of the change.
	SlaRecomputeRestart SlaRecomputePolicy = "restart"
	// SlaRecomputeExtend re-derives the deadline from the creation time and
	// keeps the current one when the result would move it earlier.
	SlaRecomputeExtend SlaRecomputePolicy = "extend"
)
