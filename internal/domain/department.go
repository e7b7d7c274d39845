package domain

import "time"

// Department represents a high-level organizational unit. SupervisorID names
// the agent that receives breach alerts on the supervisor channel.
type Department struct {
	ID           string
	Name         string
	Description  string
	SupervisorID *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
