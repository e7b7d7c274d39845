package domain

import "time"

// AgentRole enumerates internal operator roles.
type AgentRole string

const (
	AgentRoleAgent      AgentRole = "AGENT"
	AgentRoleSupervisor AgentRole = "SUPERVISOR"
	AgentRoleAdmin      AgentRole = "ADMIN"
)

// Agent models a support operator. Tier orders seniority for escalation
// re-routing: 1 is front line, higher values handle escalated tickets.
type Agent struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          AgentRole
	Tier          int
	DepartmentIDs []string
	Skills        []string
	IsAvailable   bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InDepartment reports membership in the given department.
func (a *Agent) InDepartment(departmentID string) bool {
	for _, id := range a.DepartmentIDs {
		if id == departmentID {
			return true
		}
	}
	return false
}

// HasSkill reports whether the agent carries the named skill.
func (a *Agent) HasSkill(skill string) bool {
	for _, s := range a.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
