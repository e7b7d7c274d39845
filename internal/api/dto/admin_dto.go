package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// CreateDepartmentRequest payload.
type CreateDepartmentRequest struct {
	Name         string  `json:"name" validate:"required,min=2,max=120"`
	Description  string  `json:"description" validate:"max=500"`
	SupervisorID *string `json:"supervisor_id"`
}

// UpdateDepartmentRequest payload. Nil fields are left unchanged.
type UpdateDepartmentRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=2,max=120"`
	Description  *string `json:"description" validate:"omitempty,max=500"`
	SupervisorID *string `json:"supervisor_id"`
	IsActive     *bool   `json:"is_active"`
}

// DepartmentResponse public view of a department.
type DepartmentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	SupervisorID *string   `json:"supervisor_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpsertSlaPolicyRequest payload. A nil department_id writes the global
// default policy for the priority.
type UpsertSlaPolicyRequest struct {
	DepartmentID         *string               `json:"department_id"`
	Priority             domain.TicketPriority `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	FirstResponseMinutes int                   `json:"first_response_minutes" validate:"required,min=1"`
	ResolutionMinutes    int                   `json:"resolution_minutes" validate:"required,min=1"`
}

// SlaPolicyResponse public view of one SLA policy.
type SlaPolicyResponse struct {
	ID                   string                `json:"id"`
	DepartmentID         *string               `json:"department_id,omitempty"`
	Priority             domain.TicketPriority `json:"priority"`
	FirstResponseMinutes int                   `json:"first_response_minutes"`
	ResolutionMinutes    int                   `json:"resolution_minutes"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// CreateRoutingRuleRequest payload. Position defaults to the end of the
// evaluation order when omitted.
type CreateRoutingRuleRequest struct {
	Name          string                  `json:"name" validate:"required,min=2,max=120"`
	Keywords      []string                `json:"keywords" validate:"required,min=1,dive,required"`
	Priorities    []domain.TicketPriority `json:"priorities" validate:"omitempty,dive,oneof=LOW MEDIUM HIGH CRITICAL"`
	RequiredSkill string                  `json:"required_skill" validate:"required"`
	Weight        float64                 `json:"weight" validate:"min=0,max=1"`
	IsActive      *bool                   `json:"is_active"`
}

// UpdateRoutingRuleRequest payload. Nil fields are left unchanged.
type UpdateRoutingRuleRequest struct {
	Name          *string                 `json:"name" validate:"omitempty,min=2,max=120"`
	Keywords      []string                `json:"keywords" validate:"omitempty,min=1,dive,required"`
	Priorities    []domain.TicketPriority `json:"priorities" validate:"omitempty,dive,oneof=LOW MEDIUM HIGH CRITICAL"`
	RequiredSkill *string                 `json:"required_skill" validate:"omitempty,min=1"`
	Weight        *float64                `json:"weight" validate:"omitempty,min=0,max=1"`
	IsActive      *bool                   `json:"is_active"`
}

// ReorderRoutingRulesRequest lists every rule ID in its new evaluation order.
type ReorderRoutingRulesRequest struct {
	RuleIDs []string `json:"rule_ids" validate:"required,min=1,dive,required"`
}

// RoutingRuleResponse public view of one routing rule.
type RoutingRuleResponse struct {
	ID            string                  `json:"id"`
	Name          string                  `json:"name"`
	Keywords      []string                `json:"keywords"`
	Priorities    []domain.TicketPriority `json:"priorities,omitempty"`
	RequiredSkill string                  `json:"required_skill"`
	Weight        float64                 `json:"weight"`
	Position      int                     `json:"position"`
	IsActive      bool                    `json:"is_active"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}
