package dto

import (
	"time"

	"github.com/spec-kit/support-engine/internal/domain"
)

// CreateAgentRequest payload for provisioning an operator account.
type CreateAgentRequest struct {
	Name          string           `json:"name" validate:"required,min=2,max=120"`
	Email         string           `json:"email" validate:"required,email"`
	Password      string           `json:"password" validate:"required,min=8,max=72"`
	Role          domain.AgentRole `json:"role" validate:"required,oneof=AGENT SUPERVISOR ADMIN"`
	Tier          int              `json:"tier" validate:"required,min=1,max=5"`
	DepartmentIDs []string         `json:"department_ids" validate:"required,min=1,dive,required"`
	Skills        []string         `json:"skills" validate:"omitempty,dive,required"`
}

// UpdateAgentRequest payload. Nil fields are left unchanged.
type UpdateAgentRequest struct {
	Name          *string           `json:"name" validate:"omitempty,min=2,max=120"`
	Role          *domain.AgentRole `json:"role" validate:"omitempty,oneof=AGENT SUPERVISOR ADMIN"`
	Tier          *int              `json:"tier" validate:"omitempty,min=1,max=5"`
	DepartmentIDs []string          `json:"department_ids" validate:"omitempty,min=1,dive,required"`
	Skills        []string          `json:"skills" validate:"omitempty,dive,required"`
}

// SetAvailabilityRequest payload.
type SetAvailabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// AgentResponse public view of an operator.
type AgentResponse struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Email         string           `json:"email"`
	Role          domain.AgentRole `json:"role"`
	Tier          int              `json:"tier"`
	DepartmentIDs []string         `json:"department_ids"`
	Skills        []string         `json:"skills"`
	IsAvailable   bool             `json:"is_available"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}
