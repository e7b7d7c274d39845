package domain

import "time"

// UserStatus represents lifecycle states for an end-user account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// User is a requester: the person whose conversations open tickets.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActive reports whether the account may authenticate and open tickets.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
