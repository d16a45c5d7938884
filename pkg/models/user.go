package models

import (
	"time"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

// User is a known identity. Users are provisioned with RoleUser on first login.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Actor is the resolved caller of an operation.
type Actor struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the actor has the admin role.
func (a *Actor) IsAdmin() bool { return a != nil && a.Role == RoleAdmin }

// IsStaff reports whether the actor is admin or staff.
func (a *Actor) IsStaff() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleStaff)
}
