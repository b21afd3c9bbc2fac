package models

import "time"

// Role constants for users
const (
	RoleSalesExecutive = "sales_executive"
	RoleManager        = "manager"
	RoleSuperadmin     = "superadmin"
)

// User represents an application user. Only active sales executives
// participate in round-robin lead distribution.
type User struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Team      string    `json:"team,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEligibleAgent reports whether the user can receive auto-assigned leads
func (u User) IsEligibleAgent() bool {
	return u.Active && u.Role == RoleSalesExecutive
}
