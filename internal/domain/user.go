package domain

import "time"

// Role is a staff role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleKitchen Role = "kitchen"
)

// User is a staff account. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Principal is an authenticated caller.
type Principal struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// HasRole reports whether the principal holds any of roles.
func (p *Principal) HasRole(roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}
