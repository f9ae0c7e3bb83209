package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleRegular = "regular"
)

// User models an account that can record attendance.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the administrative role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// ValidRole reports whether role is one the system understands.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleRegular
}
