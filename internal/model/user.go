package model

import "time"

type User struct {
	Address      string    `json:"address"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Role constants
const (
	RoleStudent      = "student"
	RoleOrganization = "organization"
)

// IsStudent checks if the user owns documents and answers consent requests
func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// IsOrganization checks if the user requests access to student documents
func (u *User) IsOrganization() bool {
	return u.Role == RoleOrganization
}

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleOrganization
}
