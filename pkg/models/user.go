// Package models contains domain types for aihub.
package models

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// User is an employee who has signed in at least once.
// ID is the identity provider subject.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	LocationID *uuid.UUID `json:"location_id,omitempty"`
	Role       string     `json:"role"` // 'user', 'moderator'
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Role constants.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleUser, RoleModerator}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IsModerator reports whether the user holds the moderator role.
func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}

// UserRef is the {id, name} projection joined onto submitted content.
type UserRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// DisplayNameFromEmail derives a default display name from the local part of an
// address: "jane.doe-smith@corp.com" becomes "Jane Doe Smith".
func DisplayNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		runes := []rune(strings.ToLower(p))
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}
