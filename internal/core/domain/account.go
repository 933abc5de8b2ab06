package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of account roles.
type Role string

const (
	RoleStandard      Role = "user"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "admin"
)

// Valid reports whether r belongs to the known role set.
func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleModerator, RoleAdministrator:
		return true
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	return role, role.Valid()
}

// Settings holds free-form user preferences (theme, language, ...).
type Settings map[string]any

// Account mirrors the client-visible part of the accounts table.
// Secrets (password hash, reset and refresh credentials) are deliberately absent.
type Account struct {
	ID             string
	Username       string
	Email          string
	Role           Role
	IsActive       bool
	ProfilePicture string
	Bio            string
	Settings       Settings
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountCredentials pairs an account with its password hash.
// Only the login lookup returns this type.
type AccountCredentials struct {
	Account
	PasswordHash string
}

// ProfileUpdate carries the optional fields of a profile patch.
type ProfileUpdate struct {
	Username       *string
	Email          *string
	ProfilePicture *string
	Bio            *string
}

// Empty reports whether no field is set.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.Email == nil && u.ProfilePicture == nil && u.Bio == nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
