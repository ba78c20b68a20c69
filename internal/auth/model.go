package auth

import (
	"time"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/rbac"
)

// User represents a row in the users table.
type User struct {
	ID           uuid.UUID
	Email        string
	FirstName    string
	LastName     string
	Role         rbac.Role
	ApiKeyPrefix string
	ApiKeyHash   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsOwner reports whether u holds the instance owner role.
func (u *User) IsOwner() bool {
	return u.Role == rbac.RoleOwner
}

// FullName returns "First Last", falling back to the email when both are empty.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}

// Identity is stored in the request context after authentication.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   rbac.Role
}

// HasScope reports whether the identity's role grants scope.
func (i *Identity) HasScope(scope rbac.Scope) bool {
	return rbac.HasScope(i.Role, scope)
}
