package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/rbac"
)

// ErrUserNotFound is returned when a user record is not found.
var ErrUserNotFound = errors.New("user not found")

// ErrDuplicateEmail is returned when a user with the same email already exists.
var ErrDuplicateEmail = errors.New("email already exists")

// ErrTransferTargetNotFound is returned when the project receiving a deleted
// user's resources no longer exists.
var ErrTransferTargetNotFound = errors.New("transfer project not found")

// UserRepository provides operations on the users table.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	FindByPrefix(ctx context.Context, prefix string) ([]User, error)
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*User, error)
	Delete(ctx context.Context, id uuid.UUID, transferID *uuid.UUID) error
	CountAll(ctx context.Context) (int, error)
}
