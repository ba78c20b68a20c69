package project

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrProjectNotFound is returned when a project record is not found.
var ErrProjectNotFound = errors.New("project not found")

// ErrPersonalProjectExists is returned when a user already owns a personal project.
var ErrPersonalProjectExists = errors.New("personal project already exists")

// Repository provides operations on the projects table.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	List(ctx context.Context) ([]Project, error)
	ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]Project, error)
	CreatePersonal(ctx context.Context, owner Owner) (*Project, error)
	ListOwnersWithoutPersonal(ctx context.Context) ([]Owner, error)
}
