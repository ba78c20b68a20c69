package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/project"
)

// UserLister returns every user in store order.
type UserLister interface {
	List(ctx context.Context) ([]auth.User, error)
}

// TransferCandidateLister returns the projects that may receive a user's data.
type TransferCandidateLister interface {
	ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error)
}

// UserByEmailFinder looks a single user up by email. A UserLister that also
// implements it is asked directly instead of scanning the full list.
type UserByEmailFinder interface {
	GetByEmail(ctx context.Context, email string) (*auth.User, error)
}

// Projector derives the lists shown while administering users.
type Projector struct {
	users    UserLister
	projects TransferCandidateLister
}

// NewProjector creates a Projector.
func NewProjector(users UserLister, projects TransferCandidateLister) *Projector {
	return &Projector{users: users, projects: projects}
}

// List returns the users in the order the store supplied them.
func (p *Projector) List(ctx context.Context) ([]auth.User, error) {
	list, err := p.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return list, nil
}

// FindByEmail returns the user with the given email or auth.ErrUserNotFound.
func (p *Projector) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if finder, ok := p.users.(UserByEmailFinder); ok {
		u, err := finder.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("finding user %s: %w", email, err)
		}
		return u, nil
	}

	list, err := p.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if strings.ToLower(list[i].Email) == email {
			return &list[i], nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// CandidateTransferProjects returns every project except the personal project
// of excludingOwnerID.
func (p *Projector) CandidateTransferProjects(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error) {
	list, err := p.projects.ListTransferCandidates(ctx, excludingOwnerID)
	if err != nil {
		return nil, fmt.Errorf("listing transfer candidates: %w", err)
	}
	return list, nil
}
