package users_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/notify"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/rbac"
)

// fixture mirrors a small instance: an owner, two members and four projects,
// two of which are personal.
type fixture struct {
	users    []auth.User
	projects []project.Project
}

func newFixture() fixture {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	owner := auth.User{ID: uuid.New(), Email: "owner@example.com", FirstName: "Olga", LastName: "Owner", Role: rbac.RoleOwner, CreatedAt: now}
	first := auth.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace", Role: rbac.RoleMember, CreatedAt: now.Add(time.Minute)}
	last := auth.User{ID: uuid.New(), Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper", Role: rbac.RoleAdmin, CreatedAt: now.Add(2 * time.Minute)}

	// users[0] is the deletion target in the scenario tests, so it is not the owner.
	users := []auth.User{first, owner, last}

	personal := func(u auth.User) project.Project {
		id := u.ID
		return project.Project{
			ID:      uuid.New(),
			Name:    project.PersonalProjectName(project.Owner{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}),
			Type:    project.TypePersonal,
			OwnerID: &id,
		}
	}
	projects := []project.Project{
		personal(first),
		personal(owner),
		{ID: uuid.New(), Name: "Marketing", Type: project.TypeTeam},
		{ID: uuid.New(), Name: "Platform", Type: project.TypeTeam},
	}
	return fixture{users: users, projects: projects}
}

// mockUserStore is a function-field mock of the user store.
type mockUserStore struct {
	listFn       func(ctx context.Context) ([]auth.User, error)
	getByIDFn    func(ctx context.Context, id uuid.UUID) (*auth.User, error)
	updateRoleFn func(ctx context.Context, id uuid.UUID, role rbac.Role) (*auth.User, error)
	deleteFn     func(ctx context.Context, id uuid.UUID, transferID *uuid.UUID) error
}

func (m *mockUserStore) List(ctx context.Context) ([]auth.User, error) {
	return m.listFn(ctx)
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockUserStore) UpdateRole(ctx context.Context, id uuid.UUID, role rbac.Role) (*auth.User, error) {
	return m.updateRoleFn(ctx, id, role)
}

func (m *mockUserStore) Delete(ctx context.Context, id uuid.UUID, transferID *uuid.UUID) error {
	return m.deleteFn(ctx, id, transferID)
}

func (f fixture) userStore() *mockUserStore {
	return &mockUserStore{
		listFn: func(_ context.Context) ([]auth.User, error) {
			return append([]auth.User(nil), f.users...), nil
		},
		getByIDFn: func(_ context.Context, id uuid.UUID) (*auth.User, error) {
			for i := range f.users {
				if f.users[i].ID == id {
					u := f.users[i]
					return &u, nil
				}
			}
			return nil, auth.ErrUserNotFound
		},
		updateRoleFn: func(_ context.Context, id uuid.UUID, role rbac.Role) (*auth.User, error) {
			for i := range f.users {
				if f.users[i].ID == id {
					u := f.users[i]
					u.Role = role
					return &u, nil
				}
			}
			return nil, auth.ErrUserNotFound
		},
		deleteFn: func(_ context.Context, _ uuid.UUID, _ *uuid.UUID) error {
			return nil
		},
	}
}

type mockProjectStore struct {
	getByIDFn            func(ctx context.Context, id uuid.UUID) (*project.Project, error)
	listTransferTargetFn func(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error)
}

func (m *mockProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockProjectStore) ListTransferCandidates(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error) {
	return m.listTransferTargetFn(ctx, excludingOwnerID)
}

func (f fixture) projectStore() *mockProjectStore {
	return &mockProjectStore{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*project.Project, error) {
			for i := range f.projects {
				if f.projects[i].ID == id {
					p := f.projects[i]
					return &p, nil
				}
			}
			return nil, project.ErrProjectNotFound
		},
		listTransferTargetFn: func(_ context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error) {
			var out []project.Project
			for _, p := range f.projects {
				if p.IsPersonalOf(excludingOwnerID) {
					continue
				}
				out = append(out, p)
			}
			return out, nil
		},
	}
}

type sentToast struct {
	recipient uuid.UUID
	toast     notify.Toast
}

// recordingSink captures every toast it is given.
type recordingSink struct {
	toasts []sentToast
}

func (r *recordingSink) ShowToast(_ context.Context, recipient uuid.UUID, t notify.Toast) {
	r.toasts = append(r.toasts, sentToast{recipient: recipient, toast: t})
}

func (r *recordingSink) ShowError(ctx context.Context, recipient uuid.UUID, title string, err error) {
	r.ShowToast(ctx, recipient, notify.ErrorToast(title, err))
}
