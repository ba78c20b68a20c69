package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/useradmin/internal/api/handler"
	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/inflight"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/rbac"
	"github.com/daap14/useradmin/internal/users"
)

// --- Mocks ---

type mockUserService struct {
	deleteFn     func(ctx context.Context, actor *auth.Identity, p users.DeletePayload) error
	updateRoleFn func(ctx context.Context, actor *auth.Identity, p users.RoleChangePayload) (*auth.User, error)
}

func (m *mockUserService) DeleteUser(ctx context.Context, actor *auth.Identity, p users.DeletePayload) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, actor, p)
	}
	return nil
}

func (m *mockUserService) UpdateGlobalRole(ctx context.Context, actor *auth.Identity, p users.RoleChangePayload) (*auth.User, error) {
	if m.updateRoleFn != nil {
		return m.updateRoleFn(ctx, actor, p)
	}
	return &auth.User{ID: p.ID, Role: p.NewRoleName}, nil
}

type mockProjector struct {
	listFn        func(ctx context.Context) ([]auth.User, error)
	findByEmailFn func(ctx context.Context, email string) (*auth.User, error)
	candidatesFn  func(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error)
}

func (m *mockProjector) List(ctx context.Context) ([]auth.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return []auth.User{}, nil
}

func (m *mockProjector) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, auth.ErrUserNotFound
}

func (m *mockProjector) CandidateTransferProjects(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error) {
	if m.candidatesFn != nil {
		return m.candidatesFn(ctx, excludingOwnerID)
	}
	return []project.Project{}, nil
}

type mockCreator struct {
	createFn func(ctx context.Context, nu auth.NewUser) (*auth.User, string, error)
}

func (m *mockCreator) CreateUser(ctx context.Context, nu auth.NewUser) (*auth.User, string, error) {
	if m.createFn != nil {
		return m.createFn(ctx, nu)
	}
	return &auth.User{ID: uuid.New(), Email: nu.Email, FirstName: nu.FirstName, LastName: nu.LastName, Role: nu.Role, CreatedAt: time.Now().UTC()}, "uam_rawkey", nil
}

type mockPersonalProjects struct {
	created []project.Owner
	err     error
}

func (m *mockPersonalProjects) CreatePersonal(_ context.Context, owner project.Owner) (*project.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.created = append(m.created, owner)
	id := owner.ID
	return &project.Project{ID: uuid.New(), Type: project.TypePersonal, OwnerID: &id}, nil
}

func newUserHandler(svc *mockUserService, proj *mockProjector) (*handler.UserHandler, *mockPersonalProjects) {
	projects := &mockPersonalProjects{}
	return handler.NewUserHandler(svc, proj, &mockCreator{}, projects), projects
}

var adminIdentity = &auth.Identity{UserID: uuid.New(), Email: "admin@example.com", Role: rbac.RoleAdmin}

// --- List / GetByEmail ---

func TestUserHandler_List(t *testing.T) {
	ada := auth.User{ID: uuid.New(), Email: "ada@example.com", FirstName: "Ada", Role: rbac.RoleMember}
	olga := auth.User{ID: uuid.New(), Email: "olga@example.com", Role: rbac.RoleOwner}
	h, _ := newUserHandler(&mockUserService{}, &mockProjector{
		listFn: func(context.Context) ([]auth.User, error) { return []auth.User{ada, olga}, nil },
	})

	req, w := makeChiRequest(http.MethodGet, "/users", nil, "/users", nil)
	h.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	env := parseEnvelope(t, w)
	data := env["data"].([]interface{})
	require.Len(t, data, 2)
	first := data[0].(map[string]interface{})
	assert.Equal(t, ada.ID.String(), first["id"])
	assert.Equal(t, "Member", first["roleLabel"])
	assert.Equal(t, false, first["isOwner"])
	assert.Equal(t, true, data[1].(map[string]interface{})["isOwner"])
	assert.Equal(t, float64(2), env["meta"].(map[string]interface{})["total"])
}

func TestUserHandler_List_Error(t *testing.T) {
	h, _ := newUserHandler(&mockUserService{}, &mockProjector{
		listFn: func(context.Context) ([]auth.User, error) { return nil, errors.New("db down") },
	})

	req, w := makeChiRequest(http.MethodGet, "/users", nil, "/users", nil)
	h.List(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestUserHandler_GetByEmail(t *testing.T) {
	u := &auth.User{ID: uuid.New(), Email: "ada@example.com", Role: rbac.RoleMember}
	h, _ := newUserHandler(&mockUserService{}, &mockProjector{
		findByEmailFn: func(_ context.Context, email string) (*auth.User, error) {
			if email == u.Email {
				return u, nil
			}
			return nil, auth.ErrUserNotFound
		},
	})

	req, w := makeChiRequest(http.MethodGet, "/users/by-email/ada@example.com", nil, "/users/by-email/{email}", map[string]string{"email": "ada@example.com"})
	h.GetByEmail(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, u.ID.String(), parseEnvelope(t, w)["data"].(map[string]interface{})["id"])

	req, w = makeChiRequest(http.MethodGet, "/users/by-email/nobody@example.com", nil, "/users/by-email/{email}", map[string]string{"email": "nobody@example.com"})
	h.GetByEmail(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

// --- Create ---

func TestUserHandler_Create(t *testing.T) {
	h, projects := newUserHandler(&mockUserService{}, &mockProjector{})

	body := []byte(`{"email":"ada@example.com","firstName":"Ada","lastName":"Lovelace"}`)
	req, w := makeChiRequest(http.MethodPost, "/users", body, "/users", nil)
	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "ada@example.com", data["email"])
	assert.Equal(t, "global:member", data["role"])
	assert.Equal(t, "uam_rawkey", data["apiKey"])

	require.Len(t, projects.created, 1)
	assert.Equal(t, "ada@example.com", projects.created[0].Email)
}

func TestUserHandler_Create_PersonalProjectFailureIsNotFatal(t *testing.T) {
	projects := &mockPersonalProjects{err: errors.New("db down")}
	h := handler.NewUserHandler(&mockUserService{}, &mockProjector{}, &mockCreator{}, projects)

	req, w := makeChiRequest(http.MethodPost, "/users", []byte(`{"email":"ada@example.com"}`), "/users", nil)
	h.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUserHandler_Create_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		createFn func(ctx context.Context, nu auth.NewUser) (*auth.User, string, error)
		wantCode int
		wantErr  string
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"invalid email", `{"email":"nope"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"owner role", `{"email":"ada@example.com","role":"global:owner"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{
			"duplicate", `{"email":"ada@example.com"}`,
			func(context.Context, auth.NewUser) (*auth.User, string, error) { return nil, "", auth.ErrDuplicateEmail },
			http.StatusConflict, "DUPLICATE_EMAIL",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewUserHandler(&mockUserService{}, &mockProjector{}, &mockCreator{createFn: tt.createFn}, &mockPersonalProjects{})
			req, w := makeChiRequest(http.MethodPost, "/users", []byte(tt.body), "/users", nil)
			h.Create(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}

// --- Delete ---

func TestUserHandler_Delete_WithTransfer(t *testing.T) {
	target, dest := uuid.New(), uuid.New()
	var got users.DeletePayload
	var gotActor *auth.Identity
	h, _ := newUserHandler(&mockUserService{
		deleteFn: func(_ context.Context, actor *auth.Identity, p users.DeletePayload) error {
			got, gotActor = p, actor
			return nil
		},
	}, &mockProjector{})

	body := []byte(`{"transferId":"` + dest.String() + `"}`)
	req, w := makeChiRequest(http.MethodDelete, "/users/"+target.String(), body, "/users/{id}", map[string]string{"id": target.String()})
	h.Delete(w, withIdentity(req, adminIdentity))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, target, got.ID)
	require.NotNil(t, got.TransferID)
	assert.Equal(t, dest, *got.TransferID)
	assert.Equal(t, adminIdentity, gotActor)
}

func TestUserHandler_Delete_WithoutBody(t *testing.T) {
	target := uuid.New()
	var got users.DeletePayload
	h, _ := newUserHandler(&mockUserService{
		deleteFn: func(_ context.Context, _ *auth.Identity, p users.DeletePayload) error {
			got = p
			return nil
		},
	}, &mockProjector{})

	req, w := makeChiRequest(http.MethodDelete, "/users/"+target.String(), nil, "/users/{id}", map[string]string{"id": target.String()})
	h.Delete(w, withIdentity(req, adminIdentity))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, users.DeletePayload{ID: target}, got)
}

func TestUserHandler_Delete_Errors(t *testing.T) {
	target := uuid.New()
	tests := []struct {
		name     string
		id       string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"invalid id", "not-a-uuid", "", nil, http.StatusBadRequest, "INVALID_ID"},
		{"invalid json", target.String(), `{`, nil, http.StatusBadRequest, "INVALID_JSON"},
		{"invalid transfer id", target.String(), `{"transferId":"nope"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not found", target.String(), "", auth.ErrUserNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"transfer project missing", target.String(), "", users.ErrTransferProjectNotFound, http.StatusNotFound, "TRANSFER_PROJECT_NOT_FOUND"},
		{"own personal project", target.String(), "", users.ErrTransferToOwnProject, http.StatusUnprocessableEntity, "INVALID_TRANSFER"},
		{"self", target.String(), "", users.ErrCannotDeleteSelf, http.StatusForbidden, "FORBIDDEN"},
		{"owner", target.String(), "", users.ErrCannotDeleteOwner, http.StatusForbidden, "FORBIDDEN"},
		{"in flight", target.String(), "", inflight.ErrInFlight, http.StatusConflict, "IN_PROGRESS"},
		{"store failure", target.String(), "", errors.New("deadlock"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newUserHandler(&mockUserService{
				deleteFn: func(context.Context, *auth.Identity, users.DeletePayload) error { return tt.err },
			}, &mockProjector{})

			var body []byte
			if tt.body != "" {
				body = []byte(tt.body)
			}
			req, w := makeChiRequest(http.MethodDelete, "/users/"+tt.id, body, "/users/{id}", map[string]string{"id": tt.id})
			h.Delete(w, withIdentity(req, adminIdentity))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}

// --- UpdateRole ---

func TestUserHandler_UpdateRole(t *testing.T) {
	target := uuid.New()
	var got users.RoleChangePayload
	h, _ := newUserHandler(&mockUserService{
		updateRoleFn: func(_ context.Context, _ *auth.Identity, p users.RoleChangePayload) (*auth.User, error) {
			got = p
			return &auth.User{ID: p.ID, Email: "grace@example.com", Role: p.NewRoleName}, nil
		},
	}, &mockProjector{})

	body := []byte(`{"newRoleName":"global:member"}`)
	req, w := makeChiRequest(http.MethodPatch, "/users/"+target.String()+"/role", body, "/users/{id}/role", map[string]string{"id": target.String()})
	h.UpdateRole(w, withIdentity(req, adminIdentity))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, users.RoleChangePayload{ID: target, NewRoleName: rbac.RoleMember}, got)
	data := parseEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "global:member", data["role"])
	assert.Equal(t, "Member", data["roleLabel"])
}

func TestUserHandler_UpdateRole_Errors(t *testing.T) {
	target := uuid.New()
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing role", `{}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown role", `{"newRoleName":"global:guest"}`, nil, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"owner not assignable", `{"newRoleName":"global:owner"}`, users.ErrInvalidRole, http.StatusUnprocessableEntity, "INVALID_ROLE"},
		{"feature disabled", `{"newRoleName":"global:admin"}`, users.ErrFeatureDisabled, http.StatusForbidden, "FEATURE_DISABLED"},
		{"owner's role", `{"newRoleName":"global:member"}`, users.ErrCannotChangeOwnerRole, http.StatusForbidden, "FORBIDDEN"},
		{"own role", `{"newRoleName":"global:member"}`, users.ErrCannotChangeOwnRole, http.StatusForbidden, "FORBIDDEN"},
		{"store failure", `{"newRoleName":"global:member"}`, errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newUserHandler(&mockUserService{
				updateRoleFn: func(context.Context, *auth.Identity, users.RoleChangePayload) (*auth.User, error) { return nil, tt.err },
			}, &mockProjector{})

			req, w := makeChiRequest(http.MethodPatch, "/users/"+target.String()+"/role", []byte(tt.body), "/users/{id}/role", map[string]string{"id": target.String()})
			h.UpdateRole(w, withIdentity(req, adminIdentity))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, w))
		})
	}
}
