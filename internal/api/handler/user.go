package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/api/validation"
	"github.com/daap14/useradmin/internal/auth"
	"github.com/daap14/useradmin/internal/inflight"
	"github.com/daap14/useradmin/internal/project"
	"github.com/daap14/useradmin/internal/rbac"
	"github.com/daap14/useradmin/internal/users"
)

// UserService applies deletions and role changes.
type UserService interface {
	DeleteUser(ctx context.Context, actor *auth.Identity, p users.DeletePayload) error
	UpdateGlobalRole(ctx context.Context, actor *auth.Identity, p users.RoleChangePayload) (*auth.User, error)
}

// UserProjector lists users.
type UserProjector interface {
	List(ctx context.Context) ([]auth.User, error)
	FindByEmail(ctx context.Context, email string) (*auth.User, error)
}

// UserCreator creates accounts with a fresh API key.
type UserCreator interface {
	CreateUser(ctx context.Context, nu auth.NewUser) (*auth.User, string, error)
}

// PersonalProjectCreator creates a user's personal project.
type PersonalProjectCreator interface {
	CreatePersonal(ctx context.Context, owner project.Owner) (*project.Project, error)
}

type createUserRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type deleteUserRequest struct {
	TransferID *string `json:"transferId"`
}

type roleChangeRequest struct {
	NewRoleName string `json:"newRoleName"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	RoleLabel string `json:"roleLabel"`
	IsOwner   bool   `json:"isOwner"`
	CreatedAt string `json:"createdAt"`
}

type userWithKeyResponse struct {
	userResponse
	ApiKey string `json:"apiKey"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		RoleLabel: rbac.Label(u.Role),
		IsOwner:   u.IsOwner(),
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// UserHandler handles the user administration endpoints.
type UserHandler struct {
	service   UserService
	projector UserProjector
	creator   UserCreator
	projects  PersonalProjectCreator
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service UserService, projector UserProjector, creator UserCreator, projects PersonalProjectCreator) *UserHandler {
	return &UserHandler{
		service:   service,
		projector: projector,
		creator:   creator,
		projects:  projects,
	}
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	list, err := h.projector.List(r.Context())
	if err != nil {
		middleware.Logger(r.Context()).Error("failed to list users", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list users", requestID)
		return
	}

	items := make([]userResponse, 0, len(list))
	for i := range list {
		items = append(items, toUserResponse(&list[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}

// GetByEmail handles GET /users/by-email/{email}.
func (h *UserHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	u, err := h.projector.FindByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
			return
		}
		middleware.Logger(r.Context()).Error("failed to find user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get user", requestID)
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

// Create handles POST /users.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateUserRequest(validation.CreateUserRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	role := rbac.Role(req.Role)
	if role == "" {
		role = rbac.RoleMember
	}

	u, rawKey, err := h.creator.CreateUser(r.Context(), auth.NewUser{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", "A user with this email already exists", requestID)
			return
		}
		middleware.Logger(r.Context()).Error("failed to create user", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create user", requestID)
		return
	}

	// The reconciler creates the personal project later if this fails.
	if _, err := h.projects.CreatePersonal(r.Context(), project.Owner{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}); err != nil && !errors.Is(err, project.ErrPersonalProjectExists) {
		middleware.Logger(r.Context()).Warn("failed to create personal project", "userId", u.ID, "error", err)
	}

	response.Success(w, http.StatusCreated, userWithKeyResponse{
		userResponse: toUserResponse(u),
		ApiKey:       rawKey,
	}, requestID)
}

// Delete handles DELETE /users/{id}. An optional body {"transferId": "..."}
// moves the user's data to another project instead of deleting it.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req deleteUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateDeleteUserRequest(validation.DeleteUserRequest{TransferID: req.TransferID})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	payload := users.DeletePayload{ID: id}
	if req.TransferID != nil {
		transferID, _ := uuid.Parse(*req.TransferID) // already validated
		payload.TransferID = &transferID
	}

	if err := h.service.DeleteUser(r.Context(), middleware.GetIdentity(r.Context()), payload); err != nil {
		writeUserError(w, r, err, "Failed to delete user")
		return
	}

	response.NoContent(w)
}

// UpdateRole handles PATCH /users/{id}/role.
func (h *UserHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req roleChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateRoleChangeRequest(validation.RoleChangeRequest{NewRoleName: req.NewRoleName})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	u, err := h.service.UpdateGlobalRole(r.Context(), middleware.GetIdentity(r.Context()), users.RoleChangePayload{
		ID:          id,
		NewRoleName: rbac.Role(req.NewRoleName),
	})
	if err != nil {
		writeUserError(w, r, err, "Failed to update user role")
		return
	}

	response.Success(w, http.StatusOK, toUserResponse(u), requestID)
}

func writeUserError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	requestID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		response.Err(w, http.StatusNotFound, "NOT_FOUND", "User not found", requestID)
	case errors.Is(err, users.ErrTransferProjectNotFound):
		response.Err(w, http.StatusNotFound, "TRANSFER_PROJECT_NOT_FOUND", "Transfer project not found", requestID)
	case errors.Is(err, users.ErrTransferToOwnProject):
		response.Err(w, http.StatusUnprocessableEntity, "INVALID_TRANSFER", "Cannot transfer data to the user's own personal project", requestID)
	case errors.Is(err, users.ErrCannotDeleteSelf):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "You cannot delete yourself", requestID)
	case errors.Is(err, users.ErrCannotDeleteOwner):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "The instance owner cannot be deleted", requestID)
	case errors.Is(err, users.ErrCannotChangeOwnRole):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "You cannot change your own role", requestID)
	case errors.Is(err, users.ErrCannotChangeOwnerRole):
		response.Err(w, http.StatusForbidden, "FORBIDDEN", "The instance owner's role cannot be changed", requestID)
	case errors.Is(err, users.ErrFeatureDisabled):
		response.Err(w, http.StatusForbidden, "FEATURE_DISABLED", "Assigning the admin role requires the advanced permissions feature", requestID)
	case errors.Is(err, users.ErrInvalidRole):
		response.Err(w, http.StatusUnprocessableEntity, "INVALID_ROLE", "Role cannot be assigned", requestID)
	case errors.Is(err, inflight.ErrInFlight):
		response.Err(w, http.StatusConflict, "IN_PROGRESS", "Another change for this user is in progress", requestID)
	default:
		middleware.Logger(r.Context()).Error(fallback, "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback, requestID)
	}
}
