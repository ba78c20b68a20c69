package handler

import (
	"net/http"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/config"
	"github.com/daap14/useradmin/internal/rbac"
	"github.com/daap14/useradmin/internal/users"
)

// SettingsHandler serves the read-only settings clients need to drive the
// user administration flows.
type SettingsHandler struct {
	features config.Features
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(features config.Features) *SettingsHandler {
	return &SettingsHandler{features: features}
}

type roleResponse struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type settingsResponse struct {
	Features           config.Features `json:"features"`
	ConfirmationPhrase string          `json:"confirmationPhrase"`
	AssignableRoles    []roleResponse  `json:"assignableRoles"`
}

// ServeHTTP handles GET /settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	roles := make([]roleResponse, 0, len(rbac.AssignableRoles()))
	for _, role := range rbac.AssignableRoles() {
		if role == rbac.RoleAdmin && !h.features.AdvancedPermissions {
			continue
		}
		roles = append(roles, roleResponse{Name: string(role), Label: rbac.Label(role)})
	}

	response.Success(w, http.StatusOK, settingsResponse{
		Features:           h.features,
		ConfirmationPhrase: users.ConfirmationPhrase,
		AssignableRoles:    roles,
	}, requestID)
}
