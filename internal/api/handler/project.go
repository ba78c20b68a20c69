package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
	"github.com/daap14/useradmin/internal/project"
)

// TransferCandidateProjector lists the projects that may receive a deleted
// user's data.
type TransferCandidateProjector interface {
	CandidateTransferProjects(ctx context.Context, excludingOwnerID uuid.UUID) ([]project.Project, error)
}

type projectResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	OwnerID *string `json:"ownerId,omitempty"`
}

func toProjectResponse(p *project.Project) projectResponse {
	resp := projectResponse{
		ID:   p.ID.String(),
		Name: p.Name,
		Type: string(p.Type),
	}
	if p.OwnerID != nil {
		owner := p.OwnerID.String()
		resp.OwnerID = &owner
	}
	return resp
}

// ProjectHandler handles project endpoints.
type ProjectHandler struct {
	projector TransferCandidateProjector
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projector TransferCandidateProjector) *ProjectHandler {
	return &ProjectHandler{projector: projector}
}

// TransferCandidates handles GET /projects/transfer-candidates?excludingOwnerId=.
func (h *ProjectHandler) TransferCandidates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	raw := r.URL.Query().Get("excludingOwnerId")
	if raw == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_PARAMETER", "excludingOwnerId is required", requestID)
		return
	}
	ownerID, err := uuid.Parse(raw)
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_PARAMETER", "excludingOwnerId must be a valid UUID", requestID)
		return
	}

	list, err := h.projector.CandidateTransferProjects(r.Context(), ownerID)
	if err != nil {
		middleware.Logger(r.Context()).Error("failed to list transfer candidates", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list projects", requestID)
		return
	}

	items := make([]projectResponse, 0, len(list))
	for i := range list {
		items = append(items, toProjectResponse(&list[i]))
	}

	response.SuccessList(w, http.StatusOK, items, len(items), requestID)
}
