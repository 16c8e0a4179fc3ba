package handlers

import (
	"net/http"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/repository"
)

// WorkspaceHandler, workspace ve kanal listeleme endpoint'leri.
// Saf okuma — repository'ye doğrudan gider, araya service katmanı
// koymayı gerektirecek bir iş mantığı yok.
type WorkspaceHandler struct {
	workspaces repository.WorkspaceRepository
	channels   repository.ChannelRepository
}

func NewWorkspaceHandler(workspaces repository.WorkspaceRepository, channels repository.ChannelRepository) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces, channels: channels}
}

// ListMine godoc
// GET /api/workspaces
func (h *WorkspaceHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	workspaces, err := h.workspaces.GetWorkspacesForUser(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, workspaces)
}

// ListChannels godoc
// GET /api/workspaces/{id}/channels
func (h *WorkspaceHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	workspaceID := r.PathValue("id")
	member, err := h.workspaces.IsMember(r.Context(), workspaceID, user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}
	if !member {
		pkg.ErrorWithMessage(w, http.StatusForbidden, "not a workspace member")
		return
	}

	channels, err := h.channels.ListByWorkspace(r.Context(), workspaceID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, channels)
}
