package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/services"
)

// PresenceHandler, bağlantı ve presence sorgu endpoint'leri.
//
// Bunların hepsi OKUMA yoludur — lock almaz, bayat kayıtlar repository
// katmanında lazy filtrelenir. Mutation'lar WS gateway'den (connect/
// disconnect/heartbeat) veya selection endpoint'lerinden gelir.
type PresenceHandler struct {
	connections services.ConnectionService
}

func NewPresenceHandler(connections services.ConnectionService) *PresenceHandler {
	return &PresenceHandler{connections: connections}
}

// GetConnection godoc
// GET /api/connections/{id}
func (h *PresenceHandler) GetConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connections.GetConnection(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conn)
}

// GetUserConnections godoc
// GET /api/users/{id}/connections?workspace_id=...
func (h *PresenceHandler) GetUserConnections(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	workspaceID := r.URL.Query().Get("workspace_id")

	conns, err := h.connections.GetUserConnections(r.Context(), userID, workspaceID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conns)
}

// GetWorkspaceConnections godoc
// GET /api/workspaces/{id}/connections
func (h *PresenceHandler) GetWorkspaceConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connections.GetWorkspaceConnections(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conns)
}

// GetChannelConnections godoc
// GET /api/channels/{id}/connections
//
// Client kanal üyeleri panelini bununla çizer — kim kanalda, medya
// durumu ne.
func (h *PresenceHandler) GetChannelConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connections.GetChannelConnections(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, conns)
}

// IsUserInChannel godoc
// GET /api/channels/{id}/members/{userId}
func (h *PresenceHandler) IsUserInChannel(w http.ResponseWriter, r *http.Request) {
	in, err := h.connections.IsUserInChannel(r.Context(), r.PathValue("userId"), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]bool{"in_channel": in})
}

// SetStatus godoc
// PUT /api/users/me/status
//
// Kullanıcının kendi seçtiği durum (idle/offline sticky'dir).
func (h *PresenceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req struct {
		Status models.OnlineStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.connections.SetStatus(r.Context(), user.ID, req.Status); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": string(req.Status)})
}
