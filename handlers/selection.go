package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/oda/models"
	"github.com/akinalp/oda/pkg"
	"github.com/akinalp/oda/services"
)

// SelectionHandler, kanal seçim endpoint'leri.
//
// connection_id request body'sinde gelir — hangi CİHAZIN kanala
// katıldığını belirtir (kullanıcının birden fazla cihazı olabilir).
// Kullanıcı kimliği ise token'dan gelir; service katmanı ikisinin
// eşleştiğini doğrular.
type SelectionHandler struct {
	selection services.SelectionService
}

func NewSelectionHandler(selection services.SelectionService) *SelectionHandler {
	return &SelectionHandler{selection: selection}
}

// Select godoc
// POST /api/channels/{id}/select
//
// Başarıda SFU oda credential'larını döner — client bunlarla media
// bağlantısını doğrudan SFU'ya kurar.
func (h *SelectionHandler) Select(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.SelectChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConnectionID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "connection_id is required")
		return
	}

	creds, err := h.selection.Select(r.Context(), r.PathValue("id"), user.ID, req.ConnectionID, req.Media)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, creds)
}

// Unselect godoc
// POST /api/channels/{id}/unselect
func (h *SelectionHandler) Unselect(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.UnselectChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConnectionID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "connection_id is required")
		return
	}

	if err := h.selection.Unselect(r.Context(), r.PathValue("id"), user.ID, req.ConnectionID); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// UpdateMediaState godoc
// PATCH /api/connections/media
//
// Kanal id gerekmez — bağlantının seçili kanalı store'dan okunur.
func (h *SelectionHandler) UpdateMediaState(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.UpdateMediaStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConnectionID == "" {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "connection_id is required")
		return
	}

	if err := h.selection.UpdateMediaState(r.Context(), user.ID, req.ConnectionID, req.Media); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, req.Media)
}
