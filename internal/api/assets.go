package api

import (
	"net/http"

	"github.com/starford/sprig/internal/models"
)

// ListAssets handles GET /api/assets?note_id=.
func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	noteID, ok := queryID(w, r, "note_id")
	if !ok {
		return
	}
	list, err := h.core.Assets.List(r.Context(), noteID)
	if err != nil {
		writeError(w, "list assets", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": list})
}

// CreateAsset handles POST /api/assets.
//
//	@Summary		Register an externally stored file
//	@Tags			assets
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AssetRequest	true	"Asset"
//	@Success		201		{object}	models.Asset
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Location already registered"
//	@Security		BearerAuth
//	@Router			/assets [post]
func (h *Handler) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.core.Assets.Create(r.Context(), req.Location, req.Description, req.NoteID)
	if err != nil {
		writeError(w, "create asset", err)
		return
	}
	h.core.Emit(models.KindAsset, "created", a.ID)
	writeJSON(w, http.StatusCreated, a)
}

// GetAsset handles GET /api/assets/{id}.
func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.core.Assets.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get asset", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// UpdateAsset handles PUT /api/assets/{id}.
func (h *Handler) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req DescriptionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.core.Assets.UpdateDescription(r.Context(), id, req.Description)
	if err != nil {
		writeError(w, "update asset", err)
		return
	}
	h.core.Emit(models.KindAsset, "updated", id)
	writeJSON(w, http.StatusOK, a)
}

// DeleteAsset handles DELETE /api/assets/{id}.
func (h *Handler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.core.Assets.Delete(r.Context(), id); err != nil {
		writeError(w, "delete asset", err)
		return
	}
	h.core.Emit(models.KindAsset, "deleted", id)
	w.WriteHeader(http.StatusNoContent)
}

// DetachAsset handles DELETE /api/assets/{id}/note.
func (h *Handler) DetachAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	a, err := h.core.Assets.DetachNote(r.Context(), id)
	if err != nil {
		writeError(w, "detach asset", err)
		return
	}
	h.core.Emit(models.KindAsset, "updated", id)
	writeJSON(w, http.StatusOK, a)
}
