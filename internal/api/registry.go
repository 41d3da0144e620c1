package api

import (
	"net/http"

	"github.com/starford/sprig/internal/models"
)

// ListAttributes handles GET /api/attributes.
func (h *Handler) ListAttributes(w http.ResponseWriter, r *http.Request) {
	list, err := h.core.Registry.ListAttributes(r.Context())
	if err != nil {
		writeError(w, "list attributes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attributes": list})
}

// CreateAttribute handles POST /api/attributes.
func (h *Handler) CreateAttribute(w http.ResponseWriter, r *http.Request) {
	var req DefinitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.core.Registry.CreateAttribute(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, "create attribute", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// NoteAttributes handles GET /api/notes/{id}/attributes.
func (h *Handler) NoteAttributes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Registry.Values(r.Context(), id)
	if err != nil {
		writeError(w, "note attributes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attributes": list})
}

// SetAttribute handles POST /api/notes/{id}/attributes.
func (h *Handler) SetAttribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ValueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.core.Registry.SetValue(r.Context(), id, req.AttributeID, req.Value)
	if err != nil {
		writeError(w, "set attribute", err)
		return
	}
	h.core.Emit(models.KindNote, "updated", id)
	writeJSON(w, http.StatusCreated, v)
}

// DeleteAttributeValue handles DELETE /api/attribute-values/{id}.
func (h *Handler) DeleteAttributeValue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.core.Registry.DeleteValue(r.Context(), id); err != nil {
		writeError(w, "delete attribute value", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTypes handles GET /api/types.
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	list, err := h.core.Registry.ListTypes(r.Context())
	if err != nil {
		writeError(w, "list types", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": list})
}

// CreateType handles POST /api/types.
func (h *Handler) CreateType(w http.ResponseWriter, r *http.Request) {
	var req DefinitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.core.Registry.CreateType(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, "create type", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// NotesOfType handles GET /api/types/{id}/notes.
func (h *Handler) NotesOfType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ids, err := h.core.Registry.NotesOfType(r.Context(), id)
	if err != nil {
		writeError(w, "notes of type", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note_ids": ids})
}

// NoteTypes handles GET /api/notes/{id}/types.
func (h *Handler) NoteTypes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Registry.TypesOf(r.Context(), id)
	if err != nil {
		writeError(w, "note types", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"types": list})
}

// AssignType handles POST /api/notes/{id}/types.
func (h *Handler) AssignType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TypeAssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.core.Registry.AssignType(r.Context(), id, req.TypeID); err != nil {
		writeError(w, "assign type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignType handles DELETE /api/notes/{id}/types/{typeID}.
func (h *Handler) UnassignType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	typeID, ok := pathID(w, r, "typeID")
	if !ok {
		return
	}
	if err := h.core.Registry.UnassignType(r.Context(), id, typeID); err != nil {
		writeError(w, "unassign type", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
