package api

import (
	"net/http"

	"github.com/starford/sprig/internal/models"
)

const entityTag = "tag"

// ListTags handles GET /api/tags.
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	list, err := h.core.Tags.List(r.Context())
	if err != nil {
		writeError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": list})
}

// CreateTag handles POST /api/tags.
//
//	@Summary		Create a tag
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NameRequest	true	"Tag name"
//	@Success		201		{object}	models.Tag
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.core.Tags.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, "create tag", err)
		return
	}
	h.core.Emit(entityTag, "created", tag.ID)
	writeJSON(w, http.StatusCreated, tag)
}

// GetTag handles GET /api/tags/{id}.
func (h *Handler) GetTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tag, err := h.core.Tags.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get tag", err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// RenameTag handles PUT /api/tags/{id}.
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req NameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tag, err := h.core.Tags.Rename(r.Context(), id, req.Name)
	if err != nil {
		writeError(w, "rename tag", err)
		return
	}
	h.core.Emit(entityTag, "updated", id)
	writeJSON(w, http.StatusOK, tag)
}

// DeleteTag handles DELETE /api/tags/{id}. Descendant tags are deleted too.
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	removed, err := h.core.Tags.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete tag", err)
		return
	}
	for _, tid := range removed {
		h.core.Emit(entityTag, "deleted", tid)
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: removed})
}

// TaggedNotes handles GET /api/tags/{id}/notes?descendants=true.
//
//	@Summary		List notes carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			id			path	int		true	"Tag id"
//	@Param			descendants	query	bool	false	"Include notes tagged with any descendant tag"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{id}/notes [get]
func (h *Handler) TaggedNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ids, err := h.core.Tags.TaggedNotes(r.Context(), id, queryBool(r, "descendants"))
	if err != nil {
		writeError(w, "tagged notes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"note_ids": ids})
}

// TagTree handles GET /api/tags/tree.
func (h *Handler) TagTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.core.Tags.Tree(r.Context())
	if err != nil {
		writeError(w, "tag tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

// TagChildren handles GET /api/tags/{id}/children.
func (h *Handler) TagChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tags.Children(r.Context(), id)
	if err != nil {
		writeError(w, "tag children", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": list})
}

// TagAncestors handles GET /api/tags/{id}/ancestors.
func (h *Handler) TagAncestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tags.Ancestors(r.Context(), id)
	if err != nil {
		writeError(w, "tag ancestors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": list})
}

// AttachTag handles POST /api/tags/hierarchy.
func (h *Handler) AttachTag(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edgeID, err := h.core.Tags.AttachChild(r.Context(), req.ParentID, req.ChildID)
	if err != nil {
		writeError(w, "attach tag", err)
		return
	}
	h.core.Emit(entityTag, "attached", req.ChildID)
	writeJSON(w, http.StatusCreated, EdgeResponse{ID: edgeID})
}

// DetachTag handles DELETE /api/tags/hierarchy/{childID}.
func (h *Handler) DetachTag(w http.ResponseWriter, r *http.Request) {
	child, ok := pathID(w, r, "childID")
	if !ok {
		return
	}
	if err := h.core.Tags.DetachChild(r.Context(), child); err != nil {
		writeError(w, "detach tag", err)
		return
	}
	h.core.Emit(entityTag, "detached", child)
	w.WriteHeader(http.StatusNoContent)
}

// NoteTags handles GET /api/notes/{id}/tags.
func (h *Handler) NoteTags(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tags.TagsOf(r.Context(), id)
	if err != nil {
		writeError(w, "note tags", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": list})
}

// TagNote handles POST /api/notes/{id}/tags. Attaching twice is not an error.
func (h *Handler) TagNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req TagAttachRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.core.Tags.Attach(r.Context(), id, req.TagID); err != nil {
		writeError(w, "tag note", err)
		return
	}
	h.core.Emit(models.KindNote, "tagged", id)
	w.WriteHeader(http.StatusNoContent)
}

// UntagNote handles DELETE /api/notes/{id}/tags/{tagID}.
func (h *Handler) UntagNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagID")
	if !ok {
		return
	}
	if err := h.core.Tags.Detach(r.Context(), id, tagID); err != nil {
		writeError(w, "untag note", err)
		return
	}
	h.core.Emit(models.KindNote, "untagged", id)
	w.WriteHeader(http.StatusNoContent)
}

// TagEdges handles GET /api/tags/hierarchy.
func (h *Handler) TagEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.core.Tags.Edges(r.Context())
	if err != nil {
		writeError(w, "tag edges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}
