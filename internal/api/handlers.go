package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	core *core.Core
}

// NewHandler creates a new Handler.
func NewHandler(c *core.Core) *Handler {
	return &Handler{core: c}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes
//	@Tags			notes
//	@Produce		json
//	@Param			content		query		bool	false	"Include note content"
//	@Param			parent_id	query		int		false	"Only direct children of this note"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	parent, ok := queryID(w, r, "parent_id")
	if !ok {
		return
	}
	items, err := h.core.Notes.List(r.Context(), models.ListOptions{
		WithContent: queryBool(r, "content"),
		ParentID:    parent,
	})
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note, optionally under a parent
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.core.Notes.Create(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	h.core.Emit(models.KindNote, "created", note.ID)
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note with its path, tags, task, attributes, types and backlinks
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	detail, err := h.core.Detail(r.Context(), id)
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(detail.Hash))
	writeJSON(w, http.StatusOK, detail)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Update a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		int					true	"Note id"
//	@Param			If-Match	header		string				false	"Note hash for optimistic concurrency"
//	@Param			body		body		UpdateNoteRequest	true	"Updated content"
//	@Success		200			{object}	models.Note
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	note, err := h.core.Notes.UpdateIfMatch(r.Context(), id, req.Content, ifMatch)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	h.core.Emit(models.KindNote, "updated", id)
	writeJSON(w, http.StatusOK, note)
}

// UpdateNotes handles PUT /api/notes/batch. Either every edit is applied or none.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	var req []models.NoteEdit
	if !decodeJSON(w, r, &req) {
		return
	}
	updated, err := h.core.Notes.UpdateMany(r.Context(), req)
	if err != nil {
		writeError(w, "update notes", err)
		return
	}
	for _, n := range updated {
		h.core.Emit(models.KindNote, "updated", n.ID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": updated})
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note and its descendants
//	@Tags			notes
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	DeleteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	removed, err := h.core.DeleteNote(r.Context(), id)
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: removed})
}

// NoteTree handles GET /api/notes/tree.
func (h *Handler) NoteTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.core.NoteTree(r.Context(), queryBool(r, "content"))
	if err != nil {
		writeError(w, "note tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

// UpdateNoteTree handles PUT /api/notes/tree. The whole forest is applied in
// one transaction; any failure leaves every note and edge unchanged.
//
//	@Summary		Create, update and reparent notes from a nested tree
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]models.NoteTreeNode	true	"Forest"
//	@Success		200		{object}	NoteListResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Cycle"
//	@Security		BearerAuth
//	@Router			/notes/tree [put]
func (h *Handler) UpdateNoteTree(w http.ResponseWriter, r *http.Request) {
	var req []models.NoteTreeNode
	if !decodeJSON(w, r, &req) {
		return
	}
	touched, err := h.core.Notes.UpdateTree(r.Context(), req)
	if err != nil {
		writeError(w, "update note tree", err)
		return
	}
	for _, n := range touched {
		h.core.Emit(models.KindNote, "updated", n.ID)
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: touched, Total: len(touched)})
}

// NotePaths handles GET /api/notes/paths.
func (h *Handler) NotePaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.core.Notes.Paths(r.Context())
	if err != nil {
		writeError(w, "note paths", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paths": paths})
}

// NoteEdges handles GET /api/notes/hierarchy.
func (h *Handler) NoteEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.core.Notes.Edges(r.Context())
	if err != nil {
		writeError(w, "note edges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}

// NoteHashes handles GET /api/notes/hashes.
func (h *Handler) NoteHashes(w http.ResponseWriter, r *http.Request) {
	hashes, err := h.core.Notes.Hashes(r.Context())
	if err != nil {
		writeError(w, "note hashes", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"hashes": hashes})
}

// NoteHash handles GET /api/notes/{id}/hash.
func (h *Handler) NoteHash(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	hash, err := h.core.Notes.Hash(r.Context(), id)
	if err != nil {
		writeError(w, "note hash", err)
		return
	}
	writeJSON(w, http.StatusOK, HashResponse{ID: id, Hash: hash})
}

// LinkEdges handles GET /api/notes/links.
//
//	@Summary		List every link between notes
//	@Tags			notes
//	@Produce		json
//	@Success		200	{array}	models.Link
//	@Security		BearerAuth
//	@Router			/notes/links [get]
func (h *Handler) LinkEdges(w http.ResponseWriter, r *http.Request) {
	links, err := h.core.Notes.LinkEdges(r.Context())
	if err != nil {
		writeError(w, "link edges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": links})
}

// Backlinks handles GET /api/notes/{id}/backlinks.
func (h *Handler) Backlinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Notes.Backlinks(r.Context(), id)
	if err != nil {
		writeError(w, "backlinks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

// ForwardLinks handles GET /api/notes/{id}/links.
func (h *Handler) ForwardLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Notes.ForwardLinks(r.Context(), id)
	if err != nil {
		writeError(w, "forward links", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

// NoteHistory handles GET /api/notes/{id}/history.
//
//	@Summary		List previous versions of a note, most recent first
//	@Tags			notes
//	@Produce		json
//	@Param			id	path	int	true	"Note id"
//	@Success		200	{array}	models.Modification
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/history [get]
func (h *Handler) NoteHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	mods, err := h.core.History.History(r.Context(), id)
	if err != nil {
		writeError(w, "note history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": mods})
}

// NotePath handles GET /api/notes/{id}/path?from={ancestorID}.
func (h *Handler) NotePath(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	from, ok := queryID(w, r, "from")
	if !ok {
		return
	}
	p, err := h.core.Notes.Path(r.Context(), id, from)
	if err != nil {
		writeError(w, "note path", err)
		return
	}
	writeJSON(w, http.StatusOK, PathResponse{Path: p})
}

// NoteChildren handles GET /api/notes/{id}/children.
func (h *Handler) NoteChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Notes.Children(r.Context(), id)
	if err != nil {
		writeError(w, "note children", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

// NoteAncestors handles GET /api/notes/{id}/ancestors.
func (h *Handler) NoteAncestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Notes.Ancestors(r.Context(), id)
	if err != nil {
		writeError(w, "note ancestors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": list})
}

// AttachNote handles POST /api/notes/hierarchy.
//
//	@Summary		Place a note under a parent
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AttachRequest	true	"Edge"
//	@Success		201		{object}	EdgeResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Cycle or child already has a parent"
//	@Security		BearerAuth
//	@Router			/notes/hierarchy [post]
func (h *Handler) AttachNote(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edgeID, err := h.core.Notes.Attach(r.Context(), req.ParentID, req.ChildID, req.EdgeKind)
	if err != nil {
		writeError(w, "attach note", err)
		return
	}
	h.core.Emit(models.KindNote, "attached", req.ChildID)
	writeJSON(w, http.StatusCreated, EdgeResponse{ID: edgeID})
}

// DetachNote handles DELETE /api/notes/hierarchy/{childID}.
func (h *Handler) DetachNote(w http.ResponseWriter, r *http.Request) {
	child, ok := pathID(w, r, "childID")
	if !ok {
		return
	}
	if err := h.core.Notes.Detach(r.Context(), child); err != nil {
		writeError(w, "detach note", err)
		return
	}
	h.core.Emit(models.KindNote, "detached", child)
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes and assets
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.core.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
