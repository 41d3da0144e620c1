package api

import (
	"net/http"

	"github.com/starford/sprig/internal/models"
)

const entityTask = "task"

// NoteTask handles GET /api/notes/{id}/task.
func (h *Handler) NoteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.core.Tasks.GetByNote(r.Context(), id)
	if err != nil {
		writeError(w, "note task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// PromoteNote handles POST /api/notes/{id}/task.
//
//	@Summary		Promote a note to a task
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int					true	"Note id"
//	@Param			body	body		models.TaskInput	true	"Task fields"
//	@Success		201		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Note is already a task"
//	@Security		BearerAuth
//	@Router			/notes/{id}/task [post]
func (h *Handler) PromoteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.TaskInput
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.core.Tasks.Promote(r.Context(), id, req)
	if err != nil {
		writeError(w, "promote note", err)
		return
	}
	h.core.Emit(entityTask, "created", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks handles GET /api/tasks?status=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := h.core.Tasks.List(r.Context(), models.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// GetTask handles GET /api/tasks/{id}.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := h.core.Tasks.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// UpdateTask handles PATCH /api/tasks/{id}.
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.TaskPatch
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.core.Tasks.Update(r.Context(), id, req)
	if err != nil {
		writeError(w, "update task", err)
		return
	}
	h.core.Emit(entityTask, "updated", id)
	writeJSON(w, http.StatusOK, task)
}

// SetTaskStatus handles PUT /api/tasks/{id}/status.
//
//	@Summary		Set a task's status
//	@Description	Any of todo, done, wait, hold, idea, kill, proj, event may follow any other.
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Task id"
//	@Param			body	body		StatusRequest	true	"New status"
//	@Success		200		{object}	models.Task
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks/{id}/status [put]
func (h *Handler) SetTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	task, err := h.core.Tasks.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, "set task status", err)
		return
	}
	h.core.Emit(entityTask, "updated", id)
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}. Subtasks are deleted too; notes stay.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	removed, err := h.core.Tasks.Delete(r.Context(), id)
	if err != nil {
		writeError(w, "delete task", err)
		return
	}
	for _, tid := range removed {
		h.core.Emit(entityTask, "deleted", tid)
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Deleted: removed})
}

// TaskTree handles GET /api/tasks/tree.
func (h *Handler) TaskTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.core.Tasks.Tree(r.Context())
	if err != nil {
		writeError(w, "task tree", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tree": tree})
}

// TaskChildren handles GET /api/tasks/{id}/children.
func (h *Handler) TaskChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tasks.Children(r.Context(), id)
	if err != nil {
		writeError(w, "task children", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// TaskAncestors handles GET /api/tasks/{id}/ancestors.
func (h *Handler) TaskAncestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tasks.Ancestors(r.Context(), id)
	if err != nil {
		writeError(w, "task ancestors", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list})
}

// AttachTask handles POST /api/tasks/hierarchy.
func (h *Handler) AttachTask(w http.ResponseWriter, r *http.Request) {
	var req AttachRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	edgeID, err := h.core.Tasks.AttachChild(r.Context(), req.ParentID, req.ChildID, req.EdgeKind)
	if err != nil {
		writeError(w, "attach task", err)
		return
	}
	h.core.Emit(entityTask, "attached", req.ChildID)
	writeJSON(w, http.StatusCreated, EdgeResponse{ID: edgeID})
}

// DetachTask handles DELETE /api/tasks/hierarchy/{childID}.
func (h *Handler) DetachTask(w http.ResponseWriter, r *http.Request) {
	child, ok := pathID(w, r, "childID")
	if !ok {
		return
	}
	if err := h.core.Tasks.DetachChild(r.Context(), child); err != nil {
		writeError(w, "detach task", err)
		return
	}
	h.core.Emit(entityTask, "detached", child)
	w.WriteHeader(http.StatusNoContent)
}

// ListSchedules handles GET /api/tasks/{id}/schedules.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tasks.Schedules(r.Context(), id)
	if err != nil {
		writeError(w, "list schedules", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": list})
}

// AddSchedule handles POST /api/tasks/{id}/schedules.
func (h *Handler) AddSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ScheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	sc, err := h.core.Tasks.SetSchedule(r.Context(), id, req.Start, req.End)
	if err != nil {
		writeError(w, "add schedule", err)
		return
	}
	h.core.Emit(entityTask, "scheduled", id)
	writeJSON(w, http.StatusCreated, sc)
}

// DeleteSchedule handles DELETE /api/schedules/{id}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.core.Tasks.DeleteSchedule(r.Context(), id); err != nil {
		writeError(w, "delete schedule", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListClocks handles GET /api/tasks/{id}/clocks.
func (h *Handler) ListClocks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, err := h.core.Tasks.Clocks(r.Context(), id)
	if err != nil {
		writeError(w, "list clocks", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clocks": list})
}

// ClockIn handles POST /api/tasks/{id}/clocks.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.core.Tasks.ClockIn(r.Context(), id)
	if err != nil {
		writeError(w, "clock in", err)
		return
	}
	h.core.Emit(entityTask, "clocked_in", id)
	writeJSON(w, http.StatusCreated, c)
}

// ClockOut handles POST /api/clocks/{id}/out.
//
//	@Summary		Close an open clock entry
//	@Tags			tasks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Clock id"
//	@Param			body	body		ClockOutRequest	false	"Clock-out time, defaults to now"
//	@Success		200		{object}	models.Clock
//	@Failure		400		{object}	errResponse	"Clock-out not after clock-in"
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse	"Clock already closed"
//	@Security		BearerAuth
//	@Router			/clocks/{id}/out [post]
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ClockOutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	c, err := h.core.Tasks.ClockOut(r.Context(), id, req.At)
	if err != nil {
		writeError(w, "clock out", err)
		return
	}
	h.core.Emit(entityTask, "clocked_out", c.TaskID)
	writeJSON(w, http.StatusOK, c)
}

// TaskEdges handles GET /api/tasks/hierarchy.
func (h *Handler) TaskEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.core.Tasks.Edges(r.Context())
	if err != nil {
		writeError(w, "task edges", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"edges": edges})
}
