package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/sprig/internal/core"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(c *core.Core, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(c)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Get("/tree", h.NoteTree)
		r.Put("/tree", h.UpdateNoteTree)
		r.Get("/paths", h.NotePaths)
		r.Get("/hashes", h.NoteHashes)
		r.Get("/links", h.LinkEdges)
		r.Put("/batch", h.UpdateNotes)
		r.Get("/hierarchy", h.NoteEdges)
		r.Post("/hierarchy", h.AttachNote)
		r.Delete("/hierarchy/{childID}", h.DetachNote)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Put("/", h.UpdateNote)
			r.Delete("/", h.DeleteNote)
			r.Get("/history", h.NoteHistory)
			r.Get("/path", h.NotePath)
			r.Get("/hash", h.NoteHash)
			r.Get("/backlinks", h.Backlinks)
			r.Get("/links", h.ForwardLinks)
			r.Get("/children", h.NoteChildren)
			r.Get("/ancestors", h.NoteAncestors)

			r.Get("/tags", h.NoteTags)
			r.Post("/tags", h.TagNote)
			r.Delete("/tags/{tagID}", h.UntagNote)

			r.Get("/attributes", h.NoteAttributes)
			r.Post("/attributes", h.SetAttribute)
			r.Get("/types", h.NoteTypes)
			r.Post("/types", h.AssignType)
			r.Delete("/types/{typeID}", h.UnassignType)

			r.Get("/task", h.NoteTask)
			r.Post("/task", h.PromoteNote)
		})
	})

	r.Route("/tags", func(r chi.Router) {
		r.Get("/", h.ListTags)
		r.Post("/", h.CreateTag)
		r.Get("/tree", h.TagTree)
		r.Get("/hierarchy", h.TagEdges)
		r.Post("/hierarchy", h.AttachTag)
		r.Delete("/hierarchy/{childID}", h.DetachTag)
		r.Get("/{id}", h.GetTag)
		r.Put("/{id}", h.RenameTag)
		r.Delete("/{id}", h.DeleteTag)
		r.Get("/{id}/notes", h.TaggedNotes)
		r.Get("/{id}/children", h.TagChildren)
		r.Get("/{id}/ancestors", h.TagAncestors)
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Get("/tree", h.TaskTree)
		r.Get("/hierarchy", h.TaskEdges)
		r.Post("/hierarchy", h.AttachTask)
		r.Delete("/hierarchy/{childID}", h.DetachTask)
		r.Get("/{id}", h.GetTask)
		r.Patch("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
		r.Put("/{id}/status", h.SetTaskStatus)
		r.Get("/{id}/children", h.TaskChildren)
		r.Get("/{id}/ancestors", h.TaskAncestors)
		r.Get("/{id}/schedules", h.ListSchedules)
		r.Post("/{id}/schedules", h.AddSchedule)
		r.Get("/{id}/clocks", h.ListClocks)
		r.Post("/{id}/clocks", h.ClockIn)
	})
	r.Delete("/schedules/{id}", h.DeleteSchedule)
	r.Post("/clocks/{id}/out", h.ClockOut)

	r.Get("/attributes", h.ListAttributes)
	r.Post("/attributes", h.CreateAttribute)
	r.Delete("/attribute-values/{id}", h.DeleteAttributeValue)

	r.Get("/types", h.ListTypes)
	r.Post("/types", h.CreateType)
	r.Get("/types/{id}/notes", h.NotesOfType)

	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.ListAssets)
		r.Post("/", h.CreateAsset)
		r.Get("/{id}", h.GetAsset)
		r.Put("/{id}", h.UpdateAsset)
		r.Delete("/{id}", h.DeleteAsset)
		r.Delete("/{id}/note", h.DetachAsset)
	})

	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
