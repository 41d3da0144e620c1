package api

import (
	"time"

	"github.com/starford/sprig/internal/core"
	"github.com/starford/sprig/internal/models"
)

// CreateNoteRequest is the request body for creating a note. Any title field
// is ignored; the title is derived from the content.
type CreateNoteRequest = models.NoteInput

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Content string `json:"content" example:"# Updated\nContent"`
}

// AttachRequest places child_id under parent_id in a hierarchy.
type AttachRequest struct {
	ParentID int64  `json:"parent_id" example:"1" validate:"required"`
	ChildID  int64  `json:"child_id" example:"2" validate:"required"`
	EdgeKind string `json:"hierarchy_type,omitempty" example:"block"`
}

// EdgeResponse is returned after a successful attach.
type EdgeResponse struct {
	ID int64 `json:"id" example:"7"`
}

// DeleteResponse lists every entity id removed by a cascading delete.
type DeleteResponse struct {
	Deleted []int64 `json:"deleted"`
}

// NoteDetail is the full note response.
type NoteDetail = core.NoteDetail

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.SearchHit `json:"results" validate:"required"`
}

// NameRequest creates or renames a tag.
type NameRequest struct {
	Name string `json:"name" example:"work" validate:"required"`
}

// TagAttachRequest attaches a tag to a note.
type TagAttachRequest struct {
	TagID int64 `json:"tag_id" example:"3" validate:"required"`
}

// StatusRequest changes a task's status.
type StatusRequest struct {
	Status models.Status `json:"status" example:"done" validate:"required"`
}

// ScheduleRequest adds a schedule window.
type ScheduleRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

// ClockOutRequest closes a clock entry. A missing at means now.
type ClockOutRequest struct {
	At *time.Time `json:"at,omitempty"`
}

// DefinitionRequest creates an attribute or a note type.
type DefinitionRequest struct {
	Name        string `json:"name" example:"author" validate:"required"`
	Description string `json:"description"`
}

// ValueRequest adds an attribute value to a note.
type ValueRequest struct {
	AttributeID int64  `json:"attribute_id" example:"1" validate:"required"`
	Value       string `json:"value" example:"Ada"`
}

// TypeAssignRequest maps a note to a type.
type TypeAssignRequest struct {
	TypeID int64 `json:"type_id" example:"1" validate:"required"`
}

// AssetRequest registers an asset.
type AssetRequest struct {
	Location    string `json:"location" example:"s3://bucket/diagram.png" validate:"required"`
	Description string `json:"description"`
	NoteID      *int64 `json:"note_id,omitempty"`
}

// DescriptionRequest replaces an asset description.
type DescriptionRequest struct {
	Description string `json:"description"`
}

// PathResponse is a rendered note path.
type PathResponse struct {
	Path string `json:"path" example:"/ Projects / Sprig"`
}

// HashResponse is a note hash.
type HashResponse struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
}
