// Package models defines the domain types for sprig.
package models

import "time"

// Note is a unit of free-text content. Title is derived from Content and
// cannot be set by callers.
type Note struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Tags       []Tag     `json:"tags,omitempty"`
}

// NoteInput is the payload for creating a note, optionally as the child of another.
type NoteInput struct {
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
	EdgeKind string `json:"hierarchy_type,omitempty"`
}

// NoteEdit is one element of a batch update.
type NoteEdit struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// NoteTreeNode is one node of a bulk tree update. A node with ID <= 0 is
// created. An existing note keeps its content unless Content is set. Titles
// are always derived, so the node carries none.
type NoteTreeNode struct {
	ID       int64          `json:"id"`
	Content  *string        `json:"content,omitempty"`
	EdgeKind string         `json:"hierarchy_type,omitempty"`
	Children []NoteTreeNode `json:"children,omitempty"`
}

// ListOptions controls note listing.
type ListOptions struct {
	WithContent bool
	ParentID    *int64
}

// Modification is a pre-image of a note's content captured before an update.
type Modification struct {
	ID              int64     `json:"id"`
	NoteID          int64     `json:"note_id"`
	PreviousContent string    `json:"previous_content"`
	ModifiedAt      time.Time `json:"modified_at"`
}

// Edge is a parent/child link in one of the hierarchies.
type Edge struct {
	ID        int64     `json:"id"`
	ParentID  int64     `json:"parent_id"`
	ChildID   int64     `json:"child_id"`
	Kind      string    `json:"hierarchy_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Link is a reference from one note's content to another note.
type Link struct {
	SourceID int64 `json:"source"`
	TargetID int64 `json:"target"`
}

// NoteHash is the content hash of a single note.
type NoteHash struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
}

// SearchHit is one ranked result from the search index.
type SearchHit struct {
	Kind    string  `json:"kind"`
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Rank    float64 `json:"rank"`
}

// Search document kinds.
const (
	KindNote  = "note"
	KindAsset = "asset"
)
