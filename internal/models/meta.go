package models

import "time"

// Tag labels notes. Names need not be unique.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Attribute is a named key that notes may carry values for.
type Attribute struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AttributeValue is one value of an attribute on a note. A note may hold
// several values for the same attribute.
type AttributeValue struct {
	ID          int64  `json:"id"`
	NoteID      int64  `json:"note_id"`
	AttributeID int64  `json:"attribute_id"`
	Name        string `json:"name"`
	Value       string `json:"value"`
}

// NoteType classifies notes, e.g. "page", "block" or "template".
type NoteType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Asset is an index row for an externally stored file.
type Asset struct {
	ID          int64     `json:"id"`
	NoteID      *int64    `json:"note_id,omitempty"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
