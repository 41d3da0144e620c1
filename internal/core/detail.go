package core

import (
	"context"
	"errors"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/models"
)

// NoteDetail is a note together with everything attached to it.
type NoteDetail struct {
	models.Note
	Path       string                  `json:"path"`
	Hash       string                  `json:"hash"`
	ParentID   *int64                  `json:"parent_id,omitempty"`
	Task       *models.Task            `json:"task,omitempty"`
	Attributes []models.AttributeValue `json:"attributes"`
	Types      []models.NoteType       `json:"types"`
	Backlinks  []models.Note           `json:"backlinks"`
}

// Detail loads a note with its path, tags, task, attributes, types and
// backlinks. Each part is read separately, so a concurrent writer may be
// visible in some parts and not others.
func (c *Core) Detail(ctx context.Context, id int64) (*NoteDetail, error) {
	n, err := c.Notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := &NoteDetail{Note: *n}

	if d.Tags, err = c.Tags.TagsOf(ctx, id); err != nil {
		return nil, err
	}
	if d.Path, err = c.Notes.Path(ctx, id, nil); err != nil {
		return nil, err
	}
	if d.Hash, err = c.Notes.Hash(ctx, id); err != nil {
		return nil, err
	}
	ancestors, err := c.Notes.Ancestors(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(ancestors) > 0 {
		d.ParentID = &ancestors[0].ID
	}
	task, err := c.Tasks.GetByNote(ctx, id)
	switch {
	case err == nil:
		d.Task = task
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}
	if d.Attributes, err = c.Registry.Values(ctx, id); err != nil {
		return nil, err
	}
	if d.Types, err = c.Registry.TypesOf(ctx, id); err != nil {
		return nil, err
	}
	if d.Backlinks, err = c.Notes.Backlinks(ctx, id); err != nil {
		return nil, err
	}
	return d, nil
}
