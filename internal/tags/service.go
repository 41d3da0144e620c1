// Package tags manages tags, the tag hierarchy and note-tag attachments.
// Attaching a tag to a note never implies its ancestor tags.
package tags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/hierarchy"
	"github.com/starford/sprig/internal/models"
)

// Service is the tag graph.
type Service struct {
	db   *db.DB
	tree *hierarchy.Manager
	now  func() time.Time
}

// NewService creates a new tag service.
func NewService(d *db.DB) *Service {
	s := &Service{db: d, now: time.Now}
	s.tree = hierarchy.New(hierarchy.Tags, s.deleteOne)
	return s
}

// Create stores a new tag. Names are trimmed and must not be empty.
func (s *Service) Create(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("tag name is required")
	}
	at := s.now().UTC()
	var id int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO tags (name, created_at) VALUES (?, ?)`, name, db.FormatTime(at))
		if err != nil {
			return fmt.Errorf("tags: insert: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.Tag{ID: id, Name: name, CreatedAt: at}, nil
}

// Get returns one tag.
func (s *Service) Get(ctx context.Context, id int64) (*models.Tag, error) {
	var (
		t  models.Tag
		at string
	)
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = ?`, id).Scan(&t.ID, &t.Name, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("tag %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("tags: get: %w", err)
	}
	if t.CreatedAt, err = db.ParseTime(at); err != nil {
		return nil, err
	}
	return &t, nil
}

// List returns every tag ordered by id.
func (s *Service) List(ctx context.Context) ([]models.Tag, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `SELECT id, name, created_at FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("tags: list: %w", err)
	}
	return scanTags(rows)
}

// Rename changes a tag's name.
func (s *Service) Rename(ctx context.Context, id int64, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("tag name is required")
	}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tags SET name = ? WHERE id = ?`, name, id)
		if err != nil {
			return fmt.Errorf("tags: rename: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("tag %d not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a tag and its descendant tags, with their attachments.
func (s *Service) Delete(ctx context.Context, id int64) ([]int64, error) {
	var removed []int64
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		ids, err := s.tree.DeleteSubtree(ctx, tx, id)
		removed = ids
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Attach tags a note. Attaching an already attached tag is a no-op.
func (s *Service) Attach(ctx context.Context, noteID, tagID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := mustExist(ctx, tx, "notes", "note", noteID); err != nil {
			return err
		}
		if err := mustExist(ctx, tx, "tags", "tag", tagID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_tags (note_id, tag_id, created_at) VALUES (?, ?, ?)`,
			noteID, tagID, db.FormatTime(s.now()))
		if err != nil {
			return fmt.Errorf("tags: attach: %w", err)
		}
		return nil
	})
}

// Detach removes a tag from a note.
func (s *Service) Detach(ctx context.Context, noteID, tagID int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM note_tags WHERE note_id = ? AND tag_id = ?`, noteID, tagID)
		if err != nil {
			return fmt.Errorf("tags: detach: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("tag %d is not attached to note %d", tagID, noteID)
		}
		return nil
	})
}

// TagsOf returns the tags attached to a note.
func (s *Service) TagsOf(ctx context.Context, noteID int64) ([]models.Tag, error) {
	if err := mustExist(ctx, s.db.Conn(), "notes", "note", noteID); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT t.id, t.name, t.created_at
		FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
		WHERE nt.note_id = ?
		ORDER BY t.id
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("tags: tags of note: %w", err)
	}
	return scanTags(rows)
}

// TagsByNote returns the tags of every tagged note, keyed by note id.
func (s *Service) TagsByNote(ctx context.Context) (map[int64][]models.Tag, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT nt.note_id, t.id, t.name, t.created_at
		FROM note_tags nt JOIN tags t ON t.id = nt.tag_id
		ORDER BY nt.note_id, t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("tags: tags by note: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.Tag)
	for rows.Next() {
		var (
			noteID int64
			t      models.Tag
			at     string
		)
		if err := rows.Scan(&noteID, &t.ID, &t.Name, &at); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out[noteID] = append(out[noteID], t)
	}
	return out, rows.Err()
}

// TaggedNotes returns the ids of notes carrying tagID. With
// includeDescendants, notes carrying any tag below tagID are included too.
func (s *Service) TaggedNotes(ctx context.Context, tagID int64, includeDescendants bool) ([]int64, error) {
	conn := s.db.Conn()
	if err := mustExist(ctx, conn, "tags", "tag", tagID); err != nil {
		return nil, err
	}
	tagIDs := []int64{tagID}
	if includeDescendants {
		desc, err := s.tree.DescendantsOf(ctx, conn, tagID)
		if err != nil {
			return nil, err
		}
		tagIDs = append(tagIDs, desc...)
	}
	args := make([]any, len(tagIDs))
	for i, id := range tagIDs {
		args[i] = id
	}
	rows, err := conn.QueryContext(ctx,
		`SELECT DISTINCT note_id FROM note_tags WHERE tag_id IN (?`+strings.Repeat(",?", len(tagIDs)-1)+`) ORDER BY note_id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("tags: tagged notes: %w", err)
	}
	defer rows.Close()
	out := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteForNote removes every attachment of a note.
func (s *Service) DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("tags: delete for note: %w", err)
	}
	return nil
}

func (s *Service) deleteOne(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_tags WHERE tag_id = ?`, id); err != nil {
		return fmt.Errorf("tags: delete attachments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id); err != nil {
		return fmt.Errorf("tags: delete: %w", err)
	}
	return nil
}

func mustExist(ctx context.Context, q db.Querier, table, name string, id int64) error {
	ok, err := db.Exists(ctx, q, table, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("%s %d not found", name, id)
	}
	return nil
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	defer rows.Close()
	out := []models.Tag{}
	for rows.Next() {
		var (
			t  models.Tag
			at string
		)
		if err := rows.Scan(&t.ID, &t.Name, &at); err != nil {
			return nil, err
		}
		var err error
		if t.CreatedAt, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
