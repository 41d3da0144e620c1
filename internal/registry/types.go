package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
)

// CreateType registers a note type. Names are unique.
func (r *Registry) CreateType(ctx context.Context, name, description string) (*models.NoteType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("type name is required")
	}
	var id int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO note_types (name, description) VALUES (?, ?)`, name, description)
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("type %q already exists", name)
		}
		if err != nil {
			return fmt.Errorf("registry: insert type: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.NoteType{ID: id, Name: name, Description: description}, nil
}

// EnsureType returns the type with the given name, creating it when missing.
func (r *Registry) EnsureType(ctx context.Context, name string) (*models.NoteType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("type name is required")
	}
	var t models.NoteType
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_types (name, description) VALUES (?, '')`, name); err != nil {
			return fmt.Errorf("registry: ensure type: %w", err)
		}
		return tx.QueryRowContext(ctx,
			`SELECT id, name, description FROM note_types WHERE name = ?`, name).
			Scan(&t.ID, &t.Name, &t.Description)
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTypes returns every note type ordered by name.
func (r *Registry) ListTypes(ctx context.Context) ([]models.NoteType, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT id, name, description FROM note_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("registry: list types: %w", err)
	}
	return scanTypes(rows)
}

// AssignType maps a note to a type. Assigning twice is a no-op.
func (r *Registry) AssignType(ctx context.Context, noteID, typeID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := mustExist(ctx, tx, "notes", "note", noteID); err != nil {
			return err
		}
		if err := mustExist(ctx, tx, "note_types", "type", typeID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_type_mappings (note_id, type_id) VALUES (?, ?)`,
			noteID, typeID); err != nil {
			return fmt.Errorf("registry: assign type: %w", err)
		}
		return nil
	})
}

// UnassignType removes a note-type mapping.
func (r *Registry) UnassignType(ctx context.Context, noteID, typeID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM note_type_mappings WHERE note_id = ? AND type_id = ?`, noteID, typeID)
		if err != nil {
			return fmt.Errorf("registry: unassign type: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("note %d does not have type %d", noteID, typeID)
		}
		return nil
	})
}

// TypesOf returns the types of a note.
func (r *Registry) TypesOf(ctx context.Context, noteID int64) ([]models.NoteType, error) {
	if err := mustExist(ctx, r.db.Conn(), "notes", "note", noteID); err != nil {
		return nil, err
	}
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT t.id, t.name, t.description
		FROM note_type_mappings m JOIN note_types t ON t.id = m.type_id
		WHERE m.note_id = ?
		ORDER BY t.name
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("registry: types of note: %w", err)
	}
	return scanTypes(rows)
}

// NotesOfType returns the ids of notes mapped to a type.
func (r *Registry) NotesOfType(ctx context.Context, typeID int64) ([]int64, error) {
	var name string
	err := r.db.Conn().QueryRowContext(ctx, `SELECT name FROM note_types WHERE id = ?`, typeID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("type %d not found", typeID)
	}
	if err != nil {
		return nil, fmt.Errorf("registry: get type: %w", err)
	}
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT note_id FROM note_type_mappings WHERE type_id = ? ORDER BY note_id`, typeID)
	if err != nil {
		return nil, fmt.Errorf("registry: notes of type: %w", err)
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

func scanTypes(rows *sql.Rows) ([]models.NoteType, error) {
	defer rows.Close()
	out := []models.NoteType{}
	for rows.Next() {
		var t models.NoteType
		if err := rows.Scan(&t.ID, &t.Name, &t.Description); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
