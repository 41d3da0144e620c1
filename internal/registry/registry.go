// Package registry stores named attributes with per-note values and the
// note type catalogue.
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

// Registry owns attributes, attribute values, note types and type mappings.
type Registry struct {
	db *db.DB
}

// New creates a new registry.
func New(d *db.DB) *Registry {
	return &Registry{db: d}
}

// CreateAttribute registers a new attribute. Names are unique.
func (r *Registry) CreateAttribute(ctx context.Context, name, description string) (*models.Attribute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("attribute name is required")
	}
	var id int64
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO attributes (name, description) VALUES (?, ?)`, name, description)
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("attribute %q already exists", name)
		}
		if err != nil {
			return fmt.Errorf("registry: insert attribute: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return &models.Attribute{ID: id, Name: name, Description: description}, nil
}

// ListAttributes returns every attribute ordered by name.
func (r *Registry) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT id, name, description FROM attributes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("registry: list attributes: %w", err)
	}
	defer rows.Close()

	out := []models.Attribute{}
	for rows.Next() {
		var a models.Attribute
		if err := rows.Scan(&a.ID, &a.Name, &a.Description); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetValue adds a value of an attribute to a note. A note may carry several
// values for the same attribute.
func (r *Registry) SetValue(ctx context.Context, noteID, attributeID int64, value string) (*models.AttributeValue, error) {
	v := &models.AttributeValue{NoteID: noteID, AttributeID: attributeID, Value: value}
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := mustExist(ctx, tx, "notes", "note", noteID); err != nil {
			return err
		}
		err := tx.QueryRowContext(ctx, `SELECT name FROM attributes WHERE id = ?`, attributeID).Scan(&v.Name)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("attribute %d not found", attributeID)
		}
		if err != nil {
			return fmt.Errorf("registry: get attribute: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO note_attributes (note_id, attribute_id, value) VALUES (?, ?, ?)`,
			noteID, attributeID, value)
		if err != nil {
			return fmt.Errorf("registry: insert value: %w", err)
		}
		v.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Values returns the attribute values of a note in insertion order.
func (r *Registry) Values(ctx context.Context, noteID int64) ([]models.AttributeValue, error) {
	if err := mustExist(ctx, r.db.Conn(), "notes", "note", noteID); err != nil {
		return nil, err
	}
	rows, err := r.db.Conn().QueryContext(ctx, `
		SELECT na.id, na.note_id, na.attribute_id, a.name, na.value
		FROM note_attributes na JOIN attributes a ON a.id = na.attribute_id
		WHERE na.note_id = ?
		ORDER BY na.id
	`, noteID)
	if err != nil {
		return nil, fmt.Errorf("registry: values: %w", err)
	}
	defer rows.Close()

	out := []models.AttributeValue{}
	for rows.Next() {
		var v models.AttributeValue
		if err := rows.Scan(&v.ID, &v.NoteID, &v.AttributeID, &v.Name, &v.Value); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteValue removes one attribute value.
func (r *Registry) DeleteValue(ctx context.Context, valueID int64) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM note_attributes WHERE id = ?`, valueID)
		if err != nil {
			return fmt.Errorf("registry: delete value: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("attribute value %d not found", valueID)
		}
		return nil
	})
}

// DeleteForNote removes the attribute values and type mappings of a note.
func (r *Registry) DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_attributes WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("registry: delete values for note: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_type_mappings WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("registry: delete types for note: %w", err)
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
