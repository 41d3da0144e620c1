// Package assets keeps index rows for externally stored files. The files
// themselves are never read or written here; a row carries the location, a
// description that is searchable like note content, and an optional note.
package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/sprig/internal/apperr"
	"github.com/starford/sprig/internal/db"
	"github.com/starford/sprig/internal/models"
	"github.com/starford/sprig/internal/search"
)

// Service owns asset rows and their search documents.
type Service struct {
	db    *db.DB
	index *search.Indexer
	now   func() time.Time
}

// NewService creates a new asset service.
func NewService(d *db.DB, idx *search.Indexer) *Service {
	return &Service{db: d, index: idx, now: time.Now}
}

// Create registers an asset. Locations are unique.
func (s *Service) Create(ctx context.Context, location, description string, noteID *int64) (*models.Asset, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, apperr.Validation("asset location is required")
	}
	a := &models.Asset{NoteID: noteID, Location: location, Description: description, CreatedAt: s.now().UTC()}
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if noteID != nil {
			ok, err := db.Exists(ctx, tx, "notes", *noteID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.NotFound("note %d not found", *noteID)
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO assets (note_id, location, description, created_at) VALUES (?, ?, ?, ?)`,
			noteID, location, description, db.FormatTime(a.CreatedAt))
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("asset location %q already registered", location)
		}
		if err != nil {
			return fmt.Errorf("assets: insert: %w", err)
		}
		if a.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return s.index.Reindex(ctx, tx, models.KindAsset, a.ID, title(location), description)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns one asset.
func (s *Service) Get(ctx context.Context, id int64) (*models.Asset, error) {
	rows, err := s.db.Conn().QueryContext(ctx,
		`SELECT id, note_id, location, description, created_at FROM assets WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("assets: get: %w", err)
	}
	list, err := scanAssets(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, apperr.NotFound("asset %d not found", id)
	}
	return &list[0], nil
}

// List returns assets ordered by id. A non-nil noteID limits the result to
// the assets of that note.
func (s *Service) List(ctx context.Context, noteID *int64) ([]models.Asset, error) {
	query := `SELECT id, note_id, location, description, created_at FROM assets`
	var args []any
	if noteID != nil {
		query += ` WHERE note_id = ?`
		args = append(args, *noteID)
	}
	rows, err := s.db.Conn().QueryContext(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("assets: list: %w", err)
	}
	return scanAssets(rows)
}

// UpdateDescription replaces the description and reindexes it.
func (s *Service) UpdateDescription(ctx context.Context, id int64, description string) (*models.Asset, error) {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var location string
		err := tx.QueryRowContext(ctx, `SELECT location FROM assets WHERE id = ?`, id).Scan(&location)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("asset %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("assets: get: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE assets SET description = ? WHERE id = ?`, description, id); err != nil {
			return fmt.Errorf("assets: update: %w", err)
		}
		return s.index.Reindex(ctx, tx, models.KindAsset, id, title(location), description)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes an asset row and its search document.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("assets: delete: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("asset %d not found", id)
		}
		return s.index.Remove(ctx, tx, models.KindAsset, id)
	})
}

// DetachNote clears the note reference of an asset.
func (s *Service) DetachNote(ctx context.Context, id int64) (*models.Asset, error) {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE assets SET note_id = NULL WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("assets: detach note: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperr.NotFound("asset %d not found", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// DeleteForNote keeps the assets of a deleted note but drops the reference.
func (s *Service) DeleteForNote(ctx context.Context, tx *sql.Tx, noteID int64) error {
	if _, err := tx.ExecContext(ctx, `UPDATE assets SET note_id = NULL WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("assets: release note: %w", err)
	}
	return nil
}

// title is the base name of the location, used as the search title.
func title(location string) string {
	return path.Base(strings.ReplaceAll(location, "\\", "/"))
}

func scanAssets(rows *sql.Rows) ([]models.Asset, error) {
	defer rows.Close()
	out := []models.Asset{}
	for rows.Next() {
		var (
			a      models.Asset
			noteID sql.NullInt64
			at     string
		)
		if err := rows.Scan(&a.ID, &noteID, &a.Location, &a.Description, &at); err != nil {
			return nil, err
		}
		if noteID.Valid {
			a.NoteID = &noteID.Int64
		}
		var err error
		if a.CreatedAt, err = db.ParseTime(at); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
