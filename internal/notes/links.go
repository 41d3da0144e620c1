package notes

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/sprig/internal/models"
)

// writeLinks replaces the outgoing link rows of a note.
func (s *Service) writeLinks(ctx context.Context, tx *sql.Tx, id int64, targets []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_links WHERE source_id = ?`, id); err != nil {
		return fmt.Errorf("notes: clear links: %w", err)
	}
	if len(targets) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO note_links (source_id, target_id) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("notes: prepare link insert: %w", err)
	}
	defer stmt.Close()
	for _, target := range targets {
		if _, err := stmt.ExecContext(ctx, id, target); err != nil {
			return fmt.Errorf("notes: insert link: %w", err)
		}
	}
	return nil
}

// ForwardLinks returns the existing notes that id links to.
func (s *Service) ForwardLinks(ctx context.Context, id int64) ([]models.Note, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT `+noteColumns(false)+`
		FROM note_links l JOIN notes n ON n.id = l.target_id
		WHERE l.source_id = ?
		ORDER BY n.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("notes: forward links: %w", err)
	}
	return scanNotes(rows, false)
}

// Backlinks returns the notes whose content links to id.
func (s *Service) Backlinks(ctx context.Context, id int64) ([]models.Note, error) {
	if err := s.mustExist(ctx, s.db.Conn(), id); err != nil {
		return nil, err
	}
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT `+noteColumns(false)+`
		FROM note_links l JOIN notes n ON n.id = l.source_id
		WHERE l.target_id = ?
		ORDER BY n.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("notes: backlinks: %w", err)
	}
	return scanNotes(rows, false)
}

// LinkEdges returns every link between two existing notes.
func (s *Service) LinkEdges(ctx context.Context) ([]models.Link, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT l.source_id, l.target_id
		FROM note_links l JOIN notes n ON n.id = l.target_id
		ORDER BY l.source_id, l.target_id
	`)
	if err != nil {
		return nil, fmt.Errorf("notes: link edges: %w", err)
	}
	defer rows.Close()

	out := []models.Link{}
	for rows.Next() {
		var l models.Link
		if err := rows.Scan(&l.SourceID, &l.TargetID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
